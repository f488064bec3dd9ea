package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli (list.go, serve.go, root.go flagFields)
	// - environment overlay in load.go
	// - the environment section of the list help template
	Output  Output  `yaml:"output"`
	Runtime Runtime `yaml:"runtime"`
	Server  Server  `yaml:"server"`
	GitHub  GitHub  `yaml:"github"`
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string `yaml:"console_format"`

	// ContributorWidth bounds the contributor summary of each text row in
	// characters (see --width). 0 means unlimited.
	ContributorWidth int `yaml:"contributor_width"`

	// Report writes a Markdown report to this path (see --report).
	Report string `yaml:"report"`

	// Out writes structured output to this path (see --out).
	Out string `yaml:"out"`

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string `yaml:"out_format"`

	// Emit writes an additional structured stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string `yaml:"emit"`

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool `yaml:"no_console"`
}

type Runtime struct {
	// Contributors is how many of the listed repositories get a contributor
	// lookup (see --contributors). 0 disables lookups.
	Contributors int `yaml:"contributors"`

	// Timeout bounds the whole `list` run (see --timeout). Must be > 0.
	Timeout time.Duration `yaml:"timeout"`

	// ContributorWait is how long `list` waits for contributor results after
	// the repository list arrives (see --contributor-wait).
	ContributorWait time.Duration `yaml:"contributor_wait"`

	// Verbose enables debug logging on stderr (see --verbose).
	Verbose bool `yaml:"verbose"`
}

type Server struct {
	// Addr is the listen address for `serve` (see --addr).
	Addr string `yaml:"addr"`

	// AllowedOrigins lists CORS origins for browser clients (see --allowed-origins).
	// Values may be provided as repeated flags and/or comma-separated lists.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type GitHub struct {
	// Token authenticates API requests to raise rate limits (see --token).
	// Never read from the config file.
	Token string `yaml:"-"`

	// BaseURL overrides the REST API endpoint, e.g. for GitHub Enterprise.
	BaseURL string `yaml:"base_url"`

	// UseGitHubCLI allows falling back to `gh auth token` when no token is set.
	UseGitHubCLI bool `yaml:"use_gh_cli"`

	// RequestTimeout bounds each HTTP request to the API.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// MaxContributors is the most lookups a run can ask for; the search returns
// one page of 100 repositories.
const MaxContributors = 100

func New() *Config {
	return &Config{
		Output: Output{
			ConsoleFormat:    "text",
			ContributorWidth: 60,
		},
		Runtime: Runtime{
			Contributors:    10,
			Timeout:         2 * time.Minute,
			ContributorWait: 30 * time.Second,
		},
		Server: Server{
			Addr: ":8080",
		},
		GitHub: GitHub{
			UseGitHubCLI:   true,
			RequestTimeout: 30 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	c.Server.AllowedOrigins = splitCommaList(c.Server.AllowedOrigins)
	c.Output.Emit = splitCommaList(c.Output.Emit)

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
		c.Output.Emit[i] = v
	}

	if c.Output.ContributorWidth < 0 {
		return errors.New("--width must be >= 0")
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Contributors < 0 || c.Runtime.Contributors > MaxContributors {
		return fmt.Errorf("--contributors must be between 0 and %d", MaxContributors)
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.ContributorWait <= 0 {
		return errors.New("--contributor-wait must be > 0")
	}

	// Server validation
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		return errors.New("--addr must not be empty")
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid --allowed-origins entry %q: expected scheme://host", origin)
		}
	}

	// GitHub validation
	c.GitHub.Token = strings.TrimSpace(c.GitHub.Token)
	if c.GitHub.BaseURL != "" {
		u, err := url.Parse(c.GitHub.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid GitHub base URL %q", c.GitHub.BaseURL)
		}
	}
	if c.GitHub.RequestTimeout < 0 {
		return errors.New("GitHub request timeout must be >= 0")
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
