package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvGitHubAPIURL     = "TOPREPOS_GITHUB_API_URL"
	EnvConsoleFormat    = "TOPREPOS_CONSOLE_FORMAT"
	EnvContributors     = "TOPREPOS_CONTRIBUTORS"
	EnvContributorWidth = "TOPREPOS_WIDTH"
	EnvTimeout          = "TOPREPOS_TIMEOUT"
	EnvContributorWait  = "TOPREPOS_CONTRIBUTOR_WAIT"
	EnvAddr             = "TOPREPOS_ADDR"
	EnvAllowedOrigins   = "TOPREPOS_ALLOWED_ORIGINS"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into
// the process environment without overriding variables already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the file
// keep their current values; unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("load config: nil config")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if cfg == nil {
		return errors.New("apply env: nil config")
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str(EnvGitHubToken, &cfg.GitHub.Token)
	str(EnvGitHubAPIURL, &cfg.GitHub.BaseURL)
	str(EnvConsoleFormat, &cfg.Output.ConsoleFormat)
	str(EnvAddr, &cfg.Server.Addr)
	if v, ok := lookup(EnvAllowedOrigins); ok && v != "" {
		cfg.Server.AllowedOrigins = []string{v}
	}

	return errors.Join(
		integer(EnvContributors, &cfg.Runtime.Contributors),
		integer(EnvContributorWidth, &cfg.Output.ContributorWidth),
		duration(EnvTimeout, &cfg.Runtime.Timeout),
		duration(EnvContributorWait, &cfg.Runtime.ContributorWait),
	)
}

// Load builds a Config from defaults, then the optional YAML file, then the
// environment (after .env is loaded). Flags are applied by the caller.
func Load(path string) (*Config, error) {
	cfg := New()
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}
