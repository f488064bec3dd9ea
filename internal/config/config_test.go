package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNew_DefaultsValidate(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error for defaults: %v", err)
	}
	if cfg.Runtime.Contributors != 10 {
		t.Errorf("expected 10 contributor lookups by default, got %d", cfg.Runtime.Contributors)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.Server.Addr)
	}
}

func TestValidate_NormalizesLists(t *testing.T) {
	cfg := New()
	cfg.Server.AllowedOrigins = []string{"http://a.test, http://b.test", ",,"}
	cfg.Output.Emit = []string{" NDJSON "}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	if want := []string{"http://a.test", "http://b.test"}; !reflect.DeepEqual(cfg.Server.AllowedOrigins, want) {
		t.Fatalf("AllowedOrigins mismatch: got %v want %v", cfg.Server.AllowedOrigins, want)
	}
	if want := []string{"ndjson"}; !reflect.DeepEqual(cfg.Output.Emit, want) {
		t.Fatalf("Emit mismatch: got %v want %v", cfg.Output.Emit, want)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"console format", func(c *Config) { c.Output.ConsoleFormat = "yaml" }, "unsupported --console-format"},
		{"empty console format", func(c *Config) { c.Output.ConsoleFormat = " " }, "--console-format must be one of"},
		{"emit", func(c *Config) { c.Output.Emit = []string{"text"} }, "unsupported --emit value"},
		{"width", func(c *Config) { c.Output.ContributorWidth = -1 }, "--width"},
		{"out without extension", func(c *Config) { c.Output.Out = "results" }, "missing extension"},
		{"out unknown extension", func(c *Config) { c.Output.Out = "results.txt" }, `".txt"`},
		{"out format", func(c *Config) { c.Output.Out = "r.json"; c.Output.OutFormat = "xml" }, "unsupported output format"},
		{"contributors negative", func(c *Config) { c.Runtime.Contributors = -1 }, "--contributors"},
		{"contributors too many", func(c *Config) { c.Runtime.Contributors = 101 }, "--contributors"},
		{"timeout", func(c *Config) { c.Runtime.Timeout = 0 }, "--timeout"},
		{"contributor wait", func(c *Config) { c.Runtime.ContributorWait = 0 }, "--contributor-wait"},
		{"addr", func(c *Config) { c.Server.Addr = "" }, "--addr"},
		{"origin", func(c *Config) { c.Server.AllowedOrigins = []string{"example.com"} }, "--allowed-origins"},
		{"base url", func(c *Config) { c.GitHub.BaseURL = "not a url" }, "base URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_InfersOutFormat(t *testing.T) {
	tests := map[string]string{
		"out.json":   "json",
		"out.ndjson": "ndjson",
		"out.jsonl":  "ndjson",
	}
	for path, want := range tests {
		cfg := New()
		cfg.Output.Out = path
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s: Validate() returned error: %v", path, err)
		}
		if cfg.Output.OutFormat != want {
			t.Errorf("%s: expected %s, got %s", path, want, cfg.Output.OutFormat)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toprepos.yaml")
	content := `output:
  console_format: json
  contributor_width: 40
runtime:
  contributors: 25
  timeout: 45s
server:
  allowed_origins:
    - http://localhost:3000
github:
  base_url: https://ghe.example.com/api/v3/
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	cfg := New()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if cfg.Output.ConsoleFormat != "json" || cfg.Output.ContributorWidth != 40 {
		t.Errorf("unexpected output section: %+v", cfg.Output)
	}
	if cfg.Runtime.Contributors != 25 || cfg.Runtime.Timeout != 45*time.Second {
		t.Errorf("unexpected runtime section: %+v", cfg.Runtime)
	}
	if cfg.Runtime.ContributorWait != 30*time.Second {
		t.Errorf("expected unset key to keep default, got %v", cfg.Runtime.ContributorWait)
	}
	if cfg.Server.Addr != ":8080" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.GitHub.BaseURL != "https://ghe.example.com/api/v3/" {
		t.Errorf("unexpected base url %q", cfg.GitHub.BaseURL)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := LoadFile(filepath.Join(dir, "missing.yaml"), New()); err == nil {
		t.Errorf("expected error for missing file")
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	_ = os.WriteFile(unknown, []byte("runtime:\n  concurrency: 4\n"), 0o644)
	if err := LoadFile(unknown, New()); err == nil {
		t.Errorf("expected error for unknown key")
	}

	empty := filepath.Join(dir, "empty.yaml")
	_ = os.WriteFile(empty, nil, 0o644)
	if err := LoadFile(empty, New()); err != nil {
		t.Errorf("expected empty file to be accepted, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvGitHubToken:     "ghp_test",
		EnvConsoleFormat:   "ndjson",
		EnvContributors:    "5",
		EnvTimeout:         "10s",
		EnvAllowedOrigins:  "http://a.test,http://b.test",
		EnvContributorWait: "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := New()
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}

	if cfg.GitHub.Token != "ghp_test" {
		t.Errorf("expected token from env, got %q", cfg.GitHub.Token)
	}
	if cfg.Output.ConsoleFormat != "ndjson" || cfg.Runtime.Contributors != 5 || cfg.Runtime.Timeout != 10*time.Second {
		t.Errorf("env not applied: %+v %+v", cfg.Output, cfg.Runtime)
	}
	if cfg.Runtime.ContributorWait != 30*time.Second {
		t.Errorf("empty env value should keep default, got %v", cfg.Runtime.ContributorWait)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	lookup := func(k string) (string, bool) {
		switch k {
		case EnvContributors:
			return "many", true
		case EnvTimeout:
			return "soon", true
		}
		return "", false
	}
	err := ApplyEnv(New(), lookup)
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{EnvContributors, EnvTimeout} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("TOPREPOS_DOTENV_PROBE=from-file\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	t.Setenv("TOPREPOS_DOTENV_PROBE", "")
	os.Unsetenv("TOPREPOS_DOTENV_PROBE")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv error: %v", err)
	}
	if got := os.Getenv("TOPREPOS_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("expected from-file, got %q", got)
	}
}
