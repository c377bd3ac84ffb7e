package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  addr: ":9090"
  read_timeout: 10s
github:
  base_url: https://ghe.example.com/api/v3
  token: ghp_inline
  timeout: 5s
store:
  driver: memory
  max_bytes: 1048576
cache:
  default_ttl: 15m
views:
  contributors_repo: kubernetes/kubernetes
  explore_limit: 25
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, ":9090")
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.GitHub.BaseURL != "https://ghe.example.com/api/v3" {
		t.Errorf("base url = %q", cfg.GitHub.BaseURL)
	}
	if cfg.GitHub.Token != "ghp_inline" {
		t.Errorf("token = %q", cfg.GitHub.Token)
	}
	if cfg.Store.Driver != "memory" || cfg.Store.MaxBytes != 1<<20 {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Cache.DefaultTTL != 15*time.Minute {
		t.Errorf("ttl = %v", cfg.Cache.DefaultTTL)
	}
	owner, name := cfg.ContributorsRepo()
	if owner != "kubernetes" || name != "kubernetes" {
		t.Errorf("contributors repo = %s/%s", owner, name)
	}
	if cfg.Views.ExploreLimit != 25 {
		t.Errorf("explore limit = %d", cfg.Views.ExploreLimit)
	}
	// Unset keys keep their defaults.
	if cfg.Views.ExploreQuery != "stars:>10000" {
		t.Errorf("explore query = %q", cfg.Views.ExploreQuery)
	}
}

func TestExpandEnv(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv
	t.Setenv("TEST_GH_TOKEN", "ghp_secret_123")

	path := writeConfig(t, "github:\n  token: ${TEST_GH_TOKEN}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Token != "ghp_secret_123" {
		t.Errorf("token = %q, want expanded value", cfg.GitHub.Token)
	}

	result := expandEnv([]byte("key: ${TEST_GH_TOKEN} other: ${TEST_GH_UNSET_VAR}"))
	if string(result) != "key: ghp_secret_123 other: ${TEST_GH_UNSET_VAR}" {
		t.Errorf("expandEnv = %q", string(result))
	}
}

func TestTokenFallsBackToEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_from_env")

	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Token != "ghp_from_env" {
		t.Errorf("token = %q, want ghp_from_env", cfg.GitHub.Token)
	}
}

func TestUnresolvedTokenIsEmpty(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	os.Unsetenv("GITHUB_TOKEN")

	cfg, err := Load("../../configs/ghdash.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Token != "" {
		t.Errorf("token = %q, want empty", cfg.GitHub.Token)
	}
}

func TestUnresolvedTokenFallsBackToEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_from_env")

	cfg, err := Load(writeConfig(t, "github:\n  token: ${GHDASH_TEST_UNSET_TOKEN}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Token != "ghp_from_env" {
		t.Errorf("token = %q, want ghp_from_env", cfg.GitHub.Token)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "ghdash.db" {
		t.Errorf("default store = %+v", cfg.Store)
	}
	if cfg.Store.MaxBytes != 5<<20 {
		t.Errorf("default max bytes = %d", cfg.Store.MaxBytes)
	}
	if cfg.Cache.DefaultTTL != time.Hour {
		t.Errorf("default ttl = %v, want 1h", cfg.Cache.DefaultTTL)
	}
	if cfg.GitHub.BaseURL != "https://api.github.com" {
		t.Errorf("default base url = %q", cfg.GitHub.BaseURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformed(t *testing.T) {
	t.Parallel()
	if _, err := Load(writeConfig(t, "server: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "memory driver needs no dsn", mutate: func(c *Config) { c.Store.Driver = "memory"; c.Store.DSN = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }, wantErr: "store.driver"},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Store.DSN = "" }, wantErr: "store.dsn"},
		{name: "negative quota", mutate: func(c *Config) { c.Store.MaxBytes = -1 }, wantErr: "store.max_bytes"},
		{name: "zero ttl", mutate: func(c *Config) { c.Cache.DefaultTTL = 0 }, wantErr: "cache.default_ttl"},
		{name: "repo without owner", mutate: func(c *Config) { c.Views.ContributorsRepo = "go" }, wantErr: "contributors_repo"},
		{name: "repo with extra segment", mutate: func(c *Config) { c.Views.ContributorsRepo = "a/b/c" }, wantErr: "contributors_repo"},
		{name: "explore limit too high", mutate: func(c *Config) { c.Views.ExploreLimit = 101 }, wantErr: "explore_limit"},
		{name: "tracing without endpoint", mutate: func(c *Config) { c.Telemetry.Tracing.Enabled = true }, wantErr: "tracing.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
