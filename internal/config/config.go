// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level dashboard configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	GitHub    GitHubConfig    `yaml:"github"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Views     ViewsConfig     `yaml:"views"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GitHubConfig configures the upstream REST client.
type GitHubConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"` // falls back to $GITHUB_TOKEN
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	DNSCache  bool          `yaml:"dns_cache"`
}

// StoreConfig selects the persistent key/value store behind the cache.
type StoreConfig struct {
	Driver   string `yaml:"driver"`    // "sqlite" or "memory"
	DSN      string `yaml:"dsn"`       // sqlite file path or ":memory:"
	MaxBytes int64  `yaml:"max_bytes"` // capacity ceiling for keys+values
}

// CacheConfig holds view cache settings.
type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// ViewsConfig holds per-view defaults.
type ViewsConfig struct {
	ContributorsRepo string `yaml:"contributors_repo"` // "owner/name"
	ExploreQuery     string `yaml:"explore_query"`
	ExploreLimit     int    `yaml:"explore_limit"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		GitHub: GitHubConfig{
			BaseURL:   "https://api.github.com",
			UserAgent: "ghdash",
			Timeout:   20 * time.Second,
			DNSCache:  true,
		},
		Store: StoreConfig{
			Driver:   "sqlite",
			DSN:      "ghdash.db",
			MaxBytes: 5 << 20,
		},
		Cache: CacheConfig{
			DefaultTTL: time.Hour,
		},
		Views: ViewsConfig{
			ContributorsRepo: "golang/go",
			ExploreQuery:     "stars:>10000",
			ExploreLimit:     10,
		},
	}
}

// Load reads and parses a YAML config file, expanding environment variables,
// then validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// An unset ${VAR} survives expansion verbatim and is not a credential.
	if envPattern.MatchString(cfg.GitHub.Token) {
		cfg.GitHub.Token = ""
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ContributorsRepo splits Views.ContributorsRepo into owner and name.
func (c *Config) ContributorsRepo() (owner, name string) {
	owner, name, _ = strings.Cut(c.Views.ContributorsRepo, "/")
	return owner, name
}
