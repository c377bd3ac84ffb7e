package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the sqlite driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q: want sqlite or memory", c.Store.Driver))
	}
	if c.Store.MaxBytes < 0 {
		errs = append(errs, errors.New("store.max_bytes must not be negative"))
	}

	if c.Cache.DefaultTTL <= 0 {
		errs = append(errs, errors.New("cache.default_ttl must be positive"))
	}

	owner, name, ok := strings.Cut(c.Views.ContributorsRepo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		errs = append(errs, fmt.Errorf("views.contributors_repo %q: want owner/name", c.Views.ContributorsRepo))
	}
	if c.Views.ExploreLimit < 1 || c.Views.ExploreLimit > 100 {
		errs = append(errs, fmt.Errorf("views.explore_limit %d: want 1..100", c.Views.ExploreLimit))
	}

	if t := c.Telemetry.Tracing; t.Enabled && t.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.tracing.endpoint is required when tracing is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
