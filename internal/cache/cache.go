// Package cache implements an expiring key/value cache on top of a storage.KV.
//
// Each entry is stored as JSON {"data": <value>, "expiry": <unix ms>}.
// Expiry is checked lazily on read: the first Get that observes an expired
// entry deletes it. There is no background eviction.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/storage"
)

// DefaultTTL is used when Put is called with a non-positive ttl.
const DefaultTTL = time.Hour

// Cache is an expiring cache. Values are serialized on write and freshly
// deserialized on every read; callers never share memory with the store.
type Cache struct {
	store      storage.KV
	defaultTTL time.Duration
	now        func() time.Time
	group      singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// New returns a Cache backed by store.
func New(store storage.KV, opts ...Option) *Cache {
	c := &Cache{store: store, defaultTTL: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

type writeEntry struct {
	Data   any   `json:"data"`
	Expiry int64 `json:"expiry"`
}

type readEntry struct {
	Data   json.RawMessage `json:"data"`
	Expiry *int64          `json:"expiry"`
}

// Put stores value under key until now+ttl, overwriting any prior entry.
// A store rejection (e.g. dashboard.ErrQuotaExceeded) is returned as is.
func (c *Cache) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(writeEntry{
		Data:   value,
		Expiry: c.now().Add(ttl).UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("cache put %q: encode: %w", key, err)
	}
	if err := c.store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Get decodes the live entry under key into dst and reports whether one was found.
// An absent or expired key returns false with a nil error; an expired entry is
// deleted as a side effect. An entry that cannot be parsed returns an error
// wrapping dashboard.ErrCorruptEntry and is left in place.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if !ok {
		return false, nil
	}

	var e readEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return false, fmt.Errorf("cache get %q: %w: %v", key, dashboard.ErrCorruptEntry, err)
	}
	if e.Data == nil {
		return false, fmt.Errorf("cache get %q: %w: missing data", key, dashboard.ErrCorruptEntry)
	}
	if e.Expiry == nil {
		return false, fmt.Errorf("cache get %q: %w: missing expiry", key, dashboard.ErrCorruptEntry)
	}

	if c.now().UnixMilli() > *e.Expiry {
		if err := c.store.Delete(ctx, key); err != nil {
			return false, fmt.Errorf("cache evict: %w", err)
		}
		return false, nil
	}

	if err := json.Unmarshal(e.Data, dst); err != nil {
		return false, fmt.Errorf("cache get %q: %w: %v", key, dashboard.ErrCorruptEntry, err)
	}
	return true, nil
}

// Invalidate removes key. Removing an absent key is a no-op.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
