package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	dashboard "github.com/eugener/ghdash/internal"
)

// Memoize returns the cached value under key, or calls produce, caches its
// result for ttl (ttl <= 0 selects the default), and returns it. The bool
// result reports a cache hit.
//
// A failed produce caches nothing. Concurrent misses on the same key share a
// single produce call. A corrupt entry is dropped and treated as a miss, and a
// failed cache write is logged without failing the call.
func Memoize[T any](ctx context.Context, c *Cache, key string, ttl time.Duration,
	produce func(context.Context) (T, error)) (T, bool, error) {

	var cached T
	hit, err := c.Get(ctx, key, &cached)
	switch {
	case errors.Is(err, dashboard.ErrCorruptEntry):
		slog.LogAttrs(ctx, slog.LevelWarn, "dropping corrupt cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		if err := c.Invalidate(ctx, key); err != nil {
			return cached, false, err
		}
	case err != nil:
		return cached, false, err
	case hit:
		return cached, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A flight that finished after the read above has already stored the entry.
		var stored T
		if hit, err := c.Get(ctx, key, &stored); err == nil && hit {
			return memoized[T]{val: stored, hit: true}, nil
		}
		fresh, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Put(ctx, key, fresh, ttl); err != nil {
			slog.LogAttrs(ctx, slog.LevelWarn, "cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return memoized[T]{val: fresh}, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	m := v.(memoized[T])
	return m.val, m.hit, nil
}

type memoized[T any] struct {
	val T
	hit bool
}
