// Package storage defines the persistent key/value store behind the response cache.
package storage

import "context"

// KV is a string-keyed, string-valued store with a capacity ceiling.
// Implementations must be safe for concurrent use.
type KV interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, overwriting any prior value.
	// It returns an error wrapping dashboard.ErrQuotaExceeded when the
	// store cannot hold the write.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Usage reports the current number of keys and bytes held.
	Usage(ctx context.Context) (Usage, error)
	Close() error
}

// Usage is a point-in-time size report for a KV store.
type Usage struct {
	Keys  int
	Bytes int64 // sum of len(key)+len(value)
}

// DefaultMaxBytes mirrors the per-origin quota of browser local storage.
const DefaultMaxBytes = 5 << 20
