// Package memory implements storage.KV in process memory.
package memory

import (
	"context"
	"fmt"

	"github.com/maypok86/otter/v2"

	"github.com/eugener/ghdash/internal/storage"
)

var _ storage.KV = (*Store)(nil)

// Store is an in-memory W-TinyLFU store backed by otter, weighted by
// key+value bytes. Unlike the sqlite store it never rejects a write:
// once the weight ceiling is reached otter evicts the coldest entries.
type Store struct {
	cache *otter.Cache[string, string]
}

// New creates a memory store bounded to roughly maxBytes of keys and values.
func New(maxBytes int64) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = storage.DefaultMaxBytes
	}
	c, err := otter.New[string, string](&otter.Options[string, string]{
		MaximumWeight: uint64(maxBytes),
		Weigher: func(key, value string) uint32 {
			return uint32(len(key) + len(value))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create memory store: %w", err)
	}
	return &Store{cache: c}, nil
}

// Get returns the value stored under key.
func (m *Store) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.cache.GetIfPresent(key)
	return v, ok, nil
}

// Set stores value under key.
func (m *Store) Set(_ context.Context, key, value string) error {
	m.cache.Set(key, value)
	return nil
}

// Delete removes key.
func (m *Store) Delete(_ context.Context, key string) error {
	m.cache.Invalidate(key)
	return nil
}

// Usage reports otter's estimated entry count and weighted size.
func (m *Store) Usage(context.Context) (storage.Usage, error) {
	return storage.Usage{
		Keys:  m.cache.EstimatedSize(),
		Bytes: int64(m.cache.WeightedSize()),
	}, nil
}

// Ping always succeeds.
func (m *Store) Ping(context.Context) error { return nil }

// Close drops every entry.
func (m *Store) Close() error {
	m.cache.InvalidateAll()
	return nil
}
