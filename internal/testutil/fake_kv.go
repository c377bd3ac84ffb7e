// Package testutil provides configurable test fakes for dashboard interfaces.
package testutil

import (
	"context"
	"sync"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/storage"
)

// FakeKV is an in-memory storage.KV for testing. Writes are visible
// immediately, and failures can be injected per operation.
type FakeKV struct {
	mu       sync.RWMutex
	data     map[string]string
	MaxBytes int64 // 0 = unlimited; exceeding it returns ErrQuotaExceeded
	GetErr   error
	SetErr   error
	sets     int
}

// NewFakeKV returns an empty FakeKV.
func NewFakeKV() *FakeKV {
	return &FakeKV{data: make(map[string]string)}
}

// Get returns the stored value or GetErr.
func (f *FakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.GetErr != nil {
		return "", false, f.GetErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

// Set stores value, or returns SetErr or ErrQuotaExceeded.
func (f *FakeKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	if f.MaxBytes > 0 {
		var total int64
		for k, v := range f.data {
			if k != key {
				total += int64(len(k) + len(v))
			}
		}
		if total+int64(len(key)+len(value)) > f.MaxBytes {
			return dashboard.ErrQuotaExceeded
		}
	}
	f.data[key] = value
	f.sets++
	return nil
}

// Delete removes key.
func (f *FakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.data, key)
	f.mu.Unlock()
	return nil
}

// Usage reports the number of keys and bytes held.
func (f *FakeKV) Usage(context.Context) (storage.Usage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u := storage.Usage{Keys: len(f.data)}
	for k, v := range f.data {
		u.Bytes += int64(len(k) + len(v))
	}
	return u, nil
}

// Close is a no-op.
func (f *FakeKV) Close() error { return nil }

// Raw returns the serialized value under key, bypassing the cache layer.
func (f *FakeKV) Raw(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok
}

// PutRaw stores a serialized value directly, for seeding corrupt entries.
func (f *FakeKV) PutRaw(key, value string) {
	f.mu.Lock()
	f.data[key] = value
	f.mu.Unlock()
}

// Sets returns the number of successful Set calls.
func (f *FakeKV) Sets() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sets
}
