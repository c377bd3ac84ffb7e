package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/eugener/ghdash/internal/storage"
	"github.com/eugener/ghdash/internal/telemetry"
	kvfake "github.com/eugener/ghdash/internal/testutil"
)

func TestStoreUsageReporter_ReportsImmediately(t *testing.T) {
	t.Parallel()
	kv := kvfake.NewFakeKV()
	kv.PutRaw("repo-golang/go", "0123456789")
	kv.PutRaw("explore", "abc")
	m := telemetry.NewMetrics(prometheus.NewPedanticRegistry())

	w := NewStoreUsageReporter(kv, m, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(m.StoreKeys) != 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := testutil.ToFloat64(m.StoreKeys); got != 2 {
		t.Errorf("keys = %v, want 2", got)
	}
	// len("repo-golang/go")+10 + len("explore")+3
	if got := testutil.ToFloat64(m.StoreBytes); got != 34 {
		t.Errorf("bytes = %v, want 34", got)
	}
	if kv.Sets() != 0 {
		t.Error("reporter must not write to the store")
	}
}

func TestStoreUsageReporter_Ticks(t *testing.T) {
	t.Parallel()
	kv := kvfake.NewFakeKV()
	m := telemetry.NewMetrics(prometheus.NewPedanticRegistry())

	w := NewStoreUsageReporter(kv, m, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	kv.PutRaw("k", "v")

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(m.StoreKeys) != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := testutil.ToFloat64(m.StoreKeys); got != 1 {
		t.Errorf("keys = %v, want 1 after a tick", got)
	}
}

type failingUsage struct{ storage.KV }

func (failingUsage) Usage(context.Context) (storage.Usage, error) {
	return storage.Usage{}, errors.New("db locked")
}

func TestStoreUsageReporter_ErrorKeepsRunning(t *testing.T) {
	t.Parallel()
	m := telemetry.NewMetrics(prometheus.NewPedanticRegistry())
	w := NewStoreUsageReporter(failingUsage{kvfake.NewFakeKV()}, m, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Errorf("Run = %v, want nil on cancel", err)
	}
}

func TestStoreUsageReporter_DefaultInterval(t *testing.T) {
	t.Parallel()
	w := NewStoreUsageReporter(kvfake.NewFakeKV(), nil, 0)
	if w.interval != defaultUsageInterval {
		t.Errorf("interval = %v", w.interval)
	}
	if w.Name() != "store_usage" {
		t.Errorf("name = %q", w.Name())
	}
}
