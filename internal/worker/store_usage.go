package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/eugener/ghdash/internal/storage"
	"github.com/eugener/ghdash/internal/telemetry"
)

const defaultUsageInterval = 30 * time.Second

// StoreUsageReporter periodically publishes the cache store's key count and
// byte size as gauges. It only reads; eviction stays with the cache's lazy
// expiry.
type StoreUsageReporter struct {
	store    storage.KV
	metrics  *telemetry.Metrics
	interval time.Duration
}

// NewStoreUsageReporter creates a StoreUsageReporter. A non-positive interval
// selects the 30s default.
func NewStoreUsageReporter(store storage.KV, m *telemetry.Metrics, interval time.Duration) *StoreUsageReporter {
	if interval <= 0 {
		interval = defaultUsageInterval
	}
	return &StoreUsageReporter{store: store, metrics: m, interval: interval}
}

// Name returns the worker identifier.
func (w *StoreUsageReporter) Name() string { return "store_usage" }

// Run reports once immediately, then on every tick until ctx is cancelled.
func (w *StoreUsageReporter) Run(ctx context.Context) error {
	w.report(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.report(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *StoreUsageReporter) report(ctx context.Context) {
	u, err := w.store.Usage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.LogAttrs(ctx, slog.LevelError, "store usage failed",
				slog.String("error", err.Error()),
			)
		}
		return
	}
	w.metrics.StoreKeys.Set(float64(u.Keys))
	w.metrics.StoreBytes.Set(float64(u.Bytes))
}
