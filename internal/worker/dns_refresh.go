package worker

import (
	"context"
	"time"

	"github.com/rs/dnscache"
)

const defaultDNSRefreshInterval = 5 * time.Minute

// DNSRefresher keeps the GitHub transport's DNS cache fresh, dropping
// hosts that were not looked up since the previous refresh.
type DNSRefresher struct {
	resolver *dnscache.Resolver
	interval time.Duration
}

// NewDNSRefresher creates a DNSRefresher. A non-positive interval selects
// the 5m default.
func NewDNSRefresher(r *dnscache.Resolver, interval time.Duration) *DNSRefresher {
	if interval <= 0 {
		interval = defaultDNSRefreshInterval
	}
	return &DNSRefresher{resolver: r, interval: interval}
}

// Name returns the worker identifier.
func (w *DNSRefresher) Name() string { return "dns_refresh" }

// Run refreshes on every tick until ctx is cancelled.
func (w *DNSRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.resolver.Refresh(true)
		case <-ctx.Done():
			return nil
		}
	}
}
