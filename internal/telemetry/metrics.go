// Package telemetry provides observability primitives for ghdash.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the dashboard.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	ViewFailures     *prometheus.CounterVec
	StoreKeys        prometheus.Gauge
	StoreBytes       prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghdash",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "ghdash",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ghdash",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "ghdash",
			Name:                            "upstream_duration_seconds",
			Help:                            "GitHub API call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"endpoint"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghdash",
			Name:      "upstream_errors_total",
			Help:      "Total GitHub API errors.",
		}, []string{"endpoint", "status"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghdash",
			Name:      "cache_hits_total",
			Help:      "Total view cache hits.",
		}, []string{"view"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghdash",
			Name:      "cache_misses_total",
			Help:      "Total view cache misses.",
		}, []string{"view"}),

		ViewFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghdash",
			Name:      "view_failures_total",
			Help:      "Total view loads that ended in the errored state.",
		}, []string{"view"}),

		StoreKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ghdash",
			Name:      "store_keys",
			Help:      "Number of keys held by the cache store.",
		}),

		StoreBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ghdash",
			Name:      "store_bytes",
			Help:      "Bytes of keys and values held by the cache store.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheHits,
		m.CacheMisses,
		m.ViewFailures,
		m.StoreKeys,
		m.StoreBytes,
	)

	return m
}
