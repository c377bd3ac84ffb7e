package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eugener/ghdash/internal/telemetry"
)

// statusText maps HTTP status codes to pre-allocated strings,
// avoiding a strconv.Itoa allocation per request.
var statusText [600]string

func init() {
	for i := range statusText {
		statusText[i] = strconv.Itoa(i)
	}
}

// metricsMiddleware records request duration, status, and active count.
// Requests are labelled by chi route pattern so owner and repo names do not
// become label values.
func metricsMiddleware(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.ActiveRequests.Inc()
			defer m.ActiveRequests.Dec()
			start := time.Now()

			sw := acquireStatusWriter(w)
			next.ServeHTTP(sw, r)
			status := sw.status
			releaseStatusWriter(sw)

			pattern := routePattern(r)
			m.RequestsTotal.WithLabelValues(r.Method, pattern, statusText[status]).Inc()
			m.RequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern returns the chi route pattern for bounded cardinality.
// Unmatched requests collapse into a single label.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}
