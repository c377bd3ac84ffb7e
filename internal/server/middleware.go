package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/telemetry"
)

// statusWriterPool eliminates 1 alloc/req from &statusWriter{} escaping to heap.
// Reset fields on Get, nil ResponseWriter on Put to avoid retaining references.
var statusWriterPool = sync.Pool{
	New: func() any { return &statusWriter{} },
}

func acquireStatusWriter(w http.ResponseWriter) *statusWriter {
	sw := statusWriterPool.Get().(*statusWriter)
	sw.ResponseWriter = w
	sw.status = http.StatusOK
	sw.wroteHeader = false
	return sw
}

func releaseStatusWriter(sw *statusWriter) {
	sw.ResponseWriter = nil
	statusWriterPool.Put(sw)
}

// recovery catches panics and returns 500.
func (s *server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
					slog.Any("error", rec),
					slog.String("path", r.URL.Path),
				)
				writeJSON(w, http.StatusInternalServerError, errored("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader uses the canonical MIME form so direct map access
// skips textproto.CanonicalMIMEHeaderKey.
const requestIDHeader = "X-Request-Id"

// requestID adds a UUID v7 request ID to the context and response header.
// An inbound X-Request-Id is kept.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if vals := r.Header[requestIDHeader]; len(vals) > 0 && vals[0] != "" {
			id = vals[0]
		} else {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header()[requestIDHeader] = []string{id}
		ctx := dashboard.ContextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var serverTracer = telemetry.Tracer("github.com/eugener/ghdash/internal/server")

// tracing opens a server span per request, continuing any inbound W3C trace.
// The span is renamed to the matched route once routing is done.
func (s *server) tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := serverTracer.Start(ctx, r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("request.id", dashboard.RequestIDFromContext(ctx)),
			),
		)
		defer span.End()

		sw := acquireStatusWriter(w)
		next.ServeHTTP(sw, r.WithContext(ctx))
		status := sw.status
		releaseStatusWriter(sw)

		span.SetName(r.Method + " " + routePattern(r))
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

// logging logs each request with method, path, status, duration, and
// whether the view was served from cache.
func (s *server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := acquireStatusWriter(w)
		next.ServeHTTP(sw, r)
		status := sw.status
		releaseStatusWriter(sw)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", dashboard.RequestIDFromContext(r.Context())),
		}
		if outcome := dashboard.CacheOutcomeFromContext(r.Context()); outcome != "" {
			attrs = append(attrs, slog.String("cache", outcome))
		}
		slog.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
	})
}

// statusWriter wraps ResponseWriter to capture the HTTP status code.
// Only the first WriteHeader is recorded, matching net/http semantics.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter, allowing http.ResponseController
// and similar utilities to find interface implementations.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
