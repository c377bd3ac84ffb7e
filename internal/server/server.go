// Package server implements the HTTP surface of the dashboard.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/app"
	"github.com/eugener/ghdash/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Views loads the dashboard pages. *app.Service implements it.
type Views interface {
	Repository(ctx context.Context, owner, repo string) app.View[dashboard.RepoDetail]
	Author(ctx context.Context, author string) app.View[dashboard.AuthorProfile]
	Search(ctx context.Context, q string, page int) app.View[dashboard.SearchPage]
	Explore(ctx context.Context) app.View[dashboard.ExploreList]
	Contributors(ctx context.Context, owner, repo string) app.View[dashboard.ContributorList]
	DefaultContributorsRepo() (owner, repo string)
}

// Invalidator drops a single cache entry. *cache.Cache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Views          Views
	Cache          Invalidator        // nil = DELETE /cache not mounted
	ReadyCheck     ReadyChecker       // nil = always ready (for tests)
	Metrics        *telemetry.Metrics // nil = no request metrics
	MetricsHandler http.Handler       // nil = /metrics not mounted
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.tracing)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(s.logging)

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Dashboard pages
	r.Get("/", s.handleIndex)
	r.Get("/explore", s.handleExplore)
	r.Get("/contributors", s.handleContributors)
	r.Get("/repo/{owner}/{repo}", s.handleRepository)
	r.Get("/author/{author}", s.handleAuthor)
	r.Get("/search", s.handleSearch)

	if deps.Cache != nil {
		r.Delete("/cache", s.handleInvalidate)
	}

	return r
}

type server struct {
	deps Deps
}
