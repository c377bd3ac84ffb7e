// Package app implements the dashboard views: each one fans out to the
// GitHub API, merges the responses, and memoizes the result in the cache.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/cache"
	"github.com/eugener/ghdash/internal/github"
	"github.com/eugener/ghdash/internal/telemetry"
)

// GitHub is the subset of the GitHub REST API the views read from.
type GitHub interface {
	GetUser(ctx context.Context, login string) (json.RawMessage, error)
	ListUserRepos(ctx context.Context, login string) (json.RawMessage, error)
	GetRepo(ctx context.Context, owner, repo string) (json.RawMessage, error)
	ListCommits(ctx context.Context, owner, repo string) (json.RawMessage, error)
	ListContributors(ctx context.Context, owner, repo string) (json.RawMessage, error)
	ListIssues(ctx context.Context, owner, repo string) (json.RawMessage, error)
	ListPulls(ctx context.Context, owner, repo string) (json.RawMessage, error)
	SearchRepositories(ctx context.Context, q github.SearchQuery) (*github.SearchResult, error)
	SearchUsers(ctx context.Context, q github.SearchQuery) (*github.SearchResult, error)
}

// Defaults for the explore view.
const (
	DefaultExploreQuery = "stars:>10000"
	DefaultExploreLimit = 10
)

// View is the outcome of one view load. Exactly one of Data or Err is
// meaningful, selected by State.
type View[T any] struct {
	State   dashboard.ViewState
	Data    T
	Err     error  // underlying cause, for logs and status mapping
	Message string // generic user-facing message when errored
	Cached  bool
}

// Service loads dashboard views.
type Service struct {
	gh      GitHub
	cache   *cache.Cache
	ttl     time.Duration
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	exploreQuery string
	exploreLimit int
	contribOwner string
	contribRepo  string
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records per-view cache and failure counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTTL sets the lifetime of cached views. Zero keeps the cache default.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithExplore sets the search query and result count behind the explore view.
func WithExplore(query string, limit int) Option {
	return func(s *Service) {
		if query != "" {
			s.exploreQuery = query
		}
		if limit > 0 {
			s.exploreLimit = limit
		}
	}
}

// WithContributorsRepo sets the repository the contributors view shows
// when the caller names none.
func WithContributorsRepo(owner, repo string) Option {
	return func(s *Service) {
		s.contribOwner = owner
		s.contribRepo = repo
	}
}

// New returns a Service reading from gh and memoizing into c.
func New(gh GitHub, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		gh:           gh,
		cache:        c,
		tracer:       telemetry.Tracer("github.com/eugener/ghdash/internal/app"),
		exploreQuery: DefaultExploreQuery,
		exploreLimit: DefaultExploreLimit,
		contribOwner: "golang",
		contribRepo:  "go",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// load drives one view through idle -> loading -> loaded|errored.
//
// The producer runs on a context detached from the caller's cancellation,
// so a client that goes away mid-fetch still leaves a populated cache.
func load[T any](ctx context.Context, s *Service, view, key, failMsg string,
	produce func(context.Context) (T, error)) View[T] {

	ctx, span := s.tracer.Start(ctx, "view."+view,
		trace.WithAttributes(
			attribute.String("view", view),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	out := View[T]{State: dashboard.StateIdle}
	out.State, _ = out.State.Next(dashboard.StateLoading)

	data, hit, err := cache.Memoize(context.WithoutCancel(ctx), s.cache, key, s.ttl, produce)
	span.SetAttributes(attribute.Bool("cache.hit", hit))

	outcome := dashboard.CacheMiss
	if hit {
		outcome = dashboard.CacheHit
	}
	dashboard.SetCacheOutcome(ctx, outcome)
	if s.metrics != nil {
		if hit {
			s.metrics.CacheHits.WithLabelValues(view).Inc()
		} else {
			s.metrics.CacheMisses.WithLabelValues(view).Inc()
		}
	}

	if err != nil {
		out.State, _ = out.State.Next(dashboard.StateErrored)
		out.Err = err
		out.Message = failMsg
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.ViewFailures.WithLabelValues(view).Inc()
		}
		slog.LogAttrs(ctx, slog.LevelError, "view load failed",
			slog.String("view", view),
			slog.String("key", key),
			slog.String("request_id", dashboard.RequestIDFromContext(ctx)),
			slog.String("error", err.Error()),
		)
		return out
	}

	out.State, _ = out.State.Next(dashboard.StateLoaded)
	out.Data = data
	out.Cached = hit
	return out
}

// fetchAll runs every fetch concurrently and waits for all of them.
// The first failure cancels the others and is returned.
func fetchAll(ctx context.Context, fetches ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range fetches {
		g.Go(func() error { return f(ctx) })
	}
	return g.Wait()
}

// into adapts a single-body GitHub call to fetchAll, storing the body in dst.
func into(dst *json.RawMessage, call func(context.Context) (json.RawMessage, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		body, err := call(ctx)
		if err != nil {
			return err
		}
		*dst = body
		return nil
	}
}
