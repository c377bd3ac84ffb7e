// Package dashboard defines domain types and shared helpers for the ghdash
// GitHub dashboard. This package has no project imports -- it is the dependency root.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
)

// --- View-models ---

// SearchPageSize is the number of hits requested per kind on each search page.
const SearchPageSize = 5

// Item types used to tag merged search results.
const (
	ItemTypeRepository = "repository"
	ItemTypeUser       = "user"
)

// RepoDetail is the merged payload for the repository detail view.
// Each field holds the upstream JSON body unchanged.
type RepoDetail struct {
	Repo         json.RawMessage `json:"repo"`
	Commits      json.RawMessage `json:"commits"`
	Contributors json.RawMessage `json:"contributors"`
	Issues       json.RawMessage `json:"issues"`
	PullRequests json.RawMessage `json:"pull_requests"`
}

// AuthorProfile is the merged payload for the author view.
type AuthorProfile struct {
	Author json.RawMessage `json:"author"`
	Repos  json.RawMessage `json:"repos"`
}

// SearchItem is a single search hit tagged with the kind of search that produced it.
type SearchItem struct {
	Type string          `json:"type"` // ItemTypeRepository or ItemTypeUser
	Item json.RawMessage `json:"item"`
}

// SearchResults is the cached payload for one page of combined search.
// It is immutable once cached.
type SearchResults struct {
	Results    []SearchItem `json:"results"`
	TotalPages int          `json:"total_pages"`
}

// SearchPage decorates SearchResults with the pagination window for the requested page.
// The window is derived on every request and never cached.
type SearchPage struct {
	Query      string       `json:"query"`
	Page       int          `json:"page"`
	Results    []SearchItem `json:"results"`
	TotalPages int          `json:"total_pages"`
	Pages      []int        `json:"pages"`
	HasPrev    bool         `json:"has_prev"`
	HasNext    bool         `json:"has_next"`
}

// ExploreList is the payload for the popular repositories view.
type ExploreList struct {
	Repositories []json.RawMessage `json:"repositories"`
}

// ContributorList is the payload for the contributors view.
type ContributorList struct {
	Owner        string          `json:"owner"`
	Repo         string          `json:"repo"`
	Contributors json.RawMessage `json:"contributors"`
}

// --- View lifecycle ---

// ViewState is the lifecycle of a single view load.
// Transitions: idle -> loading -> {loaded | errored}. Loaded and errored are terminal.
type ViewState int

const (
	StateIdle ViewState = iota
	StateLoading
	StateLoaded
	StateErrored
)

// String returns the wire name of the state.
func (s ViewState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s ViewState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s ViewState) Terminal() bool {
	return s == StateLoaded || s == StateErrored
}

// Next validates a transition and returns the new state.
func (s ViewState) Next(to ViewState) (ViewState, error) {
	switch {
	case s == StateIdle && to == StateLoading:
	case s == StateLoading && to.Terminal():
	default:
		return s, fmt.Errorf("invalid view transition %s -> %s", s, to)
	}
	return to, nil
}

// --- Context keys ---

type contextKey int

const ctxKeyMeta contextKey = 0

// Cache outcomes recorded per request for logging.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// requestMeta bundles per-request values into a single context allocation.
// CacheOutcome is filled in later by the view services via mutation of the
// same pointer, so the logging middleware sees it after the handler returns.
type requestMeta struct {
	RequestID    string
	CacheOutcome string
}

func metaFromContext(ctx context.Context) *requestMeta {
	m, _ := ctx.Value(ctxKeyMeta).(*requestMeta)
	return m
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if m := metaFromContext(ctx); m != nil {
		return m.RequestID
	}
	return ""
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyMeta, &requestMeta{RequestID: id})
}

// SetCacheOutcome records whether the request was served from cache.
// It is a no-op when ctx carries no request metadata.
func SetCacheOutcome(ctx context.Context, outcome string) {
	if m := metaFromContext(ctx); m != nil {
		m.CacheOutcome = outcome
	}
}

// CacheOutcomeFromContext returns the recorded cache outcome, or "".
func CacheOutcomeFromContext(ctx context.Context) string {
	if m := metaFromContext(ctx); m != nil {
		return m.CacheOutcome
	}
	return ""
}
