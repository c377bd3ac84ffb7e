package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/eugener/ghdash/internal/github"
)

// FakeGitHub is a configurable GitHub API fake. Each endpoint returns the
// canned body in Bodies (or "[]" when absent) unless an error is registered
// for it in Errs. Search endpoints are served by SearchFn when set.
type FakeGitHub struct {
	mu       sync.Mutex
	Bodies   map[string]json.RawMessage // endpoint -> body
	Errs     map[string]error           // endpoint -> error
	SearchFn func(ctx context.Context, endpoint string, q github.SearchQuery) (*github.SearchResult, error)
	calls    map[string]int
	queries  []github.SearchQuery
}

// NewFakeGitHub returns a FakeGitHub with no canned responses.
func NewFakeGitHub() *FakeGitHub {
	return &FakeGitHub{
		Bodies: make(map[string]json.RawMessage),
		Errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// Calls returns how many times endpoint was requested.
func (f *FakeGitHub) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// TotalCalls returns the number of requests across all endpoints.
func (f *FakeGitHub) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// SearchQueries returns every search query received, in arrival order.
func (f *FakeGitHub) SearchQueries() []github.SearchQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]github.SearchQuery(nil), f.queries...)
}

func (f *FakeGitHub) serve(ctx context.Context, endpoint string) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls[endpoint]++
	body, ok := f.Bodies[endpoint]
	err := f.Errs[endpoint]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return json.RawMessage(`[]`), nil
	}
	return body, nil
}

func (f *FakeGitHub) search(ctx context.Context, endpoint string, q github.SearchQuery) (*github.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	fn := f.SearchFn
	f.mu.Unlock()

	if fn == nil {
		body, err := f.serve(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		var out struct {
			TotalCount int               `json:"total_count"`
			Items      []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("fake %s: %w", endpoint, err)
		}
		return &github.SearchResult{TotalCount: out.TotalCount, Items: out.Items}, nil
	}

	f.mu.Lock()
	f.calls[endpoint]++
	err := f.Errs[endpoint]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return fn(ctx, endpoint, q)
}

// GetUser implements app.GitHub.
func (f *FakeGitHub) GetUser(ctx context.Context, _ string) (json.RawMessage, error) {
	return f.serve(ctx, "user")
}

// ListUserRepos implements app.GitHub.
func (f *FakeGitHub) ListUserRepos(ctx context.Context, _ string) (json.RawMessage, error) {
	return f.serve(ctx, "user_repos")
}

// GetRepo implements app.GitHub.
func (f *FakeGitHub) GetRepo(ctx context.Context, _, _ string) (json.RawMessage, error) {
	return f.serve(ctx, "repo")
}

// ListCommits implements app.GitHub.
func (f *FakeGitHub) ListCommits(ctx context.Context, _, _ string) (json.RawMessage, error) {
	return f.serve(ctx, "commits")
}

// ListContributors implements app.GitHub.
func (f *FakeGitHub) ListContributors(ctx context.Context, _, _ string) (json.RawMessage, error) {
	return f.serve(ctx, "contributors")
}

// ListIssues implements app.GitHub.
func (f *FakeGitHub) ListIssues(ctx context.Context, _, _ string) (json.RawMessage, error) {
	return f.serve(ctx, "issues")
}

// ListPulls implements app.GitHub.
func (f *FakeGitHub) ListPulls(ctx context.Context, _, _ string) (json.RawMessage, error) {
	return f.serve(ctx, "pulls")
}

// SearchRepositories implements app.GitHub.
func (f *FakeGitHub) SearchRepositories(ctx context.Context, q github.SearchQuery) (*github.SearchResult, error) {
	return f.search(ctx, "search_repositories", q)
}

// SearchUsers implements app.GitHub.
func (f *FakeGitHub) SearchUsers(ctx context.Context, q github.SearchQuery) (*github.SearchResult, error) {
	return f.search(ctx, "search_users", q)
}
