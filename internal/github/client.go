// Package github is a small read-only client for the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/telemetry"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"

	apiVersion       = "2022-11-28"
	defaultUserAgent = "ghdash"

	// maxResponseBody caps a single upstream body. Commit and search listings
	// are well under this; anything larger is a misbehaving upstream.
	maxResponseBody = 32 << 20
)

// Client issues authenticated GET requests against a fixed base URL.
// Auth is handled by the http.Client transport chain (see NewHTTPClient).
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	guard     *rateGuard
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header GitHub requires on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMetrics records upstream latency and errors.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client. If baseURL is empty it defaults to DefaultBaseURL.
func New(baseURL string, client *http.Client, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      client,
		userAgent: defaultUserAgent,
		tracer:    telemetry.Tracer("github.com/eugener/ghdash/internal/github"),
		guard:     newRateGuard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetUser fetches /users/{login}.
func (c *Client) GetUser(ctx context.Context, login string) (json.RawMessage, error) {
	return c.get(ctx, "user", "/users/"+url.PathEscape(login), nil)
}

// ListUserRepos fetches /users/{login}/repos.
func (c *Client) ListUserRepos(ctx context.Context, login string) (json.RawMessage, error) {
	return c.get(ctx, "user_repos", "/users/"+url.PathEscape(login)+"/repos", nil)
}

// GetRepo fetches /repos/{owner}/{repo}.
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (json.RawMessage, error) {
	return c.get(ctx, "repo", repoPath(owner, repo), nil)
}

// ListCommits fetches the default page of repository commits.
func (c *Client) ListCommits(ctx context.Context, owner, repo string) (json.RawMessage, error) {
	return c.get(ctx, "commits", repoPath(owner, repo)+"/commits", nil)
}

// ListContributors fetches the default page of repository contributors.
func (c *Client) ListContributors(ctx context.Context, owner, repo string) (json.RawMessage, error) {
	return c.get(ctx, "contributors", repoPath(owner, repo)+"/contributors", nil)
}

// ListIssues fetches open issues.
func (c *Client) ListIssues(ctx context.Context, owner, repo string) (json.RawMessage, error) {
	return c.get(ctx, "issues", repoPath(owner, repo)+"/issues", url.Values{"state": {"open"}})
}

// ListPulls fetches pull requests in every state.
func (c *Client) ListPulls(ctx context.Context, owner, repo string) (json.RawMessage, error) {
	return c.get(ctx, "pulls", repoPath(owner, repo)+"/pulls", url.Values{"state": {"all"}})
}

// SearchQuery parameterizes the search endpoints. Zero Page or PerPage
// leave the GitHub defaults in place.
type SearchQuery struct {
	Q       string
	Sort    string
	Order   string
	Page    int
	PerPage int
}

func (q SearchQuery) values() url.Values {
	v := url.Values{"q": {q.Q}}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return v
}

// SearchResult is a search response split into its total and raw items.
type SearchResult struct {
	TotalCount int
	Items      []json.RawMessage
}

// SearchRepositories calls /search/repositories.
func (c *Client) SearchRepositories(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	body, err := c.get(ctx, "search_repositories", "/search/repositories", q.values())
	if err != nil {
		return nil, err
	}
	return parseSearch("search_repositories", body)
}

// SearchUsers calls /search/users.
func (c *Client) SearchUsers(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	body, err := c.get(ctx, "search_users", "/search/users", q.values())
	if err != nil {
		return nil, err
	}
	return parseSearch("search_users", body)
}

func parseSearch(endpoint string, body []byte) (*SearchResult, error) {
	r := gjson.ParseBytes(body)
	items := r.Get("items")
	if !items.IsArray() {
		return nil, fmt.Errorf("github %s: response has no items array", endpoint)
	}
	out := &SearchResult{
		TotalCount: int(r.Get("total_count").Int()),
		Items:      make([]json.RawMessage, 0, len(items.Array())),
	}
	items.ForEach(func(_, item gjson.Result) bool {
		out.Items = append(out.Items, json.RawMessage(item.Raw))
		return true
	})
	return out, nil
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

// get performs one GET and returns the validated JSON body.
// endpoint is a low-cardinality label used for spans and metrics.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "github."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("github.path", path)),
	)
	defer span.End()

	if until, blocked := c.guard.blockedUntil(); blocked {
		span.SetAttributes(attribute.Bool("github.rate_guard", true))
		if c.metrics != nil {
			c.metrics.UpstreamErrors.WithLabelValues(endpoint, "guard").Inc()
		}
		return nil, fmt.Errorf("github %s: %w until %s", endpoint, dashboard.ErrRateLimited, until.UTC().Format(time.RFC3339))
	}

	body, status, err := c.do(ctx, endpoint, path, query)
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c.metrics != nil {
			c.metrics.UpstreamErrors.WithLabelValues(endpoint, statusLabel(status)).Inc()
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint, path string, query url.Values) (json.RawMessage, int, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("github %s: create request: %w", endpoint, err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, 0, fmt.Errorf("github %s: do request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := ParseAPIError(endpoint, resp, c.guard.now())
		if !apiErr.RetryAt.IsZero() {
			c.guard.trip(apiErr.RetryAt)
		}
		return nil, resp.StatusCode, apiErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("github %s: read response: %w", endpoint, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, resp.StatusCode, fmt.Errorf("github %s: response is not valid JSON", endpoint)
	}
	return body, resp.StatusCode, nil
}

// setHeaders applies GitHub's recommended headers. Auth is handled by the transport chain.
func (c *Client) setHeaders(r *http.Request) {
	r.Header.Set("Accept", "application/vnd.github+json")
	r.Header.Set("X-GitHub-Api-Version", apiVersion)
	r.Header.Set("User-Agent", c.userAgent)
}

func statusLabel(status int) string {
	if status == 0 {
		return "transport"
	}
	return strconv.Itoa(status)
}
