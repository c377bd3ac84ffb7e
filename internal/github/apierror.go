package github

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	dashboard "github.com/eugener/ghdash/internal"
)

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	Endpoint           string
	StatusCode         int
	Message            string    // GitHub's "message" field, or the raw body
	RateLimitRemaining string    // X-RateLimit-Remaining header, if sent
	RetryAt            time.Time // when a rate-limited call may be retried; zero if unknown
}

// Error returns a formatted error string including endpoint, status, and message.
func (e *APIError) Error() string {
	return fmt.Sprintf("github %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// HTTPStatus returns the upstream HTTP status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Unwrap maps the status to a dashboard sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return dashboard.ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return dashboard.ErrRateLimited
	case e.StatusCode == http.StatusForbidden && e.RateLimitRemaining == "0":
		return dashboard.ErrRateLimited
	default:
		return dashboard.ErrUpstream
	}
}

// ParseAPIError reads up to 4KB from the response body and returns an APIError.
// For rate-limited responses RetryAt is computed from the headers relative to now.
func ParseAPIError(endpoint string, resp *http.Response, now time.Time) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = string(body)
	}
	e := &APIError{
		Endpoint:           endpoint,
		StatusCode:         resp.StatusCode,
		Message:            msg,
		RateLimitRemaining: resp.Header.Get("X-RateLimit-Remaining"),
	}
	if errors.Is(e, dashboard.ErrRateLimited) {
		e.RetryAt = retryAt(resp.Header, now)
	}
	return e
}
