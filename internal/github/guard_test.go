package github

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	dashboard "github.com/eugener/ghdash/internal"
)

func TestRateGuard_TripsOnReset(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	reset := time.Now().Add(10 * time.Minute).Unix()
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})

	_, err := c.GetUser(context.Background(), "octocat")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("first call err = %v, want *APIError", err)
	}
	if apiErr.RetryAt.Unix() != reset {
		t.Errorf("RetryAt = %v, want unix %d", apiErr.RetryAt, reset)
	}

	for range 3 {
		_, err = c.GetRepo(context.Background(), "o", "r")
		if !errors.Is(err, dashboard.ErrRateLimited) {
			t.Fatalf("guarded err = %v, want ErrRateLimited", err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("upstream hits = %d, want 1 while guard is open", n)
	}
}

func TestRateGuard_RetryAfter(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	})
	clk := time.Now()
	c.guard.now = func() time.Time { return clk }

	c.GetUser(context.Background(), "a")
	if _, err := c.GetUser(context.Background(), "a"); !errors.Is(err, dashboard.ErrRateLimited) {
		t.Fatalf("err = %v, want guarded ErrRateLimited", err)
	}

	clk = clk.Add(61 * time.Second)
	if _, err := c.GetUser(context.Background(), "a"); err != nil {
		t.Fatalf("after window err = %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("upstream hits = %d, want 2", n)
	}
}

func TestRateGuard_NoHintNoTrip(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c.GetUser(context.Background(), "a")
	c.GetUser(context.Background(), "a")
	if n := hits.Load(); n != 2 {
		t.Errorf("upstream hits = %d, want 2", n)
	}
}

func TestRateGuard_CapsWindow(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := &rateGuard{now: func() time.Time { return now }}

	g.trip(now.Add(24 * time.Hour))
	until, blocked := g.blockedUntil()
	if !blocked || !until.Equal(now.Add(maxGuardWindow)) {
		t.Errorf("until = %v blocked = %v", until, blocked)
	}

	// An earlier reset never shortens an open window.
	g.trip(now.Add(time.Minute))
	if until, _ := g.blockedUntil(); !until.Equal(now.Add(maxGuardWindow)) {
		t.Errorf("window shortened to %v", until)
	}
}

func TestRetryAt(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name   string
		header http.Header
		want   time.Time
	}{
		{name: "retry-after", header: http.Header{"Retry-After": {"30"}}, want: now.Add(30 * time.Second)},
		{name: "reset", header: http.Header{"X-Ratelimit-Reset": {"1700000600"}}, want: time.Unix(1_700_000_600, 0)},
		{name: "retry-after wins", header: http.Header{"Retry-After": {"5"}, "X-Ratelimit-Reset": {"1700000600"}}, want: now.Add(5 * time.Second)},
		{name: "none", header: http.Header{}, want: time.Time{}},
		{name: "garbage", header: http.Header{"Retry-After": {"soon"}}, want: time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := retryAt(tt.header, now); !got.Equal(tt.want) {
				t.Errorf("retryAt = %v, want %v", got, tt.want)
			}
		})
	}
}
