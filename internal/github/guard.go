package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxGuardWindow caps how long a single rate-limit response can block calls.
const maxGuardWindow = time.Hour

// rateGuard fails calls fast while GitHub has reported the rate limit as
// exhausted. It opens on a rate-limited response that says when to come
// back and closes on its own once that time passes.
type rateGuard struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

func newRateGuard() *rateGuard {
	return &rateGuard{now: time.Now}
}

// blockedUntil returns the reopen time while the guard is open.
func (g *rateGuard) blockedUntil() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.until.IsZero() || !g.now().Before(g.until) {
		return time.Time{}, false
	}
	return g.until, true
}

// trip opens the guard until t, capped at maxGuardWindow from now.
// An earlier t never shortens an open window.
func (g *rateGuard) trip(t time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if limit := g.now().Add(maxGuardWindow); t.After(limit) {
		t = limit
	}
	if t.After(g.until) {
		g.until = t
	}
}

// retryAt reads when a rate-limited response may be retried: Retry-After
// (seconds) for secondary limits, X-RateLimit-Reset (unix seconds) for the
// primary limit. The zero time means the response did not say.
func retryAt(h http.Header, now time.Time) time.Time {
	if s, err := strconv.Atoi(h.Get("Retry-After")); err == nil && s > 0 {
		return now.Add(time.Duration(s) * time.Second)
	}
	if u, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil && u > 0 {
		return time.Unix(u, 0)
	}
	return time.Time{}
}
