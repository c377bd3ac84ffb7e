package dashboard

import "errors"

// Sentinel errors for the dashboard domain.
var (
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrBadRequest    = errors.New("bad request")
	ErrUpstream      = errors.New("upstream error")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrCorruptEntry  = errors.New("corrupt cache entry")
)
