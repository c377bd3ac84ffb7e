package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/app"
)

// viewResponse is the body of every dashboard page.
type viewResponse struct {
	State dashboard.ViewState `json:"state"`
	Data  any                 `json:"data,omitempty"`
	Error string              `json:"error,omitempty"`
}

func errored(msg string) viewResponse {
	return viewResponse{State: dashboard.StateErrored, Error: msg}
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// avoids the []string{v} alloc that Header.Set creates on every call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeView renders a finished view load. Errored views carry only the
// view's generic message; the cause stays in the logs.
func writeView[T any](w http.ResponseWriter, v app.View[T]) {
	if v.State != dashboard.StateLoaded {
		writeJSON(w, errorStatus(v.Err), errored(v.Message))
		return
	}
	if v.Cached {
		w.Header()["X-Cache"] = hitHdr
	} else {
		w.Header()["X-Cache"] = missHdr
	}
	writeJSON(w, http.StatusOK, viewResponse{State: v.State, Data: v.Data})
}

var (
	hitHdr  = []string{dashboard.CacheHit}
	missHdr = []string{dashboard.CacheMiss}
)

// errorStatus maps a view failure to an HTTP status. Anything that is not
// a recognized client-side condition is reported as a bad gateway.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, dashboard.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
