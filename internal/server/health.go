package server

import "net/http"

// Pre-allocated response bodies and header value slice.
var (
	okBody       = []byte("ok")
	notReadyBody = []byte("not ready")
	plainCT      = []string{"text/plain"}
)

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writePlain(w, http.StatusOK, okBody)
}

// handleReadyz reports 503 until the cache store answers a ping.
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			writePlain(w, http.StatusServiceUnavailable, notReadyBody)
			return
		}
	}
	writePlain(w, http.StatusOK, okBody)
}

func writePlain(w http.ResponseWriter, status int, body []byte) {
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(status)
	w.Write(body)
}
