package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// routeIndex is served at / so a client can discover the pages.
var routeIndex = map[string]any{
	"name": "ghdash",
	"routes": []string{
		"/explore",
		"/contributors?repo={owner}/{repo}",
		"/repo/{owner}/{repo}",
		"/author/{author}",
		"/search?q={query}&page={page}",
	},
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, routeIndex)
}

func (s *server) handleExplore(w http.ResponseWriter, r *http.Request) {
	writeView(w, s.deps.Views.Explore(r.Context()))
}

// handleContributors shows ?repo=owner/name, or the configured default.
func (s *server) handleContributors(w http.ResponseWriter, r *http.Request) {
	owner, repo := s.deps.Views.DefaultContributorsRepo()
	if q := r.URL.Query().Get("repo"); q != "" {
		var ok bool
		owner, repo, ok = splitRepo(q)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errored("repo must be owner/name"))
			return
		}
	}
	writeView(w, s.deps.Views.Contributors(r.Context(), owner, repo))
}

func (s *server) handleRepository(w http.ResponseWriter, r *http.Request) {
	writeView(w, s.deps.Views.Repository(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "repo")))
}

func (s *server) handleAuthor(w http.ResponseWriter, r *http.Request) {
	writeView(w, s.deps.Views.Author(r.Context(), chi.URLParam(r, "author")))
}

// handleSearch serves /search?q=&page=. A missing or malformed page is page 1.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errored("query parameter q is required"))
		return
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	writeView(w, s.deps.Views.Search(r.Context(), q, page))
}

// handleInvalidate drops one cache entry: DELETE /cache?key=repo-golang/go.
func (s *server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errored("query parameter key is required"))
		return
	}
	if err := s.deps.Cache.Invalidate(r.Context(), key); err != nil {
		slog.LogAttrs(r.Context(), slog.LevelError, "cache invalidate failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errored("failed to invalidate cache entry"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func splitRepo(s string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}
