package app

import (
	"context"
	"fmt"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/github"
)

// windowSize is the number of page links shown at once.
const windowSize = 5

// Search loads one page of combined repository and user search. Repositories
// come first, then users, each tagged with its kind. page < 1 is treated as 1.
// The pagination window is derived from the cached totals on every call.
func (s *Service) Search(ctx context.Context, q string, page int) View[dashboard.SearchPage] {
	if page < 1 {
		page = 1
	}
	if q == "" {
		return View[dashboard.SearchPage]{
			State:   dashboard.StateErrored,
			Err:     fmt.Errorf("%w: empty search query", dashboard.ErrBadRequest),
			Message: MsgSearch,
		}
	}

	v := load(ctx, s, "search", searchKey(q, page), MsgSearch,
		func(ctx context.Context) (dashboard.SearchResults, error) {
			return s.searchPage(ctx, q, page)
		})

	out := View[dashboard.SearchPage]{State: v.State, Err: v.Err, Message: v.Message, Cached: v.Cached}
	if v.State == dashboard.StateLoaded {
		out.Data = dashboard.SearchPage{
			Query:      q,
			Page:       page,
			Results:    v.Data.Results,
			TotalPages: v.Data.TotalPages,
			Pages:      PageWindow(page, v.Data.TotalPages),
			HasPrev:    page > 1,
			HasNext:    page < v.Data.TotalPages,
		}
	}
	return out
}

func (s *Service) searchPage(ctx context.Context, q string, page int) (dashboard.SearchResults, error) {
	query := github.SearchQuery{Q: q, Page: page, PerPage: dashboard.SearchPageSize}

	var repos, users *github.SearchResult
	err := fetchAll(ctx,
		func(ctx context.Context) (err error) {
			repos, err = s.gh.SearchRepositories(ctx, query)
			return err
		},
		func(ctx context.Context) (err error) {
			users, err = s.gh.SearchUsers(ctx, query)
			return err
		},
	)
	if err != nil {
		return dashboard.SearchResults{}, fmt.Errorf("search %q page %d: %w", q, page, err)
	}
	return MergeSearch(repos, users), nil
}

// MergeSearch concatenates repository hits then user hits, tagging each,
// and sizes the result set by the larger of the two totals.
func MergeSearch(repos, users *github.SearchResult) dashboard.SearchResults {
	results := make([]dashboard.SearchItem, 0, len(repos.Items)+len(users.Items))
	for _, it := range repos.Items {
		results = append(results, dashboard.SearchItem{Type: dashboard.ItemTypeRepository, Item: it})
	}
	for _, it := range users.Items {
		results = append(results, dashboard.SearchItem{Type: dashboard.ItemTypeUser, Item: it})
	}
	return dashboard.SearchResults{
		Results:    results,
		TotalPages: TotalPages(max(repos.TotalCount, users.TotalCount)),
	}
}

// TotalPages returns ceil(total / SearchPageSize).
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + dashboard.SearchPageSize - 1) / dashboard.SearchPageSize
}

// PageWindow returns the block of up to five page numbers containing page:
// start = floor((page-1)/5)*5 + 1 and end = min(start+4, totalPages).
// The result is empty when page lies beyond totalPages.
func PageWindow(page, totalPages int) []int {
	if page < 1 {
		page = 1
	}
	start := (page-1)/windowSize*windowSize + 1
	end := min(start+windowSize-1, totalPages)
	if end < start {
		return []int{}
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}
