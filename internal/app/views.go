package app

import (
	"context"
	"encoding/json"
	"fmt"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/github"
)

// Generic failure messages, one per view.
const (
	MsgRepository   = "Failed to load repository data."
	MsgAuthor       = "Failed to load author data."
	MsgSearch       = "Failed to load search results."
	MsgExplore      = "Failed to load repositories."
	MsgContributors = "Failed to load contributors."
)

// Cache keys. Owner and repo are joined with "/", which GitHub names cannot
// contain, so a-b/c and a/b-c never share an entry.
func repoKey(owner, repo string) string { return "repo-" + owner + "/" + repo }
func authorKey(author string) string { return "author-" + author }
func searchKey(q string, page int) string { return fmt.Sprintf("search-%s-%d", q, page) }
func contributorsKey(owner, repo string) string { return "contributors-" + owner + "/" + repo }

const exploreKey = "explore"

// Repository loads the repository detail view: the repository itself plus
// its commits, contributors, open issues, and pull requests in every state.
func (s *Service) Repository(ctx context.Context, owner, repo string) View[dashboard.RepoDetail] {
	return load(ctx, s, "repository", repoKey(owner, repo), MsgRepository,
		func(ctx context.Context) (dashboard.RepoDetail, error) {
			var d dashboard.RepoDetail
			err := fetchAll(ctx,
				into(&d.Repo, func(ctx context.Context) (json.RawMessage, error) { return s.gh.GetRepo(ctx, owner, repo) }),
				into(&d.Commits, func(ctx context.Context) (json.RawMessage, error) { return s.gh.ListCommits(ctx, owner, repo) }),
				into(&d.Contributors, func(ctx context.Context) (json.RawMessage, error) { return s.gh.ListContributors(ctx, owner, repo) }),
				into(&d.Issues, func(ctx context.Context) (json.RawMessage, error) { return s.gh.ListIssues(ctx, owner, repo) }),
				into(&d.PullRequests, func(ctx context.Context) (json.RawMessage, error) { return s.gh.ListPulls(ctx, owner, repo) }),
			)
			if err != nil {
				return dashboard.RepoDetail{}, fmt.Errorf("load repository %s/%s: %w", owner, repo, err)
			}
			return d, nil
		})
}

// Author loads a user profile together with their public repositories.
func (s *Service) Author(ctx context.Context, author string) View[dashboard.AuthorProfile] {
	return load(ctx, s, "author", authorKey(author), MsgAuthor,
		func(ctx context.Context) (dashboard.AuthorProfile, error) {
			var p dashboard.AuthorProfile
			err := fetchAll(ctx,
				into(&p.Author, func(ctx context.Context) (json.RawMessage, error) { return s.gh.GetUser(ctx, author) }),
				into(&p.Repos, func(ctx context.Context) (json.RawMessage, error) { return s.gh.ListUserRepos(ctx, author) }),
			)
			if err != nil {
				return dashboard.AuthorProfile{}, fmt.Errorf("load author %s: %w", author, err)
			}
			return p, nil
		})
}

// Explore loads the most starred repositories matching the explore query.
func (s *Service) Explore(ctx context.Context) View[dashboard.ExploreList] {
	return load(ctx, s, "explore", exploreKey, MsgExplore,
		func(ctx context.Context) (dashboard.ExploreList, error) {
			res, err := s.gh.SearchRepositories(ctx, github.SearchQuery{
				Q:       s.exploreQuery,
				Sort:    "stars",
				Order:   "desc",
				PerPage: s.exploreLimit,
			})
			if err != nil {
				return dashboard.ExploreList{}, fmt.Errorf("load explore: %w", err)
			}
			return dashboard.ExploreList{Repositories: res.Items}, nil
		})
}

// DefaultContributorsRepo returns the repository shown by Contributors
// when the caller names none.
func (s *Service) DefaultContributorsRepo() (owner, repo string) {
	return s.contribOwner, s.contribRepo
}

// Contributors loads the contributor list of owner/repo.
func (s *Service) Contributors(ctx context.Context, owner, repo string) View[dashboard.ContributorList] {
	return load(ctx, s, "contributors", contributorsKey(owner, repo), MsgContributors,
		func(ctx context.Context) (dashboard.ContributorList, error) {
			body, err := s.gh.ListContributors(ctx, owner, repo)
			if err != nil {
				return dashboard.ContributorList{}, fmt.Errorf("load contributors %s/%s: %w", owner, repo, err)
			}
			return dashboard.ContributorList{Owner: owner, Repo: repo, Contributors: body}, nil
		})
}
