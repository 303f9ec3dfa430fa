// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh *gh.Client
	// raw serves artifact downloads. It shares auth and rate limiting with gh
	// but has no response cache, so mirrored bodies are not held in memory.
	raw *gh.Client
}

// NewClient creates a new GitHub API client. API calls use the stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, PAT auth when token is non-empty)
//
// Download skips the cache layer.
//
// baseURL may be empty for api.github.com or point at a GitHub Enterprise API root.
func NewClient(token, baseURL string) (*Client, error) {
	api := gh.NewClient(github_ratelimit.NewClient(httpcache.NewMemoryCacheTransport()))
	raw := gh.NewClient(github_ratelimit.NewClient(http.DefaultTransport))
	if token != "" {
		api = api.WithAuthToken(token)
		raw = raw.WithAuthToken(token)
	}

	if baseURL != "" {
		u, err := parseBaseURL(baseURL)
		if err != nil {
			return nil, err
		}
		api.BaseURL = u
		raw.BaseURL = u
	}

	return &Client{gh: api, raw: raw}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	api := gh.NewClient(httpClient)
	api.BaseURL = u
	raw := gh.NewClient(httpClient)
	raw.BaseURL = u

	return &Client{gh: api, raw: raw}, nil
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	return u, nil
}

// ResolveRepository looks the repository up and returns its canonical full name.
func (c *Client) ResolveRepository(ctx context.Context, repoFullName string) (string, error) {
	owner, repo, err := model.SplitRepo(repoFullName)
	if err != nil {
		return "", err
	}

	r, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("resolve repository %s: %w", repoFullName, driven.ErrRepoNotFound)
		}
		return "", fmt.Errorf("resolve repository %s: %w", repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/repo", 0, 1)

	if name := r.GetFullName(); name != "" {
		return name, nil
	}
	return repoFullName, nil
}

// ListPullRequestNumbers enumerates the numbers of all pull requests with the
// given state. It handles pagination automatically; an error on any page
// discards everything collected so far.
func (c *Client) ListPullRequestNumbers(ctx context.Context, repoFullName, state string, progress func(total int)) ([]int, error) {
	owner, repo, err := model.SplitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListOptions{
		State: state,
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	numbers := []int{}

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests for %s (page %d): %w", repoFullName, pageNumber(opts.Page), err)
		}

		logRateLimit(resp, repoFullName, opts.Page, len(prs))

		for _, pr := range prs {
			numbers = append(numbers, pr.GetNumber())
		}
		if progress != nil {
			progress(len(numbers))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return numbers, nil
}

// GetPullRequest fetches the metadata of a single pull request.
func (c *Client) GetPullRequest(ctx context.Context, repoFullName string, number int) (*model.RemotePull, error) {
	owner, repo, err := model.SplitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s#%d: %w", repoFullName, number, err)
	}

	logRateLimit(resp, repoFullName+"/pull", 0, 1)

	remote, err := mapPullRequest(pr, repoFullName)
	if err != nil {
		return nil, err
	}
	return &remote, nil
}

// ListFiles retrieves the files changed by a pull request.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) ListFiles(ctx context.Context, repoFullName string, number int) ([]model.ChangedFile, error) {
	owner, repo, err := model.SplitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var allFiles []model.ChangedFile

	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files for %s#%d (page %d): %w", repoFullName, number, pageNumber(opts.Page), err)
		}

		logRateLimit(resp, repoFullName+"/files", opts.Page, len(files))

		for _, f := range files {
			allFiles = append(allFiles, mapCommitFile(f))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allFiles, nil
}

// Download streams the body at rawURL into w. rawURL may be absolute (patch
// and raw content URLs) or relative to the API base URL.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := c.raw.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build download request %s: %w", rawURL, err)
	}

	if _, err := c.raw.Do(ctx, req, w); err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}

	return nil
}

// SearchPullRequestsCreatedSince returns the repository's pull requests
// created at or after since, sorted by creation time, newest first.
func (c *Client) SearchPullRequestsCreatedSince(ctx context.Context, repoFullName string, since time.Time) ([]model.RemotePull, error) {
	query := fmt.Sprintf("repo:%s type:pr created:>=%s", repoFullName, since.UTC().Format(time.RFC3339))

	opts := &gh.SearchOptions{
		Sort:  "created",
		Order: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	var pulls []model.RemotePull

	for {
		result, resp, err := c.gh.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("searching pull requests for %s (page %d): %w", repoFullName, pageNumber(opts.Page), err)
		}

		logRateLimit(resp, repoFullName+"/search", opts.Page, len(result.Issues))

		for _, issue := range result.Issues {
			pulls = append(pulls, mapIssue(issue, repoFullName))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return pulls, nil
}

// GetUserEmail returns the public profile email of login, or "" when the
// user has not published one.
func (c *Client) GetUserEmail(ctx context.Context, login string) (string, error) {
	user, resp, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return "", fmt.Errorf("fetching user %s: %w", login, err)
	}

	logRateLimit(resp, "users/"+login, 0, 1)

	return user.GetEmail(), nil
}

// FetchPublicEvents returns the raw JSON text of login's public event feed.
func (c *Client) FetchPublicEvents(ctx context.Context, login string) (string, error) {
	var buf strings.Builder
	if err := c.Download(ctx, fmt.Sprintf("users/%s/events/public", url.PathEscape(login)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// pageNumber returns the 1-based page a request asked for; go-github leaves
// Page at zero for the first page.
func pageNumber(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequest converts a go-github PullRequest to a domain RemotePull.
// Payloads without a number or patch URL are rejected rather than mirrored half-empty.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) (model.RemotePull, error) {
	if pr.GetNumber() == 0 {
		return model.RemotePull{}, fmt.Errorf("pull request payload for %s has no number", repoFullName)
	}
	if pr.GetPatchURL() == "" {
		return model.RemotePull{}, fmt.Errorf("pull request %s#%d has no patch URL", repoFullName, pr.GetNumber())
	}

	return model.RemotePull{
		RepoID:    repoFullName,
		Number:    pr.GetNumber(),
		Author:    pr.GetUser().GetLogin(),
		State:     pr.GetState(),
		PatchURL:  pr.GetPatchURL(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}, nil
}

// mapIssue converts a search result issue (always a pull request given the
// type:pr qualifier) to a domain RemotePull.
func mapIssue(issue *gh.Issue, repoFullName string) model.RemotePull {
	return model.RemotePull{
		RepoID:    repoFullName,
		Number:    issue.GetNumber(),
		Author:    issue.GetUser().GetLogin(),
		State:     issue.GetState(),
		PatchURL:  issue.GetPullRequestLinks().GetPatchURL(),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
	}
}

// mapCommitFile converts a go-github CommitFile to a domain ChangedFile.
func mapCommitFile(f *gh.CommitFile) model.ChangedFile {
	return model.ChangedFile{
		Filename:  f.GetFilename(),
		Status:    f.GetStatus(),
		Additions: f.GetAdditions(),
		Changes:   f.GetChanges(),
		Patch:     f.GetPatch(),
		RawURL:    f.GetRawURL(),
	}
}
