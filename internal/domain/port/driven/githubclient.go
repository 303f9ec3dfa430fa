package driven

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// ErrRepoNotFound indicates the remote repository does not exist or is not visible.
var ErrRepoNotFound = errors.New("repository not found")

// GitHubClient defines the driven port for reading pull request data from GitHub.
type GitHubClient interface {
	// ResolveRepository returns the canonical owner/repo name of a repository.
	// Returns ErrRepoNotFound if the repository does not exist.
	ResolveRepository(ctx context.Context, repoFullName string) (string, error)

	// ListPullRequestNumbers enumerates every pull request number in the
	// repository with the given state ("open" or "all"), following pagination.
	// progress, when non-nil, is called after every page with the running total.
	ListPullRequestNumbers(ctx context.Context, repoFullName, state string, progress func(total int)) ([]int, error)

	// GetPullRequest fetches the full metadata of a single pull request.
	GetPullRequest(ctx context.Context, repoFullName string, number int) (*model.RemotePull, error)

	// ListFiles returns every file changed by a pull request.
	ListFiles(ctx context.Context, repoFullName string, number int) ([]model.ChangedFile, error)

	// Download streams the body at rawURL into w.
	Download(ctx context.Context, rawURL string, w io.Writer) error

	// SearchPullRequestsCreatedSince returns the repository's pull requests
	// created at or after since, newest first.
	SearchPullRequestsCreatedSince(ctx context.Context, repoFullName string, since time.Time) ([]model.RemotePull, error)

	// GetUserEmail returns the public profile email of a login, or "".
	GetUserEmail(ctx context.Context, login string) (string, error)

	// FetchPublicEvents returns the raw JSON text of a user's public event feed.
	FetchPublicEvents(ctx context.Context, login string) (string, error)
}
