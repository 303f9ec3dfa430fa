package driven

import (
	"context"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// PRStore defines the driven port for tracked pull request persistence.
// The whole store is loaded, mutated in memory, then rewritten.
type PRStore interface {
	LoadAll(ctx context.Context) (map[model.PRKey]model.PullRequest, error)
	SaveAll(ctx context.Context, prs map[model.PRKey]model.PullRequest) error
}
