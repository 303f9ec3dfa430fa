package driven

import (
	"context"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// ProjectStore defines the driven port for tracked project persistence,
// keyed by repository full name.
type ProjectStore interface {
	LoadAll(ctx context.Context) (map[string]model.Project, error)
	SaveAll(ctx context.Context, projects map[string]model.Project) error
}

// ProjectList supplies the repositories configured for watching.
type ProjectList interface {
	Load(ctx context.Context) ([]string, error)
}
