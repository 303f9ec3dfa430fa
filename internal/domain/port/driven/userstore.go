package driven

import (
	"context"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// UserStore defines the driven port for the login to email cache.
type UserStore interface {
	LoadAll(ctx context.Context) (map[string]model.User, error)
	SaveAll(ctx context.Context, users map[string]model.User) error
}
