package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// EventArchive defines the driven port for the public, hourly bucketed event feed.
type EventArchive interface {
	// PullEvents returns the pull request events recorded in the hour containing t.
	PullEvents(ctx context.Context, t time.Time) ([]model.PullEvent, error)
}
