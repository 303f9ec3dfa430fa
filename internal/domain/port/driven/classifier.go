package driven

import (
	"context"
	"errors"
)

// ErrUnclassified wraps every classifier failure: non-2xx responses,
// undecodable bodies and unmatched status lines.
var ErrUnclassified = errors.New("pull request could not be classified")

// Partitions is the classifier's output for one pull request.
type Partitions struct {
	NTP int
	TP  int
}

// Classifier defines the driven port for the external partition analysis service.
type Classifier interface {
	Classify(ctx context.Context, repoID string, number int) (Partitions, error)
}
