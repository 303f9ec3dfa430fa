// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// progressEvery is how many discovered IDs pass between progress log lines.
const progressEvery = 100

// ShuffleFunc permutes n elements through swap, with the contract of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// IDQueue discovers the pull request population of a collection once and
// persists it in a random order. Every later call returns the persisted
// order unchanged, so repeated runs sample without replacement.
type IDQueue struct {
	ghClient driven.GitHubClient
	store    driven.IDQueueStore
	shuffle  ShuffleFunc
}

// NewIDQueue creates an IDQueue. A nil shuffle uses math/rand/v2.
func NewIDQueue(ghClient driven.GitHubClient, store driven.IDQueueStore, shuffle ShuffleFunc) *IDQueue {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &IDQueue{
		ghClient: ghClient,
		store:    store,
		shuffle:  shuffle,
	}
}

// DiscoverOrLoad returns the ID order persisted in dir, or discovers, shuffles
// and persists it when dir holds no queue yet. A listing failure writes nothing.
func (q *IDQueue) DiscoverOrLoad(ctx context.Context, c model.Collection, dir string) ([]int, error) {
	ids, found, err := q.store.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load id queue for %s: %w", c.FullName, err)
	}
	if found {
		slog.Info("loaded id queue", "repo", c.FullName, "ids", len(ids))
		return ids, nil
	}

	slog.Info("discovering pull requests", "repo", c.FullName, "state", c.ListState())

	lastLogged := 0
	progress := func(total int) {
		if total-lastLogged >= progressEvery {
			slog.Debug("discovery progress", "repo", c.FullName, "ids", total)
			lastLogged = total
		}
	}

	ids, err = q.ghClient.ListPullRequestNumbers(ctx, c.FullName, c.ListState(), progress)
	if err != nil {
		return nil, fmt.Errorf("discover pull requests for %s: %w", c.FullName, err)
	}

	q.shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	if err := q.store.Save(dir, ids); err != nil {
		return nil, fmt.Errorf("save id queue for %s: %w", c.FullName, err)
	}

	slog.Info("persisted id queue", "repo", c.FullName, "ids", len(ids))
	return ids, nil
}
