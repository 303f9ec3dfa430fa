package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// MineRequest describes one mining run.
type MineRequest struct {
	Collections []model.Collection
	// PerCollectionTarget is the number of accepted pull requests wanted per collection.
	PerCollectionTarget int
	SkipExisting        bool
	// IDsOnly stops every collection after its ID queue exists.
	IDsOnly bool
}

// MineService drains each collection's ID queue through the Downloader until
// the per-collection target of accepted pull requests is met.
type MineService struct {
	ghClient   driven.GitHubClient
	queue      *IDQueue
	downloader *Downloader
	outputRoot string
}

// NewMineService creates a MineService writing under outputRoot.
func NewMineService(ghClient driven.GitHubClient, queue *IDQueue, downloader *Downloader, outputRoot string) *MineService {
	return &MineService{
		ghClient:   ghClient,
		queue:      queue,
		downloader: downloader,
		outputRoot: outputRoot,
	}
}

// Mine processes the collections in order. A collection that does not exist
// is reported as missing and skipped. A failed download or metadata lookup
// aborts the run; the report covers everything done up to that point.
func (s *MineService) Mine(ctx context.Context, req MineRequest) (model.MineReport, error) {
	var report model.MineReport

	for _, c := range req.Collections {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		cr, err := s.mineCollection(ctx, c, req)
		report.Collections = append(report.Collections, cr)
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (s *MineService) mineCollection(ctx context.Context, c model.Collection, req MineRequest) (model.CollectionReport, error) {
	cr := model.CollectionReport{FullName: c.FullName}

	name, err := s.ghClient.ResolveRepository(ctx, c.FullName)
	if errors.Is(err, driven.ErrRepoNotFound) {
		slog.Warn("repository not found, skipping", "repo", c.FullName)
		cr.Status = model.CollectionMissing
		return cr, nil
	}
	if err != nil {
		cr.Status = model.CollectionAborted
		return cr, err
	}
	cr.FullName = name

	dir := filepath.Join(s.outputRoot, filepath.FromSlash(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		cr.Status = model.CollectionAborted
		return cr, fmt.Errorf("create output directory for %s: %w", name, err)
	}

	ids, err := s.queue.DiscoverOrLoad(ctx, model.Collection{FullName: name, IncludeClosed: c.IncludeClosed}, dir)
	if err != nil {
		cr.Status = model.CollectionAborted
		return cr, err
	}
	cr.Population = len(ids)
	cr.Remaining = len(ids)

	if req.IDsOnly {
		cr.Status = model.CollectionIDsOnly
		return cr, nil
	}

	// pending is owned here; the persisted queue is never rewritten.
	pending := ids
	for cr.Accepted < req.PerCollectionTarget && len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			cr.Status = model.CollectionAborted
			return cr, err
		}

		id := pending[0]
		pending = pending[1:]
		cr.Popped++
		cr.Remaining = len(pending)

		pull, err := s.ghClient.GetPullRequest(ctx, name, id)
		if err != nil {
			cr.Status = model.CollectionAborted
			return cr, fmt.Errorf("mine %s: %w", name, err)
		}

		res := s.downloader.Fetch(ctx, *pull, dir, req.SkipExisting)
		switch res.Status {
		case model.FetchAccepted:
			cr.Accepted++
		case model.FetchSkipped:
			cr.Skipped++
		case model.FetchRejected:
			cr.Rejected++
		case model.FetchFailed:
			cr.Status = model.CollectionAborted
			return cr, fmt.Errorf("mine %s: %w", name, res.Err)
		}
	}

	if cr.Accepted >= req.PerCollectionTarget {
		cr.Status = model.CollectionDone
	} else {
		cr.Status = model.CollectionDrained
	}

	slog.Info("collection mined",
		"repo", name,
		"accepted", cr.Accepted,
		"rejected", cr.Rejected,
		"skipped", cr.Skipped,
		"remaining", cr.Remaining,
	)

	return cr, nil
}
