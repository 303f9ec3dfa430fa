package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// DefaultMaxRetries is the number of re-attempts after a failed staging attempt.
const DefaultMaxRetries = 3

// stagingLayout is the timestamp suffix of staging directory names.
const stagingLayout = "060102150405"

// stagingMarker separates the ID from the timestamp in staging directory names.
const stagingMarker = "-incomplete-"

// DownloaderOptions configures a Downloader. Zero values select defaults.
type DownloaderOptions struct {
	// MaxRetries is the number of re-attempts; negative disables retrying.
	MaxRetries int
	Filter     ContentFilter
	Now        func() time.Time
}

// Downloader fetches the artifacts of one pull request into a staging
// directory and commits them with a single rename.
type Downloader struct {
	ghClient   driven.GitHubClient
	maxRetries uint64
	filter     ContentFilter
	now        func() time.Time
}

// NewDownloader creates a Downloader.
func NewDownloader(ghClient driven.GitHubClient, opts DownloaderOptions) *Downloader {
	d := &Downloader{
		ghClient:   ghClient,
		maxRetries: DefaultMaxRetries,
		filter:     opts.Filter,
		now:        opts.Now,
	}
	if opts.MaxRetries > 0 {
		d.maxRetries = uint64(opts.MaxRetries)
	} else if opts.MaxRetries < 0 {
		d.maxRetries = 0
	}
	if d.filter == nil {
		d.filter = DefaultFilter
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// StagingDir returns the staging directory name for number at time t.
func StagingDir(destRoot string, number int, t time.Time) string {
	return filepath.Join(destRoot, strconv.Itoa(number)+stagingMarker+t.UTC().Format(stagingLayout))
}

// Fetch downloads pull's aggregate patch and changed files into destRoot/<number>.
// The final directory only ever appears through the rename of a fully written
// staging directory; a staging directory left behind by a failure is never
// mistaken for a completed artifact.
func (d *Downloader) Fetch(ctx context.Context, pull model.RemotePull, destRoot string, skipExisting bool) model.FetchResult {
	final := filepath.Join(destRoot, strconv.Itoa(pull.Number))

	if skipExisting && dirExists(final) {
		slog.Debug("skipping existing pull request", "repo", pull.RepoID, "pr", pull.Number)
		return model.Skipped()
	}

	staging := StagingDir(destRoot, pull.Number, d.now())

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, d.maxRetries), ctx)
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return d.stage(ctx, pull, staging)
	}, policy, func(err error, _ time.Duration) {
		slog.Warn("download attempt failed, retrying",
			"repo", pull.RepoID,
			"pr", pull.Number,
			"attempt", attempt,
			"error", err,
		)
	})
	if err != nil {
		slog.Error("download failed",
			"repo", pull.RepoID,
			"pr", pull.Number,
			"attempts", attempt,
			"staging", staging,
			"error", err,
		)
		return model.Failed(fmt.Errorf("fetch %s#%d: %w", pull.RepoID, pull.Number, err))
	}

	if !skipExisting && dirExists(final) {
		if err := os.RemoveAll(final); err != nil {
			slog.Warn("failed to remove previous artifact", "path", final, "error", err)
		}
	}

	if err := os.Rename(staging, final); err != nil {
		return model.Failed(fmt.Errorf("commit %s#%d: %w", pull.RepoID, pull.Number, err))
	}

	ok, err := d.filter.Accept(final)
	if err != nil {
		return model.Failed(fmt.Errorf("filter %s#%d: %w", pull.RepoID, pull.Number, err))
	}
	if !ok {
		if err := os.RemoveAll(final); err != nil {
			slog.Warn("failed to remove rejected artifact", "path", final, "error", err)
		}
		slog.Debug("pull request rejected by content filter", "repo", pull.RepoID, "pr", pull.Number)
		return model.Rejected()
	}

	slog.Info("pull request accepted", "repo", pull.RepoID, "pr", pull.Number)
	return model.Accepted()
}

// stage performs one complete download attempt into staging, overwriting
// whatever an earlier attempt left there.
func (d *Downloader) stage(ctx context.Context, pull model.RemotePull, staging string) error {
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return backoff.Permanent(fmt.Errorf("create staging directory: %w", err))
	}

	patchPath := filepath.Join(staging, strconv.Itoa(pull.Number)+".patch")
	if err := d.downloadTo(ctx, pull.PatchURL, patchPath); err != nil {
		return fmt.Errorf("download patch: %w", err)
	}

	files, err := d.ghClient.ListFiles(ctx, pull.RepoID, pull.Number)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	for _, f := range files {
		if !f.HasContent() {
			continue
		}
		if !filepath.IsLocal(f.Filename) {
			return backoff.Permanent(fmt.Errorf("file %q escapes the staging directory", f.Filename))
		}

		target := filepath.Join(staging, filepath.FromSlash(f.Filename))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", f.Filename, err)
		}
		if err := d.downloadTo(ctx, f.RawURL, target); err != nil {
			return fmt.Errorf("download %s: %w", f.Filename, err)
		}
		if err := os.WriteFile(target+".patch", []byte(f.Patch+"\n"), 0o644); err != nil {
			return fmt.Errorf("write patch for %s: %w", f.Filename, err)
		}
	}

	return nil
}

func (d *Downloader) downloadTo(ctx context.Context, rawURL, path string) error {
	var buf bytes.Buffer
	if err := d.ghClient.Download(ctx, rawURL, &buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && info.IsDir()
}
