package application

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var stagingName = regexp.MustCompile(`^[0-9]+` + stagingMarker + `([0-9]{12})$`)

// Sweeper removes staging directories abandoned by crashed or failed downloads.
// It is only run on request.
type Sweeper struct {
	now func() time.Time
}

// NewSweeper creates a Sweeper. A nil now uses time.Now.
func NewSweeper(now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{now: now}
}

// artifactDepth is the depth below the output root of the directories a
// Downloader creates: <root>/<owner>/<name>/<entry>.
const artifactDepth = 3

// Sweep removes every staging directory under the output root whose timestamp
// is older than olderThan and returns the removed paths. Only entries of the
// collection directories (<root>/<owner>/<name>/*) are considered; committed
// artifacts are not descended into.
func (s *Sweeper) Sweep(root string, olderThan time.Duration) ([]string, error) {
	cutoff := s.now().Add(-olderThan)
	var removed []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if depth := len(strings.Split(rel, string(filepath.Separator))); depth < artifactDepth {
			return nil
		}

		m := stagingName.FindStringSubmatch(d.Name())
		if m == nil {
			return fs.SkipDir
		}

		stamp, err := time.ParseInLocation(stagingLayout, m[1], time.UTC)
		if err != nil || !stamp.Before(cutoff) {
			return fs.SkipDir
		}

		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		slog.Info("removed stale staging directory", "path", path, "created", stamp)
		removed = append(removed, path)
		return fs.SkipDir
	})
	if err != nil {
		return removed, fmt.Errorf("sweep %s: %w", root, err)
	}

	return removed, nil
}
