// Package report renders the watcher summary as a static HTML page.
package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// DefaultFileName is the name of the rendered page.
const DefaultFileName = "results.html"

// Compile-time interface satisfaction check.
var _ driven.ReportWriter = (*Writer)(nil)

// Writer renders summaries to an HTML file, replacing it atomically.
type Writer struct {
	path string
}

// NewWriter creates a Writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// WriteReport renders s and replaces the report file.
func (w *Writer) WriteReport(ctx context.Context, s model.Summary) error {
	var buf bytes.Buffer
	if err := Page(s).Render(ctx, &buf); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := atomic.WriteFile(w.path, &buf); err != nil {
		return fmt.Errorf("write report %s: %w", w.path, err)
	}

	slog.Info("report written",
		"path", w.path,
		"interesting", len(s.Interesting),
		"other", len(s.Other),
	)
	return nil
}
