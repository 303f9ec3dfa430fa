package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// AnalysisResultsDir is the directory, inside a committed pull request
// directory, where the partition analysis writes its CSV files.
const AnalysisResultsDir = "ccjava-results"

// AnalysisFiles are the CSV files the partition analysis produces per pull request.
var AnalysisFiles = []string{
	"defs.csv",
	"diffRelations.csv",
	"diffs.csv",
	"partitions.csv",
	"summary.csv",
	"uses.csv",
}

var pullDirName = regexp.MustCompile(`^[0-9]+$`)

// ErrNoAnalyzedPulls is returned when the results root holds no committed
// pull request directories.
var ErrNoAnalyzedPulls = errors.New("no pull request directories found")

// ResultSummarizer merges the per-pull-request analysis CSVs under a mining
// output tree into one file per analysis file name.
type ResultSummarizer struct{}

// NewResultSummarizer creates a ResultSummarizer.
func NewResultSummarizer() *ResultSummarizer {
	return &ResultSummarizer{}
}

// analyzedPull is a committed pull request directory and where it sits in the tree.
type analyzedPull struct {
	dir     string
	project string
	id      string
}

// Summarize writes all<Name>.csv into outDir for every analysis file. Each
// output row is prefixed with the project name and pull request id it came
// from. A pull request whose file is missing, empty, malformed or carries a
// different header from the first one read is logged and left out.
func (s *ResultSummarizer) Summarize(ctx context.Context, root, outDir string) (model.ResultsReport, error) {
	pulls, err := findAnalyzedPulls(root)
	if err != nil {
		return model.ResultsReport{}, err
	}
	if len(pulls) == 0 {
		return model.ResultsReport{}, fmt.Errorf("%w under %s", ErrNoAnalyzedPulls, root)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return model.ResultsReport{}, fmt.Errorf("create output directory %s: %w", outDir, err)
	}

	report := model.ResultsReport{PullRequests: len(pulls)}
	for _, name := range AnalysisFiles {
		file, err := s.combine(ctx, pulls, name, outDir)
		if err != nil {
			return report, err
		}
		report.Files = append(report.Files, file)
	}

	return report, nil
}

func (s *ResultSummarizer) combine(ctx context.Context, pulls []analyzedPull, name, outDir string) (model.ResultFileReport, error) {
	file := model.ResultFileReport{Name: name}

	var (
		buf    bytes.Buffer
		header []string
	)
	w := csv.NewWriter(&buf)

	for _, pr := range pulls {
		if err := ctx.Err(); err != nil {
			return file, err
		}

		head, rows, err := readResultCSV(filepath.Join(pr.dir, AnalysisResultsDir, name))
		if err == nil && header != nil && !slices.Equal(head, header) {
			err = fmt.Errorf("header %v differs from %v", head, header)
		}
		if err != nil {
			slog.Warn("could not read analysis results",
				"file", name, "project", pr.project, "pr", pr.id, "error", err)
			file.Unreadable++
			continue
		}

		if header == nil {
			header = head
			if err := w.Write(append([]string{"projectName", "pullRequestId"}, head...)); err != nil {
				return file, fmt.Errorf("write %s header: %w", name, err)
			}
		}
		for _, row := range rows {
			if err := w.Write(append([]string{pr.project, pr.id}, row...)); err != nil {
				return file, fmt.Errorf("write %s row: %w", name, err)
			}
		}
		file.PullRequests++
		file.Rows += len(rows)
	}

	if header == nil {
		slog.Warn("no pull request has analysis results", "file", name)
		return file, nil
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return file, fmt.Errorf("encode %s: %w", name, err)
	}

	file.Path = filepath.Join(outDir, combinedName(name))
	if err := atomic.WriteFile(file.Path, &buf); err != nil {
		return file, fmt.Errorf("write %s: %w", file.Path, err)
	}
	slog.Info("combined analysis results", "file", file.Path, "pull_requests", file.PullRequests, "rows", file.Rows)

	return file, nil
}

// readResultCSV returns the header and body rows of one analysis CSV.
func readResultCSV(path string) ([]string, [][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}

	return records[0], records[1:], nil
}

// findAnalyzedPulls walks down from root. As soon as a directory has numeric
// subdirectories they are taken as pull requests and nothing else below that
// directory is visited.
func findAnalyzedPulls(root string) ([]analyzedPull, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var pulls []analyzedPull
	var subdirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if pullDirName.MatchString(e.Name()) {
			dir := filepath.Join(root, e.Name())
			pulls = append(pulls, analyzedPull{dir: dir, project: projectOf(dir), id: e.Name()})
			continue
		}
		subdirs = append(subdirs, filepath.Join(root, e.Name()))
	}
	if len(pulls) > 0 {
		return pulls, nil
	}

	for _, sub := range subdirs {
		found, err := findAnalyzedPulls(sub)
		if err != nil {
			return nil, err
		}
		pulls = append(pulls, found...)
	}
	return pulls, nil
}

// projectOf returns owner/name for a <root>/<owner>/<name>/<id> directory.
func projectOf(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	collection := filepath.Dir(dir)
	return filepath.Base(filepath.Dir(collection)) + "/" + filepath.Base(collection)
}

// combinedName maps diffRelations.csv to allDiffrelations.csv, the names
// downstream notebooks load.
func combinedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return "all" + string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}
