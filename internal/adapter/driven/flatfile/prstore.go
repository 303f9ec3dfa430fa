package flatfile

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// ghostLogin stands in for a missing author so the line keeps its field count.
const ghostLogin = "ghost"

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRStore)(nil)

// PRStore persists tracked pull requests as
// "repoId number author createdAt updatedAt analyzedAt ntp tp" lines.
type PRStore struct {
	path string
}

// NewPRStore creates a PRStore backed by the file at path.
func NewPRStore(path string) *PRStore {
	return &PRStore{path: path}
}

// LoadAll reads every parsable record. Unparsable lines are skipped.
func (s *PRStore) LoadAll(_ context.Context) (map[model.PRKey]model.PullRequest, error) {
	prs := make(map[model.PRKey]model.PullRequest)

	_, err := readLines(s.path, func(fields []string) error {
		pr, err := parsePullRequest(fields)
		if err != nil {
			return err
		}
		prs[pr.Key()] = pr
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load pull requests: %w", err)
	}

	return prs, nil
}

// SaveAll rewrites the file with prs sorted by repository and number.
// A record that cannot be represented in the line format fails the whole save.
func (s *PRStore) SaveAll(_ context.Context, prs map[model.PRKey]model.PullRequest) error {
	keys := make([]model.PRKey, 0, len(prs))
	for k := range prs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b model.PRKey) int {
		if c := cmp.Compare(a.RepoID, b.RepoID); c != 0 {
			return c
		}
		return cmp.Compare(a.Number, b.Number)
	})

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		line, err := formatPullRequest(prs[k])
		if err != nil {
			return fmt.Errorf("save pull request %s: %w", k.String(), err)
		}
		lines = append(lines, line)
	}

	if err := writeLines(s.path, lines); err != nil {
		return fmt.Errorf("save pull requests: %w", err)
	}
	return nil
}

func formatPullRequest(pr model.PullRequest) (string, error) {
	author := pr.Author
	if author == "" {
		author = ghostLogin
	}
	return joinFields(
		pr.RepoID,
		strconv.Itoa(pr.Number),
		author,
		formatTime(pr.CreatedAt),
		formatTime(pr.UpdatedAt),
		formatTime(pr.AnalyzedAt),
		strconv.Itoa(pr.NTP),
		strconv.Itoa(pr.TP),
	)
}

func parsePullRequest(fields []string) (model.PullRequest, error) {
	if len(fields) != 8 {
		return model.PullRequest{}, fmt.Errorf("expected 8 fields, got %d", len(fields))
	}

	pr := model.PullRequest{RepoID: fields[0], Author: fields[2]}
	var err error

	if pr.Number, err = strconv.Atoi(fields[1]); err != nil {
		return model.PullRequest{}, fmt.Errorf("parse number: %w", err)
	}
	if pr.CreatedAt, err = parseTime(fields[3]); err != nil {
		return model.PullRequest{}, fmt.Errorf("parse created_at: %w", err)
	}
	if pr.UpdatedAt, err = parseTime(fields[4]); err != nil {
		return model.PullRequest{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if pr.AnalyzedAt, err = parseTime(fields[5]); err != nil {
		return model.PullRequest{}, fmt.Errorf("parse analyzed_at: %w", err)
	}
	if pr.NTP, err = strconv.Atoi(fields[6]); err != nil {
		return model.PullRequest{}, fmt.Errorf("parse ntp: %w", err)
	}
	if pr.TP, err = strconv.Atoi(fields[7]); err != nil {
		return model.PullRequest{}, fmt.Errorf("parse tp: %w", err)
	}

	return pr, nil
}
