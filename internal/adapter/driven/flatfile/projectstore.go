package flatfile

import (
	"context"
	"fmt"
	"slices"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProjectStore = (*ProjectStore)(nil)

// ProjectStore persists tracked projects as "repoId lastRefreshed" lines.
type ProjectStore struct {
	path string
}

// NewProjectStore creates a ProjectStore backed by the file at path.
func NewProjectStore(path string) *ProjectStore {
	return &ProjectStore{path: path}
}

// LoadAll reads every parsable project. Unparsable lines are skipped.
func (s *ProjectStore) LoadAll(_ context.Context) (map[string]model.Project, error) {
	projects := make(map[string]model.Project)

	_, err := readLines(s.path, func(fields []string) error {
		if len(fields) != 2 {
			return fmt.Errorf("expected 2 fields, got %d", len(fields))
		}
		refreshed, err := parseTime(fields[1])
		if err != nil {
			return fmt.Errorf("parse last_refreshed: %w", err)
		}
		projects[fields[0]] = model.Project{RepoID: fields[0], LastRefreshed: refreshed}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	return projects, nil
}

// SaveAll rewrites the file with projects sorted by repository.
func (s *ProjectStore) SaveAll(_ context.Context, projects map[string]model.Project) error {
	ids := make([]string, 0, len(projects))
	for id := range projects {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		line, err := joinFields(id, formatTime(projects[id].LastRefreshed))
		if err != nil {
			return fmt.Errorf("save project %s: %w", id, err)
		}
		lines = append(lines, line)
	}

	if err := writeLines(s.path, lines); err != nil {
		return fmt.Errorf("save projects: %w", err)
	}
	return nil
}
