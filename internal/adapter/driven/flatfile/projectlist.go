package flatfile

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProjectList = (*ProjectList)(nil)

// ProjectList reads the watched repositories: the first field of every
// non-blank line. Lines starting with '#' are comments.
type ProjectList struct {
	path string
}

// NewProjectList creates a ProjectList reading the file at path.
func NewProjectList(path string) *ProjectList {
	return &ProjectList{path: path}
}

// Load returns the configured repositories in file order. A missing list is an error.
func (l *ProjectList) Load(_ context.Context) ([]string, error) {
	var repos []string

	found, err := readLines(l.path, func(fields []string) error {
		if strings.HasPrefix(fields[0], "#") {
			return nil
		}
		repos = append(repos, fields[0])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load project list: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("missing project list: %s", l.path)
	}

	return repos, nil
}
