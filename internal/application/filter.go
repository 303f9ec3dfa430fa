package application

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// ContentFilter decides whether a committed artifact directory is kept.
type ContentFilter interface {
	Accept(dir string) (bool, error)
}

// FilterFunc adapts a function to the ContentFilter interface.
type FilterFunc func(dir string) (bool, error)

// Accept calls f(dir).
func (f FilterFunc) Accept(dir string) (bool, error) { return f(dir) }

// ExtensionFilter accepts a directory containing at least one regular file,
// at any depth, whose name ends in one of Extensions (case-insensitive).
type ExtensionFilter struct {
	Extensions []string
}

// DefaultFilter keeps pull requests that touch Java sources.
var DefaultFilter = ExtensionFilter{Extensions: []string{".java"}}

// Accept walks dir and stops at the first matching file.
func (f ExtensionFilter) Accept(dir string) (bool, error) {
	var found bool

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		for _, ext := range f.Extensions {
			if strings.HasSuffix(name, strings.ToLower(ext)) {
				found = true
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return found, nil
}
