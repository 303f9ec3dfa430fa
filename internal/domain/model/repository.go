package model

import (
	"fmt"
	"strings"
)

// Collection identifies a remote repository whose pull requests are mined.
type Collection struct {
	FullName string
	// IncludeClosed makes closed pull requests part of the population.
	IncludeClosed bool
}

// ListState returns the pull request state filter accepted by the GitHub API.
func (c Collection) ListState() string {
	if c.IncludeClosed {
		return "all"
	}
	return "open"
}

// SplitRepo splits an "owner/repo" string into its two components.
func SplitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
