package model

import (
	"fmt"
	"time"
)

// Sentinel partition counts recorded when the classifier could not analyze a pull request.
const (
	UnclassifiedNTP = -1
	UnclassifiedTP  = -1
)

// Interest bounds on the non-trivial partition count.
const (
	MinInterestingNTP = 2
	MaxInterestingNTP = 5
)

// PRKey is the natural key of a tracked pull request.
type PRKey struct {
	RepoID string
	Number int
}

// String returns the key in owner/repo#number form.
func (k PRKey) String() string {
	return fmt.Sprintf("%s#%d", k.RepoID, k.Number)
}

// PullRequest is a pull request tracked by the watcher together with the
// partition counts reported by the classifier.
type PullRequest struct {
	RepoID     string
	Number     int
	Author     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	AnalyzedAt time.Time
	NTP        int // Non-trivial partitions; UnclassifiedNTP on classifier failure.
	TP         int // Total partitions; UnclassifiedTP on classifier failure.

	// Transient field resolved during summarization, not persisted with the record.
	Email string
}

// Key returns the natural key of the pull request.
func (pr PullRequest) Key() PRKey {
	return PRKey{RepoID: pr.RepoID, Number: pr.Number}
}

// Classified reports whether the classifier produced partition counts.
func (pr PullRequest) Classified() bool {
	return pr.NTP >= 0 && pr.TP >= 0
}

// Interesting reports whether the pull request has between 2 and 5
// non-trivial partitions. Unclassified records are never interesting.
func (pr PullRequest) Interesting() bool {
	return pr.NTP >= MinInterestingNTP && pr.NTP <= MaxInterestingNTP
}

// GitHubURL returns the browser URL of the pull request.
func (pr PullRequest) GitHubURL() string {
	return fmt.Sprintf("https://github.com/%s/pull/%d/", pr.RepoID, pr.Number)
}

// AnalysisURL returns the page of the pull request on the analysis service
// rooted at baseURL (no trailing slash).
func (pr PullRequest) AnalysisURL(baseURL string) string {
	return AnalysisURL(baseURL, pr.RepoID, pr.Number)
}

// AnalysisURL builds the analysis service page for a pull request.
func AnalysisURL(baseURL, repoID string, number int) string {
	return fmt.Sprintf("%s/pulls/%s/%d/", baseURL, repoID, number)
}
