package model

import "time"

// Project is a repository watched for new pull requests.
type Project struct {
	RepoID string
	// LastRefreshed is the watermark bounding the next incremental query.
	// The zero value means the project was never refreshed.
	LastRefreshed time.Time

	// Derived counters computed during summarization, not persisted.
	InterestingPulls int
	OtherPulls       int
}

// Refreshed reports whether the project has been refreshed at least once.
func (p Project) Refreshed() bool {
	return !p.LastRefreshed.IsZero()
}
