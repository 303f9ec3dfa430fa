package model

import "time"

// CollectionReport counts the outcomes of mining one collection.
type CollectionReport struct {
	FullName   string
	Status     CollectionStatus
	Population int
	Popped     int
	Accepted   int
	Skipped    int
	Rejected   int
	Remaining  int
}

// MineReport aggregates the per-collection results of a mining run.
type MineReport struct {
	Collections []CollectionReport
}

// TotalAccepted returns the number of accepted items across all collections.
func (r MineReport) TotalAccepted() int {
	var n int
	for _, c := range r.Collections {
		n += c.Accepted
	}
	return n
}

// PassReport counts what a single reconciliation pass did.
type PassReport struct {
	Mode               WatchMode
	StartedAt          time.Time
	Duration           time.Duration
	ProjectsVisited    int
	ProjectsFailed     int
	RecordsSeen        int
	RecordsConstructed int
	RecordsUnchanged   int
	ClassifierFailures int
	StoredRecords      int
	Interesting        int
}

// Summary is the merged state handed to the report renderer.
type Summary struct {
	Mode        WatchMode
	GeneratedAt time.Time
	Language    string
	AnalysisURL string
	Projects    []Project
	Interesting []PullRequest
	Other       []PullRequest
	// Online holds lower-cased logins currently present in the chat channels.
	Online map[string]bool
}

// ResultFileReport counts what went into one combined analysis CSV.
type ResultFileReport struct {
	Name         string
	Path         string
	PullRequests int
	Unreadable   int
	Rows         int
}

// ResultsReport aggregates a run of the result summarizer.
type ResultsReport struct {
	PullRequests int
	Files        []ResultFileReport
}
