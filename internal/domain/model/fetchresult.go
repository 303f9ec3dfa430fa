package model

// FetchStatus is the outcome of fetching a single pull request's artifacts.
type FetchStatus string

// Fetch outcomes.
const (
	FetchAccepted FetchStatus = "accepted"
	FetchSkipped  FetchStatus = "skipped"
	FetchRejected FetchStatus = "rejected"
	FetchFailed   FetchStatus = "failed"
)

// FetchResult carries a FetchStatus and, for FetchFailed, the last error seen.
type FetchResult struct {
	Status FetchStatus
	Err    error
}

// Accepted returns a FetchResult with status FetchAccepted.
func Accepted() FetchResult { return FetchResult{Status: FetchAccepted} }

// Skipped returns a FetchResult with status FetchSkipped.
func Skipped() FetchResult { return FetchResult{Status: FetchSkipped} }

// Rejected returns a FetchResult with status FetchRejected.
func Rejected() FetchResult { return FetchResult{Status: FetchRejected} }

// Failed returns a FetchResult with status FetchFailed and the given cause.
func Failed(err error) FetchResult { return FetchResult{Status: FetchFailed, Err: err} }
