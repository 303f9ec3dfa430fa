package model

// WatchMode selects how the watcher discovers new pull requests.
type WatchMode string

// Watch modes.
const (
	// WatchModeTracked queries each project from the project list.
	WatchModeTracked WatchMode = "tracked"
	// WatchModeFirehose reads the public hourly event archive.
	WatchModeFirehose WatchMode = "firehose"
)

// CollectionStatus summarizes how mining a collection ended.
type CollectionStatus string

// Collection statuses.
const (
	CollectionDone    CollectionStatus = "done"
	CollectionIDsOnly CollectionStatus = "ids-only"
	CollectionMissing CollectionStatus = "missing"
	CollectionAborted CollectionStatus = "aborted"
	CollectionDrained CollectionStatus = "drained"
)
