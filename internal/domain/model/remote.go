package model

import "time"

// RemotePull is the metadata of a pull request as returned by the remote source.
type RemotePull struct {
	RepoID    string
	Number    int
	Author    string
	State     string
	PatchURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChangedFile is a file touched by a pull request.
type ChangedFile struct {
	Filename  string
	Status    string
	Additions int
	Changes   int
	Patch     string
	RawURL    string
}

// HasContent reports whether the file's current content and patch are worth
// mirroring: it was not a pure deletion and textual diff content exists.
func (f ChangedFile) HasContent() bool {
	return (f.Additions > 0 || f.Changes > 0) && f.Patch != ""
}

// PullEvent is a pull request event read from the public event archive.
type PullEvent struct {
	RepoID    string
	Number    int
	Action    string
	Language  string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
