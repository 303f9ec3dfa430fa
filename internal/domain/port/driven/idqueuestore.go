package driven

// IDQueueStore persists the randomized pull request ID order of a collection
// inside the collection's directory.
type IDQueueStore interface {
	// Load returns the stored IDs and true, or nil and false when no queue
	// has been persisted in dir yet.
	Load(dir string) ([]int, bool, error)
	// Save writes ids to dir. The write is atomic: a reader never observes a
	// partially written queue.
	Save(dir string, ids []int) error
}
