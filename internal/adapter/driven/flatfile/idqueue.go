package flatfile

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// IDQueueFileName is the name of the ID queue file inside a collection directory.
const IDQueueFileName = "pull-req-ids.log"

// Compile-time interface satisfaction check.
var _ driven.IDQueueStore = (*IDQueueFile)(nil)

// IDQueueFile stores a collection's ID order as one integer per line.
type IDQueueFile struct{}

// NewIDQueueFile creates an IDQueueFile.
func NewIDQueueFile() *IDQueueFile {
	return &IDQueueFile{}
}

// Load reads the queue stored in dir. Lines that are not integers are skipped.
func (q *IDQueueFile) Load(dir string) ([]int, bool, error) {
	path := filepath.Join(dir, IDQueueFileName)

	ids := []int{}
	found, err := readLines(path, func(fields []string) error {
		if len(fields) != 1 {
			return fmt.Errorf("expected 1 field, got %d", len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("parse id: %w", err)
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	return ids, true, nil
}

// Save atomically writes ids to dir in the given order.
func (q *IDQueueFile) Save(dir string, ids []int) error {
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = strconv.Itoa(id)
	}
	return writeLines(filepath.Join(dir, IDQueueFileName), lines)
}
