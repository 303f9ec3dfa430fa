package flatfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PresenceSource = (*PresenceFile)(nil)

// ErrNoPresenceList indicates the chat presence list has not been written.
var ErrNoPresenceList = errors.New("presence list not found")

// PresenceFile reads the list of online chat users written by the chat bot:
// a header line followed by one login per line.
type PresenceFile struct {
	path string
}

// NewPresenceFile creates a PresenceFile reading path.
func NewPresenceFile(path string) *PresenceFile {
	return &PresenceFile{path: path}
}

// OnlineLogins returns the logins in the file, header excluded.
func (p *PresenceFile) OnlineLogins(_ context.Context) ([]string, error) {
	f, err := os.Open(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoPresenceList, p.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open presence list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var logins []string
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		if login := strings.TrimSpace(scanner.Text()); login != "" {
			logins = append(logins, login)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read presence list: %w", err)
	}

	return logins, nil
}
