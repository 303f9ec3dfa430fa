// Package flatfile implements the persistence ports as line-oriented text
// files: one record per line, fields separated by single spaces in a fixed
// order. Files are always rewritten whole and replaced atomically.
package flatfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/natefinch/atomic"
)

// noneValue marks an absent timestamp on disk.
const noneValue = "None"

// readLines calls parse with the whitespace-separated fields of every
// non-blank line of path. A line that fails to parse is logged and skipped;
// only I/O errors abort the load. A missing file yields no lines and found=false.
func readLines(path string, parse func(fields []string) error) (found bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var lineNo int
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := parse(fields); err != nil {
			slog.Warn("skipping unparsable line",
				"file", path,
				"line", lineNo,
				"error", err,
			)
		}
	}

	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("read %s: %w", path, err)
	}

	return true, nil
}

// writeLines atomically replaces path with lines, one per line.
func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// joinFields joins fields with single spaces. The format has no escaping, so a
// field that is empty (where required) or contains whitespace is rejected.
func joinFields(fields ...string) (string, error) {
	for i, f := range fields {
		if strings.IndexFunc(f, unicode.IsSpace) >= 0 {
			return "", fmt.Errorf("field %d %q contains whitespace", i, f)
		}
	}
	return strings.Join(fields, " "), nil
}

// formatTime renders t as RFC3339 UTC, or noneValue for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return noneValue
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime accepts RFC3339 and the offset-less ISO forms older stores contain.
func parseTime(s string) (time.Time, error) {
	if s == noneValue {
		return time.Time{}, nil
	}

	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
