// Package gharchive implements the EventArchive port against the public
// hourly GitHub event archive (gzip-compressed JSON lines).
package gharchive

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// DefaultBaseURL is the public archive root.
const DefaultBaseURL = "https://data.gharchive.org"

// maxLineBytes bounds a single event line; archive events are far smaller.
const maxLineBytes = 16 << 20

// Compile-time interface satisfaction check.
var _ driven.EventArchive = (*Client)(nil)

// Client downloads and decodes hourly archive buckets.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client rooted at baseURL (DefaultBaseURL when empty).
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// BucketURL returns the archive URL of the hour containing t. The archive
// names buckets YYYY-MM-DD-H with an unpadded hour.
func (c *Client) BucketURL(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%s-%d.json.gz", c.baseURL, t.Format("2006-01-02"), t.Hour())
}

// PullEvents downloads the bucket for the hour containing t and returns its
// pull request events in archive order. Lines that fail to decode are
// skipped with a warning.
func (c *Client) PullEvents(ctx context.Context, t time.Time) ([]model.PullEvent, error) {
	bucketURL := c.BucketURL(t)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bucketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build archive request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch archive bucket %s: %w", bucketURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch archive bucket %s: unexpected status %d", bucketURL, resp.StatusCode)
	}

	slog.Info("parsing archive bucket", "url", bucketURL)

	events, total, err := decodeBucket(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode archive bucket %s: %w", bucketURL, err)
	}

	slog.Info("archive bucket parsed",
		"url", bucketURL,
		"events", total,
		"pull_request_events", len(events),
	)

	return events, nil
}

// decodeBucket reads a gzip stream of JSON lines and keeps the pull request events.
// It returns the kept events and the number of lines read.
func decodeBucket(r io.Reader) ([]model.PullEvent, int, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var events []model.PullEvent
	var lineNo int

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ev, ok, err := decodeEvent(line)
		if err != nil {
			slog.Warn("skipping malformed archive event", "line", lineNo, "error", err)
			continue
		}
		if ok {
			events = append(events, ev)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, lineNo, fmt.Errorf("read line %d: %w", lineNo+1, err)
	}

	return events, lineNo, nil
}
