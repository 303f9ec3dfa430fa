// Package classifier implements the Classifier port against the partition
// analysis service.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// partitionsPattern matches the status line at the start of the response text,
// e.g. "Partitions (NTP: 3 / TP: 7)".
var partitionsPattern = regexp.MustCompile(`^Partitions \(NTP: ([0-9]+) / TP: ([0-9]+)\)`)

// Compile-time interface satisfaction check.
var _ driven.Classifier = (*Client)(nil)

// Options tune the pacing and failure isolation of classifier calls.
type Options struct {
	// RequestsPerSecond caps the call rate; zero or negative means unlimited.
	RequestsPerSecond float64
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker; zero disables the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Client calls GET <base>/pulls/<owner>/<repo>/<n>/partitions/.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[driven.Partitions]
}

// partitionsResponse is the JSON body returned by the analysis service.
type partitionsResponse struct {
	Text *string `json:"text"`
}

// NewClient creates a classifier client rooted at baseURL.
func NewClient(httpClient *http.Client, baseURL string, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limiter:    rate.NewLimiter(limit, 1),
	}

	if opts.FailureThreshold > 0 {
		threshold := opts.FailureThreshold
		c.breaker = gobreaker.NewCircuitBreaker[driven.Partitions](gobreaker.Settings{
			Name:        "classifier",
			MaxRequests: 1,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("classifier breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}

	return c
}

// PartitionsURL returns the endpoint queried for a pull request.
func (c *Client) PartitionsURL(repoID string, number int) string {
	return model.AnalysisURL(c.baseURL, repoID, number) + "partitions/"
}

// Classify fetches the partition counts of a pull request. Every failure,
// including an open breaker, wraps driven.ErrUnclassified.
func (c *Client) Classify(ctx context.Context, repoID string, number int) (driven.Partitions, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return driven.Partitions{}, fmt.Errorf("%w: %w", driven.ErrUnclassified, err)
	}

	if c.breaker == nil {
		return c.classify(ctx, repoID, number)
	}

	p, err := c.breaker.Execute(func() (driven.Partitions, error) {
		return c.classify(ctx, repoID, number)
	})
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		return driven.Partitions{}, fmt.Errorf("%w: %w", driven.ErrUnclassified, err)
	}
	return p, err
}

func (c *Client) classify(ctx context.Context, repoID string, number int) (driven.Partitions, error) {
	url := c.PartitionsURL(repoID, number)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return driven.Partitions{}, fmt.Errorf("%w: build request: %w", driven.ErrUnclassified, err)
	}

	slog.Debug("classifier request", "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return driven.Partitions{}, fmt.Errorf("%w: GET %s: %w", driven.ErrUnclassified, url, err)
	}
	defer resp.Body.Close()

	slog.Debug("classifier response", "url", url, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return driven.Partitions{}, fmt.Errorf("%w: GET %s: status %d", driven.ErrUnclassified, url, resp.StatusCode)
	}

	var body partitionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return driven.Partitions{}, fmt.Errorf("%w: decode body: %w", driven.ErrUnclassified, err)
	}
	if body.Text == nil {
		return driven.Partitions{}, fmt.Errorf("%w: response has no text field", driven.ErrUnclassified)
	}

	return ParseStatusLine(*body.Text)
}

// ParseStatusLine extracts (NTP, TP) from a "Partitions (NTP: X / TP: Y)" line.
func ParseStatusLine(text string) (driven.Partitions, error) {
	m := partitionsPattern.FindStringSubmatch(text)
	if m == nil {
		return driven.Partitions{}, fmt.Errorf("%w: unrecognized status %q", driven.ErrUnclassified, truncate(text, 80))
	}

	ntp, err := strconv.Atoi(m[1])
	if err != nil {
		return driven.Partitions{}, fmt.Errorf("%w: ntp: %w", driven.ErrUnclassified, err)
	}
	tp, err := strconv.Atoi(m[2])
	if err != nil {
		return driven.Partitions{}, fmt.Errorf("%w: tp: %w", driven.ErrUnclassified, err)
	}

	return driven.Partitions{NTP: ntp, TP: tp}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
