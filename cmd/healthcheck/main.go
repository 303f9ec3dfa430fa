package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	json "github.com/goccy/go-json"

	httphandler "github.com/ericfisherdev/prminer/internal/adapter/driving/http"
)

func main() {
	os.Exit(check(os.Getenv("PRMINER_LISTEN_ADDR"), os.Getenv("PRMINER_HEALTH_MAX_AGE"), time.Now()))
}

// check queries the prwatcher daemon and returns the process exit code. When
// maxAge is a valid duration the last completed pass must also be recent; a
// daemon that has not finished its first pass yet still counts as healthy.
func check(rawAddr, maxAge string, now time.Time) int {
	base := "http://" + normalizeAddr(rawAddr)

	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := get(ctx, client, base+"/api/v1/health")
	if err != nil {
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	if maxAge == "" {
		return 0
	}
	limit, err := time.ParseDuration(maxAge)
	if err != nil || limit <= 0 {
		fmt.Fprintf(os.Stderr, "ignoring invalid PRMINER_HEALTH_MAX_AGE %q\n", maxAge)
		return 0
	}

	if err := checkFreshness(ctx, client, base, limit, now); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

func checkFreshness(ctx context.Context, client *http.Client, base string, limit time.Duration, now time.Time) error {
	resp, err := get(ctx, client, base+"/api/v1/status")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		return nil
	case http.StatusOK:
	default:
		return fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var status httphandler.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	finished, err := time.Parse(time.RFC3339, status.FinishedAt)
	if err != nil {
		return fmt.Errorf("parse finished_at %q: %w", status.FinishedAt, err)
	}

	if age := now.Sub(finished); age > limit {
		return fmt.Errorf("last pass finished %s ago, limit %s", age.Round(time.Second), limit)
	}
	return nil
}

func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// normalizeAddr ensures the healthcheck connects to loopback rather than the
// bind-all address. Docker containers bind 0.0.0.0 but the healthcheck runs
// inside the same container, so loopback is reachable and more correct.
func normalizeAddr(raw string) string {
	if raw == "" {
		return "127.0.0.1:8080"
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return "127.0.0.1:8080"
	}

	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
