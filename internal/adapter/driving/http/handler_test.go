package httphandler_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/prminer/internal/adapter/driving/http"
	"github.com/ericfisherdev/prminer/internal/application"
	"github.com/ericfisherdev/prminer/internal/domain/model"
)

func setupServer(t *testing.T) (*httptest.Server, *application.StatusBoard, *httphandler.Metrics) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	board := application.NewStatusBoard()
	reg := prometheus.NewRegistry()
	metrics := httphandler.NewMetrics(reg)

	srv := httptest.NewServer(httphandler.NewServeMux(httphandler.NewHandler(board, logger), reg, logger))
	t.Cleanup(srv.Close)

	return srv, board, metrics
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _, _ := setupServer(t)

	var body httphandler.HealthResponse
	code := getJSON(t, srv.URL+"/api/v1/health", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Time)
}

func TestStatus_BeforeFirstPass(t *testing.T) {
	srv, _, _ := setupServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/v1/status", &body)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "no pass has completed yet", body["error"])
}

func TestStatus_AfterPasses(t *testing.T) {
	srv, board, _ := setupServer(t)
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	board.ObservePass(model.PassReport{
		Mode:               model.WatchModeTracked,
		StartedAt:          started,
		Duration:           1500 * time.Millisecond,
		ProjectsVisited:    4,
		RecordsConstructed: 2,
		ClassifierFailures: 1,
	}, nil)
	board.ObservePass(model.PassReport{Mode: model.WatchModeTracked, StartedAt: started}, errors.New("disk full"))

	var body httphandler.StatusResponse
	code := getJSON(t, srv.URL+"/api/v1/status", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "tracked", body.Mode)
	assert.Equal(t, "2024-06-01T12:00:00Z", body.StartedAt)
	assert.Equal(t, 2, body.Passes)
	assert.Equal(t, 1, body.FailedPasses)
	assert.Equal(t, "disk full", body.Error)
}

func TestMetrics_Exposed(t *testing.T) {
	srv, _, metrics := setupServer(t)

	metrics.ObservePass(model.PassReport{
		StartedAt:          time.Unix(1717243200, 0),
		RecordsConstructed: 5,
		ClassifierFailures: 2,
		StoredRecords:      40,
		Interesting:        3,
		Duration:           3 * time.Second,
	}, nil)
	metrics.ObservePass(model.PassReport{}, errors.New("boom"))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, text, `prwatcher_passes_total{result="ok"} 1`)
	assert.Contains(t, text, `prwatcher_passes_total{result="error"} 1`)
	assert.Contains(t, text, "prwatcher_records_constructed_total 5")
	assert.Contains(t, text, "prwatcher_classifier_failures_total 2")
	assert.Contains(t, text, "prwatcher_stored_records 40")
	assert.Contains(t, text, "prwatcher_pass_duration_seconds_count 1")
}

func TestUnknownRoute(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/health", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
