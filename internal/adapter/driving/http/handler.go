// Package httphandler serves the watch daemon's operational endpoints:
// health, the latest pass status and Prometheus metrics.
package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/prminer/internal/application"
)

// Handler is the HTTP driving adapter for the daemon status API.
type Handler struct {
	board  *application.StatusBoard
	logger *slog.Logger
}

// NewHandler creates a Handler reading from board.
func NewHandler(board *application.StatusBoard, logger *slog.Logger) *Handler {
	return &Handler{
		board:  board,
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. Metrics are served from gatherer.
func NewServeMux(h *Handler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports that the process is serving.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Status returns the outcome of the most recent reconciliation pass.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	status, ok := h.board.Status()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no pass has completed yet")
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(status))
}
