package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/prminer/internal/application"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusResponse is the JSON representation of the latest pass.
type StatusResponse struct {
	Mode               string  `json:"mode"`
	StartedAt          string  `json:"started_at"`
	FinishedAt         string  `json:"finished_at"`
	DurationSeconds    float64 `json:"duration_seconds"`
	ProjectsVisited    int     `json:"projects_visited"`
	ProjectsFailed     int     `json:"projects_failed"`
	RecordsSeen        int     `json:"records_seen"`
	RecordsConstructed int     `json:"records_constructed"`
	RecordsUnchanged   int     `json:"records_unchanged"`
	ClassifierFailures int     `json:"classifier_failures"`
	StoredRecords      int     `json:"stored_records"`
	Interesting        int     `json:"interesting"`
	Passes             int     `json:"passes"`
	FailedPasses       int     `json:"failed_passes"`
	Error              string  `json:"error,omitempty"`
}

// toStatusResponse converts a status board snapshot to its JSON representation.
func toStatusResponse(s application.PassStatus) StatusResponse {
	r := s.Report
	return StatusResponse{
		Mode:               string(r.Mode),
		StartedAt:          r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:         s.FinishedAt.UTC().Format(time.RFC3339),
		DurationSeconds:    r.Duration.Seconds(),
		ProjectsVisited:    r.ProjectsVisited,
		ProjectsFailed:     r.ProjectsFailed,
		RecordsSeen:        r.RecordsSeen,
		RecordsConstructed: r.RecordsConstructed,
		RecordsUnchanged:   r.RecordsUnchanged,
		ClassifierFailures: r.ClassifierFailures,
		StoredRecords:      r.StoredRecords,
		Interesting:        r.Interesting,
		Passes:             s.Passes,
		FailedPasses:       s.Failures,
		Error:              s.Error,
	}
}
