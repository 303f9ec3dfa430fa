package httphandler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ericfisherdev/prminer/internal/application"
	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// Compile-time interface satisfaction check.
var _ application.PassObserver = (*Metrics)(nil)

// Metrics exports reconciliation pass outcomes to Prometheus.
type Metrics struct {
	passes             *prometheus.CounterVec
	constructed        prometheus.Counter
	classifierFailures prometheus.Counter
	projectsFailed     prometheus.Counter
	storedRecords      prometheus.Gauge
	interesting        prometheus.Gauge
	lastSuccess        prometheus.Gauge
	duration           prometheus.Histogram
}

// NewMetrics registers the pass metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		passes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prwatcher_passes_total",
			Help: "Reconciliation passes by result.",
		}, []string{"result"}),
		constructed: f.NewCounter(prometheus.CounterOpts{
			Name: "prwatcher_records_constructed_total",
			Help: "Pull request records constructed and classified.",
		}),
		classifierFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "prwatcher_classifier_failures_total",
			Help: "Classifications that failed and were stored as unclassified.",
		}),
		projectsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "prwatcher_project_failures_total",
			Help: "Project queries that failed and ended a pass early.",
		}),
		storedRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "prwatcher_stored_records",
			Help: "Pull request records held after the last pass.",
		}),
		interesting: f.NewGauge(prometheus.GaugeOpts{
			Name: "prwatcher_interesting_records",
			Help: "Interesting pull requests after the last pass.",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "prwatcher_last_success_timestamp_seconds",
			Help: "Start time of the last successful pass.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "prwatcher_pass_duration_seconds",
			Help:    "Duration of reconciliation passes.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObservePass records one pass.
func (m *Metrics) ObservePass(report model.PassReport, err error) {
	if err != nil {
		m.passes.WithLabelValues("error").Inc()
		return
	}

	m.passes.WithLabelValues("ok").Inc()
	m.constructed.Add(float64(report.RecordsConstructed))
	m.classifierFailures.Add(float64(report.ClassifierFailures))
	m.projectsFailed.Add(float64(report.ProjectsFailed))
	m.storedRecords.Set(float64(report.StoredRecords))
	m.interesting.Set(float64(report.Interesting))
	m.lastSuccess.Set(float64(report.StartedAt.Unix()))
	m.duration.Observe(report.Duration.Seconds())
}
