package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"historia-diaria/internal/pkg/config"
)

// Job outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics are the worker's Prometheus collectors.
type Metrics struct {
	Config *config.Metrics

	JobRuns       *prometheus.CounterVec
	JobDuration   prometheus.Histogram
	LastSuccess   prometheus.Gauge
	Notifications prometheus.Counter
}

var defaultMetrics = &Metrics{
	Config: config.NewMetrics("worker"),
	JobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_job_runs_total",
		Help: "Daily job runs by outcome (success, failure, skipped)",
	}, []string{"outcome"}),
	JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "worker_job_duration_seconds",
		Help:    "Duration of daily job runs that reached the pipeline",
		Buckets: []float64{1, 5, 30, 60, 120, 300, 900, 1800},
	}),
	LastSuccess: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "worker_job_last_success_timestamp_seconds",
		Help: "Unix time of the last run that published a fact",
	}),
	Notifications: promauto.NewCounter(prometheus.CounterOpts{
		Name: "worker_notifications_delivered_total",
		Help: "Channels that accepted a published fact",
	}),
}

// DefaultMetrics returns the process-wide worker metrics.
func DefaultMetrics() *Metrics { return defaultMetrics }

// RecordRun counts a run with outcome and, for pipeline runs, its duration.
func (m *Metrics) RecordRun(outcome string, seconds float64) {
	m.JobRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	m.JobDuration.Observe(seconds)
	if outcome == OutcomeSuccess {
		m.LastSuccess.SetToCurrentTime()
	}
}
