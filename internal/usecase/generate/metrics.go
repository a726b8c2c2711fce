package generate

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRecorder records pipeline metrics. Tests inject fakes; production
// code uses the Prometheus implementation.
type MetricsRecorder interface {
	// RecordProviderAttempt counts one provider call by model and outcome kind
	// ("ok" on success).
	RecordProviderAttempt(model, outcome string)
	// RecordParseStrategy counts the strategy that produced a valid object.
	RecordParseStrategy(strategy string)
	// RecordRun counts a finished pipeline run by outcome and fact source.
	RecordRun(outcome, source string)
	// RecordRunDuration observes the wall time of a pipeline run.
	RecordRunDuration(d time.Duration)
}

// PrometheusMetrics implements MetricsRecorder with Prometheus collectors.
type PrometheusMetrics struct {
	providerAttempts *prometheus.CounterVec
	parseStrategies  *prometheus.CounterVec
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

// getOrCreateCounterVec returns the already registered collector when the
// same metric was registered before.
func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

func getOrCreateHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
		return promauto.NewHistogram(opts)
	}
	return h
}

// NewPrometheusMetrics returns the process-wide Prometheus recorder.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusMetrics{
			providerAttempts: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "fact_provider_attempts_total",
				Help: "Generative model calls by model and outcome",
			}, []string{"model", "outcome"}),
			parseStrategies: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "fact_parse_strategy_success_total",
				Help: "Parse strategy that produced a valid fact object",
			}, []string{"strategy"}),
			runs: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "fact_pipeline_runs_total",
				Help: "Finished pipeline runs by outcome and fact source",
			}, []string{"outcome", "source"}),
			runDuration: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "fact_pipeline_duration_seconds",
				Help:    "Wall time of a pipeline run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			}),
		}
	})
	return prometheusMetricsInstance
}

func (p *PrometheusMetrics) RecordProviderAttempt(model, outcome string) {
	p.providerAttempts.WithLabelValues(model, outcome).Inc()
}

func (p *PrometheusMetrics) RecordParseStrategy(strategy string) {
	p.parseStrategies.WithLabelValues(strategy).Inc()
}

func (p *PrometheusMetrics) RecordRun(outcome, source string) {
	p.runs.WithLabelValues(outcome, source).Inc()
}

func (p *PrometheusMetrics) RecordRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}
