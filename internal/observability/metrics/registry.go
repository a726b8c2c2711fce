package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fact metrics describe the stored content per run mode.
var (
	// FactsTotal is the number of stored facts.
	FactsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "facts_total",
			Help: "Number of facts stored in the table of the run mode",
		},
		[]string{"mode"},
	)

	// LastPublishTimestamp is the publish date of the newest fact as a Unix time.
	LastPublishTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "facts_last_publish_timestamp_seconds",
			Help: "Publish date of the most recent fact (Unix seconds, midnight UTC)",
		},
		[]string{"mode"},
	)
)

// Database metrics track query latency and the connection pool.
var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation", "status"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of database connections in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	DBConnectionsWaitTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_wait_count",
			Help: "Total number of connections waited for",
		},
	)
)
