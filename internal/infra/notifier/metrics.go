package notifier

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sent_total",
			Help: "Fact notifications by channel and status",
		},
		[]string{"channel", "status"},
	)

	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Notification delivery duration in seconds, retries included",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"channel"},
	)

	rateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the local token bucket",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"channel"},
	)
)

func recordDelivery(channel string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	notificationsTotal.WithLabelValues(channel, status).Inc()
	notificationDuration.WithLabelValues(channel).Observe(d.Seconds())
}
