package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// UpdateFactsTotal sets the stored fact count of mode.
func UpdateFactsTotal(mode string, count int64) {
	FactsTotal.WithLabelValues(mode).Set(float64(count))
}

// RecordLastPublish sets the newest publish date of mode.
func RecordLastPublish(mode string, publishDate time.Time) {
	LastPublishTimestamp.WithLabelValues(mode).Set(float64(publishDate.Unix()))
}

// RecordDBQuery observes one repository call. err decides the status label.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DBQueryDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// UpdateDBConnectionStats copies pool statistics into the connection gauges.
func UpdateDBConnectionStats(stats sql.DBStats) {
	DBConnectionsActive.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
	DBConnectionsWaitTotal.Set(float64(stats.WaitCount))
}

// StatsSource is implemented by *sql.DB.
type StatsSource interface {
	Stats() sql.DBStats
}

// CollectDBStats updates the connection gauges every interval until ctx is done.
func CollectDBStats(ctx context.Context, db StatsSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	UpdateDBConnectionStats(db.Stats())
	for {
		select {
		case <-ctx.Done():
			slog.Debug("db stats collector stopped")
			return
		case <-ticker.C:
			UpdateDBConnectionStats(db.Stats())
		}
	}
}
