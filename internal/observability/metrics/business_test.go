package metrics

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUpdateFactsTotal(t *testing.T) {
	UpdateFactsTotal("test", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(FactsTotal.WithLabelValues("test")))

	UpdateFactsTotal("test", 4)
	assert.Equal(t, 4.0, testutil.ToFloat64(FactsTotal.WithLabelValues("test")))
}

func TestRecordLastPublish(t *testing.T) {
	day := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
	RecordLastPublish("production", day)
	assert.Equal(t, float64(day.Unix()), testutil.ToFloat64(LastPublishTimestamp.WithLabelValues("production")))
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		status    string
	}{
		{"success", "insert", nil, "ok"},
		{"failure", "list_recent", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.CollectAndCount(DBQueryDuration)
			RecordDBQuery(tt.operation, 5*time.Millisecond, tt.err)
			assert.GreaterOrEqual(t, testutil.CollectAndCount(DBQueryDuration), before)
			assert.NotPanics(t, func() {
				DBQueryDuration.WithLabelValues(tt.operation, tt.status)
			})
		})
	}
}

type fakeStats struct{ stats sql.DBStats }

func (f fakeStats) Stats() sql.DBStats { return f.stats }

func TestUpdateDBConnectionStats(t *testing.T) {
	UpdateDBConnectionStats(sql.DBStats{InUse: 2, Idle: 3, WaitCount: 7})
	assert.Equal(t, 2.0, testutil.ToFloat64(DBConnectionsActive))
	assert.Equal(t, 3.0, testutil.ToFloat64(DBConnectionsIdle))
	assert.Equal(t, 7.0, testutil.ToFloat64(DBConnectionsWaitTotal))
}

func TestCollectDBStats_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		CollectDBStats(ctx, fakeStats{sql.DBStats{InUse: 1, Idle: 9}}, time.Hour)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(DBConnectionsIdle) == 9
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}
