package notifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"historia-diaria/internal/domain/entity"
)

type stubNotifier struct {
	name  string
	err   error
	calls atomic.Int32
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) NotifyFact(context.Context, *entity.HistoricalFact) error {
	s.calls.Add(1)
	return s.err
}

func TestMulti_Deliver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ok := &stubNotifier{name: "ok"}
	broken := &stubNotifier{name: "broken", err: errors.New("webhook down")}

	m := NewMulti(logger, ok, nil, broken)
	assert.Equal(t, 2, m.Len())

	sent := m.Deliver(context.Background(), sampleFact())
	assert.Equal(t, 1, sent)
	assert.EqualValues(t, 1, ok.calls.Load())
	assert.EqualValues(t, 1, broken.calls.Load())
	assert.Contains(t, buf.String(), "notification failed")
	assert.Contains(t, buf.String(), `"channel":"broken"`)
}

func TestMulti_NotifyFactNeverFails(t *testing.T) {
	m := NewMulti(nil, &stubNotifier{name: "x", err: errors.New("boom")})
	assert.NoError(t, m.NotifyFact(context.Background(), sampleFact()))
}

func TestMulti_Empty(t *testing.T) {
	m := NewMulti(nil)
	assert.Zero(t, m.Deliver(context.Background(), sampleFact()))
}
