// Package notifier announces a newly published fact on chat webhooks.
// Delivery failures are logged and reported but never undo a publication.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"historia-diaria/internal/domain/entity"
)

// Notifier announces one published fact.
type Notifier interface {
	Name() string
	NotifyFact(ctx context.Context, fact *entity.HistoricalFact) error
}

// Multi fans a fact out to every configured notifier concurrently.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMulti returns a Multi over notifiers. Nil entries are skipped.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Multi{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len returns the number of notifiers.
func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) Name() string { return "multi" }

// NotifyFact delivers to all notifiers. Failures are logged and counted,
// never returned, and a failing channel does not cancel the others.
func (m *Multi) NotifyFact(ctx context.Context, fact *entity.HistoricalFact) error {
	m.Deliver(ctx, fact)
	return nil
}

// Deliver is NotifyFact returning how many channels accepted the fact.
func (m *Multi) Deliver(ctx context.Context, fact *entity.HistoricalFact) int {
	if len(m.notifiers) == 0 {
		return 0
	}

	ok := make([]bool, len(m.notifiers))
	var g errgroup.Group
	for i, n := range m.notifiers {
		g.Go(func() error {
			start := time.Now()
			err := n.NotifyFact(ctx, fact)
			recordDelivery(n.Name(), time.Since(start), err)
			if err != nil {
				m.logger.ErrorContext(ctx, "notification failed",
					slog.String("channel", n.Name()),
					slog.Int64("fact_id", fact.ID),
					slog.Any("error", err))
				return nil
			}
			ok[i] = true
			m.logger.InfoContext(ctx, "notification sent",
				slog.String("channel", n.Name()),
				slog.Int64("fact_id", fact.ID))
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, v := range ok {
		if v {
			sent++
		}
	}
	return sent
}
