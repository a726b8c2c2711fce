package generate

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"historia-diaria/internal/domain/entity"
)

type reply struct {
	text string
	err  error
}

// mockProvider returns scripted replies per model; once a script runs out the
// last reply repeats.
type mockProvider struct {
	mu      sync.Mutex
	scripts map[string][]reply
	calls   []Request
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	script := m.scripts[req.Model]
	if len(script) == 0 {
		return "", NewProviderError("mock", req.Model, 404, errNoScript)
	}
	r := script[0]
	if len(script) > 1 {
		m.scripts[req.Model] = script[1:]
	}
	return r.text, r.err
}

func (m *mockProvider) callsFor(model string) int {
	n := 0
	for _, c := range m.calls {
		if c.Model == model {
			n++
		}
	}
	return n
}

var errNoScript = entity.ErrNotFound

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

type nopMetrics struct {
	mu         sync.Mutex
	attempts   map[string]int
	strategies []string
	runs       []string
}

func newNopMetrics() *nopMetrics { return &nopMetrics{attempts: map[string]int{}} }

func (m *nopMetrics) RecordProviderAttempt(model, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[model+"/"+outcome]++
}

func (m *nopMetrics) RecordParseStrategy(strategy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies = append(m.strategies, strategy)
}

func (m *nopMetrics) RecordRun(outcome, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, outcome+"/"+source)
}

func (m *nopMetrics) RecordRunDuration(time.Duration) {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quotaErr(model string) error {
	return NewProviderError("mock", model, 429, io.ErrUnexpectedEOF)
}

func serverErr(model string) error {
	return NewProviderError("mock", model, 503, io.ErrUnexpectedEOF)
}

const validReply = `{"historical_date":"1969-07-20","title":"Llegada a la Luna","description":"El Apolo 11 aluniza.","category":"Exploración","sources":["NASA"]}`

func mustDate(s string) time.Time {
	d, err := entity.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testFallbackFacts() []entity.HistoricalFact {
	return []entity.HistoricalFact{
		{HistoricalDate: "1492-10-12", Title: "Colón llega a América", Description: "La expedición de Colón llega a Guanahaní.", Category: entity.CategoryHistory, Sources: []string{"RAH"}},
		{HistoricalDate: "1969-07-20", Title: "Llegada a la Luna", Description: "Armstrong pisa la Luna.", Category: entity.CategorySpace, Sources: []string{"NASA"}},
		{HistoricalDate: "1989-11-09", Title: "Caída del Muro de Berlín", Description: "Se abre el paso entre las dos Alemanias.", Category: entity.CategoryPolitics},
	}
}
