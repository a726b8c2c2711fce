package fact_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/handler/http/auth"
	"historia-diaria/internal/handler/http/fact"
	factUC "historia-diaria/internal/usecase/fact"
	"historia-diaria/internal/usecase/generate"
)

/* ───────── stubs ───────── */

type stubRepo struct {
	mu     sync.Mutex
	facts  []*entity.HistoricalFact
	err    error
	limits []int
}

func (s *stubRepo) Insert(_ context.Context, _ entity.RunMode, f *entity.HistoricalFact) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = int64(len(s.facts) + 1)
	s.facts = append(s.facts, f)
	return f.ID, nil
}

func (s *stubRepo) GetByPublishDate(_ context.Context, _ entity.RunMode, date string) (*entity.HistoricalFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, f := range s.facts {
		if f.PublishDate == date {
			return f, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListRecent(_ context.Context, _ entity.RunMode, limit int) ([]*entity.HistoricalFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.facts) {
		return s.facts[:limit], nil
	}
	return s.facts, nil
}

func (s *stubRepo) ListAll(context.Context, entity.RunMode) ([]*entity.HistoricalFact, error) {
	return s.facts, s.err
}

func (s *stubRepo) Count(context.Context, entity.RunMode) (int64, error) {
	return int64(len(s.facts)), s.err
}

type stubGenerator struct {
	repo  *stubRepo
	err   error
	calls int
	dates []string
}

func (g *stubGenerator) Run(ctx context.Context, mode entity.RunMode, date time.Time) (*generate.Result, error) {
	g.calls++
	g.dates = append(g.dates, entity.FormatDate(date))
	if g.err != nil {
		return &generate.Result{RunID: "run-err", State: generate.StateFailed}, g.err
	}
	f := &entity.HistoricalFact{
		HistoricalDate: "1969-07-20",
		PublishDate:    entity.FormatDate(date),
		Title:          "Llegada a la Luna",
		Description:    "El Apolo 11 alunizó.",
		Category:       entity.CategorySpace,
		Sources:        []string{"NASA", "https://www.nasa.gov"},
	}
	if _, err := g.repo.Insert(ctx, mode, f); err != nil {
		return nil, err
	}
	return &generate.Result{
		RunID:       "run-1",
		Fact:        f,
		Source:      generate.SourceAI,
		Model:       "gemini-2.5-flash",
		Attempts:    1,
		State:       generate.StateDone,
		Transitions: []generate.State{generate.StateStart, generate.StateGeneratingViaAI, generate.StatePersistingRecord, generate.StateDone},
		Duration:    1500 * time.Millisecond,
	}, nil
}

var errInsert = &generate.InsertRejectedError{Table: "historical_facts", Err: errors.New("duplicate key")}

/* ───────── fixtures ───────── */

var testNow = time.Date(2025, 7, 20, 10, 30, 0, 0, time.UTC)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func sampleFacts() []*entity.HistoricalFact {
	return []*entity.HistoricalFact{
		{
			ID:             3,
			HistoricalDate: "1969-07-20",
			PublishDate:    "2025-07-20",
			Title:          "Llegada del hombre a la Luna",
			Description:    "Neil Armstrong y Buzz Aldrin caminaron sobre la superficie lunar durante la misión Apolo 11 de la NASA.",
			Category:       entity.CategorySpace,
			Sources:        []string{"NASA", "https://www.nasa.gov/apollo11"},
			CreatedAt:      testNow,
		},
		{
			ID:             2,
			HistoricalDate: "1789-07-14",
			PublishDate:    "2025-07-14",
			Title:          "Toma de la Bastilla",
			Description:    "Comienzo de la Revolución Francesa.",
			Category:       entity.CategoryPolitics,
			Sources:        []string{},
			CreatedAt:      testNow.AddDate(0, 0, -6),
		},
		{
			ID:             1,
			HistoricalDate: "1492-10-12",
			PublishDate:    "2024-12-31",
			Title:          "Colón llega a América",
			Description:    "La expedición avista tierra en las Bahamas.",
			Category:       entity.CategoryHistory,
			CreatedAt:      testNow.AddDate(0, -7, 0),
		},
	}
}

func testConfig() fact.Config {
	return fact.Config{
		Mode:     entity.RunModeProduction,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
		SiteURL:  "https://historia.example.com/",
	}
}

func newMux(repo *stubRepo, gen fact.Generator) *http.ServeMux {
	mux := http.NewServeMux()
	var gate func(http.Handler) http.Handler
	if gen != nil {
		gate = auth.RequireAdmin(testSecret)
	}
	fact.Register(mux, &factUC.Service{Repo: repo}, testConfig(), gen, gate)
	return mux
}

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, "ops@example.com", auth.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}
