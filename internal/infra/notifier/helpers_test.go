package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/resilience/retry"
)

func sampleFact() *entity.HistoricalFact {
	return &entity.HistoricalFact{
		ID:             42,
		HistoricalDate: "1969-07-20",
		PublishDate:    "2025-07-20",
		Title:          "El Apolo 11 llega a la Luna",
		Description:    "Neil Armstrong y Buzz Aldrin caminan sobre la superficie lunar.",
		Category:       "Espacio",
		Sources:        []string{"NASA", "https://www.nasa.gov/mission/apollo-11/"},
		CreatedAt:      time.Date(2025, 7, 20, 0, 5, 0, 0, time.UTC),
	}
}

func fastOptions() []Option {
	return []Option{
		WithRetry(retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}),
		WithRateLimit(rate.Inf, 1),
	}
}

// hookServer answers with the queued status codes in order, then 204.
type hookServer struct {
	*httptest.Server
	mu       sync.Mutex
	statuses []int
	headers  []http.Header
	bodies   [][]byte
	reply    func(w http.ResponseWriter)
}

func newHookServer(t *testing.T, statuses ...int) *hookServer {
	t.Helper()
	hs := &hookServer{statuses: statuses}
	hs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hs.mu.Lock()
		hs.bodies = append(hs.bodies, body)
		hs.headers = append(hs.headers, r.Header.Clone())
		status := http.StatusNoContent
		if len(hs.statuses) > 0 {
			status, hs.statuses = hs.statuses[0], hs.statuses[1:]
		}
		reply := hs.reply
		hs.mu.Unlock()
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "0")
		}
		if reply != nil && status >= 400 {
			reply(w)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(hs.Close)
	return hs
}

func (hs *hookServer) calls() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return len(hs.bodies)
}

func (hs *hookServer) decodeLast(t *testing.T, v any) {
	t.Helper()
	hs.mu.Lock()
	defer hs.mu.Unlock()
	require.NotEmpty(t, hs.bodies)
	require.NoError(t, json.Unmarshal(hs.bodies[len(hs.bodies)-1], v))
}
