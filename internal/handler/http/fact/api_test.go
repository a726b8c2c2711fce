package fact_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historia-diaria/internal/handler/http/fact"
	factUC "historia-diaria/internal/usecase/fact"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestTodayHandler(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		rec := get(t, newMux(&stubRepo{facts: sampleFacts()}, nil), "/api/facts/today")
		require.Equal(t, http.StatusOK, rec.Code)

		var got fact.DTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, int64(3), got.ID)
		assert.Equal(t, "2025-07-20", got.PublishDate)
		assert.Equal(t, []string{"NASA", "https://www.nasa.gov/apollo11"}, got.Sources)
		assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	})

	t.Run("absent", func(t *testing.T) {
		rec := get(t, newMux(&stubRepo{facts: sampleFacts()[1:]}, nil), "/api/facts/today")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"fact not found"}`, rec.Body.String())
	})

	t.Run("store error hidden", func(t *testing.T) {
		rec := get(t, newMux(&stubRepo{err: errors.New("pq: password authentication failed")}, nil), "/api/facts/today")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	})
}

func TestListHandler(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
		wantLimit int
	}{
		{"default limit", "", http.StatusOK, 3, factUC.DefaultLimit},
		{"explicit limit", "?limit=2", http.StatusOK, 2, 2},
		{"capped", "?limit=1000", http.StatusOK, 3, factUC.MaxLimit},
		{"zero", "?limit=0", http.StatusBadRequest, 0, 0},
		{"not a number", "?limit=abc", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{facts: sampleFacts()}
			rec := get(t, newMux(repo, nil), "/api/facts"+tt.query)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Empty(t, repo.limits)
				return
			}
			var got fact.ListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantCount, got.Count)
			assert.Len(t, got.Facts, tt.wantCount)
			assert.Equal(t, []int{tt.wantLimit}, repo.limits)
		})
	}
}

func TestListHandler_EmptyIsArray(t *testing.T) {
	rec := get(t, newMux(&stubRepo{}, nil), "/api/facts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"facts":[],"count":0}`, rec.Body.String())
}

func TestArchiveHandler(t *testing.T) {
	repo := &stubRepo{facts: sampleFacts()}
	rec := get(t, newMux(repo, nil), "/api/facts/archive")
	require.Equal(t, http.StatusOK, rec.Code)

	var got factUC.Archive
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Total)
	require.Len(t, got.Years, 2)
	assert.Equal(t, 2025, got.Years[0].Year)
	assert.Equal(t, "JUL", got.Years[0].Months[0].Code)
	assert.Equal(t, "REG_001", got.Years[0].Months[0].Entries[0].Label)
	assert.Equal(t, 2024, got.Years[1].Year)
	assert.Equal(t, []int{factUC.MaxLimit}, repo.limits)

	rec = get(t, newMux(&stubRepo{}, nil), "/api/facts/archive?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStaticHandler(t *testing.T) {
	mux := newMux(&stubRepo{}, nil)

	rec := get(t, mux, "/static/app.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-typewriter")

	rec = get(t, mux, "/static/style.css")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/static/missing.js").Code)
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/nope").Code)
}
