package fact_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historia-diaria/internal/handler/http/fact"
)

func post(t *testing.T, h http.Handler, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateHandler_Created(t *testing.T) {
	repo := &stubRepo{facts: sampleFacts()[1:]}
	gen := &stubGenerator{repo: repo}

	rec := post(t, newMux(repo, gen), "/api/admin/generate", adminToken(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got fact.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "ai", got.Source)
	assert.Equal(t, "done", got.State)
	assert.Equal(t, []string{"start", "generating_via_ai", "persisting_record", "done"}, got.Transitions)
	assert.Equal(t, int64(1500), got.DurationMS)
	assert.Equal(t, "2025-07-20", got.Fact.PublishDate)
	assert.Equal(t, []string{"2025-07-20"}, gen.dates)
}

func TestGenerateHandler_ExplicitDate(t *testing.T) {
	repo := &stubRepo{}
	gen := &stubGenerator{repo: repo}

	rec := post(t, newMux(repo, gen), "/api/admin/generate?date=2025-08-01", adminToken(t))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"2025-08-01"}, gen.dates)
}

func TestGenerateHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		facts    bool
		genErr   error
		target   string
		token    bool
		wantCode int
		wantBody string
		wantRuns int
	}{
		{"no token", false, nil, "/api/admin/generate", false, http.StatusUnauthorized, "", 0},
		{"bad date", false, nil, "/api/admin/generate?date=20-07-2025", true, http.StatusBadRequest, "invalid date", 0},
		{"already exists", true, nil, "/api/admin/generate", true, http.StatusConflict, "fact already exists for 2025-07-20 (id 3)", 0},
		{"insert rejected", false, errInsert, "/api/admin/generate", true, http.StatusBadGateway, "generation failed", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{}
			if tt.facts {
				repo.facts = sampleFacts()
			}
			gen := &stubGenerator{repo: repo, err: tt.genErr}
			token := ""
			if tt.token {
				token = adminToken(t)
			}

			rec := post(t, newMux(repo, gen), tt.target, token)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			assert.Equal(t, tt.wantRuns, gen.calls)
		})
	}
}

func TestRegister_NoGeneratorNoAdminRoute(t *testing.T) {
	rec := post(t, newMux(&stubRepo{}, nil), "/api/admin/generate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
