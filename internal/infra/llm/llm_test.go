package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historia-diaria/internal/config"
	"historia-diaria/internal/resilience/circuitbreaker"
	"historia-diaria/internal/usecase/generate"
)

const factJSON = `{"historical_date":"1969-07-20","title":"Llegada a la Luna","description":"Apolo 11","category":"Espacio","sources":[]}`

type recordedCall struct {
	provider, model, outcome string
}

type mockMetrics struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (m *mockMetrics) RecordRequest(provider, model, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{provider, model, outcome})
}

func testOptions(baseURL string, metrics MetricsRecorder) Options {
	return Options{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		Metrics:        metrics,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testRequest(model string) generate.Request {
	return generate.Request{
		Model:           model,
		Preamble:        generate.Preamble(),
		Prompt:          generate.BuildPrompt(time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)),
		Temperature:     0.7,
		MaxOutputTokens: 1024,
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

/* ───────── Gemini ───────── */

func TestGemini_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "models/gemini-2.5-flash:generateContent")
		body := decodeBody(t, r)
		contents, _ := body["contents"].([]any)
		assert.Len(t, contents, 3, "preamble turns plus the prompt")
		genCfg, _ := body["generationConfig"].(map[string]any)
		assert.InDelta(t, 0.7, genCfg["temperature"], 1e-6)
		assert.EqualValues(t, 1024, genCfg["maxOutputTokens"])

		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": factJSON}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	metrics := &mockMetrics{}
	g, err := NewGemini(context.Background(), testOptions(server.URL+"/", metrics))
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), testRequest("gemini-2.5-flash"))

	require.NoError(t, err)
	assert.Equal(t, factJSON, text)
	assert.Equal(t, "gemini", g.Name())
	assert.Equal(t, []recordedCall{{"gemini", "gemini-2.5-flash", "ok"}}, metrics.calls)
}

func TestGemini_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		apiState string
		wantKind generate.ErrorKind
	}{
		{"quota", 429, "RESOURCE_EXHAUSTED", generate.KindQuota},
		{"overloaded", 503, "UNAVAILABLE", generate.KindServer},
		{"unknown model", 404, "NOT_FOUND", generate.KindNotFound},
		{"bad request", 400, "INVALID_ARGUMENT", generate.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := json.Marshal(map[string]any{"error": map[string]any{
					"code": tt.status, "message": tt.name, "status": tt.apiState,
				}})
				writeJSON(w, tt.status, string(body))
			}))
			defer server.Close()

			g, err := NewGemini(context.Background(), testOptions(server.URL+"/", &mockMetrics{}))
			require.NoError(t, err)

			_, err = g.Generate(context.Background(), testRequest("gemini-2.0-flash"))

			var pe *generate.ProviderError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.wantKind, pe.Kind)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, "gemini", pe.Provider)
			assert.Equal(t, "gemini-2.0-flash", pe.Model)
		})
	}
}

/* ───────── Claude ───────── */

func TestClaude_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		body := decodeBody(t, r)
		system, _ := body["system"].([]any)
		require.Len(t, system, 1)
		assert.Contains(t, system[0].(map[string]any)["text"], "historiador")
		messages, _ := body["messages"].([]any)
		require.Len(t, messages, 1, "leading model acknowledgement is dropped")
		assert.Equal(t, "user", messages[0].(map[string]any)["role"])
		assert.EqualValues(t, 1024, body["max_tokens"])

		writeJSON(w, http.StatusOK, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": `+jsonString(factJSON)+`}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`)
	}))
	defer server.Close()

	c, err := NewClaude(testOptions(server.URL+"/", &mockMetrics{}))
	require.NoError(t, err)

	text, err := c.Generate(context.Background(), testRequest("claude-haiku-4-5"))

	require.NoError(t, err)
	assert.Equal(t, factJSON, text)
}

func TestClaude_ErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		errType  string
		wantKind generate.ErrorKind
	}{
		{429, "rate_limit_error", generate.KindQuota},
		{529, "overloaded_error", generate.KindServer},
		{404, "not_found_error", generate.KindNotFound},
		{401, "authentication_error", generate.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.errType, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeJSON(w, tt.status, `{"type":"error","error":{"type":"`+tt.errType+`","message":"nope"}}`)
			}))
			defer server.Close()

			c, err := NewClaude(testOptions(server.URL+"/", &mockMetrics{}))
			require.NoError(t, err)

			_, err = c.Generate(context.Background(), testRequest("claude-haiku-4-5"))

			assert.Equal(t, tt.wantKind, generate.KindOf(err))
			assert.Equal(t, int32(1), hits.Load(), "sdk retries must be disabled")
		})
	}
}

/* ───────── OpenAI ───────── */

func TestOpenAI_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body := decodeBody(t, r)
		messages, _ := body["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "user", messages[1].(map[string]any)["role"])

		writeJSON(w, http.StatusOK, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": `+jsonString(factJSON)+`}, "finish_reason": "stop"}]
		}`)
	}))
	defer server.Close()

	o, err := NewOpenAI(testOptions(server.URL+"/v1", &mockMetrics{}))
	require.NoError(t, err)

	text, err := o.Generate(context.Background(), testRequest("gpt-4o-mini"))

	require.NoError(t, err)
	assert.Equal(t, factJSON, text)
}

func TestOpenAI_ErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantKind generate.ErrorKind
	}{
		{429, generate.KindQuota},
		{500, generate.KindServer},
		{404, generate.KindNotFound},
		{401, generate.KindOther},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, `{"error":{"message":"nope","type":"error"}}`)
			}))
			defer server.Close()

			o, err := NewOpenAI(testOptions(server.URL+"/v1", &mockMetrics{}))
			require.NoError(t, err)

			_, err = o.Generate(context.Background(), testRequest("gpt-4o-mini"))

			assert.Equal(t, tt.wantKind, generate.KindOf(err))
		})
	}
}

/* ───────── shared behaviour ───────── */

func TestCaller_OpenBreakerIsServerError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer server.Close()

	metrics := &mockMetrics{}
	opts := testOptions(server.URL+"/v1", metrics)
	opts.Breaker = circuitbreaker.Config{
		Name:             "openai-api",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
	o, err := NewOpenAI(opts)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = o.Generate(context.Background(), testRequest("gpt-4o-mini"))
		assert.Equal(t, generate.KindServer, generate.KindOf(err))
	}
	_, err = o.Generate(context.Background(), testRequest("gpt-4o-mini"))

	var pe *generate.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, generate.KindServer, pe.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
	assert.True(t, circuitbreaker.IsRejection(err))
	assert.Equal(t, int32(2), hits.Load())
	assert.Len(t, metrics.calls, 3)
}

func TestCaller_NotFoundDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	opts := testOptions(server.URL+"/v1", &mockMetrics{})
	opts.Breaker = circuitbreaker.Config{Name: "openai-api", MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 1}
	o, err := NewOpenAI(opts)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = o.Generate(context.Background(), testRequest("gpt-unknown"))
		assert.Equal(t, generate.KindNotFound, generate.KindOf(err))
	}
	assert.False(t, o.call.breakerFor("gpt-unknown").IsOpen())
}

func TestHealthyOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"canceled", context.Canceled, true},
		{"not found", generate.NewProviderError("x", "m", 404, io.EOF), true},
		{"bad request", generate.NewProviderError("x", "m", 400, io.EOF), true},
		{"request timeout", generate.NewProviderError("x", "m", 408, io.EOF), false},
		{"quota", generate.NewProviderError("x", "m", 429, io.EOF), true},
		{"server", generate.NewProviderError("x", "m", 502, io.EOF), false},
		{"network", generate.NewProviderError("x", "m", 0, io.EOF), false},
		{"plain", errors.New("plain"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, healthyOutcome(tt.err))
		})
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	for _, name := range []string{config.ProviderGemini, config.ProviderClaude, config.ProviderOpenAI} {
		t.Run(name, func(t *testing.T) {
			cfg := &config.AIConfig{
				Provider:       name,
				APIKey:         "key",
				Models:         config.DefaultModels(name),
				RequestTimeout: time.Minute,
				CircuitBreaker: config.CircuitBreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.6, MinRequests: 5},
			}

			p, err := New(context.Background(), cfg)

			require.NoError(t, err)
			assert.Equal(t, name, p.Name())
		})
	}

	_, err := New(context.Background(), &config.AIConfig{Provider: "palm", APIKey: "k"})
	assert.Error(t, err)
}

func TestNewAdapters_RequireAPIKey(t *testing.T) {
	opts := testOptions("", &mockMetrics{})
	opts.APIKey = ""

	_, err := NewClaude(opts)
	assert.ErrorIs(t, err, config.ErrConfigurationMissing)
	_, err = NewOpenAI(opts)
	assert.ErrorIs(t, err, config.ErrConfigurationMissing)
	_, err = NewGemini(context.Background(), opts)
	assert.ErrorIs(t, err, config.ErrConfigurationMissing)
}

func TestSplitPreamble(t *testing.T) {
	system, rest := splitPreamble(generate.Preamble())
	assert.Contains(t, system, "historiador")
	assert.Empty(t, rest)

	system, rest = splitPreamble([]generate.Turn{{Role: generate.RoleModel, Text: "hola"}, {Role: generate.RoleUser, Text: "q"}})
	assert.Empty(t, system)
	assert.Equal(t, []generate.Turn{{Role: generate.RoleUser, Text: "q"}}, rest)
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func geminiReply(text string) string {
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":` + jsonString(text) + `}]}}]}`
}

func newGeminiInvoker(t *testing.T, opts Options, models ...string) *generate.Invoker {
	t.Helper()
	g, err := NewGemini(context.Background(), opts)
	require.NoError(t, err)

	inv, err := generate.NewInvoker(g, generate.DefaultInvokerConfig(models),
		generate.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		generate.WithInvokerLogger(opts.Logger))
	require.NoError(t, err)
	return inv
}

func TestInvoker_QuotaOnOneModelLeavesNextModelRetries(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		model := "model-b"
		if strings.Contains(r.URL.Path, "models/model-a:") {
			model = "model-a"
		}
		mu.Lock()
		calls[model]++
		n := calls[model]
		mu.Unlock()

		if model == "model-a" || n < 3 {
			writeJSON(w, http.StatusTooManyRequests,
				`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
			return
		}
		writeJSON(w, http.StatusOK, geminiReply(factJSON))
	}))
	defer server.Close()

	opts := testOptions(server.URL+"/", &mockMetrics{})
	opts.Breaker = circuitbreaker.GeminiAPIConfig()
	inv := newGeminiInvoker(t, opts, "model-a", "model-b")

	got, err := inv.Invoke(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "model-b", got.Model)
	assert.Equal(t, 6, got.Attempts)
	assert.Equal(t, map[string]int{"model-a": 3, "model-b": 3}, calls)
}

func TestInvoker_ServerFailuresTripOnlyThatModel(t *testing.T) {
	var aHits, bHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "models/model-a:") {
			aHits.Add(1)
			writeJSON(w, http.StatusServiceUnavailable,
				`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
			return
		}
		bHits.Add(1)
		writeJSON(w, http.StatusOK, geminiReply(factJSON))
	}))
	defer server.Close()

	opts := testOptions(server.URL+"/", &mockMetrics{})
	opts.Breaker = circuitbreaker.Config{
		Name:             "gemini-api",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
	inv := newGeminiInvoker(t, opts, "model-a", "model-b")

	got, err := inv.Invoke(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "model-b", got.Model)
	assert.Equal(t, int32(2), aHits.Load(), "third attempt on model-a is rejected by its open breaker")
	assert.Equal(t, int32(1), bHits.Load())
}
