// Package llm adapts generative-AI SDKs (Gemini, Claude, OpenAI) to the
// generate.Provider interface. Every adapter maps SDK failures to
// *generate.ProviderError, runs calls through a per-model circuit breaker
// and records latency and outcome metrics.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"historia-diaria/internal/config"
	"historia-diaria/internal/resilience/circuitbreaker"
	"historia-diaria/internal/usecase/generate"
)

// Options carries the settings shared by all adapters.
type Options struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Breaker        circuitbreaker.Config
	Metrics        MetricsRecorder
	Logger         *slog.Logger
}

// OptionsFromConfig builds adapter options from the loaded AI configuration.
func OptionsFromConfig(cfg *config.AIConfig) Options {
	breaker := presetFor(cfg.Provider)
	breaker.MaxRequests = cfg.CircuitBreaker.MaxRequests
	breaker.Interval = cfg.CircuitBreaker.Interval
	breaker.Timeout = cfg.CircuitBreaker.Timeout
	breaker.FailureThreshold = cfg.CircuitBreaker.FailureThreshold
	breaker.MinRequests = cfg.CircuitBreaker.MinRequests

	return Options{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		RequestTimeout: cfg.RequestTimeout,
		Breaker:        breaker,
	}
}

func presetFor(provider string) circuitbreaker.Config {
	switch provider {
	case config.ProviderClaude:
		return circuitbreaker.ClaudeAPIConfig()
	case config.ProviderOpenAI:
		return circuitbreaker.OpenAIAPIConfig()
	default:
		return circuitbreaker.GeminiAPIConfig()
	}
}

// New returns the adapter selected by cfg.Provider.
func New(ctx context.Context, cfg *config.AIConfig) (generate.Provider, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(ctx, opts)
	case config.ProviderClaude:
		return NewClaude(opts)
	case config.ProviderOpenAI:
		return NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}

// caller holds the cross-cutting behaviour of every adapter.
type caller struct {
	name       string
	breakerCfg circuitbreaker.Config
	timeout    time.Duration
	metrics    MetricsRecorder
	logger     *slog.Logger

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

func newCaller(name string, opts Options) (*caller, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s api key", config.ErrConfigurationMissing, name)
	}
	breakerCfg := opts.Breaker
	if breakerCfg.Name == "" {
		breakerCfg = presetFor(name)
	}
	breakerCfg.IsSuccessful = healthyOutcome

	c := &caller{
		name:       name,
		breakerCfg: breakerCfg,
		timeout:    opts.RequestTimeout,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		breakers:   make(map[string]*circuitbreaker.CircuitBreaker),
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if c.metrics == nil {
		c.metrics = NewPrometheusMetrics()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// breakerFor returns the breaker of model, creating it on first use.
// Quotas and outages are tracked per model, so one exhausted model never
// blocks the next candidate.
func (c *caller) breakerFor(model string) *circuitbreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[model]; ok {
		return cb
	}
	cfg := c.breakerCfg
	cfg.Name = cfg.Name + "/" + model
	cb := circuitbreaker.New(cfg)
	c.breakers[model] = cb
	return cb
}

// healthyOutcome keeps failures that say nothing about service health out of
// the breaker counts: quota answers, unknown models, rejected requests and
// caller cancellations. The invoker already backs off on quota errors.
func healthyOutcome(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var pe *generate.ProviderError
	if errors.As(err, &pe) {
		if pe.Kind == generate.KindNotFound || pe.Kind == generate.KindQuota {
			return true
		}
		return pe.Kind == generate.KindOther && pe.StatusCode >= 400 && pe.StatusCode < 500 &&
			pe.StatusCode != http.StatusRequestTimeout
	}
	return false
}

// do runs fn under the per-call timeout and the circuit breaker. fn must
// return *generate.ProviderError on failure.
func (c *caller) do(ctx context.Context, model string, fn func(ctx context.Context) (string, error)) (string, error) {
	requestID := uuid.New().String()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.DebugContext(ctx, "provider request",
		slog.String("request_id", requestID),
		slog.String("provider", c.name),
		slog.String("model", model))

	breaker := c.breakerFor(model)
	start := time.Now()
	result, err := breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	duration := time.Since(start)

	if err != nil {
		if circuitbreaker.IsRejection(err) {
			err = &generate.ProviderError{
				Kind:       generate.KindServer,
				StatusCode: http.StatusServiceUnavailable,
				Provider:   c.name,
				Model:      model,
				Err:        fmt.Errorf("circuit breaker %s: %w", breaker.Name(), err),
			}
		}
		kind := generate.KindOf(err)
		c.metrics.RecordRequest(c.name, model, kind.String(), duration)
		c.logger.WarnContext(ctx, "provider request failed",
			slog.String("request_id", requestID),
			slog.String("provider", c.name),
			slog.String("model", model),
			slog.String("kind", kind.String()),
			slog.String("breaker_state", breaker.State().String()),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return "", err
	}

	text, _ := result.(string)
	c.metrics.RecordRequest(c.name, model, "ok", duration)
	c.logger.InfoContext(ctx, "provider request completed",
		slog.String("request_id", requestID),
		slog.String("provider", c.name),
		slog.String("model", model),
		slog.Int("response_length", len(text)),
		slog.Duration("duration", duration))
	return text, nil
}

// classify wraps err with the status reported by the SDK, zero when unknown.
func (c *caller) classify(model string, status int, err error) error {
	return generate.NewProviderError(c.name, model, status, err)
}
