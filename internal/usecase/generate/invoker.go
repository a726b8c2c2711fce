package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// InvokerConfig controls model order, retries and waits of the Invoker.
type InvokerConfig struct {
	// Models lists candidate model identifiers, most preferred first.
	Models []string

	// MaxRetries is the number of attempts per model.
	MaxRetries int

	// QuotaBaseDelay is doubled on every quota failure: base * 2^(attempt-1).
	QuotaBaseDelay time.Duration

	// ServerBaseDelay and ServerDelayIncrement give base + attempt*increment
	// after a server failure.
	ServerBaseDelay      time.Duration
	ServerDelayIncrement time.Duration

	// OtherDelay is multiplied by the attempt number after any other failure.
	OtherDelay time.Duration

	// ModelCooldown is waited after a model exhausted its retries, before the next model.
	ModelCooldown time.Duration

	Temperature     float32
	MaxOutputTokens int32
}

// DefaultInvokerConfig returns the production retry policy for models.
func DefaultInvokerConfig(models []string) InvokerConfig {
	return InvokerConfig{
		Models:               models,
		MaxRetries:           3,
		QuotaBaseDelay:       10 * time.Second,
		ServerBaseDelay:      5 * time.Second,
		ServerDelayIncrement: 5 * time.Second,
		OtherDelay:           2 * time.Second,
		ModelCooldown:        15 * time.Second,
		Temperature:          0.7,
		MaxOutputTokens:      1024,
	}
}

// Invocation is a successful model reply.
type Invocation struct {
	Text     string
	Model    string
	Attempts int
}

// Invoker calls candidate models in order until one returns text.
type Invoker struct {
	provider Provider
	cfg      InvokerConfig
	sleep    Sleeper
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// InvokerOption customises an Invoker.
type InvokerOption func(*Invoker)

// WithSleeper replaces the wait function.
func WithSleeper(s Sleeper) InvokerOption {
	return func(i *Invoker) { i.sleep = s }
}

// WithInvokerLogger sets the logger.
func WithInvokerLogger(l *slog.Logger) InvokerOption {
	return func(i *Invoker) { i.logger = l }
}

// WithInvokerMetrics sets the metrics recorder.
func WithInvokerMetrics(m MetricsRecorder) InvokerOption {
	return func(i *Invoker) { i.metrics = m }
}

// NewInvoker validates cfg and returns an Invoker bound to provider.
func NewInvoker(provider Provider, cfg InvokerConfig, opts ...InvokerOption) (*Invoker, error) {
	if len(cfg.Models) == 0 {
		return nil, ErrNoModels
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	inv := &Invoker{
		provider: provider,
		cfg:      cfg,
		sleep:    SleepContext,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.metrics == nil {
		inv.metrics = NewPrometheusMetrics()
	}
	return inv, nil
}

// Invoke returns the first non-empty reply for prompt. It fails with an error
// wrapping ErrAllModelsExhausted when no model produced text, or with the
// context error when ctx is done.
func (i *Invoker) Invoke(ctx context.Context, prompt string) (*Invocation, error) {
	var lastErr error
	attempts := 0

	for idx, model := range i.cfg.Models {
		i.logger.InfoContext(ctx, "trying model",
			slog.String("provider", i.provider.Name()),
			slog.String("model", model),
			slog.Int("candidate", idx+1),
			slog.Int("candidates", len(i.cfg.Models)))

		text, n, err := i.tryModel(ctx, model, prompt)
		attempts += n
		if err == nil {
			return &Invocation{Text: text, Model: model, Attempts: attempts}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err

		last := idx == len(i.cfg.Models)-1
		if last || errors.Is(err, ErrModelUnavailable) {
			continue
		}
		i.logger.WarnContext(ctx, "model exhausted, cooling down before next model",
			slog.String("model", model),
			slog.String("next_model", i.cfg.Models[idx+1]),
			slog.Duration("delay", i.cfg.ModelCooldown))
		if err := i.sleep(ctx, i.cfg.ModelCooldown); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts on %d models: %w",
		ErrAllModelsExhausted, attempts, len(i.cfg.Models), lastErr)
}

// tryModel runs the retry loop for one model and returns the number of calls made.
func (i *Invoker) tryModel(ctx context.Context, model, prompt string) (string, int, error) {
	var lastErr error

	for attempt := 1; attempt <= i.cfg.MaxRetries; attempt++ {
		text, err := i.provider.Generate(ctx, Request{
			Model:           model,
			Preamble:        Preamble(),
			Prompt:          prompt,
			Temperature:     i.cfg.Temperature,
			MaxOutputTokens: i.cfg.MaxOutputTokens,
		})
		if err == nil && strings.TrimSpace(text) == "" {
			err = &ProviderError{Kind: KindOther, Provider: i.provider.Name(), Model: model, Err: ErrEmptyResponse}
		}
		if err == nil {
			i.metrics.RecordProviderAttempt(model, "ok")
			i.logger.InfoContext(ctx, "model responded",
				slog.String("model", model),
				slog.Int("attempt", attempt),
				slog.Int("response_length", len(text)))
			return text, attempt, nil
		}

		lastErr = err
		kind := KindOf(err)
		i.metrics.RecordProviderAttempt(model, kind.String())

		if ctx.Err() != nil {
			return "", attempt, ctx.Err()
		}

		if kind == KindNotFound {
			i.logger.WarnContext(ctx, "model not available, skipping",
				slog.String("model", model),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return "", attempt, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, model, err)
		}

		if attempt == i.cfg.MaxRetries {
			break
		}

		delay := i.backoff(kind, attempt)
		i.logger.WarnContext(ctx, "model call failed, retrying",
			slog.String("model", model),
			slog.String("kind", kind.String()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", i.cfg.MaxRetries),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		if err := i.sleep(ctx, delay); err != nil {
			return "", attempt, err
		}
	}

	i.logger.ErrorContext(ctx, "model retries exhausted",
		slog.String("model", model),
		slog.Int("max_attempts", i.cfg.MaxRetries),
		slog.Any("error", lastErr))
	return "", i.cfg.MaxRetries, lastErr
}

// backoff returns the wait before the next attempt after a failure of kind.
func (i *Invoker) backoff(kind ErrorKind, attempt int) time.Duration {
	switch kind {
	case KindQuota:
		return time.Duration(float64(i.cfg.QuotaBaseDelay) * math.Pow(2, float64(attempt-1)))
	case KindServer:
		return i.cfg.ServerBaseDelay + time.Duration(attempt)*i.cfg.ServerDelayIncrement
	default:
		return time.Duration(attempt) * i.cfg.OtherDelay
	}
}
