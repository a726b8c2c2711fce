package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"historia-diaria/internal/resilience/circuitbreaker"
	"historia-diaria/internal/resilience/retry"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryAfter = 5 * time.Second
	maxErrorBody      = 512
	ellipsis          = "..."
)

// Option customises a webhook notifier.
type Option func(*webhook)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *webhook) { w.client = c }
}

// WithRetry replaces the retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(w *webhook) { w.retry = cfg }
}

// WithRateLimit replaces the token bucket.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(w *webhook) { w.limiter = rate.NewLimiter(r, burst) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *webhook) { w.logger = l }
}

// webhook posts JSON payloads to one incoming-webhook URL with a token
// bucket, a circuit breaker and bounded retries.
type webhook struct {
	name    string
	url     string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	logger  *slog.Logger

	// retryAfter extracts a server requested wait from a 429 response.
	retryAfter func(*http.Response, []byte) time.Duration
}

func newWebhook(name, url string, timeout time.Duration, limit rate.Limit, burst int, opts []Option) *webhook {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	w := &webhook{
		name:       name,
		url:        url,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    circuitbreaker.New(circuitbreaker.WebhookConfig(name)),
		retry:      retry.WebhookConfig(),
		logger:     slog.Default(),
		retryAfter: headerRetryAfter,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// post delivers payload, retrying 429, 408 and 5xx answers and network errors.
func (w *webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", w.name, err)
	}

	requestID := uuid.New().String()
	logger := w.logger.With(slog.String("channel", w.name), slog.String("request_id", requestID))

	waitStart := time.Now()
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limiter: %w", w.name, err)
	}
	rateLimitWait.WithLabelValues(w.name).Observe(time.Since(waitStart).Seconds())

	attempt := 0
	err = retry.WithBackoff(ctx, w.retry, func() error {
		attempt++
		_, err := w.breaker.Execute(func() (any, error) {
			return nil, w.send(ctx, body, requestID)
		})
		if err != nil {
			logger.WarnContext(ctx, "webhook attempt failed",
				slog.Int("attempt", attempt),
				slog.Bool("circuit_open", circuitbreaker.IsRejection(err)),
				slog.Any("error", err))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%s webhook: %w", w.name, err)
	}
	logger.InfoContext(ctx, "webhook delivered", slog.Int("attempt", attempt))
	return nil
}

func (w *webhook) send(ctx context.Context, body []byte, requestID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	httpErr := &retry.HTTPError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(respBody)),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		httpErr.RetryAfter = w.retryAfter(resp, respBody)
		if httpErr.Message == "" {
			httpErr.Message = "rate limited"
		}
	}
	return httpErr
}

// headerRetryAfter reads a Retry-After header given in seconds.
func headerRetryAfter(resp *http.Response, _ []byte) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultRetryAfter
}

// truncate cuts s to max runes including the ellipsis.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	cut := max - utf8.RuneCountInString(ellipsis)
	if cut < 0 {
		cut = 0
	}
	return string([]rune(s)[:cut]) + ellipsis
}
