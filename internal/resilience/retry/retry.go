// Package retry runs an operation again after transient failures, waiting an
// exponentially growing, jittered delay between attempts. Webhook deliveries
// and the startup database ping use it; the fact pipeline has its own
// per-error-class policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Config describes a retry policy.
type Config struct {
	// MaxAttempts counts every call, the first one included.
	MaxAttempts int
	// InitialDelay is waited after the first failure.
	InitialDelay time.Duration
	// MaxDelay caps both the computed delay and a server Retry-After.
	MaxDelay time.Duration
	// Multiplier grows the delay after each failure.
	Multiplier float64
	// JitterFraction adds up to this share of the delay at random (0 to 1).
	JitterFraction float64
}

// DefaultConfig is three attempts starting at one second.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.1,
	}
}

// WebhookConfig suits Discord and Slack posts, whose rate-limit windows are
// a few seconds long.
func WebhookConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   2 * time.Second,
		MaxDelay:       15 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.1,
	}
}

// DBConfig waits for the database while it starts up next to the service.
func DBConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.1,
	}
}

// Backoff returns the wait after failed attempt n (1-based), before jitter.
func (c Config) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(c.InitialDelay) * math.Pow(mult, float64(n-1))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// wait picks the delay after attempt n failed with err. A server Retry-After
// longer than the computed backoff wins, up to MaxDelay.
func (c Config) wait(n int, err error) time.Duration {
	d := withJitter(c.Backoff(n), c.JitterFraction)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > d {
		d = httpErr.RetryAfter
		if c.MaxDelay > 0 && d > c.MaxDelay {
			d = c.MaxDelay
		}
	}
	return d
}

// WithBackoff calls fn until it succeeds, fails with an error IsRetryable
// rejects, or MaxAttempts calls were made. The last error is returned,
// wrapped when the attempts ran out.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	attempts := max(cfg.MaxAttempts, 1)

	for n := 1; ; n++ {
		err := fn()
		switch {
		case err == nil:
			if n > 1 {
				slog.InfoContext(ctx, "operation succeeded after retry", slog.Int("attempt", n))
			}
			return nil
		case !IsRetryable(err):
			slog.WarnContext(ctx, "non-retryable error, aborting",
				slog.Int("attempt", n),
				slog.Any("error", err))
			return err
		case n >= attempts:
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", attempts, err)
		}

		d := cfg.wait(n, err)
		slog.WarnContext(ctx, "operation failed, retrying",
			slog.Int("attempt", n),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", d),
			slog.Any("error", err))

		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-t.C:
		}
	}
}

var transientErrnos = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ETIMEDOUT,
	syscall.ENETUNREACH,
}

// IsRetryable reports whether err is transient: a network timeout, a refused
// or reset connection, or an HTTP 408, 429 or 5xx. Context errors never are.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 ||
			httpErr.StatusCode == http.StatusTooManyRequests ||
			httpErr.StatusCode == http.StatusRequestTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// HTTPError is a non-2xx answer from a remote endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
	// RetryAfter is the wait the server asked for; zero when absent.
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func withJitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return d
	}
	fraction = min(fraction, 1)
	// #nosec G404 -- jitter does not need cryptographic randomness.
	return d + time.Duration(rand.Float64()*fraction*float64(d))
}
