// Package resilience groups the fault tolerance helpers used around external
// calls: circuit breakers for the generative-AI providers, webhook notifiers
// and the database, and retry with exponential backoff and jitter.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.GeminiAPIConfig())
//	result, err := cb.Execute(func() (any, error) {
//	    return callProvider(ctx)
//	})
//
//	err := retry.WithBackoff(ctx, retry.WebhookConfig(), func() error {
//	    return postWebhook(ctx)
//	})
package resilience
