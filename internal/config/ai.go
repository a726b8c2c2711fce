// Package config loads the application configuration that is not specific to
// a single binary: the generative-AI provider settings and the fallback fact
// list used when every model fails.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	envcfg "historia-diaria/pkg/config"
)

// ErrConfigurationMissing reports a required setting that is absent.
// Binaries treat it as fatal at startup.
var ErrConfigurationMissing = errors.New("configuration missing")

// Supported provider names for FACT_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// defaultModels lists the candidate models per provider, most preferred first.
var defaultModels = map[string][]string{
	ProviderGemini: {"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"},
	ProviderClaude: {"claude-haiku-4-5", "claude-sonnet-4-5-20250929"},
	ProviderOpenAI: {"gpt-4o-mini", "gpt-4o"},
}

// apiKeyEnv names the credential variable of each provider.
var apiKeyEnv = map[string]string{
	ProviderGemini: "GOOGLE_AI_API_KEY",
	ProviderClaude: "ANTHROPIC_API_KEY",
	ProviderOpenAI: "OPENAI_API_KEY",
}

// AIConfig holds configuration for the generative-AI provider.
type AIConfig struct {
	// Provider is one of gemini, claude or openai. Default: gemini
	Provider string

	// APIKey is the credential of Provider. Required.
	APIKey string

	// BaseURL overrides the provider endpoint (FACT_BASE_URL). Optional.
	BaseURL string

	// Models is the ordered list of candidate models (FACT_MODELS, comma separated).
	// Default: provider specific list.
	Models []string

	// Temperature for generation. Default: 0.7
	Temperature float32

	// MaxOutputTokens caps the reply length. Default: 1024
	MaxOutputTokens int32

	// RequestTimeout bounds a single provider call. Default: 60s
	RequestTimeout time.Duration

	// CircuitBreaker for provider calls.
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig for provider resilience.
type CircuitBreakerConfig struct {
	// MaxRequests in half-open state.
	MaxRequests uint32

	// Interval for clearing failure counts.
	Interval time.Duration

	// Timeout before transitioning from open to half-open.
	Timeout time.Duration

	// FailureThreshold ratio to trip circuit (0.0 to 1.0).
	FailureThreshold float64

	// MinRequests before calculating failure ratio.
	MinRequests uint32
}

// LoadAIConfig loads provider configuration from environment variables.
// A missing API key yields an error wrapping ErrConfigurationMissing.
func LoadAIConfig() (*AIConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(envcfg.GetEnvString("FACT_PROVIDER", ProviderGemini)))

	config := &AIConfig{
		Provider:        provider,
		APIKey:          strings.TrimSpace(envcfg.GetEnvString(apiKeyEnv[provider], "")),
		BaseURL:         envcfg.GetEnvString("FACT_BASE_URL", ""),
		Models:          envcfg.GetEnvStringList("FACT_MODELS", DefaultModels(provider)),
		Temperature:     float32(envcfg.GetEnvFloat("FACT_TEMPERATURE", 0.7)),
		MaxOutputTokens: int32(envcfg.GetEnvInt("FACT_MAX_OUTPUT_TOKENS", 1024)), // #nosec G115 -- validated below
		RequestTimeout:  envcfg.GetEnvDuration("FACT_REQUEST_TIMEOUT", 60*time.Second),
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      uint32(envcfg.GetEnvInt("FACT_CB_MAX_REQUESTS", 1)), // #nosec G115 -- validated below
			Interval:         envcfg.GetEnvDuration("FACT_CB_INTERVAL", time.Minute),
			Timeout:          envcfg.GetEnvDuration("FACT_CB_TIMEOUT", 30*time.Second),
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return config, nil
}

// DefaultModels returns a copy of the default candidate list for provider.
func DefaultModels(provider string) []string {
	return append([]string(nil), defaultModels[provider]...)
}

// APIKeyEnv returns the environment variable holding the key of provider.
func APIKeyEnv(provider string) string {
	return apiKeyEnv[provider]
}

// Validate checks configuration correctness.
func (c *AIConfig) Validate() error {
	if _, ok := apiKeyEnv[c.Provider]; !ok {
		return fmt.Errorf("FACT_PROVIDER %q is not supported (gemini, claude, openai)", c.Provider)
	}

	if c.APIKey == "" {
		return fmt.Errorf("%w: %s is required for provider %s", ErrConfigurationMissing, apiKeyEnv[c.Provider], c.Provider)
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("FACT_MODELS must list at least one model")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("FACT_TEMPERATURE must be between 0.0 and 2.0")
	}

	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("FACT_MAX_OUTPUT_TOKENS must be positive")
	}

	if err := envcfg.ValidatePositiveDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("FACT_REQUEST_TIMEOUT: %w", err)
	}

	if c.CircuitBreaker.MaxRequests == 0 {
		return fmt.Errorf("FACT_CB_MAX_REQUESTS must be positive")
	}

	if c.CircuitBreaker.Interval <= 0 {
		return fmt.Errorf("FACT_CB_INTERVAL must be positive")
	}

	if c.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("FACT_CB_TIMEOUT must be positive")
	}

	return nil
}
