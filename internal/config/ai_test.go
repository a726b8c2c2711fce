package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAIConfig_Defaults(t *testing.T) {
	clearAIEnvVars(t)
	t.Setenv("GOOGLE_AI_API_KEY", "test-key")

	config, err := LoadAIConfig()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "test-key", config.APIKey)
	assert.Empty(t, config.BaseURL)
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"}, config.Models)
	assert.Equal(t, float32(0.7), config.Temperature)
	assert.Equal(t, int32(1024), config.MaxOutputTokens)
	assert.Equal(t, 60*time.Second, config.RequestTimeout)

	assert.Equal(t, uint32(1), config.CircuitBreaker.MaxRequests)
	assert.Equal(t, time.Minute, config.CircuitBreaker.Interval)
	assert.Equal(t, 30*time.Second, config.CircuitBreaker.Timeout)
	assert.Equal(t, 0.6, config.CircuitBreaker.FailureThreshold)
	assert.Equal(t, uint32(5), config.CircuitBreaker.MinRequests)
}

func TestLoadAIConfig_CustomValues(t *testing.T) {
	clearAIEnvVars(t)
	t.Setenv("FACT_PROVIDER", "Claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("FACT_BASE_URL", "http://localhost:9999")
	t.Setenv("FACT_MODELS", "claude-haiku-4-5, claude-sonnet-4-5")
	t.Setenv("FACT_TEMPERATURE", "0.2")
	t.Setenv("FACT_MAX_OUTPUT_TOKENS", "2048")
	t.Setenv("FACT_REQUEST_TIMEOUT", "90s")
	t.Setenv("FACT_CB_MAX_REQUESTS", "3")
	t.Setenv("FACT_CB_INTERVAL", "2m")
	t.Setenv("FACT_CB_TIMEOUT", "45s")

	config, err := LoadAIConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderClaude, config.Provider)
	assert.Equal(t, "sk-ant-test", config.APIKey)
	assert.Equal(t, "http://localhost:9999", config.BaseURL)
	assert.Equal(t, []string{"claude-haiku-4-5", "claude-sonnet-4-5"}, config.Models)
	assert.Equal(t, float32(0.2), config.Temperature)
	assert.Equal(t, int32(2048), config.MaxOutputTokens)
	assert.Equal(t, 90*time.Second, config.RequestTimeout)
	assert.Equal(t, uint32(3), config.CircuitBreaker.MaxRequests)
	assert.Equal(t, 2*time.Minute, config.CircuitBreaker.Interval)
	assert.Equal(t, 45*time.Second, config.CircuitBreaker.Timeout)
}

func TestLoadAIConfig_MissingKey(t *testing.T) {
	for _, provider := range []string{ProviderGemini, ProviderClaude, ProviderOpenAI} {
		t.Run(provider, func(t *testing.T) {
			clearAIEnvVars(t)
			t.Setenv("FACT_PROVIDER", provider)

			config, err := LoadAIConfig()

			assert.Nil(t, config)
			assert.ErrorIs(t, err, ErrConfigurationMissing)
			assert.Contains(t, err.Error(), APIKeyEnv(provider))
		})
	}
}

func TestLoadAIConfig_UnknownProvider(t *testing.T) {
	clearAIEnvVars(t)
	t.Setenv("FACT_PROVIDER", "palm")

	_, err := LoadAIConfig()

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfigurationMissing)
	assert.Contains(t, err.Error(), "not supported")
}

func TestAIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AIConfig)
		wantErr string
	}{
		{"valid", func(*AIConfig) {}, ""},
		{"no models", func(c *AIConfig) { c.Models = nil }, "FACT_MODELS"},
		{"negative temperature", func(c *AIConfig) { c.Temperature = -0.1 }, "FACT_TEMPERATURE"},
		{"temperature too high", func(c *AIConfig) { c.Temperature = 2.5 }, "FACT_TEMPERATURE"},
		{"zero tokens", func(c *AIConfig) { c.MaxOutputTokens = 0 }, "FACT_MAX_OUTPUT_TOKENS"},
		{"zero timeout", func(c *AIConfig) { c.RequestTimeout = 0 }, "FACT_REQUEST_TIMEOUT"},
		{"zero cb requests", func(c *AIConfig) { c.CircuitBreaker.MaxRequests = 0 }, "FACT_CB_MAX_REQUESTS"},
		{"zero cb interval", func(c *AIConfig) { c.CircuitBreaker.Interval = 0 }, "FACT_CB_INTERVAL"},
		{"zero cb timeout", func(c *AIConfig) { c.CircuitBreaker.Timeout = 0 }, "FACT_CB_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validAIConfig()
			tt.mutate(c)

			err := c.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultModels_ReturnsCopy(t *testing.T) {
	models := DefaultModels(ProviderOpenAI)
	models[0] = "changed"

	assert.NotEqual(t, "changed", DefaultModels(ProviderOpenAI)[0])
	assert.Empty(t, DefaultModels("unknown"))
}

func clearAIEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FACT_PROVIDER",
		"GOOGLE_AI_API_KEY",
		"ANTHROPIC_API_KEY",
		"OPENAI_API_KEY",
		"FACT_BASE_URL",
		"FACT_MODELS",
		"FACT_TEMPERATURE",
		"FACT_MAX_OUTPUT_TOKENS",
		"FACT_REQUEST_TIMEOUT",
		"FACT_CB_MAX_REQUESTS",
		"FACT_CB_INTERVAL",
		"FACT_CB_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func validAIConfig() *AIConfig {
	return &AIConfig{
		Provider:        ProviderGemini,
		APIKey:          "key",
		Models:          []string{"gemini-2.5-flash"},
		Temperature:     0.7,
		MaxOutputTokens: 1024,
		RequestTimeout:  time.Minute,
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
	}
}
