// Package config provides small environment variable getters shared by every
// binary. Getters never fail: unset values yield the default and unparsable
// values yield the default with a warning log.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DotenvFiles are loaded by LoadDotenv in order. Earlier files win because
// godotenv never overrides variables that are already set.
var DotenvFiles = []string{".env.local", ".env"}

// LoadDotenv loads DotenvFiles into the process environment. Missing files
// are skipped; the names of the files actually loaded are returned.
func LoadDotenv() []string {
	var loaded []string
	for _, name := range DotenvFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("failed to load dotenv file",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		loaded = append(loaded, name)
	}
	return loaded
}

// GetEnvString returns the value of key or defaultValue when unset or empty.
//
// Example:
//
//	addr := GetEnvString("WEB_ADDR", ":8080")
func GetEnvString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt returns key parsed as a base 10 integer.
func GetEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		warnInvalid(key, valueStr, "integer", err)
		return defaultValue
	}
	return value
}

// GetEnvFloat returns key parsed as a float64.
//
// Example:
//
//	temperature := GetEnvFloat("FACT_TEMPERATURE", 0.7)
func GetEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		warnInvalid(key, valueStr, "float", err)
		return defaultValue
	}
	return value
}

// GetEnvBool returns key parsed with strconv.ParseBool.
//
// Accepted true values: "1", "t", "T", "true", "TRUE", "True"
// Accepted false values: "0", "f", "F", "false", "FALSE", "False"
func GetEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		warnInvalid(key, valueStr, "boolean", err)
		return defaultValue
	}
	return value
}

// GetEnvDuration returns key parsed by time.ParseDuration ("30s", "15m", "1h30m").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(strings.TrimSpace(valueStr))
	if err != nil {
		warnInvalid(key, valueStr, "duration", err)
		return defaultValue
	}
	return value
}

// GetEnvStringList splits key on commas, trimming blanks and dropping empty
// entries. An unset key, or one with only empty entries, yields defaultValue.
//
// Example:
//
//	models := GetEnvStringList("FACT_MODELS", []string{"gemini-2.5-flash"})
//	// FACT_MODELS="gemini-2.5-flash, gemini-2.0-flash"
//	// Result: ["gemini-2.5-flash", "gemini-2.0-flash"]
func GetEnvStringList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}

func warnInvalid(key, value, kind string, err error) {
	slog.Warn("invalid "+kind+" value for environment variable, using default",
		slog.String("key", key),
		slog.String("value", value),
		slog.String("error", err.Error()))
}
