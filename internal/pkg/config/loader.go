// Package config loads optional settings fail-open: a missing value yields
// the default, an invalid one yields the default plus a warning that callers
// log and count. Credentials are not loaded here; they fail closed in their
// own packages.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one setting.
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// Load reads key, converts it with parse and checks it with validate (which
// may be nil). An unset or blank variable returns def without warnings.
func Load[T any](key string, def T, parse func(string) (T, error), validate func(T) error) LoadResult[T] {
	raw, ok := os.LookupEnv(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return LoadResult[T]{Value: def}
	}

	v, err := parse(raw)
	if err != nil {
		return fallback(key, raw, def, fmt.Errorf("parse: %w", err))
	}
	if validate != nil {
		if err := validate(v); err != nil {
			return fallback(key, raw, def, err)
		}
	}
	return LoadResult[T]{Value: v}
}

func fallback[T any](key, raw string, def T, err error) LoadResult[T] {
	return LoadResult[T]{
		Value:           def,
		FallbackApplied: true,
		Warnings: []string{
			fmt.Sprintf("%s=%q is invalid (%v), using default %v", key, raw, err, def),
		},
	}
}

func parseString(s string) (string, error) { return s, nil }

// LoadString loads a string setting.
func LoadString(key, def string, validate func(string) error) LoadResult[string] {
	return Load(key, def, parseString, validate)
}

// LoadInt loads a base-10 integer setting.
func LoadInt(key string, def int, validate func(int) error) LoadResult[int] {
	return Load(key, def, strconv.Atoi, validate)
}

// LoadDuration loads a time.ParseDuration setting.
func LoadDuration(key string, def time.Duration, validate func(time.Duration) error) LoadResult[time.Duration] {
	return Load(key, def, time.ParseDuration, validate)
}

// LoadBool loads a strconv.ParseBool setting.
func LoadBool(key string, def bool) LoadResult[bool] {
	return Load(key, def, strconv.ParseBool, nil)
}
