package generate

import (
	"errors"
	"fmt"
)

var (
	// ErrAllModelsExhausted is returned by the Invoker when every candidate model failed.
	ErrAllModelsExhausted = errors.New("all models exhausted")

	// ErrModelUnavailable marks a model the provider reported as not found.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrEmptyResponse marks a provider reply without text.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrNoJSONFound is returned when the model output has no {...} span.
	ErrNoJSONFound = errors.New("no json object found in model output")

	// ErrMissingRequiredField is returned when a parsed object lacks
	// historical_date, title or description.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidField is returned when a required field is present but malformed.
	ErrInvalidField = errors.New("invalid field")

	// ErrUnparseableResponse is returned when every parse strategy failed.
	ErrUnparseableResponse = errors.New("unparseable model response")

	// ErrInsertRejected is returned when the store refused the record.
	ErrInsertRejected = errors.New("insert rejected")

	// ErrFallbackTooSmall is returned when the fallback list has fewer than two facts.
	ErrFallbackTooSmall = errors.New("fallback list needs at least two facts")

	// ErrNoModels is returned when the Invoker is built without candidate models.
	ErrNoModels = errors.New("no candidate models configured")
)

// UnparseableError carries the error of the last parse strategy that was tried.
type UnparseableError struct {
	Strategy string
	Err      error
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("%s: last strategy %q: %v", ErrUnparseableResponse, e.Strategy, e.Err)
}

// Unwrap returns the last strategy error.
func (e *UnparseableError) Unwrap() error { return e.Err }

// Is matches ErrUnparseableResponse.
func (e *UnparseableError) Is(target error) bool { return target == ErrUnparseableResponse }

// InsertRejectedError wraps the store error returned for a rejected insert.
type InsertRejectedError struct {
	Table string
	Err   error
}

func (e *InsertRejectedError) Error() string {
	return fmt.Sprintf("%s into %s: %v", ErrInsertRejected, e.Table, e.Err)
}

// Unwrap returns the store error.
func (e *InsertRejectedError) Unwrap() error { return e.Err }

// Is matches ErrInsertRejected.
func (e *InsertRejectedError) Is(target error) bool { return target == ErrInsertRejected }
