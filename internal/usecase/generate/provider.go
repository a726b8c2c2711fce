package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of the conversation preamble.
type Turn struct {
	Role Role
	Text string
}

// Request is a single generation call against one model.
type Request struct {
	Model           string
	Preamble        []Turn
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
}

// Provider is a generative-AI backend. Implementations must return a
// *ProviderError for failures reported by the remote service so the Invoker
// can decide between retrying and skipping the model.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	// KindOther covers failures without a more specific class.
	KindOther ErrorKind = iota
	// KindQuota is a quota or rate-limit rejection.
	KindQuota
	// KindServer is a 5xx-class or overload failure.
	KindServer
	// KindNotFound means the model does not exist or is not served.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindQuota:
		return "quota"
	case KindServer:
		return "server"
	case KindNotFound:
		return "not_found"
	default:
		return "other"
	}
}

// ClassifyStatus maps an HTTP-like status code to an ErrorKind.
func ClassifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindQuota
	case code == http.StatusNotFound:
		return KindNotFound
	case code >= 500 && code < 600:
		return KindServer
	default:
		return KindOther
	}
}

// ProviderError is the structured failure returned by provider adapters.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Provider   string
	Model      string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %v", e.Provider, e.Model, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Model, e.Kind, e.Err)
}

// Unwrap returns the underlying SDK error.
func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError classified from status.
func NewProviderError(provider, model string, status int, err error) *ProviderError {
	return &ProviderError{
		Kind:       ClassifyStatus(status),
		StatusCode: status,
		Provider:   provider,
		Model:      model,
		Err:        err,
	}
}

// KindOf returns the ErrorKind of err. Errors that are not ProviderErrors
// are classified as KindOther.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}
