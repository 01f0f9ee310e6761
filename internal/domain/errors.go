package domain

import (
	"errors"
	"fmt"
)

// Domain validation errors, rejected synchronously before any persistence
var (
	ErrNotFound         = errors.New("not found")
	ErrSessionCompleted = errors.New("session is already completed")
	ErrHandoffPending   = errors.New("a handoff is already pending for this session")
	ErrHandoffExpired   = errors.New("handoff invite token has expired")
	ErrHandoffAccepted  = errors.New("handoff was already accepted")
	ErrInvalidToken     = errors.New("invalid invite token")
)

// ProviderErrorKind classifies model-call failures for the caller
type ProviderErrorKind string

const (
	// Retryable by the caller, never retried by the orchestrator
	KindRateLimited       ProviderErrorKind = "rate_limited"
	KindOverloaded        ProviderErrorKind = "provider_overloaded"
	KindProviderError     ProviderErrorKind = "provider_error"
	// Response truncated; the user should send a shorter message
	KindMaxOutputExceeded ProviderErrorKind = "max_output_exceeded"
	// Model declined; the user should rephrase
	KindRefused           ProviderErrorKind = "refused"
)

// ProviderError is the typed failure surfaced when a turn aborts on a
// model-call problem. The whole turn has been rolled back when one of
// these is returned.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with a taxonomy kind
func NewProviderError(kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}

// ProviderErrorOf extracts a ProviderError from an error chain
func ProviderErrorOf(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
