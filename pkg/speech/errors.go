package speech

import (
	"context"
	"errors"
	"fmt"

	"github.com/carlmjohnson/requests"
)

// Reason buckets provider failures into the classes the rest of the
// pipeline cares about. Transcripts and logs carry the reason, not the
// raw provider error.
type Reason string

const (
	// ReasonNetwork covers transport failures and server-side errors
	ReasonNetwork Reason = "network"

	// ReasonAuth covers rejected or missing credentials
	ReasonAuth Reason = "auth"

	// ReasonQuota covers rate limits and exhausted quotas
	ReasonQuota Reason = "quota"

	// ReasonEmpty means the call succeeded but carried no usable speech
	ReasonEmpty Reason = "empty"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoSpeech is returned when a recognizer heard nothing usable.
	ErrNoSpeech = errors.New("speech: no speech detected")

	// ErrNotConfigured is returned when a provider is missing required settings.
	ErrNotConfigured = errors.New("speech: provider not configured")
)

// APIError represents an error response from a speech API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the error code from the API (if provided).
	Code string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("speech [%s]: API error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("speech [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsForbidden returns true if this is a permission error (HTTP 403).
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == 403
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// Reason maps the HTTP status onto the failure taxonomy.
func (e *APIError) Reason() Reason {
	switch {
	case e.IsUnauthorized() || e.IsForbidden():
		return ReasonAuth
	case e.IsRateLimited():
		return ReasonQuota
	default:
		return ReasonNetwork
	}
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("speech [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// Classify buckets any provider error into the failure taxonomy.
func Classify(err error) Reason {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoSpeech) {
		return ReasonEmpty
	}
	if errors.Is(err, ErrNotConfigured) {
		return ReasonAuth
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason()
	}
	return ReasonNetwork
}

// Retryable reports whether a failed call is worth repeating. Missing
// credentials, empty results and cancelled contexts are terminal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNoSpeech) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, requests.ErrTransport) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return false
}
