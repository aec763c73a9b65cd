package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the local gates and upstream timeouts.
var (
	// ErrRateLimited is returned when the local per-endpoint-class gate
	// rejects a call before dispatch. Surfaced to the caller as 429, never
	// retried transparently.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstreamTimeout marks an upstream call that exceeded its fixed
	// timeout. Retryable per the fetch policy.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrNotFound marks a site id with no usable upstream data.
	ErrNotFound = errors.New("station not found")
)

// ValidationError rejects malformed request input before any network call.
// It itemizes every violated constraint.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Violations, "; ")
}

// NewValidationError builds a ValidationError from one or more violations.
func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

// UpstreamError carries the status and body of a failed provider call.
// Rejected (4xx) responses are terminal; unavailability (5xx/network) is
// retryable.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Retryable  bool
}

func (e *UpstreamError) Error() string {
	if !e.Retryable {
		return fmt.Sprintf("request rejected by upstream %s: status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream %s unavailable: %s", e.Provider, e.Body)
	}
	return fmt.Sprintf("upstream %s unavailable: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NewUpstreamRejected marks a 4xx provider response, terminal.
func NewUpstreamRejected(provider string, status int, body string) *UpstreamError {
	return &UpstreamError{Provider: provider, StatusCode: status, Body: body, Retryable: false}
}

// NewUpstreamUnavailable marks a 5xx or network-level failure, retryable.
func NewUpstreamUnavailable(provider string, status int, body string) *UpstreamError {
	return &UpstreamError{Provider: provider, StatusCode: status, Body: body, Retryable: true}
}

// IsRetryable reports whether an upstream failure is worth another attempt.
// Timeouts and unavailability retry; rejections and everything else do not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrUpstreamTimeout) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}
