package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates that an external service could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrUpstreamFailed indicates that an external service answered but the
	// response could not be used (non-2xx status, malformed body, failure status).
	ErrUpstreamFailed = errors.New("upstream request failed")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Service    string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrUpstreamFailed
}

// TransportError marks a failure that happened before any HTTP response was
// received (DNS, connect, timeout). The stats endpoint maps it to 503.
type TransportError struct {
	Service string
	Cause   error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Service, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *TransportError) Unwrap() error {
	return ErrServiceUnavailable
}
