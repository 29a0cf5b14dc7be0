// Package llmerrors provides structured error classification for generative
// service interactions. The engine's retryable-vs-fatal decisions are driven
// entirely by the types defined here.
package llmerrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of generative service errors.
type ErrorType int8

const (
	// Retryable error types.

	// ErrorTypeRateLimit represents rate limiting errors (429, quota throttling).
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents HTTP 200 but no content errors.
	ErrorTypeEmptyResponse
	// ErrorTypeMalformed represents a response that could not be parsed into a
	// candidate. Retryable: it counts as a failed build attempt, not a dead service.
	ErrorTypeMalformed

	// Non-retryable error types.

	// ErrorTypeAuth represents authentication errors (401/403, bad or missing API key).
	ErrorTypeAuth
	// ErrorTypeUnavailable represents persistent service unavailability, either
	// detected directly (unreachable host) or after transport retries are
	// exhausted. Retrying cannot fix a missing credential or a dead endpoint.
	ErrorTypeUnavailable

	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeMalformed:
		return "malformed"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified generative service error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("llm error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("llm error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried at the
// transport level.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeUnavailable:
		return false
	default:
		return true
	}
}

// NewError creates a new classified error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewErrorWithCause creates a new classified error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// Wrap classifies an arbitrary provider error. Already-classified errors pass
// through unchanged.
func Wrap(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return &Error{Type: Classify(err), Err: err}
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether an error is terminal for a specification: the
// service is unreachable or unauthenticated, so further attempts are pointless.
func IsFatal(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return !llmErr.IsRetryable()
	}
	return false
}

// NewUnavailableError marks a transient failure as persistent after transport
// retries have been exhausted.
func NewUnavailableError(cause error, attempts int) *Error {
	return &Error{
		Type:    ErrorTypeUnavailable,
		Err:     cause,
		Message: fmt.Sprintf("service unavailable after %d attempts", attempts),
	}
}

// Classify maps common provider error patterns onto an ErrorType. SDKs across
// providers do not share error types, so classification falls back to status
// code and message inspection.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"), strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "authentication"), strings.Contains(msg, "permission"):
		return ErrorTypeAuth
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "quota"):
		return ErrorTypeRateLimit
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"),
		strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection reset"), strings.Contains(msg, "eof"),
		strings.Contains(msg, "temporarily"):
		return ErrorTypeTransient
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return ErrorTypeUnavailable
	case strings.Contains(msg, "empty response"), strings.Contains(msg, "no content"):
		return ErrorTypeEmptyResponse
	default:
		return ErrorTypeUnknown
	}
}
