package models

import (
	"errors"
	"fmt"
)

// ErrorType categorizes model transport failures.
type ErrorType int

const (
	ErrorTypeTransient ErrorType = iota // Network, timeout, 5xx
	ErrorTypeAPILimit                   // Rate limit
	ErrorTypeFatal                      // Bad request, auth; retrying will not help
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypeAPILimit:
		return "APILimit"
	case ErrorTypeFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// TransportError is a failed call to the underlying model.
type TransportError struct {
	Type      ErrorType `json:"type"`
	Retryable bool      `json:"retryable"`
	Message   string    `json:"message"`
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// NewTransientError creates a retryable transport error.
func NewTransientError(message string) *TransportError {
	return &TransportError{Type: ErrorTypeTransient, Retryable: true, Message: message}
}

// NewAPILimitError creates a rate-limit transport error.
func NewAPILimitError(message string) *TransportError {
	return &TransportError{Type: ErrorTypeAPILimit, Retryable: true, Message: message}
}

// NewFatalError creates a non-retryable transport error.
func NewFatalError(message string) *TransportError {
	return &TransportError{Type: ErrorTypeFatal, Retryable: false, Message: message}
}

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ParseError means the model output could not be decoded into a tool call.
type ParseError struct {
	Output string
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid json output: %v", e.Cause)
	}
	return fmt.Sprintf("invalid json output: %q", truncate(e.Output, 120))
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
