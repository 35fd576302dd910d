package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the coordination core.
type ErrorCode string

// Coordination error codes
const (
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrDuplicateAgent    ErrorCode = "DUPLICATE_AGENT"
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrNoEligibleAgent   ErrorCode = "NO_ELIGIBLE_AGENT"
	ErrNoResponse        ErrorCode = "NO_RESPONSE"
	ErrEmptyResultSet    ErrorCode = "EMPTY_RESULT_SET"
	ErrInvalidWeight     ErrorCode = "INVALID_WEIGHT"
	ErrInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrMailboxFull       ErrorCode = "MAILBOX_FULL"
	ErrChannelClosed     ErrorCode = "CHANNEL_CLOSED"
	ErrStoreClosed       ErrorCode = "STORE_CLOSED"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
// NO_ELIGIBLE_AGENT, NO_RESPONSE, and MAILBOX_FULL reflect transient
// conditions and are marked retryable so callers can retry with relaxed
// constraints or after a backoff.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: code == ErrNoEligibleAgent || code == ErrNoResponse || code == ErrMailboxFull,
	}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, or "" if it is not a
// coordination error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given coordination error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
