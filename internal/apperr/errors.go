// Package apperr defines the typed errors every service operation returns.
// The transport layer's only job is mapping codes to HTTP statuses; no
// handler inspects error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one failure class across the API surface.
type Code string

// Validation errors: rejected before any write.
const (
	CodeNoUsers        Code = "NO_USERS"
	CodeInvalidRange   Code = "INVALID_RANGE"
	CodeRangeOverlap   Code = "RANGE_OVERLAP"
	CodeOverAssignment Code = "OVER_ASSIGNMENT"
	CodeInvalidUser    Code = "INVALID_USER"
	CodeMissingField   Code = "MISSING_FIELD"
	CodeInvalidRequest Code = "INVALID_REQUEST"
)

// Authorization errors: rejected before any write.
const (
	CodeForbidden    Code = "FORBIDDEN"
	CodeUnauthorized Code = "UNAUTHORIZED"
)

// State-conflict errors: caller must re-fetch and retry or abandon.
const (
	CodeAlreadyCompleted Code = "ALREADY_COMPLETED"
	CodeNotAssigned      Code = "NOT_ASSIGNED"
	CodeInvalidStatus    Code = "INVALID_STATUS"
	CodeHasRejected      Code = "HAS_REJECTED"
)

// Integrity and infrastructure errors.
const (
	CodeNotFound Code = "NOT_FOUND"
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is a typed application error carrying a stable code and a
// human-readable message. Wrapped causes stay reachable via errors.Unwrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// Internal wraps an unexpected failure.
func Internal(err error, format string, args ...interface{}) *Error {
	return Wrap(CodeInternal, err, format, args...)
}

// CodeOf extracts the application code from err, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an application code to an HTTP status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNoUsers, CodeInvalidRange, CodeRangeOverlap, CodeOverAssignment,
		CodeInvalidUser, CodeMissingField, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeNotAssigned:
		return http.StatusNotFound
	case CodeAlreadyCompleted, CodeInvalidStatus, CodeHasRejected:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
