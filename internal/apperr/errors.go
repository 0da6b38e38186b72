package apperr

import (
	"github.com/pkg/errors"
)

// Code classifies an operation failure so handlers can map it to a
// transport status without inspecting message text.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeForbidden    Code = "forbidden"
	CodeUnauthorized Code = "unauthorized"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal"
)

// Error carries a code, a caller-safe message and an optional wrapped cause.
// The cause is for logs only and must never reach a response body.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause with a stack trace.
func Wrap(code Code, message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Code: code, Message: message, cause: cause}
}

func NotFound(message string) *Error     { return New(CodeNotFound, message) }
func Conflict(message string) *Error     { return New(CodeConflict, message) }
func Forbidden(message string) *Error    { return New(CodeForbidden, message) }
func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }
func InvalidInput(message string) *Error { return New(CodeInvalidInput, message) }

// Internal wraps an unexpected failure behind a generic message.
func Internal(message string, cause error) *Error {
	return Wrap(CodeInternal, message, cause)
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message for err. Unexpected errors get a
// generic message so internal detail is not leaked.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
