// Package apperrors defines the error taxonomy shared by services and the
// HTTP layer. Every error that crosses a service boundary carries one of the
// codes below; the HTTP layer maps codes to status codes and renders the
// uniform {error: {code, message, details}} envelope.
package apperrors

import (
	"errors"
	"fmt"
)

// Code is the machine-readable error class.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidTransition Code = "INVALID_STATUS_TRANSITION"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Error is a code-carrying error. Details is optional structured context
// surfaced to the client (e.g. the join window boundaries); it must never
// contain internal diagnostics.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.cause }

// WithDetails attaches structured context and returns the same error for
// chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// New builds an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an error that keeps cause reachable for errors.Is / errors.As.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from err, or CodeInternal when err is not an
// *Error. A nil err has no code; callers are expected to check first.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// AsError returns the *Error inside err, or a generic internal *Error
// wrapping err when it carries no code. Useful at the HTTP boundary where
// every failure must render the envelope.
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodeInternal, "internal error", err)
}

// HTTPStatus is the fixed code -> HTTP status mapping.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidTransition:
		return 400
	case CodeUnauthorized:
		return 401
	case CodeForbidden:
		return 403
	case CodeNotFound:
		return 404
	case CodeConflict:
		return 409
	default:
		return 500
	}
}
