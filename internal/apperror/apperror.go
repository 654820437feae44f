// Package apperror defines the typed error taxonomy surfaced to API
// callers. Every public service operation returns either a success
// value or a single *Error; handlers map Status straight onto the
// HTTP response.
package apperror

import (
	"errors"
	"net/http"
)

// Error carries a machine-readable code alongside a user-facing
// message. Message never contains password hashes, raw tokens, or
// internal stack detail.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an error with an explicit status and code.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Validation marks malformed or missing user-correctable input.
func Validation(message string) *Error {
	return New(http.StatusBadRequest, "validation_error", message)
}

// Unauthorized marks a missing or invalid credential or token.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, "unauthorized", message)
}

// Forbidden marks an authenticated but insufficiently privileged caller.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, "forbidden", message)
}

// Conflict marks a duplicate email or tenant-domain race.
func Conflict(message string) *Error {
	return New(http.StatusConflict, "conflict", message)
}

// NotFound marks an absent user or tenant.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, "not_found", message)
}

// Internal marks a collaborator failure that is not retried here.
func Internal(message string) *Error {
	return New(http.StatusInternalServerError, "internal_error", message)
}

// FromError extracts an *Error if err is or wraps one.
func FromError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
