// Package errors defines the service error taxonomy shared by the
// services and the HTTP layer. Every error carries a stable code and
// the HTTP status it should map to at the edge.
package errors

import (
	"fmt"
	"net/http"
)

// Error is the canonical service error. Services return *Error for any
// failure a caller can act on; the HTTP layer maps it to a response.
type Error struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// WithDetails attaches a key/value pair and returns the error for chaining.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error without leaking it into the
// client-facing message.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func NotFound(message string) *Error {
	return &Error{Code: "not_found", Message: message, HTTPStatus: http.StatusNotFound}
}

func Conflict(message string) *Error {
	return &Error{Code: "conflict", Message: message, HTTPStatus: http.StatusConflict}
}

func Validation(message string) *Error {
	return &Error{Code: "validation_error", Message: message, HTTPStatus: http.StatusUnprocessableEntity}
}

func BadRequest(message string) *Error {
	return &Error{Code: "bad_request", Message: message, HTTPStatus: http.StatusBadRequest}
}

func Unauthorized(message string) *Error {
	return &Error{Code: "unauthorized", Message: message, HTTPStatus: http.StatusUnauthorized}
}

func InvalidToken(err error) *Error {
	e := &Error{Code: "invalid_token", Message: "invalid or expired token", HTTPStatus: http.StatusUnauthorized}
	return e.WithCause(err)
}

func Forbidden(message string) *Error {
	return &Error{Code: "forbidden", Message: message, HTTPStatus: http.StatusForbidden}
}

func RateLimitExceeded(limit int, window string) *Error {
	e := &Error{Code: "rate_limit_exceeded", Message: "rate limit exceeded", HTTPStatus: http.StatusTooManyRequests}
	return e.WithDetails("limit", limit).WithDetails("window", window)
}

func Internal(message string) *Error {
	return &Error{Code: "internal_error", Message: message, HTTPStatus: http.StatusInternalServerError}
}

// From returns err as *Error when possible, otherwise wraps it as an
// internal error so handlers never leak raw error strings.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*Error); ok {
		return se
	}
	return Internal("internal server error").WithCause(err)
}
