// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

/*
Package apperr defines the centralized error taxonomy for the SelfCraft API.

Every error that leaves a service is one of five kinds, each with a stable
machine-readable code and an HTTP mapping:

  - VALIDATION_ERROR (400): malformed or out-of-range caller input.
  - NOT_FOUND (404): entity absent or not owned by the caller.
  - CONFLICT (409): an invariant would be violated (duplicate active session,
    duplicate external identity, duplicate badge).
  - TRANSIENT (503): I/O or lock failure; the whole operation is safe to retry.
  - INTERNAL_ERROR (500): an invariant broke unexpectedly.

The Cause field is for server-side logging only and never reaches clients.
*/
package apperr

import (
	"errors"
	"net/http"
)

// AppError is the canonical error type crossing the service boundary.
type AppError struct {
	// Code is the machine-readable error identifier.
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, kept for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface with the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap lets [errors.Is] and [errors.As] walk the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Ownership failures deliberately produce the same error as absence, so a
// caller can never probe for the existence of another user's rows.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for invariant or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is logged but never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Transient creates a 503 [AppError] for retryable store failures
// (lock contention, serialization aborts, lost connections).
//
// The whole operation rolled back; the caller may safely retry it.
func Transient(cause error) *AppError {
	return &AppError{
		Code:       "TRANSIENT",
		Message:    "The operation could not complete; please retry",
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or anything in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain, or nil if absent.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsConflict reports whether err carries the CONFLICT code.
func IsConflict(err error) bool {
	ae := As(err)
	return ae != nil && ae.Code == "CONFLICT"
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	ae := As(err)
	return ae != nil && ae.Code == "NOT_FOUND"
}
