// Package apperr carries the error taxonomy surfaced by the API endpoints.
// Record-write triggers never return these to a caller; they log and
// terminate instead.
package apperr

import (
	"errors"
	"net/http"
)

// Code identifies one externally visible error class.
type Code string

const (
	Unauthenticated  Code = "unauthenticated"
	InvalidArgument  Code = "invalid-argument"
	NotFound         Code = "not-found"
	AlreadyExists    Code = "already-exists"
	PermissionDenied Code = "permission-denied"
	Unknown          Code = "unknown"
)

// Error is a domain error with an attached code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error that preserves the underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, defaulting to Unknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// HTTPStatus maps a code to the HTTP status used by the API endpoints.
func HTTPStatus(code Code) int {
	switch code {
	case Unauthenticated:
		return http.StatusUnauthorized
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case PermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
