// Package apperr defines the error taxonomy shared by handlers and
// services. Every error that reaches the HTTP layer is mapped onto one of
// these kinds; anything else is reported as a server error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the client.
type Kind string

const (
	BadRequest   Kind = "BAD_REQUEST"
	Unauthorized Kind = "UNAUTHORIZED"
	Forbidden    Kind = "FORBIDDEN"
	NotFound     Kind = "NOT_FOUND"
	Conflict     Kind = "CONFLICT"
	ServerError  Kind = "SERVER_ERROR"
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails returns a copy of e carrying details for the client.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func BadRequestf(format string, args ...any) *Error   { return newError(BadRequest, format, args...) }
func Unauthorizedf(format string, args ...any) *Error { return newError(Unauthorized, format, args...) }
func Forbiddenf(format string, args ...any) *Error    { return newError(Forbidden, format, args...) }
func NotFoundf(format string, args ...any) *Error     { return newError(NotFound, format, args...) }
func Conflictf(format string, args ...any) *Error     { return newError(Conflict, format, args...) }

// Internal wraps an unexpected error. The message shown to the client is
// generic; err is kept for logging.
func Internal(err error, message string) *Error {
	return &Error{Kind: ServerError, Message: message, Err: err}
}

// As extracts an *Error from err. Unclassified errors become ServerError.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, "internal server error")
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
