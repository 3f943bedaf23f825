// Package apperr carries the error taxonomy surfaced at the HTTP
// boundary. Every error created here maps to exactly one status code;
// anything else a handler sees is treated as internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Validation Kind = iota // 400: missing or malformed input
	Unauthorized           // 401: missing or invalid credential
	Forbidden              // 403: caller does not own the resource
	NotFound               // 404
	StateConflict          // 400: operation illegal in current lifecycle state
	Internal               // 500
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, format, args...)
}

func Unauthorizedf(format string, args ...any) *Error {
	return New(Unauthorized, format, args...)
}

func Forbiddenf(format string, args ...any) *Error {
	return New(Forbidden, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, format, args...)
}

func Conflictf(format string, args ...any) *Error {
	return New(StateConflict, format, args...)
}

func Internalf(err error, format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), Err: err}
}

// Status returns the HTTP status code for err.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case Validation, StateConflict:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to send to the caller. Internal
// errors keep their cause out of the response body.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == Internal {
		return "internal error"
	}
	return e.Message
}
