// Package apperr defines the error taxonomy shared by services and handlers:
// validation, not-found, conflict, and internal errors. Handlers convert with
// HTTP; internal causes are attached for the request logger but never leak
// into response bodies.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

type Error struct {
	Kind  Kind
	Field string // set for validation errors
	Msg   string
	Err   error // wrapped cause, internal only
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a field-level validation error.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// NotFound builds a not-found error for the named resource.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

// Conflict builds a conflict error (e.g. edits against a terminal state).
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Internal wraps an unexpected failure. The cause is preserved for logging
// but is never shown to the caller.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal server error", Err: err}
}

// KindOf returns the taxonomy kind of err; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTP converts any error to an echo HTTP error. Validation, not-found and
// conflict errors surface their message; everything else becomes a generic
// 500 with the cause attached internally so the request logger records it.
func HTTP(err error) *echo.HTTPError {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation:
			return echo.NewHTTPError(http.StatusBadRequest, e.Error())
		case KindNotFound:
			return echo.NewHTTPError(http.StatusNotFound, e.Msg)
		case KindConflict:
			return echo.NewHTTPError(http.StatusConflict, e.Msg)
		}
	}
	he := echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	he.SetInternal(err)
	return he
}
