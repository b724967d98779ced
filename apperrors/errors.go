// Package apperrors defines the error taxonomy shared by services and
// controllers. Expected outcomes (denied access, missing rows, invalid
// input) are *AppError values; anything else is wrapped as Internal.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindBadRequest
	KindConflict
	KindPayloadTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	case KindPayloadTooLarge:
		return "payload_too_large"
	}
	return "internal"
}

// AppError represents a standardized application error.
type AppError struct {
	Kind    Kind
	Message string
	Err     error // internal cause, logged but never sent to clients
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Status maps the error kind to an HTTP status code.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// New creates a new AppError.
func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) *AppError { return New(KindUnauthenticated, message, nil) }

func Forbidden(message string) *AppError { return New(KindForbidden, message, nil) }

func NotFound(message string) *AppError { return New(KindNotFound, message, nil) }

func Validation(message string) *AppError { return New(KindValidation, message, nil) }

func BadRequest(message string) *AppError { return New(KindBadRequest, message, nil) }

func Conflict(message string) *AppError { return New(KindConflict, message, nil) }

func PayloadTooLarge(message string) *AppError { return New(KindPayloadTooLarge, message, nil) }

// Internal wraps an unexpected failure. The public message is fixed.
func Internal(err error) *AppError {
	return New(KindInternal, "Error interno del servidor", err)
}

// From returns err as an *AppError, wrapping it as Internal when it is not
// one already. A nil err yields nil.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err is an *AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
