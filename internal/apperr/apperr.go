// Package apperr defines the error classes returned by the service layer and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind classifies a failure
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindPermission
	KindNotFound
	KindConflict
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooLarge:
		return "too_large"
	default:
		return "internal"
	}
}

// StatusCode returns the HTTP status for the kind
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a caller-safe message
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

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func Unauthenticated(format string, args ...any) *Error {
	return newf(KindUnauthenticated, format, args...)
}

func Permission(format string, args ...any) *Error {
	return newf(KindPermission, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

func TooLarge(format string, args ...any) *Error {
	return newf(KindTooLarge, format, args...)
}

// Internal wraps an unexpected failure. The message is what callers see,
// the wrapped error is only logged.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the reason shown to callers. Unclassified and internal
// errors never expose their message.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return "internal server error"
	}
	return e.Message
}

// ToHTTPError converts err into the response error
func ToHTTPError(err error) *httperror.HTTPError {
	return httperror.NewHTTPError(KindOf(err).StatusCode(), PublicMessage(err))
}
