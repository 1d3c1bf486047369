// internal/apperr/errors.go
//
// Error taxonomy shared by every service.
// Kinds are protocol independent; the HTTP layer decides status codes.
//
// Usage:
//   - Services return apperr.NotFound("game not found") etc.
//   - Backends wrap driver failures with apperr.Wrap(err, "insert game").
//   - Boundaries call apperr.KindOf(err) to classify anything.

package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the request boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified error. Msg is safe to show to callers;
// Err carries the underlying cause and is never shown.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error   { return newf(KindValidation, format, args...) }
func Conflict(format string, args ...any) error     { return newf(KindConflict, format, args...) }
func Unauthorized(format string, args ...any) error { return newf(KindUnauthorized, format, args...) }
func Forbidden(format string, args ...any) error    { return newf(KindForbidden, format, args...) }
func NotFound(format string, args ...any) error     { return newf(KindNotFound, format, args...) }

// Wrap marks err as an internal failure with a short description of the step.
// A nil err yields nil; an already classified err is returned unchanged.
func Wrap(err error, step string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindInternal, Msg: step, Err: err}
}

// KindOf reports the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the caller-safe message for err.
// Internal errors always collapse to a generic message.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Msg
	}
	return "internal server error"
}
