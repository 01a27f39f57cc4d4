// Package service holds the business operations of the reservation system:
// the room registry, the reservation ledger, identity and admin listings.
// Every operation takes the calling principal, consults the policy and
// reports failures as one of the error kinds below.
package service

import (
    "errors"
    "fmt"
)

// Error kinds.  Callers test for them with errors.Is.
var (
    ErrValidation   = errors.New("validation failed")
    ErrNotFound     = errors.New("not found")
    ErrForbidden    = errors.New("forbidden")
    ErrConflict     = errors.New("conflict")
    ErrInvalidState = errors.New("invalid state")
)

// ErrUnauthenticated is returned by the identity operations for bad
// credentials or refresh tokens.  It is not one of the ledger kinds.
var ErrUnauthenticated = errors.New("invalid credentials")

// Error is a classified failure with a client-facing message.
type Error struct {
    Kind error
    Msg  string
}

func (e *Error) Error() string {
    if e.Msg == "" {
        return e.Kind.Error()
    }
    return e.Kind.Error() + ": " + e.Msg
}

// Is makes errors.Is(err, ErrConflict) and friends work on *Error.
func (e *Error) Is(target error) bool { return e.Kind == target }

// Unwrap exposes the kind.
func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, format string, args ...any) error {
    return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...any) error { return newErr(ErrValidation, format, args...) }
func notFound(format string, args ...any) error   { return newErr(ErrNotFound, format, args...) }
func forbidden(format string, args ...any) error  { return newErr(ErrForbidden, format, args...) }
func conflict(format string, args ...any) error   { return newErr(ErrConflict, format, args...) }
func invalidState(format string, args ...any) error {
    return newErr(ErrInvalidState, format, args...)
}

// Message returns the client-facing message of a classified error, or
// the empty string.
func Message(err error) string {
    var e *Error
    if errors.As(err, &e) {
        return e.Msg
    }
    return ""
}
