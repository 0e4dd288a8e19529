package core

import (
	"errors"
	"fmt"
)

// Error kinds. Lower layers wrap one of these so the transport can map
// failures with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream service failure")

	ErrTokenInvalid   = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrDuplicateEmail = fmt.Errorf("%w: email already registered", ErrConflict)
)

// Error carries a message that is safe to show to API clients alongside the
// kind it belongs to.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Invalid builds a validation error with a client-facing message.
func Invalid(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// Unauthorized builds an authentication error with a client-facing message.
func Unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

// PublicMessage returns the client-facing message of err, if it carries one.
func PublicMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Message, true
	}
	return "", false
}
