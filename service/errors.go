package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. Handlers map kinds to HTTP status codes;
// the engine never maps them itself.
type Kind string

const (
	KindIncompleteInput      Kind = "incomplete_input"
	KindInvalidDate          Kind = "invalid_date"
	KindInvalidCredentials   Kind = "invalid_credentials"
	KindNotFound             Kind = "not_found"
	KindUnavailable          Kind = "unavailable"
	KindDuplicateReservation Kind = "duplicate_reservation"
	KindAlreadyReturned      Kind = "already_returned"
	KindForbidden            Kind = "forbidden"
	KindConflict             Kind = "conflict"
	KindInternal             Kind = "internal"
)

// Error is the discriminated failure value produced by the services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a typed failure with a caller-facing message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Internal wraps an unexpected persistence failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the kind from err; anything untyped counts as internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the caller-facing message of a typed failure.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "unexpected error"
}
