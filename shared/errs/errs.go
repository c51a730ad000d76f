// Package errs defines the typed rejections returned by the ledger core.
//
// Every business-rule violation is an *Error carrying a Kind. Callers match
// with errors.Is against the Err* sentinels, which compare by kind only:
//
//	if errors.Is(err, errs.ErrInsufficientFunds) { ... }
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger error.
type Kind string

const (
	InvalidAmount          Kind = "invalid_amount"
	SameAccount            Kind = "same_account"
	InsufficientFunds      Kind = "insufficient_funds"
	NotFound               Kind = "not_found"
	Forbidden              Kind = "forbidden"
	NotEmpty               Kind = "not_empty"
	ConflictRetryExhausted Kind = "conflict_retry_exhausted"
	Internal               Kind = "internal"
)

// Error is a ledger rejection.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is matching.
var (
	ErrInvalidAmount          = &Error{Kind: InvalidAmount}
	ErrSameAccount            = &Error{Kind: SameAccount}
	ErrInsufficientFunds      = &Error{Kind: InsufficientFunds}
	ErrNotFound               = &Error{Kind: NotFound}
	ErrForbidden              = &Error{Kind: Forbidden}
	ErrNotEmpty               = &Error{Kind: NotEmpty}
	ErrConflictRetryExhausted = &Error{Kind: ConflictRetryExhausted}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an *Error of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
