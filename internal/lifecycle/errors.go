package lifecycle

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies a lifecycle failure.
type Kind string

const (
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidTransition   Kind = "invalid_transition"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
)

// Error is a classified failure. Message is shown to the user as is.
type Error struct {
	Kind    Kind
	Message string

	// Cost and Balance are set for KindInsufficientBalance when known.
	Cost    *decimal.Decimal
	Balance *decimal.Decimal

	Err error
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotFound            = &Error{Kind: KindNotFound}
)

// ErrTransitionInFlight is returned when a mutation for the same submission
// has not completed yet.
var ErrTransitionInFlight = errors.New("another action on this submission is still in progress")

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind returns the classification as a string.
func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

// Is matches a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" when err is not a lifecycle error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

// InvalidTransition builds a KindInvalidTransition error.
func InvalidTransition(format string, args ...any) *Error {
	return newError(KindInvalidTransition, format, args...)
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// InsufficientBalance builds the error returned when the author cannot pay
// the publication fee.
func InsufficientBalance(cost, balance decimal.Decimal) *Error {
	return &Error{
		Kind: KindInsufficientBalance,
		Message: fmt.Sprintf("Insufficient balance. This publication costs $%s, but your balance is $%s.",
			cost.StringFixed(2), balance.StringFixed(2)),
		Cost:    &cost,
		Balance: &balance,
	}
}
