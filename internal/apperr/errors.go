// Package apperr is the error taxonomy shared by services and handlers.  A
// service returns *Error values; handlers translate the Kind into an HTTP
// status and the common JSON error envelope.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindAuthMissing     Kind = "AUTH_MISSING"
	KindAuthExpired     Kind = "AUTH_EXPIRED"
	KindAuthInvalid     Kind = "AUTH_INVALID"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindValidation      Kind = "VALIDATION"
	KindPaymentDeclined Kind = "PAYMENT_DECLINED"
	KindUpstream        Kind = "UPSTREAM_FAILURE"
	KindStore           Kind = "STORE_FAILURE"
	KindInternal        Kind = "INTERNAL"
)

// Error is an application error carrying its Kind, a message that is safe to
// show to the client and the underlying cause.
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

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a cause.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap builds an Error around err.
func Wrap(kind Kind, msg string, err error) *Error { return &Error{Kind: kind, Message: msg, Err: err} }

// KindOf reports the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Status maps a Kind onto its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindAuthMissing, KindAuthExpired, KindAuthInvalid:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation, KindPaymentDeclined:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
