// Package domainerrors defines the coded error type surfaced by services.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate those facts into coded domain errors so transports can
// map them to status codes without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure. Every failed operation surfaces exactly
// one code naming the invariant that was violated.
type Code string

const (
	// CodeValidation covers out-of-range or malformed input: risk score above
	// 100, unknown risk level or tier, protocol name over the byte limit.
	CodeValidation Code = "validation_failed"

	// CodeAlreadyExists is returned when a record is created at an address
	// that is already occupied (duplicate initialization or submission).
	CodeAlreadyExists Code = "already_exists"

	// CodeNotFound is returned for operations on records never created.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized covers caller/owner mismatches, admin mismatches, and
	// a supplied treasury that differs from the configured one.
	CodeUnauthorized Code = "unauthorized"

	// CodeInsufficientSubscription is the verification failure: subscription
	// expired or tier below the required level.
	CodeInsufficientSubscription Code = "insufficient_subscription"

	// CodeArithmeticOverflow is a checked counter or sum exceeding its range.
	CodeArithmeticOverflow Code = "arithmetic_overflow"

	// CodePaymentFailure is the payment collaborator rejecting a transfer.
	CodePaymentFailure Code = "payment_failure"

	// CodeInternal is an infrastructure fault that is not the caller's doing.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Message is safe to show to callers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and caller-facing message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status used by the JSON error envelope.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInsufficientSubscription:
		return http.StatusPaymentRequired
	case CodeArithmeticOverflow:
		return http.StatusUnprocessableEntity
	case CodePaymentFailure:
		return http.StatusPaymentRequired
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
