// Package apperror defines the error kinds surfaced by the Momentum API and
// their mapping onto HTTP status codes. Services return *AppError values;
// handlers translate them with StatusCode without inspecting messages.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// Internal is the fallback for unexpected failures, including store
	// errors that rolled back and should not leak detail to the caller.
	Internal Kind = iota
	// Unauthenticated covers missing, malformed, expired, or badly signed
	// tokens, and tokens whose subject no longer exists.
	Unauthenticated
	// NotFound covers both absent resources and resources owned by someone
	// else; callers cannot tell the two apart.
	NotFound
	// Conflict covers duplicate usernames and duplicate task titles.
	Conflict
	// QuotaExceeded is returned when a free account hits its task cap.
	QuotaExceeded
	// Validation covers malformed input and empty required fields.
	Validation
	// BillingConfig means the payment processor is not configured server-side.
	BillingConfig
	// SignatureInvalid means a webhook payload failed authenticity checks.
	SignatureInvalid
)

type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	switch e.Kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case QuotaExceeded:
		return http.StatusForbidden
	case Validation, SignatureInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is an *AppError of the given kind anywhere in
// its chain.
func IsKind(err error, kind Kind) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// StatusCode resolves any error to an HTTP status, defaulting to 500 for
// errors that are not AppErrors.
func StatusCode(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.StatusCode()
	}
	return http.StatusInternalServerError
}
