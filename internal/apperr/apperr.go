// Package apperr holds the error taxonomy shared by the gateway: input validation,
// lifecycle rejections, payment failures and transport failures.
package apperr

import (
	"errors"
	"net/http"
)

// Errors returned across the gateway. Wrap them with fmt.Errorf("...: %w", err)
// and match with errors.Is.
var (
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrForbidden              = errors.New("action not permitted")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrAuth                   = errors.New("authentication required")
	ErrNetwork                = errors.New("backend unavailable")
	ErrPaymentDeclined        = errors.New("payment declined")
	ErrPaymentProvider        = errors.New("payment provider error")
	ErrReconciliationRequired = errors.New("payment captured but not recorded")
)

// ValidationError reports malformed input caught before any network call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Validation returns a *ValidationError for field.
func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Retryable reports whether the failure is transient and the UI should offer a retry.
func Retryable(err error) bool {
	if errors.Is(err, ErrReconciliationRequired) {
		return false
	}
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrPaymentProvider)
}

// HTTPStatus maps err to the status code the gateway answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrReconciliationRequired):
		// before the cause, which can be any of the errors below
		return http.StatusAccepted
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrPaymentProvider):
		return http.StatusBadGateway
	case errors.Is(err, ErrNetwork):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
