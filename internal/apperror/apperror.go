// Package apperror defines the application's error taxonomy.
//
// Every error that should reach a client as something other than a generic
// 500 is an *AppError. The wrapped sentinel (ErrValidation, ErrUnauthorized,
// ...) decides the HTTP status class; Kind is the machine-readable name sent
// in the response body.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream failure")
)

// Kinds reported to clients in the "error" field of a response.
const (
	KindNotFound                = "not_found"
	KindValidation              = "validation_error"
	KindConflict                = "conflict"
	KindForbidden               = "forbidden"
	KindUnauthorized            = "unauthorized"
	KindMissingCredential       = "missing_credential"
	KindInvalidToken            = "invalid_token"
	KindClientMismatch          = "client_mismatch"
	KindTokenExchangeFailed     = "token_exchange_failed"
	KindTokenVerificationFailed = "token_verification_failed"
	KindProfileFetchFailed      = "profile_fetch_failed"
	KindTokenRevocationFailed   = "token_revocation_failed"
)

type AppError struct {
	Err     error  // status-class sentinel
	Kind    string // machine-readable error type
	Message string // human-readable error message
	Field   string // optional: field causing the error
	Cause   error  // optional: underlying error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Kind:    KindValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Kind:    KindConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Kind:    KindForbidden,
		Message: message,
	}
}

// Unauthorized is returned when an endpoint needs a session-bound user and
// the request has none.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Kind:    KindUnauthorized,
		Message: "Unauthorized request",
	}
}

// MissingCredential is returned by connect when the request carries neither
// an authorization code nor an access token.
func MissingCredential() *AppError {
	return &AppError{
		Err:     ErrValidation,
		Kind:    KindMissingCredential,
		Message: "Missing access token in request.",
		Field:   "access_token",
	}
}

// InvalidToken carries the identity provider's own rejection message.
func InvalidToken(providerMessage string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Kind:    KindInvalidToken,
		Message: providerMessage,
	}
}

func ClientMismatch() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Kind:    KindClientMismatch,
		Message: "Token's client ID does not match app's.",
	}
}

func TokenExchangeFailed(cause error) *AppError {
	return upstream(KindTokenExchangeFailed, "Failed to upgrade the authorization code.", cause)
}

func TokenVerificationFailed(cause error) *AppError {
	return upstream(KindTokenVerificationFailed, "Failed to read token data from Google.", cause)
}

func ProfileFetchFailed(cause error) *AppError {
	return upstream(KindProfileFetchFailed, "Failed to read profile data from Google.", cause)
}

func TokenRevocationFailed(cause error) *AppError {
	return upstream(KindTokenRevocationFailed, "Failed to revoke token for given user.", cause)
}

func upstream(kind, message string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}
