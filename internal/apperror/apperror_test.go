package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("photo", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("photoId", "photoId is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "MissingCredential is a validation error",
			err:       MissingCredential(),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "InvalidToken is unauthorized",
			err:       InvalidToken("invalid_token"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "ClientMismatch is unauthorized",
			err:       ClientMismatch(),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "TokenExchangeFailed is an upstream failure",
			err:       TokenExchangeFailed(cause),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "upstream errors expose their cause",
			err:       TokenRevocationFailed(cause),
			target:    cause,
			wantMatch: true,
		},
		{
			name:      "Unauthorized does NOT match ErrValidation",
			err:       Unauthorized(),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "ProfileFetchFailed does NOT match ErrUnauthorized",
			err:       ProfileFetchFailed(cause),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantKind string
	}{
		{"missing credential", MissingCredential(), KindMissingCredential},
		{"invalid token", InvalidToken("bad"), KindInvalidToken},
		{"client mismatch", ClientMismatch(), KindClientMismatch},
		{"unauthorized", Unauthorized(), KindUnauthorized},
		{"exchange", TokenExchangeFailed(nil), KindTokenExchangeFailed},
		{"verification", TokenVerificationFailed(nil), KindTokenVerificationFailed},
		{"profile", ProfileFetchFailed(nil), KindProfileFetchFailed},
		{"revocation", TokenRevocationFailed(nil), KindTokenRevocationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.wantKind)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("photo", "abc123"),
			wantMessage: "photo not found with id abc123",
		},
		{
			name:        "InvalidToken keeps the provider message",
			err:         InvalidToken("invalid_token"),
			wantMessage: "invalid_token",
		},
		{
			name:        "upstream error appends the cause",
			err:         ProfileFetchFailed(errors.New("status 503")),
			wantMessage: "Failed to read profile data from Google.: status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("photoId", "photoId is required")

	if err.Field != "photoId" {
		t.Errorf("Field = %q, want %q", err.Field, "photoId")
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), ClientMismatch())

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As should find the *AppError")
	}
	if appErr.Kind != KindClientMismatch {
		t.Errorf("Kind = %q, want %q", appErr.Kind, KindClientMismatch)
	}
}
