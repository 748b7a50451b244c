package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/photohunt/internal/apperror"
)

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{"missing credential", apperror.MissingCredential(), http.StatusBadRequest, "missing_credential", "Missing access token in request."},
		{"invalid token", apperror.InvalidToken("invalid_token"), http.StatusUnauthorized, "invalid_token", "invalid_token"},
		{"client mismatch", apperror.ClientMismatch(), http.StatusUnauthorized, "client_mismatch", "Token's client ID does not match app's."},
		{"unauthorized", apperror.Unauthorized(), http.StatusUnauthorized, "unauthorized", "Unauthorized request"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "forbidden", "no"},
		{"not found", apperror.NotFound("photo", "p1"), http.StatusNotFound, "not_found", "photo not found with id p1"},
		{"conflict", apperror.Conflict("user", "u1"), http.StatusConflict, "conflict", "user conflict with id u1"},
		{"exchange failed", apperror.TokenExchangeFailed(errors.New("invalid_grant")), http.StatusInternalServerError, "token_exchange_failed", "Failed to upgrade the authorization code."},
		{"wrapped", fmt.Errorf("service: %w", apperror.ProfileFetchFailed(errors.New("401"))), http.StatusInternalServerError, "profile_fetch_failed", "Failed to read profile data from Google."},
		{"unknown", errors.New("database is locked"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, logger, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.kind, body.Error)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestWriteError_HidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, slog.New(slog.NewTextHandler(io.Discard, nil)),
		apperror.TokenVerificationFailed(errors.New("dial tcp 10.0.0.1:443: i/o timeout")))

	assert.NotContains(t, rr.Body.String(), "10.0.0.1")
}
