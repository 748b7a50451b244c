// Package handler contains the HTTP handlers of the JSON API.
//
// Handlers parse the request, call a service and render the result. They
// hold no business rules; the services decide what is allowed, and
// writeError turns their errors into status codes.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/photohunt/internal/apperror"
	"github.com/sakif/photohunt/internal/middleware"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "invalid_token"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends data as JSON. Headers and status must be written before
// the body, so encoding errors can only be logged.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps err to a status code and an ErrorResponse.
//
// The status class comes from the apperror sentinel the error wraps; the
// kind and message come from the *AppError itself. Anything that is not an
// *AppError is reported as a bare 500 so SQL, file paths and provider
// responses never reach the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("kind", appErr.Kind),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, ErrorResponse{Error: appErr.Kind, Message: appErr.Message})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperror.ValidationFailed("body", fmt.Sprintf("Invalid request body: %v", err))
}

// baseURL is the scheme and host the client addressed, set by
// middleware.BaseURL.
func baseURL(r *http.Request) string {
	if u := middleware.BaseURLFromContext(r.Context()); u != "" {
		return u
	}
	return "http://" + r.Host
}
