package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/photohunt/internal/auth"
	"github.com/sakif/photohunt/internal/model"
)

// ConnectionService is implemented by *service.ConnectionService.
type ConnectionService interface {
	Connect(ctx context.Context, td model.TokenData) (*model.User, error)
	Disconnect(ctx context.Context, userID string) error
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
	Friends(ctx context.Context, userID string) ([]model.User, error)
}

// ConnectionHandler serves connect, disconnect and the user endpoints.
type ConnectionHandler struct {
	connections ConnectionService
	sessions    *auth.Sessions
	logger      *slog.Logger
}

func NewConnectionHandler(connections ConnectionService, sessions *auth.Sessions, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		sessions:    sessions,
		logger:      logger,
	}
}

// connectRequest is the credential bundle posted by the sign-in button.
// The button sends expiry fields as strings, other clients as numbers.
type connectRequest struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Code         string        `json:"code"`
	IDToken      string        `json:"id_token"`
	ExpiresAt    flexibleInt64 `json:"expires_at"`
	ExpiresIn    flexibleInt64 `json:"expires_in"`
}

type flexibleInt64 int64

var _ json.Unmarshaler = (*flexibleInt64)(nil)

func (n *flexibleInt64) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*n = flexibleInt64(v)
	return nil
}

// HandleConnect connects the caller's Google account and opens a session.
//
// HTTP: POST /api/connect
//
// A caller that already has a session gets a fresh one; the old session is
// destroyed so a shared device cannot keep acting as the previous user.
func (h *ConnectionHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.connections.Connect(r.Context(), model.NewTokenData(model.TokenDataParams{
		AccessToken:   req.AccessToken,
		RefreshToken:  req.RefreshToken,
		Code:          req.Code,
		IdentityToken: req.IDToken,
		ExpiresAt:     int64(req.ExpiresAt),
		ExpiresIn:     int64(req.ExpiresIn),
	}))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if sessionID, ok := auth.SessionIDFromContext(r.Context()); ok {
		if err := h.sessions.Destroy(r.Context(), sessionID); err != nil {
			h.logger.Warn("destroying previous session", slog.String("error", err.Error()))
		}
	}

	token, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.sessions.SetCookies(w, token)

	writeJSON(w, http.StatusOK, model.NewUserView(user))
}

// HandleDisconnect revokes the caller's tokens, deletes everything stored
// about them and ends the session.
//
// HTTP: POST /api/disconnect
// Auth: required
func (h *ConnectionHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.connections.Disconnect(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sessionID, _ := auth.SessionIDFromContext(r.Context())
	if err := h.sessions.Destroy(r.Context(), sessionID); err != nil {
		// The user row is gone, so the session resolves to nobody anyway.
		h.logger.Warn("destroying session", slog.String("error", err.Error()))
	}
	h.sessions.ClearCookies(w)

	writeJSON(w, http.StatusOK, "Successfully disconnected")
}

// HandleCurrentUser returns the signed-in user.
//
// HTTP: GET /api/users
// Auth: required
func (h *ConnectionHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.connections.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewUserView(user))
}

// HandleFriends lists the signed-in user's friends who also use the app.
//
// HTTP: GET /api/friends
// Auth: required
func (h *ConnectionHandler) HandleFriends(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	friends, err := h.connections.Friends(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewUserViews(friends))
}
