package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/photohunt/internal/session"
)

const (
	// CookieName carries the session token for browser clients.
	CookieName = "session"
	// MobileCookieName is the cookie name mobile clients send.
	MobileCookieName = "JSESSIONID"
)

var ErrNoSession = errors.New("auth: no session")

// Sessions ties signed session tokens to server-side session records.
type Sessions struct {
	tokens *TokenService
	store  session.Store
	secure bool
}

func NewSessions(tokens *TokenService, store session.Store) *Sessions {
	return &Sessions{tokens: tokens, store: store}
}

// WithSecureCookies marks issued cookies Secure. Enable it behind TLS.
func (s *Sessions) WithSecureCookies(secure bool) *Sessions {
	s.secure = secure
	return s
}

// Create opens a session for userID and returns the token to hand to the
// client.
func (s *Sessions) Create(ctx context.Context, userID string) (string, error) {
	id := xid.New().String()
	if err := s.store.Save(ctx, id, userID, s.tokens.TTL()); err != nil {
		return "", fmt.Errorf("auth: saving session: %w", err)
	}

	token, err := s.tokens.Generate(id)
	if err != nil {
		_ = s.store.Delete(ctx, id)
		return "", err
	}
	return token, nil
}

// Resolve returns the session id and user id behind token. Any failure,
// including a session destroyed server-side, is reported as ErrNoSession.
func (s *Sessions) Resolve(ctx context.Context, token string) (sessionID, userID string, err error) {
	sessionID, err = s.tokens.Validate(token)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	userID, err = s.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return "", "", ErrNoSession
	}
	if err != nil {
		return "", "", err
	}
	return sessionID, userID, nil
}

// Destroy removes the session server-side.
func (s *Sessions) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.Delete(ctx, sessionID)
}

// SetCookies writes the session token under both cookie names.
func (s *Sessions) SetCookies(w http.ResponseWriter, token string) {
	for _, name := range []string{CookieName, MobileCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    token,
			Path:     "/",
			MaxAge:   int(s.tokens.TTL() / time.Second),
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// ClearCookies expires both session cookies.
func (s *Sessions) ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{CookieName, MobileCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
