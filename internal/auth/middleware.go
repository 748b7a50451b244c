package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is unexported so only this package can set identity values.
type contextKey string

const (
	userIDKey    contextKey = "userID"
	sessionIDKey contextKey = "sessionID"
)

const unauthorizedBody = `{"error":"unauthorized","message":"Unauthorized request"}`

// RequireAuth rejects requests without a live session with 401 and stores the
// caller's user id and session id in the request context otherwise.
func RequireAuth(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, ok := authenticate(r, sessions)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(unauthorizedBody))
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth identifies the caller when it can and never blocks the
// request. Handlers check UserIDFromContext for anonymous callers.
func OptionalAuth(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ctx, ok := authenticate(r, sessions); ok {
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user's id, or ("", false) for
// anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SessionIDFromContext returns the id of the session the request came with.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithIdentity returns ctx carrying userID and sessionID, as the middleware
// would after a successful lookup.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func authenticate(r *http.Request, sessions *Sessions) (context.Context, bool) {
	token := sessionToken(r)
	if token == "" {
		return nil, false
	}
	sessionID, userID, err := sessions.Resolve(r.Context(), token)
	if err != nil || userID == "" {
		return nil, false
	}
	return WithIdentity(r.Context(), userID, sessionID), true
}

// sessionToken looks for the token in the session cookie, the mobile cookie
// and finally the Authorization header.
func sessionToken(r *http.Request) string {
	for _, name := range []string{CookieName, MobileCookieName} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
