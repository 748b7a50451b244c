package middleware

import (
	"context"
	"net/http"
	"strings"
)

type baseURLKey struct{}

// BaseURL stores the scheme and host the request was addressed to in its
// context. Photo views use it to build absolute links, so a deployment
// behind a proxy reports the public host rather than the bind address.
//
// X-Forwarded-Proto is honoured for the scheme; the host is r.Host, which
// is already the public host when chi's RealIP and the proxy pass Host
// through.
func BaseURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), baseURLKey{}, requestBaseURL(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BaseURLFromContext returns the value stored by BaseURL, or "" outside
// a request.
func BaseURLFromContext(ctx context.Context) string {
	u, _ := ctx.Value(baseURLKey{}).(string)
	return u
}

// WithBaseURL returns a context carrying u, for tests and background work.
func WithBaseURL(ctx context.Context, u string) context.Context {
	return context.WithValue(ctx, baseURLKey{}, strings.TrimSuffix(u, "/"))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		// The first hop is the client-facing one.
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + r.Host
}
