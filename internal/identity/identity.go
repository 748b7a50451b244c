// Package identity talks to the external identity provider: it exchanges
// authorization codes, introspects and revokes tokens, reads the caller's
// profile and lists the caller's connections.
//
// The rest of the application depends on the Client interface only; tests
// substitute fakes for it.
package identity

import (
	"context"
	"errors"
)

// TokenPair is the result of exchanging an authorization code.
type TokenPair struct {
	AccessToken   string
	RefreshToken  string // empty when the provider did not issue one
	IdentityToken string
	ExpiresIn     int64 // seconds
}

// TokenInfo is the provider's view of an access token.
//
// Error is set when the provider rejected the token outright; in that case
// the other fields are meaningless.
type TokenInfo struct {
	IssuedTo         string `json:"issued_to"`
	Audience         string `json:"audience"`
	UserID           string `json:"user_id"`
	Scope            string `json:"scope"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Profile is the subset of the caller's profile that PhotoHunt stores.
type Profile struct {
	ExternalID      string
	DisplayName     string
	ProfileURL      string
	ProfilePhotoURL string
}

// ConnectionsPage is one page of the caller's connections.
type ConnectionsPage struct {
	IDs           []string
	NextPageToken string
}

// Client is the identity provider as seen by this application.
type Client interface {
	ExchangeCode(ctx context.Context, code string) (*TokenPair, error)
	VerifyToken(ctx context.Context, accessToken string) (*TokenInfo, error)
	// RevokeToken is idempotent: revoking an already revoked or expired
	// token returns nil.
	RevokeToken(ctx context.Context, accessToken string) error
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
	ListConnections(ctx context.Context, accessToken, pageToken string) (*ConnectionsPage, error)
}

var (
	ErrEmptyToken      = errors.New("identity: access token is empty")
	ErrMalformedResult = errors.New("identity: malformed provider response")
)
