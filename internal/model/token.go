package model

import "github.com/sakif/photohunt/internal/apperror"

// TokenData is the credential bundle a client sends to /api/connect.
// Either Code (to be exchanged) or AccessToken (already issued) must be set.
//
// Fields are unexported so the value cannot change after construction.
type TokenData struct {
	accessToken   string
	refreshToken  string
	code          string
	identityToken string
	expiresAt     int64
	expiresIn     int64
}

// TokenDataParams is the mutable input used to build a TokenData.
type TokenDataParams struct {
	AccessToken   string
	RefreshToken  string
	Code          string
	IdentityToken string
	ExpiresAt     int64 // epoch millis
	ExpiresIn     int64 // seconds
}

func NewTokenData(p TokenDataParams) TokenData {
	return TokenData{
		accessToken:   p.AccessToken,
		refreshToken:  p.RefreshToken,
		code:          p.Code,
		identityToken: p.IdentityToken,
		expiresAt:     p.ExpiresAt,
		expiresIn:     p.ExpiresIn,
	}
}

func (t TokenData) AccessToken() string   { return t.accessToken }
func (t TokenData) RefreshToken() string  { return t.refreshToken }
func (t TokenData) Code() string          { return t.code }
func (t TokenData) IdentityToken() string { return t.identityToken }
func (t TokenData) ExpiresAt() int64      { return t.expiresAt }
func (t TokenData) ExpiresIn() int64      { return t.expiresIn }

func (t TokenData) HasCode() bool { return t.code != "" }

// Validate reports MissingCredential when there is nothing to authorize with.
func (t TokenData) Validate() error {
	if t.code == "" && t.accessToken == "" {
		return apperror.MissingCredential()
	}
	return nil
}
