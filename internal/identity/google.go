package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Endpoints are the provider URLs the client calls. Tests point them at an
// httptest server.
type Endpoints struct {
	OAuth     oauth2.Endpoint
	TokenInfo string
	Revoke    string
	People    string // base URL of the People API, without trailing slash
}

var GoogleEndpoints = Endpoints{
	OAuth:     google.Endpoint,
	TokenInfo: "https://www.googleapis.com/oauth2/v1/tokeninfo",
	Revoke:    "https://oauth2.googleapis.com/revoke",
	People:    "https://people.googleapis.com/v1",
}

// connectionsPageSize is the People API maximum.
const connectionsPageSize = 1000

// GoogleClient implements Client against Google's OAuth 2.0 and People APIs.
//
// Every call is bounded by the configured timeout; a call that exceeds it
// fails like any other transport error.
type GoogleClient struct {
	config     *oauth2.Config
	endpoints  Endpoints
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*GoogleClient)

func WithEndpoints(e Endpoints) Option {
	return func(c *GoogleClient) { c.endpoints = e }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *GoogleClient) { c.httpClient = hc }
}

// NewGoogleClient creates a client for the given OAuth credentials.
//
// redirectURL must match the one used when the code was issued; the
// JavaScript sign-in button uses "postmessage".
func NewGoogleClient(clientID, clientSecret, redirectURL string, timeout time.Duration, opts ...Option) *GoogleClient {
	c := &GoogleClient{
		endpoints: GoogleEndpoints,
		timeout:   timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	c.config = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/contacts.readonly",
		},
		Endpoint: c.endpoints.OAuth,
	}
	return c
}

var _ Client = (*GoogleClient)(nil)

// ClientID is the OAuth client id tokens must have been issued to.
func (c *GoogleClient) ClientID() string {
	return c.config.ClientID
}

func (c *GoogleClient) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ExchangeCode trades an authorization code for a token pair.
func (c *GoogleClient) ExchangeCode(ctx context.Context, code string) (*TokenPair, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("identity: exchanging authorization code: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("identity: exchange returned no access token: %w", ErrMalformedResult)
	}

	pair := &TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		pair.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		pair.IdentityToken = idToken
	}
	return pair, nil
}

// VerifyToken asks the tokeninfo endpoint about accessToken. A rejected
// token is not an error: it comes back with TokenInfo.Error set.
func (c *GoogleClient) VerifyToken(ctx context.Context, accessToken string) (*TokenInfo, error) {
	if accessToken == "" {
		return nil, ErrEmptyToken
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	u := c.endpoints.TokenInfo + "?" + url.Values{"access_token": {accessToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: building tokeninfo request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: calling tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("identity: decoding tokeninfo (status %d): %w", resp.StatusCode, ErrMalformedResult)
	}
	if resp.StatusCode != http.StatusOK && info.Error == "" {
		return nil, fmt.Errorf("identity: tokeninfo returned status %d", resp.StatusCode)
	}
	if info.Error == "" && info.IssuedTo == "" {
		return nil, fmt.Errorf("identity: tokeninfo has no issued_to: %w", ErrMalformedResult)
	}
	return &info, nil
}

// RevokeToken revokes accessToken and any refresh token issued with it.
func (c *GoogleClient) RevokeToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Revoke, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("identity: building revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: calling revoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	// Google answers 400 invalid_token for tokens that are already revoked
	// or expired; the token is unusable either way.
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "invalid_token") {
		return nil
	}
	return fmt.Errorf("identity: revoke returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

type peoplePerson struct {
	ResourceName string `json:"resourceName"`
	Names        []struct {
		DisplayName string        `json:"displayName"`
		Metadata    fieldMetadata `json:"metadata"`
	} `json:"names"`
	Photos []struct {
		URL      string        `json:"url"`
		Metadata fieldMetadata `json:"metadata"`
	} `json:"photos"`
	URLs []struct {
		Value    string        `json:"value"`
		Metadata fieldMetadata `json:"metadata"`
	} `json:"urls"`
}

type fieldMetadata struct {
	Primary bool `json:"primary"`
}

// FetchProfile reads the profile of the user who owns accessToken.
func (c *GoogleClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	if accessToken == "" {
		return nil, ErrEmptyToken
	}

	var person peoplePerson
	u := c.endpoints.People + "/people/me?" + url.Values{"personFields": {"names,photos,urls"}}.Encode()
	if err := c.getJSON(ctx, accessToken, u, &person); err != nil {
		return nil, fmt.Errorf("identity: fetching profile: %w", err)
	}

	p := &Profile{ExternalID: personID(person.ResourceName)}
	if p.ExternalID == "" {
		return nil, fmt.Errorf("identity: profile has no resource name: %w", ErrMalformedResult)
	}
	for i, n := range person.Names {
		if i == 0 || n.Metadata.Primary {
			p.DisplayName = n.DisplayName
		}
	}
	for i, ph := range person.Photos {
		if i == 0 || ph.Metadata.Primary {
			p.ProfilePhotoURL = ph.URL
		}
	}
	for i, l := range person.URLs {
		if i == 0 || l.Metadata.Primary {
			p.ProfileURL = l.Value
		}
	}
	return p, nil
}

// ListConnections returns one page of the people in the caller's contacts.
func (c *GoogleClient) ListConnections(ctx context.Context, accessToken, pageToken string) (*ConnectionsPage, error) {
	if accessToken == "" {
		return nil, ErrEmptyToken
	}

	q := url.Values{
		"personFields": {"metadata"},
		"pageSize":     {fmt.Sprint(connectionsPageSize)},
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var body struct {
		Connections   []peoplePerson `json:"connections"`
		NextPageToken string         `json:"nextPageToken"`
	}
	if err := c.getJSON(ctx, accessToken, c.endpoints.People+"/people/me/connections?"+q.Encode(), &body); err != nil {
		return nil, fmt.Errorf("identity: listing connections: %w", err)
	}

	page := &ConnectionsPage{
		IDs:           make([]string, 0, len(body.Connections)),
		NextPageToken: body.NextPageToken,
	}
	for _, p := range body.Connections {
		if id := personID(p.ResourceName); id != "" {
			page.IDs = append(page.IDs, id)
		}
	}
	return page, nil
}

// getJSON performs an authenticated GET and decodes a 200 response into v.
func (c *GoogleClient) getJSON(ctx context.Context, accessToken, u string, v any) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	// oauth2.NewClient takes its base transport from the context.
	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, c.httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", ErrMalformedResult)
	}
	return nil
}

// personID turns "people/1234" into "1234".
func personID(resourceName string) string {
	return strings.TrimPrefix(resourceName, "people/")
}
