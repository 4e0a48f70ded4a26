package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the Tollgate authorization server.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new client for the server at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthenticateWithClientCredentials creates a session for a service identity.
// The session re-runs the grant when its access token expires since no
// refresh token is issued for this grant.
func (c *SDKClient) AuthenticateWithClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*Session, error) {
	tokenResp, err := c.ClientCredentialsGrant(ctx, clientID, clientSecret, scopes)
	if err != nil {
		return nil, err
	}

	s := newSession(c, clientID, clientSecret, tokenResp)
	s.reauth = func(ctx context.Context) (*TokenResponse, error) {
		return c.ClientCredentialsGrant(ctx, clientID, clientSecret, scopes)
	}
	return s, nil
}

// AuthenticateWithRefreshToken creates an authenticated session from an existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
) (*Session, error) {
	tokenResp, err := c.RefreshGrant(ctx, clientID, clientSecret, refreshToken)
	if err != nil {
		return nil, err
	}

	return newSession(c, clientID, clientSecret, tokenResp), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// The session will still perform auto-refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(clientID, clientSecret string, tokens *TokenResponse) *Session {
	return newSession(c, clientID, clientSecret, tokens)
}
