package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/pkce"
	"golang.org/x/oauth2"
)

// PKCEChallenge holds the PKCE verifier and challenge pair.
// The verifier is kept secret by the client, and the challenge is sent to the authorization endpoint.
type PKCEChallenge struct {
	// Verifier is the high-entropy random string (kept secret)
	Verifier string

	// Challenge is the base64url-encoded SHA256 hash of the verifier (sent to server)
	Challenge string

	// Method is always "S256"
	Method string
}

// GeneratePKCEChallenge creates a new RFC 7636 verifier and its S256 challenge.
func GeneratePKCEChallenge() *PKCEChallenge {
	verifier := oauth2.GenerateVerifier()
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: pkce.S256Challenge(verifier),
		Method:    pkce.MethodS256,
	}
}

// AuthorizeParams is the authorization request a client starts the flow
// with. The same parameters are replayed on the login call.
type AuthorizeParams struct {
	ClientID    string
	RedirectURI string
	State       string
	Scopes      []string
	PKCE        *PKCEChallenge
}

func (p AuthorizeParams) values() url.Values {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", p.RedirectURI)

	if p.State != "" {
		params.Set("state", p.State)
	}
	if len(p.Scopes) > 0 {
		params.Set("scope", strings.Join(p.Scopes, " "))
	}
	if p.PKCE != nil {
		params.Set("code_challenge", p.PKCE.Challenge)
		params.Set("code_challenge_method", p.PKCE.Method)
	}
	return params
}

// BuildAuthorizeURL constructs the authorization endpoint URL for p.
//
// Example:
//
//	challenge := authsdk.GeneratePKCEChallenge()
//	u := client.BuildAuthorizeURL(authsdk.AuthorizeParams{
//		ClientID:    "demo-web-app",
//		RedirectURI: "http://localhost:3000/callback",
//		Scopes:      []string{"openid", "profile"},
//		PKCE:        challenge,
//	})
func (c *SDKClient) BuildAuthorizeURL(p AuthorizeParams) string {
	return fmt.Sprintf("%s/oauth2/authorize?%s", c.BaseURL, p.values().Encode())
}

// Authorize validates an authorization request and returns the login URL
// the user should be sent to.
func (c *SDKClient) Authorize(ctx context.Context, p AuthorizeParams) (*AuthorizeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/oauth2/authorize?"+p.values().Encode(), nil, nil)
	if err != nil {
		return nil, err
	}

	var out AuthorizeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login submits the user's credentials for the authorization request p.
// A response with RequiresTwoFactor set is not an error: call
// ContinueLogin with its token and the code the user received.
// A rejected login is returned as *LoginError.
func (c *SDKClient) Login(ctx context.Context, p AuthorizeParams, req LoginRequest) (*LoginResponse, error) {
	return c.login(ctx, p.values(), req)
}

// ContinueLogin completes a two-factor login.
func (c *SDKClient) ContinueLogin(ctx context.Context, p AuthorizeParams, twoFactorToken, code string) (*LoginResponse, error) {
	query := p.values()
	query.Set("two_factor_token", twoFactorToken)
	return c.login(ctx, query, LoginRequest{TwoFactorCode: code})
}

func (c *SDKClient) login(ctx context.Context, query url.Values, body LoginRequest) (*LoginResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/oauth2/login?"+query.Encode(), bytes.NewReader(payload), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// TwoFactorPrompt asks the user for the code sent to their phone.
type TwoFactorPrompt func(ctx context.Context) (string, error)

// ErrTwoFactorRequired is returned by AuthorizeAndExchange when the user has
// two-factor enabled and no prompt was given.
var ErrTwoFactorRequired = errors.New("authsdk: two-factor code required")

// AuthorizeAndExchange runs the whole authorization code flow with PKCE for
// a user whose credentials the caller holds, and returns a session. prompt is
// called when the server asks for a two-factor code.
func (c *SDKClient) AuthorizeAndExchange(
	ctx context.Context,
	clientSecret string,
	p AuthorizeParams,
	username, password string,
	prompt TwoFactorPrompt,
) (*Session, error) {
	if p.PKCE == nil {
		p.PKCE = GeneratePKCEChallenge()
	}

	if _, err := c.Authorize(ctx, p); err != nil {
		return nil, err
	}

	res, err := c.Login(ctx, p, LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	if res.RequiresTwoFactor {
		if prompt == nil {
			return nil, ErrTwoFactorRequired
		}
		code, err := prompt(ctx)
		if err != nil {
			return nil, fmt.Errorf("read two-factor code: %w", err)
		}
		if res, err = c.ContinueLogin(ctx, p, res.TwoFactorToken, code); err != nil {
			return nil, err
		}
	}

	if !res.Success || res.AuthorizationCode == "" {
		return nil, fmt.Errorf("login did not return an authorization code")
	}

	tokens, err := c.ExchangeAuthorizationCode(ctx, p.ClientID, clientSecret, res.AuthorizationCode, p.RedirectURI, p.PKCE.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return newSession(c, p.ClientID, clientSecret, tokens), nil
}

// ParseAuthorizationCallback parses the callback URL from an authorization redirect.
// This extracts the authorization code and state from the redirect URL query parameters.
//
// Returns the authorization code and state, or an error if the callback contains an error response.
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()
	if errorCode := query.Get("error"); errorCode != "" {
		return "", "", fmt.Errorf("authorization failed: %s - %s", errorCode, query.Get("error_description"))
	}

	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback URL missing authorization code")
	}

	return code, query.Get("state"), nil
}
