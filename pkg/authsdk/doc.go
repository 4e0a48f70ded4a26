/*
Package authsdk is a Go client for the Tollgate OAuth2 authorization server.

# Overview

The server exposes three protocol endpoints and the SDK wraps each of them:

  - GET  /oauth2/authorize validates an authorization request and returns a login URL
  - POST /oauth2/login checks the user's credentials (and two-factor code) and returns an authorization code
  - POST /oauth2/token redeems codes and refresh tokens, and runs client_credentials

Create an SDKClient for the server:

	client := authsdk.NewSDKClient("https://auth.example.com")

# Authorization Code Flow

	p := authsdk.AuthorizeParams{
		ClientID:    "demo-web-app",
		RedirectURI: "http://localhost:3000/callback",
		Scopes:      []string{"openid", "profile"},
		PKCE:        authsdk.GeneratePKCEChallenge(),
	}

	res, err := client.Login(ctx, p, authsdk.LoginRequest{Username: "john.doe", Password: "..."})
	if err == nil && res.RequiresTwoFactor {
		res, err = client.ContinueLogin(ctx, p, res.TwoFactorToken, codeFromSMS)
	}

	tokens, err := client.ExchangeAuthorizationCode(ctx, p.ClientID, secret, res.AuthorizationCode, p.RedirectURI, p.PKCE.Verifier)

AuthorizeAndExchange runs the same steps and returns a Session. It calls a
TwoFactorPrompt when the server asks for a code.

# Client Credentials

	session, err := client.AuthenticateWithClientCredentials(ctx, clientID, clientSecret, []string{"api"})

# Sessions

A Session holds the current tokens and renews them 30 seconds before expiry,
rotating the refresh token or re-running client_credentials. Sessions are safe
for concurrent use. Session.TokenSource plugs a session into golang.org/x/oauth2.

# Error Handling

Protocol failures are returned as *OAuth2Error and can be matched with
errors.Is against the predefined values:

	if errors.Is(err, authsdk.ErrInvalidGrant) {
		// code or refresh token already used, expired or foreign
	}

A rejected login is returned as *LoginError carrying the server's message.
*/
package authsdk
