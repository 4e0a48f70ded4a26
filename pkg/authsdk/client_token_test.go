package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenErrorsAreTyped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		require.Equal(t, "secret", r.Form.Get("client_secret"))
		ErrInvalidGrant.WriteError(w)
	}))
	t.Cleanup(srv.Close)

	_, err := NewSDKClient(srv.URL).RefreshGrant(context.Background(), "demo-web-app", "secret", "used")
	require.ErrorIs(t, err, ErrInvalidGrant)
	require.NotErrorIs(t, err, ErrInvalidClient)

	var oauthErr *OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, http.StatusBadRequest, oauthErr.StatusCode)
}

func TestClientCredentialsSessionReauthenticates(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		require.Equal(t, "api", r.Form.Get("scope"))
		n := calls.Add(1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "token-" + string(rune('0'+n)),
			TokenType:   "Bearer",
			ExpiresIn:   0, // already stale once the refresh buffer is applied
			Scope:       "api",
		})
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	session, err := NewSDKClient(srv.URL).AuthenticateWithClientCredentials(ctx, "demo-service", "service-secret", []string{"api"})
	require.NoError(t, err)
	require.Equal(t, "token-1", session.AccessToken())
	require.Empty(t, session.RefreshToken())
	require.True(t, session.HasScope("api"))

	tok, err := session.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "token-2", tok)

	otok, err := session.TokenSource(ctx).Token()
	require.NoError(t, err)
	require.Equal(t, "token-3", otok.AccessToken)
	require.Equal(t, "Bearer", otok.TokenType)
}

func TestSessionRotatesRefreshToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		require.Equal(t, "refresh-1", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
			TokenType:    "Bearer",
			ExpiresIn:    900,
			Scope:        "openid profile",
		})
	}))
	t.Cleanup(srv.Close)

	client := NewSDKClient(srv.URL)
	session := client.NewSessionFromTokens("demo-web-app", "demo-secret", &TokenResponse{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    0,
	})

	tok, err := session.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-2", tok)
	require.Equal(t, "refresh-2", session.RefreshToken())
	require.True(t, session.HasAllScopes("openid", "profile"))

	tok, err = session.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-2", tok, "fresh tokens are reused")
}
