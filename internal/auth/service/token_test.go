package service_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/pkce"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthorizationCodeGrant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	verifier := oauth2.GenerateVerifier()
	req := webLogin("jane.smith", "password456")
	req.CodeChallenge = oauth2.S256ChallengeFromVerifier(verifier)
	req.CodeChallengeMethod = pkce.MethodS256
	code := h.loginCode(t, req)

	tr := codeRequest(code)
	tr.CodeVerifier = verifier
	pair, err := h.token.Exchange(ctx, tr)
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, 15*time.Minute, pair.ExpiresIn)
	require.Equal(t, "openid profile", pair.Scope)
	require.Len(t, pair.RefreshToken, 64)

	claims, err := h.verifier.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "2", claims.Subject)
	require.Equal(t, "jane.smith", claims.Username)
	require.Equal(t, "jane.smith@example.com", claims.Email)
	require.Equal(t, []string{"openid", "profile"}, claims.Scopes)
	require.Equal(t, "demo-web-app", claims.ClientID)

	_, err = h.token.Exchange(ctx, tr)
	require.ErrorIs(t, err, service.ErrInvalidGrant, "codes are single use")
}

func TestAuthorizationCodeGrantRejections(t *testing.T) {
	ctx := context.Background()
	verifier := oauth2.GenerateVerifier()

	tests := []struct {
		name   string
		mutate func(*service.TokenRequest)
		want   error
	}{
		{"wrong secret", func(r *service.TokenRequest) { r.ClientSecret = "nope" }, service.ErrInvalidClient},
		{"unknown client", func(r *service.TokenRequest) { r.ClientID = "nope" }, service.ErrInvalidClient},
		{"redirect mismatch", func(r *service.TokenRequest) { r.RedirectURI = testRedirect + "?x=1" }, service.ErrInvalidGrant},
		{"padded redirect", func(r *service.TokenRequest) { r.RedirectURI = "\t" + testRedirect }, service.ErrInvalidGrant},
		{"wrong verifier", func(r *service.TokenRequest) { r.CodeVerifier = oauth2.GenerateVerifier() }, service.ErrInvalidGrant},
		{"missing verifier", func(r *service.TokenRequest) { r.CodeVerifier = "" }, service.ErrInvalidGrant},
		{"code from another client", func(r *service.TokenRequest) {
			r.ClientID = "other-web-app"
			r.ClientSecret = "other-secret"
		}, service.ErrInvalidGrant},
		{"unknown code", func(r *service.TokenRequest) { r.Code = strings.Repeat("a", 32) }, service.ErrInvalidGrant},
		{"empty code", func(r *service.TokenRequest) { r.Code = "" }, service.ErrInvalidGrant},
		{"unsupported grant", func(r *service.TokenRequest) { r.GrantType = "password" }, service.ErrUnsupportedGrantType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := webLogin("jane.smith", "password456")
			req.CodeChallenge = pkce.S256Challenge(verifier)
			req.CodeChallengeMethod = pkce.MethodS256
			code := h.loginCode(t, req)

			tr := codeRequest(code)
			tr.CodeVerifier = verifier
			tt.mutate(&tr)

			pair, err := h.token.Exchange(ctx, tr)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, pair)
		})
	}
}

func TestFailedExchangeSpendsCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code := h.loginCode(t, webLogin("jane.smith", "password456"))

	bad := codeRequest(code)
	bad.RedirectURI = "http://localhost:3000/other"
	_, err := h.token.Exchange(ctx, bad)
	require.ErrorIs(t, err, service.ErrInvalidGrant)

	_, err = h.token.Exchange(ctx, codeRequest(code))
	require.ErrorIs(t, err, service.ErrInvalidGrant)
}

func TestExpiredCodeIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code := h.loginCode(t, webLogin("jane.smith", "password456"))

	h.clock.Advance(10 * time.Minute)
	_, err := h.token.Exchange(ctx, codeRequest(code))
	require.ErrorIs(t, err, service.ErrInvalidGrant)

	h.clock.Advance(-10 * time.Minute)
	_, err = h.token.Exchange(ctx, codeRequest(code))
	require.ErrorIs(t, err, service.ErrInvalidGrant, "expired codes are deleted when found")
}

func TestConcurrentCodeRedemption(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code := h.loginCode(t, webLogin("jane.smith", "password456"))

	var (
		wg    sync.WaitGroup
		wins  atomic.Int32
		start = make(chan struct{})
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := h.token.Exchange(ctx, codeRequest(code)); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestClientCredentialsGrant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := service.TokenRequest{
		GrantType:    string(domain.GrantClientCredentials),
		ClientID:     "demo-service",
		ClientSecret: "service-secret",
	}

	pair, err := h.token.Exchange(ctx, req)
	require.NoError(t, err)
	require.Empty(t, pair.RefreshToken, "no refresh token for service identities")
	require.Equal(t, "api reports", pair.Scope)

	claims, err := h.verifier.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "service_demo-service", claims.Subject)
	require.Equal(t, "Demo Service", claims.Username)
	require.Equal(t, "demo-service@service.local", claims.Email)

	req.Scope = "reports reports"
	pair, err = h.token.Exchange(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "reports", pair.Scope)

	req.Scope = "api admin"
	_, err = h.token.Exchange(ctx, req)
	require.ErrorIs(t, err, service.ErrInvalidScope)
}

func TestGrantTypeEnforcement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair, err := h.token.Exchange(ctx, service.TokenRequest{
		GrantType:    string(domain.GrantClientCredentials),
		ClientID:     "demo-web-app",
		ClientSecret: "demo-secret",
	})
	require.ErrorIs(t, err, service.ErrUnauthorizedClient)
	require.Nil(t, pair)

	_, err = h.token.Exchange(ctx, service.TokenRequest{
		GrantType:    string(domain.GrantRefreshToken),
		ClientID:     "demo-service",
		ClientSecret: "service-secret",
		RefreshToken: "whatever",
	})
	require.ErrorIs(t, err, service.ErrUnauthorizedClient)
}

func TestRefreshTokenRotation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.token.Exchange(ctx, codeRequest(h.loginCode(t, webLogin("jane.smith", "password456"))))
	require.NoError(t, err)

	refresh := service.TokenRequest{
		GrantType:    string(domain.GrantRefreshToken),
		ClientID:     "demo-web-app",
		ClientSecret: "demo-secret",
		RefreshToken: first.RefreshToken,
	}
	second, err := h.token.Exchange(ctx, refresh)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, first.Scope, second.Scope)

	claims, err := h.verifier.Verify(second.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "2", claims.Subject)

	_, err = h.token.Exchange(ctx, refresh)
	require.ErrorIs(t, err, service.ErrInvalidGrant, "rotated tokens are never reusable")

	refresh.RefreshToken = second.RefreshToken
	_, err = h.token.Exchange(ctx, refresh)
	require.NoError(t, err)
}

func TestRefreshTokenRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("other client", func(t *testing.T) {
		h := newHarness(t)
		pair, err := h.token.Exchange(ctx, codeRequest(h.loginCode(t, webLogin("jane.smith", "password456"))))
		require.NoError(t, err)

		_, err = h.token.Exchange(ctx, service.TokenRequest{
			GrantType:    string(domain.GrantRefreshToken),
			ClientID:     "other-web-app",
			ClientSecret: "other-secret",
			RefreshToken: pair.RefreshToken,
		})
		require.ErrorIs(t, err, service.ErrInvalidGrant)
	})

	t.Run("expired", func(t *testing.T) {
		h := newHarness(t)
		pair, err := h.token.Exchange(ctx, codeRequest(h.loginCode(t, webLogin("jane.smith", "password456"))))
		require.NoError(t, err)

		h.clock.Advance(7 * 24 * time.Hour)
		_, err = h.token.Exchange(ctx, service.TokenRequest{
			GrantType:    string(domain.GrantRefreshToken),
			ClientID:     "demo-web-app",
			ClientSecret: "demo-secret",
			RefreshToken: pair.RefreshToken,
		})
		require.ErrorIs(t, err, service.ErrInvalidGrant)
	})

	t.Run("missing", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.token.Exchange(ctx, service.TokenRequest{
			GrantType:    string(domain.GrantRefreshToken),
			ClientID:     "demo-web-app",
			ClientSecret: "demo-secret",
		})
		require.ErrorIs(t, err, service.ErrInvalidGrant)
	})
}

func TestIssuedScopesStayWithinClient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, ok := h.registry.Lookup("demo-web-app")
	require.True(t, ok)

	for _, scope := range []string{"", "openid", "email api", "api api openid"} {
		req := webLogin("jane.smith", "password456")
		req.Scope = scope
		pair, err := h.token.Exchange(ctx, codeRequest(h.loginCode(t, req)))
		require.NoError(t, err)

		claims, err := h.verifier.Verify(pair.AccessToken)
		require.NoError(t, err)
		for _, s := range claims.Scopes {
			require.True(t, slices.Contains(client.Scopes, s), "scope %q leaked", s)
		}
	}
}

func TestTwoFactorLoginThenExchange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.authorize.Login(ctx, webLogin("john.doe", "password123"))
	require.NoError(t, err)

	done, err := h.authorize.Login(ctx, service.LoginRequest{
		TwoFactorToken: first.TwoFactorToken,
		TwoFactorCode:  h.sms.lastCode(t, "+1234567890"),
	})
	require.NoError(t, err)

	pair, err := h.token.Exchange(ctx, codeRequest(done.AuthorizationCode))
	require.NoError(t, err)
	claims, err := h.verifier.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "1", claims.Subject)
	require.Equal(t, "john.doe", claims.Username)
}
