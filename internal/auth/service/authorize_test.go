package service_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/pkce"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	valid := service.AuthorizeRequest{
		ResponseType: "code",
		ClientID:     "demo-web-app",
		RedirectURI:  testRedirect,
		Scope:        "openid profile",
		State:        "xyz",
	}

	t.Run("allowed scopes", func(t *testing.T) {
		res, err := h.authorize.Authorize(ctx, valid)
		require.NoError(t, err)

		u, err := url.Parse(res.LoginURL)
		require.NoError(t, err)
		require.Equal(t, "/login", u.Path)
		q := u.Query()
		require.Equal(t, "demo-web-app", q.Get("client_id"))
		require.Equal(t, testRedirect, q.Get("redirect_uri"))
		require.Equal(t, "openid profile", q.Get("scope"))
		require.Equal(t, "xyz", q.Get("state"))
		require.False(t, q.Has("code_challenge"), "empty values are omitted")
		require.False(t, q.Has("code_challenge_method"))
	})

	t.Run("empty scope defaults to the client's set", func(t *testing.T) {
		req := valid
		req.Scope = ""
		res, err := h.authorize.Authorize(ctx, req)
		require.NoError(t, err)
		u, err := url.Parse(res.LoginURL)
		require.NoError(t, err)
		require.Equal(t, "openid profile email api", u.Query().Get("scope"))
	})

	t.Run("pkce method defaults to plain", func(t *testing.T) {
		req := valid
		req.CodeChallenge = "challenge"
		res, err := h.authorize.Authorize(ctx, req)
		require.NoError(t, err)
		u, err := url.Parse(res.LoginURL)
		require.NoError(t, err)
		require.Equal(t, "challenge", u.Query().Get("code_challenge"))
		require.Equal(t, pkce.MethodPlain, u.Query().Get("code_challenge_method"))
	})

	tests := []struct {
		name   string
		mutate func(*service.AuthorizeRequest)
		want   error
	}{
		{"unknown client", func(r *service.AuthorizeRequest) { r.ClientID = "nope" }, service.ErrInvalidClient},
		{"unknown client wins over response type", func(r *service.AuthorizeRequest) {
			r.ClientID = "nope"
			r.ResponseType = "token"
		}, service.ErrInvalidClient},
		{"response type", func(r *service.AuthorizeRequest) { r.ResponseType = "token" }, service.ErrUnsupportedResponseType},
		{"unregistered redirect", func(r *service.AuthorizeRequest) { r.RedirectURI = "http://evil.example/cb" }, service.ErrInvalidRequest},
		{"redirect is not normalised", func(r *service.AuthorizeRequest) { r.RedirectURI = testRedirect + "/" }, service.ErrInvalidRequest},
		{"scope outside client", func(r *service.AuthorizeRequest) { r.Scope = "openid admin" }, service.ErrInvalidScope},
		{"unknown pkce method", func(r *service.AuthorizeRequest) {
			r.CodeChallenge = "abc"
			r.CodeChallengeMethod = "S512"
		}, service.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := h.authorize.Authorize(ctx, req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoginWithoutTwoFactor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.authorize.Login(ctx, webLogin("jane.smith", "password456"))
	require.NoError(t, err)
	require.Equal(t, service.Completed, res.State)
	require.Len(t, res.AuthorizationCode, 32)
	require.Empty(t, res.TwoFactorToken)
	require.Equal(t, testRedirect, res.RedirectURI)
	require.Equal(t, "xyz", res.OAuthState)
	require.Empty(t, h.sms.sent, "no sms for users without two-factor")

	code, err := h.store.AuthorizationCodes().TakeAuthorizationCode(ctx, res.AuthorizationCode)
	require.NoError(t, err)
	require.Equal(t, "2", code.UserID)
	require.Equal(t, "demo-web-app", code.ClientID)
	require.Equal(t, []string{"openid", "profile"}, code.Scopes)
	require.WithinDuration(t, h.clock.Now().Add(10*time.Minute), code.ExpiresAt, time.Second)
}

func TestLoginRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*service.LoginRequest)
		want   error
	}{
		{"wrong password", func(r *service.LoginRequest) { r.Password = "nope" }, service.ErrInvalidCredentials},
		{"unknown user", func(r *service.LoginRequest) { r.Username = "ghost" }, service.ErrInvalidCredentials},
		{"empty password", func(r *service.LoginRequest) { r.Password = "" }, service.ErrInvalidCredentials},
		{"tampered scope", func(r *service.LoginRequest) { r.Scope = "openid admin" }, service.ErrInvalidScope},
		{"tampered redirect", func(r *service.LoginRequest) { r.RedirectURI = "http://evil.example/cb" }, service.ErrInvalidRequest},
		{"unknown client", func(r *service.LoginRequest) { r.ClientID = "nope" }, service.ErrInvalidClient},
		{"token without code is a fresh login", func(r *service.LoginRequest) {
			r.TwoFactorToken = "whatever"
			r.Password = "nope"
		}, service.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := webLogin("jane.smith", "password456")
			tt.mutate(&req)
			res, err := h.authorize.Login(ctx, req)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, res)
		})
	}
}

func TestLoginWithTwoFactor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.authorize.Login(ctx, webLogin("john.doe", "password123"))
	require.NoError(t, err)
	require.Equal(t, service.AwaitingTwoFactorCode, first.State)
	require.NotEmpty(t, first.TwoFactorToken)
	require.Empty(t, first.AuthorizationCode)

	code := h.sms.lastCode(t, "+1234567890")
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	cont := service.LoginRequest{TwoFactorToken: first.TwoFactorToken, TwoFactorCode: wrong}
	_, err = h.authorize.Login(ctx, cont)
	require.ErrorIs(t, err, service.ErrInvalidTwoFactorCode)

	_, err = h.store.TwoFactorSessions().GetTwoFactorSession(ctx, first.TwoFactorToken)
	require.NoError(t, err, "a wrong code does not consume the session")

	cont.TwoFactorCode = code
	done, err := h.authorize.Login(ctx, cont)
	require.NoError(t, err)
	require.Equal(t, service.Completed, done.State)
	require.Len(t, done.AuthorizationCode, 32)
	require.Equal(t, testRedirect, done.RedirectURI)
	require.Equal(t, "xyz", done.OAuthState)

	stored, err := h.store.AuthorizationCodes().TakeAuthorizationCode(ctx, done.AuthorizationCode)
	require.NoError(t, err)
	require.Equal(t, "1", stored.UserID)
	require.Equal(t, []string{"openid", "profile"}, stored.Scopes)

	replay, err := h.authorize.Login(ctx, cont)
	require.ErrorIs(t, err, service.ErrTwoFactorExpired, "step-up tokens are single use")
	require.Equal(t, service.Expired, replay.State)
	require.Empty(t, replay.AuthorizationCode)
}

func TestTwoFactorSessionKeepsOriginalRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	req := webLogin("john.doe", "password123")
	req.CodeChallenge = pkce.S256Challenge(verifier)
	req.CodeChallengeMethod = pkce.MethodS256

	first, err := h.authorize.Login(ctx, req)
	require.NoError(t, err)

	// The continuation query tries to change the redirect and drop PKCE.
	cont := service.LoginRequest{
		AuthorizeRequest: service.AuthorizeRequest{
			ClientID:    "demo-web-app",
			RedirectURI: "http://evil.example/cb",
		},
		TwoFactorToken: first.TwoFactorToken,
		TwoFactorCode:  h.sms.lastCode(t, "+1234567890"),
	}
	done, err := h.authorize.Login(ctx, cont)
	require.NoError(t, err)
	require.Equal(t, testRedirect, done.RedirectURI)

	stored, err := h.store.AuthorizationCodes().TakeAuthorizationCode(ctx, done.AuthorizationCode)
	require.NoError(t, err)
	require.Equal(t, testRedirect, stored.RedirectURI)
	require.Equal(t, req.CodeChallenge, stored.CodeChallenge)
	require.Equal(t, pkce.MethodS256, stored.CodeChallengeMethod)
}

func TestTwoFactorInlineCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := webLogin("admin", "admin123")
	req.TwoFactorCode = "123456"
	_, err := h.authorize.Login(ctx, req)
	require.ErrorIs(t, err, service.ErrInvalidTwoFactorCode, "inline codes are checked, never ignored")

	req.TwoFactorCode = ""
	first, err := h.authorize.Login(ctx, req)
	require.NoError(t, err)
	require.Equal(t, service.AwaitingTwoFactorCode, first.State)

	req.TwoFactorCode = h.sms.lastCode(t, "+1234567892")
	done, err := h.authorize.Login(ctx, req)
	require.NoError(t, err)
	require.Equal(t, service.Completed, done.State)
}

func TestTwoFactorExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.authorize.Login(ctx, webLogin("john.doe", "password123"))
	require.NoError(t, err)
	code := h.sms.lastCode(t, "+1234567890")

	t.Run("code lapses before session", func(t *testing.T) {
		h.clock.Advance(5 * time.Minute)
		_, err := h.authorize.Login(ctx, service.LoginRequest{TwoFactorToken: first.TwoFactorToken, TwoFactorCode: code})
		require.ErrorIs(t, err, service.ErrInvalidTwoFactorCode)
	})

	t.Run("session lapses", func(t *testing.T) {
		h.clock.Advance(5 * time.Minute)
		res, err := h.authorize.Login(ctx, service.LoginRequest{TwoFactorToken: first.TwoFactorToken, TwoFactorCode: code})
		require.ErrorIs(t, err, service.ErrTwoFactorExpired)
		require.Equal(t, service.Expired, res.State)
		require.True(t, res.State.Terminal())
	})

	res, err := h.authorize.Login(ctx, service.LoginRequest{TwoFactorToken: "unknown", TwoFactorCode: code})
	require.ErrorIs(t, err, service.ErrTwoFactorExpired)
	require.Equal(t, service.Expired, res.State)
}

func TestTwoFactorDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway declines", func(t *testing.T) {
		h := newHarness(t)
		h.sms.reject = true

		_, err := h.authorize.Login(ctx, webLogin("john.doe", "password123"))
		require.ErrorIs(t, err, service.ErrDeliveryFailed)

		ok, err := h.store.OneTimeCodes().ConsumeOneTimeCode(ctx, "+1234567890", h.sms.lastCode(t, "+1234567890"))
		require.NoError(t, err)
		require.False(t, ok, "undelivered codes are withdrawn")
	})

	t.Run("gateway unreachable", func(t *testing.T) {
		h := newHarness(t)
		h.sms.unreach = true

		_, err := h.authorize.Login(ctx, webLogin("john.doe", "password123"))
		require.ErrorIs(t, err, service.ErrUpstreamUnavailable)
	})
}

func TestTwoFactorChallengeStoresSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.authorize.Login(ctx, webLogin("john.doe", "password123"))
	require.NoError(t, err)

	sess, err := h.twoFactor.Session(ctx, first.TwoFactorToken)
	require.NoError(t, err)
	require.Equal(t, "1", sess.UserID)
	require.Equal(t, "demo-web-app", sess.ClientID)
	require.Equal(t, "xyz", sess.State)
	require.WithinDuration(t, h.clock.Now().Add(10*time.Minute), sess.ExpiresAt, time.Second)

	_, err = h.twoFactor.Complete(ctx, first.TwoFactorToken)
	require.NoError(t, err)
	_, err = h.store.TwoFactorSessions().GetTwoFactorSession(ctx, first.TwoFactorToken)
	require.ErrorIs(t, err, store.ErrNotFound)
}
