// Package storetest is a conformance suite run against every store driver.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// Run exercises the store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("authorization codes", func(t *testing.T) { testAuthorizationCodes(t, newStore(t)) })
	t.Run("refresh tokens", func(t *testing.T) { testRefreshTokens(t, newStore(t)) })
	t.Run("two factor sessions", func(t *testing.T) { testTwoFactorSessions(t, newStore(t)) })
	t.Run("one time codes", func(t *testing.T) { testOneTimeCodes(t, newStore(t)) })
	t.Run("concurrent take", func(t *testing.T) { testConcurrentTake(t, newStore(t)) })
	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(context.Background()))
		require.NotEmpty(t, s.Driver())
	})
}

func newKey(t *testing.T, n int) string {
	t.Helper()
	k, err := cryptox.GenerateAlphanumeric(n)
	require.NoError(t, err)
	return k
}

func testAuthorizationCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.AuthorizationCodes()
	now := time.Now().UTC().Truncate(time.Millisecond)

	code := domain.AuthorizationCode{
		Code:                newKey(t, cryptox.AuthorizationCodeLength),
		ClientID:            "demo-web-app",
		UserID:              "2",
		RedirectURI:         "http://localhost:3000/callback",
		Scopes:              []string{"openid", "profile"},
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: "S256",
		ExpiresAt:           now.Add(10 * time.Minute),
		CreatedAt:           now,
	}
	require.NoError(t, repo.PutAuthorizationCode(ctx, code))

	got, err := repo.TakeAuthorizationCode(ctx, code.Code)
	require.NoError(t, err)
	require.Equal(t, code.Code, got.Code)
	require.Equal(t, code.ClientID, got.ClientID)
	require.Equal(t, code.UserID, got.UserID)
	require.Equal(t, code.RedirectURI, got.RedirectURI)
	require.ElementsMatch(t, code.Scopes, got.Scopes)
	require.Equal(t, code.CodeChallenge, got.CodeChallenge)
	require.Equal(t, code.CodeChallengeMethod, got.CodeChallengeMethod)
	require.WithinDuration(t, code.ExpiresAt, got.ExpiresAt, time.Millisecond)

	_, err = repo.TakeAuthorizationCode(ctx, code.Code)
	require.ErrorIs(t, err, store.ErrNotFound, "codes are single use")

	_, err = repo.TakeAuthorizationCode(ctx, "unknown")
	require.ErrorIs(t, err, store.ErrNotFound)

	expired := code
	expired.Code = newKey(t, cryptox.AuthorizationCodeLength)
	expired.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, repo.PutAuthorizationCode(ctx, expired))
	_, err = repo.TakeAuthorizationCode(ctx, expired.Code)
	require.ErrorIs(t, err, store.ErrNotFound, "expired codes are never returned")
	_, err = repo.TakeAuthorizationCode(ctx, expired.Code)
	require.ErrorIs(t, err, store.ErrNotFound, "expired codes are gone afterwards")

	revoked := code
	revoked.Code = newKey(t, cryptox.AuthorizationCodeLength)
	require.NoError(t, repo.PutAuthorizationCode(ctx, revoked))
	require.NoError(t, repo.RevokeAuthorizationCode(ctx, revoked.Code))
	require.NoError(t, repo.RevokeAuthorizationCode(ctx, revoked.Code), "revoke is idempotent")
	_, err = repo.TakeAuthorizationCode(ctx, revoked.Code)
	require.ErrorIs(t, err, store.ErrNotFound)

	live := code
	live.Code = newKey(t, cryptox.AuthorizationCodeLength)
	stale := code
	stale.Code = newKey(t, cryptox.AuthorizationCodeLength)
	stale.ExpiresAt = now.Add(-time.Second)
	require.NoError(t, repo.PutAuthorizationCode(ctx, live))
	require.NoError(t, repo.PutAuthorizationCode(ctx, stale))

	_, err = repo.DeleteExpiredAuthorizationCodes(ctx)
	require.NoError(t, err)
	_, err = repo.TakeAuthorizationCode(ctx, stale.Code)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = repo.TakeAuthorizationCode(ctx, live.Code)
	require.NoError(t, err, "sweep keeps live codes")
}

func testRefreshTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.RefreshTokens()
	now := time.Now().UTC().Truncate(time.Millisecond)

	tok := domain.RefreshToken{
		Token:     newKey(t, cryptox.RefreshTokenLength),
		ClientID:  "demo-web-app",
		UserID:    "1",
		Scopes:    []string{"openid", "api"},
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, repo.PutRefreshToken(ctx, tok))

	got, err := repo.TakeRefreshToken(ctx, tok.Token)
	require.NoError(t, err)
	require.Equal(t, tok.ClientID, got.ClientID)
	require.Equal(t, tok.UserID, got.UserID)
	require.ElementsMatch(t, tok.Scopes, got.Scopes)

	_, err = repo.TakeRefreshToken(ctx, tok.Token)
	require.ErrorIs(t, err, store.ErrNotFound)

	expired := tok
	expired.Token = newKey(t, cryptox.RefreshTokenLength)
	expired.ExpiresAt = now.Add(-time.Hour)
	require.NoError(t, repo.PutRefreshToken(ctx, expired))
	_, err = repo.TakeRefreshToken(ctx, expired.Token)
	require.ErrorIs(t, err, store.ErrNotFound)

	revoked := tok
	revoked.Token = newKey(t, cryptox.RefreshTokenLength)
	require.NoError(t, repo.PutRefreshToken(ctx, revoked))
	require.NoError(t, repo.RevokeRefreshToken(ctx, revoked.Token))
	require.NoError(t, repo.RevokeRefreshToken(ctx, revoked.Token))
	_, err = repo.TakeRefreshToken(ctx, revoked.Token)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.DeleteExpiredRefreshTokens(ctx)
	require.NoError(t, err)
}

func testTwoFactorSessions(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.TwoFactorSessions()
	now := time.Now().UTC().Truncate(time.Millisecond)

	sess := domain.TwoFactorSession{
		Token:               newKey(t, 43),
		UserID:              "1",
		ClientID:            "demo-web-app",
		RedirectURI:         "http://localhost:3000/callback",
		Scopes:              []string{"openid"},
		State:               "xyz",
		CodeChallenge:       "challenge",
		CodeChallengeMethod: "plain",
		ExpiresAt:           now.Add(10 * time.Minute),
		CreatedAt:           now,
	}
	require.NoError(t, repo.PutTwoFactorSession(ctx, sess))

	got, err := repo.GetTwoFactorSession(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, sess.UserID, got.UserID)
	require.Equal(t, sess.State, got.State)
	require.Equal(t, sess.CodeChallenge, got.CodeChallenge)

	_, err = repo.GetTwoFactorSession(ctx, sess.Token)
	require.NoError(t, err, "get does not consume")

	got, err = repo.TakeTwoFactorSession(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, sess.RedirectURI, got.RedirectURI)

	_, err = repo.GetTwoFactorSession(ctx, sess.Token)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = repo.TakeTwoFactorSession(ctx, sess.Token)
	require.ErrorIs(t, err, store.ErrNotFound)

	expired := sess
	expired.Token = newKey(t, 43)
	expired.ExpiresAt = now.Add(-time.Second)
	require.NoError(t, repo.PutTwoFactorSession(ctx, expired))
	_, err = repo.GetTwoFactorSession(ctx, expired.Token)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = repo.TakeTwoFactorSession(ctx, expired.Token)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.RevokeTwoFactorSession(ctx, "unknown"))
	_, err = repo.DeleteExpiredTwoFactorSessions(ctx)
	require.NoError(t, err)
}

func testOneTimeCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.OneTimeCodes()
	now := time.Now().UTC()
	phone := "+1234567890"

	require.NoError(t, repo.PutOneTimeCode(ctx, domain.OneTimeCode{
		PhoneNumber: phone,
		Code:        "123456",
		ExpiresAt:   now.Add(5 * time.Minute),
	}))

	ok, err := repo.ConsumeOneTimeCode(ctx, phone, "654321")
	require.NoError(t, err)
	require.False(t, ok, "wrong code")

	ok, err = repo.ConsumeOneTimeCode(ctx, "+1999", "123456")
	require.NoError(t, err)
	require.False(t, ok, "wrong phone")

	ok, err = repo.ConsumeOneTimeCode(ctx, phone, "123456")
	require.NoError(t, err)
	require.True(t, ok, "a wrong guess does not burn the code")

	ok, err = repo.ConsumeOneTimeCode(ctx, phone, "123456")
	require.NoError(t, err)
	require.False(t, ok, "codes are single use")

	t.Run("newer code replaces older", func(t *testing.T) {
		require.NoError(t, repo.PutOneTimeCode(ctx, domain.OneTimeCode{PhoneNumber: phone, Code: "111111", ExpiresAt: now.Add(5 * time.Minute)}))
		require.NoError(t, repo.PutOneTimeCode(ctx, domain.OneTimeCode{PhoneNumber: phone, Code: "222222", ExpiresAt: now.Add(5 * time.Minute)}))

		ok, err := repo.ConsumeOneTimeCode(ctx, phone, "111111")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = repo.ConsumeOneTimeCode(ctx, phone, "222222")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("expired code never matches", func(t *testing.T) {
		require.NoError(t, repo.PutOneTimeCode(ctx, domain.OneTimeCode{PhoneNumber: phone, Code: "333333", ExpiresAt: now.Add(-time.Second)}))
		ok, err := repo.ConsumeOneTimeCode(ctx, phone, "333333")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("revoke", func(t *testing.T) {
		require.NoError(t, repo.PutOneTimeCode(ctx, domain.OneTimeCode{PhoneNumber: phone, Code: "444444", ExpiresAt: now.Add(time.Minute)}))
		require.NoError(t, repo.RevokeOneTimeCode(ctx, phone))
		require.NoError(t, repo.RevokeOneTimeCode(ctx, phone))
		ok, err := repo.ConsumeOneTimeCode(ctx, phone, "444444")
		require.NoError(t, err)
		require.False(t, ok)
	})

	_, err = repo.DeleteExpiredOneTimeCodes(ctx)
	require.NoError(t, err)
}

func testConcurrentTake(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	code := domain.AuthorizationCode{
		Code:        newKey(t, cryptox.AuthorizationCodeLength),
		ClientID:    "demo-web-app",
		UserID:      "2",
		RedirectURI: "http://localhost:3000/callback",
		Scopes:      []string{"openid"},
		ExpiresAt:   now.Add(time.Minute),
		CreatedAt:   now,
	}
	require.NoError(t, s.AuthorizationCodes().PutAuthorizationCode(ctx, code))

	require.NoError(t, s.OneTimeCodes().PutOneTimeCode(ctx, domain.OneTimeCode{
		PhoneNumber: "+1234567891",
		Code:        "999999",
		ExpiresAt:   now.Add(time.Minute),
	}))

	const workers = 16
	var (
		wg       sync.WaitGroup
		codeWins atomic.Int32
		otpWins  atomic.Int32
		start    = make(chan struct{})
		errs     = make(chan error, workers*2)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			if _, err := s.AuthorizationCodes().TakeAuthorizationCode(ctx, code.Code); err == nil {
				codeWins.Add(1)
			} else if err != store.ErrNotFound {
				errs <- err
			}

			ok, err := s.OneTimeCodes().ConsumeOneTimeCode(ctx, "+1234567891", "999999")
			if err != nil {
				errs <- err
			} else if ok {
				otpWins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), codeWins.Load())
	require.Equal(t, int32(1), otpWins.Load())
}
