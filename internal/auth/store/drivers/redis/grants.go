package redis

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

const (
	kindAuthorizationCode = "code"
	kindRefreshToken      = "refresh"
	kindTwoFactorSession  = "2fa"
	kindOneTimeCode       = "otp"
)

// Records omit the key itself. The caller already holds it.

type authorizationCodeRecord struct {
	ClientID            string    `json:"client_id"`
	UserID              string    `json:"user_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scopes              []string  `json:"scopes,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	ExpiresAt           time.Time `json:"expires_at"`
	CreatedAt           time.Time `json:"created_at"`
}

type authorizationCodesRepo struct{ s *Store }

func (r *authorizationCodesRepo) PutAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	return r.s.put(ctx, r.s.key(kindAuthorizationCode, c.Code), authorizationCodeRecord{
		ClientID:            c.ClientID,
		UserID:              c.UserID,
		RedirectURI:         c.RedirectURI,
		Scopes:              c.Scopes,
		CodeChallenge:       c.CodeChallenge,
		CodeChallengeMethod: c.CodeChallengeMethod,
		ExpiresAt:           c.ExpiresAt,
		CreatedAt:           c.CreatedAt,
	}, c.ExpiresAt)
}

func (r *authorizationCodesRepo) TakeAuthorizationCode(ctx context.Context, code string) (domain.AuthorizationCode, error) {
	var rec authorizationCodeRecord
	if err := r.s.getdel(ctx, r.s.key(kindAuthorizationCode, code), &rec); err != nil {
		return domain.AuthorizationCode{}, err
	}
	out := domain.AuthorizationCode{
		Code:                code,
		ClientID:            rec.ClientID,
		UserID:              rec.UserID,
		RedirectURI:         rec.RedirectURI,
		Scopes:              rec.Scopes,
		CodeChallenge:       rec.CodeChallenge,
		CodeChallengeMethod: rec.CodeChallengeMethod,
		ExpiresAt:           rec.ExpiresAt,
		CreatedAt:           rec.CreatedAt,
	}
	if out.Expired(r.s.now()) {
		return domain.AuthorizationCode{}, store.ErrNotFound
	}
	return out, nil
}

func (r *authorizationCodesRepo) RevokeAuthorizationCode(ctx context.Context, code string) error {
	return r.s.del(ctx, r.s.key(kindAuthorizationCode, code))
}

// DeleteExpiredAuthorizationCodes is a no-op, Redis expires keys itself.
func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(context.Context) (int64, error) {
	return 0, nil
}

type refreshTokenRecord struct {
	ClientID  string    `json:"client_id"`
	UserID    string    `json:"user_id"`
	Scopes    []string  `json:"scopes,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type refreshTokensRepo struct{ s *Store }

func (r *refreshTokensRepo) PutRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	return r.s.put(ctx, r.s.key(kindRefreshToken, t.Token), refreshTokenRecord{
		ClientID:  t.ClientID,
		UserID:    t.UserID,
		Scopes:    t.Scopes,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}, t.ExpiresAt)
}

func (r *refreshTokensRepo) TakeRefreshToken(ctx context.Context, token string) (domain.RefreshToken, error) {
	var rec refreshTokenRecord
	if err := r.s.getdel(ctx, r.s.key(kindRefreshToken, token), &rec); err != nil {
		return domain.RefreshToken{}, err
	}
	out := domain.RefreshToken{
		Token:     token,
		ClientID:  rec.ClientID,
		UserID:    rec.UserID,
		Scopes:    rec.Scopes,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}
	if out.Expired(r.s.now()) {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return out, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.s.del(ctx, r.s.key(kindRefreshToken, token))
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(context.Context) (int64, error) {
	return 0, nil
}

type twoFactorSessionRecord struct {
	UserID              string    `json:"user_id"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scopes              []string  `json:"scopes,omitempty"`
	State               string    `json:"state,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	ExpiresAt           time.Time `json:"expires_at"`
	CreatedAt           time.Time `json:"created_at"`
}

func (rec twoFactorSessionRecord) session(token string) domain.TwoFactorSession {
	return domain.TwoFactorSession{
		Token:               token,
		UserID:              rec.UserID,
		ClientID:            rec.ClientID,
		RedirectURI:         rec.RedirectURI,
		Scopes:              rec.Scopes,
		State:               rec.State,
		CodeChallenge:       rec.CodeChallenge,
		CodeChallengeMethod: rec.CodeChallengeMethod,
		ExpiresAt:           rec.ExpiresAt,
		CreatedAt:           rec.CreatedAt,
	}
}

type twoFactorSessionsRepo struct{ s *Store }

func (r *twoFactorSessionsRepo) PutTwoFactorSession(ctx context.Context, s domain.TwoFactorSession) error {
	return r.s.put(ctx, r.s.key(kindTwoFactorSession, s.Token), twoFactorSessionRecord{
		UserID:              s.UserID,
		ClientID:            s.ClientID,
		RedirectURI:         s.RedirectURI,
		Scopes:              s.Scopes,
		State:               s.State,
		CodeChallenge:       s.CodeChallenge,
		CodeChallengeMethod: s.CodeChallengeMethod,
		ExpiresAt:           s.ExpiresAt,
		CreatedAt:           s.CreatedAt,
	}, s.ExpiresAt)
}

func (r *twoFactorSessionsRepo) GetTwoFactorSession(ctx context.Context, token string) (domain.TwoFactorSession, error) {
	var rec twoFactorSessionRecord
	key := r.s.key(kindTwoFactorSession, token)
	if err := r.s.get(ctx, key, &rec); err != nil {
		return domain.TwoFactorSession{}, err
	}
	out := rec.session(token)
	if out.Expired(r.s.now()) {
		_ = r.s.del(ctx, key)
		return domain.TwoFactorSession{}, store.ErrNotFound
	}
	return out, nil
}

func (r *twoFactorSessionsRepo) TakeTwoFactorSession(ctx context.Context, token string) (domain.TwoFactorSession, error) {
	var rec twoFactorSessionRecord
	if err := r.s.getdel(ctx, r.s.key(kindTwoFactorSession, token), &rec); err != nil {
		return domain.TwoFactorSession{}, err
	}
	out := rec.session(token)
	if out.Expired(r.s.now()) {
		return domain.TwoFactorSession{}, store.ErrNotFound
	}
	return out, nil
}

func (r *twoFactorSessionsRepo) RevokeTwoFactorSession(ctx context.Context, token string) error {
	return r.s.del(ctx, r.s.key(kindTwoFactorSession, token))
}

func (r *twoFactorSessionsRepo) DeleteExpiredTwoFactorSessions(context.Context) (int64, error) {
	return 0, nil
}
