package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

type authorizationCodesRepo struct {
	db  *sql.DB
	now func() time.Time
}

const insertAuthorizationCode = `
INSERT INTO authorization_codes (
    code_hash, client_id, user_id, redirect_uri, scopes,
    code_challenge, code_challenge_method, expires_at, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const takeAuthorizationCode = `
DELETE FROM authorization_codes WHERE code_hash = ?
RETURNING client_id, user_id, redirect_uri, scopes,
          code_challenge, code_challenge_method, expires_at, created_at`

func (r *authorizationCodesRepo) PutAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, insertAuthorizationCode,
		fingerprint(c.Code),
		c.ClientID,
		c.UserID,
		c.RedirectURI,
		joinScopes(c.Scopes),
		c.CodeChallenge,
		c.CodeChallengeMethod,
		toMillis(c.ExpiresAt),
		toMillis(c.CreatedAt),
	)
	return err
}

func (r *authorizationCodesRepo) TakeAuthorizationCode(ctx context.Context, code string) (domain.AuthorizationCode, error) {
	var (
		scopes               string
		expiresAt, createdAt int64
	)
	out := domain.AuthorizationCode{Code: code}
	err := r.db.QueryRowContext(ctx, takeAuthorizationCode, fingerprint(code)).Scan(
		&out.ClientID,
		&out.UserID,
		&out.RedirectURI,
		&scopes,
		&out.CodeChallenge,
		&out.CodeChallengeMethod,
		&expiresAt,
		&createdAt,
	)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	out.Scopes = splitAndFilter(scopes)
	out.ExpiresAt = fromMillis(expiresAt)
	out.CreatedAt = fromMillis(createdAt)
	if out.Expired(r.now()) {
		return domain.AuthorizationCode{}, store.ErrNotFound
	}
	return out, nil
}

func (r *authorizationCodesRepo) RevokeAuthorizationCode(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM authorization_codes WHERE code_hash = ?`, fingerprint(code))
	return err
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM authorization_codes WHERE expires_at <= ?`, toMillis(r.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
