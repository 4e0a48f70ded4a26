package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

type refreshTokensRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *refreshTokensRepo) PutRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO refresh_tokens (token_hash, client_id, user_id, scopes, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		fingerprint(t.Token),
		t.ClientID,
		t.UserID,
		joinScopes(t.Scopes),
		toMillis(t.ExpiresAt),
		toMillis(t.CreatedAt),
	)
	return err
}

func (r *refreshTokensRepo) TakeRefreshToken(ctx context.Context, token string) (domain.RefreshToken, error) {
	var (
		scopes               string
		expiresAt, createdAt int64
	)
	out := domain.RefreshToken{Token: token}
	err := r.db.QueryRowContext(ctx, `
DELETE FROM refresh_tokens WHERE token_hash = ?
RETURNING client_id, user_id, scopes, expires_at, created_at`,
		fingerprint(token),
	).Scan(&out.ClientID, &out.UserID, &scopes, &expiresAt, &createdAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	out.Scopes = splitAndFilter(scopes)
	out.ExpiresAt = fromMillis(expiresAt)
	out.CreatedAt = fromMillis(createdAt)
	if out.Expired(r.now()) {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return out, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, fingerprint(token))
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, toMillis(r.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
