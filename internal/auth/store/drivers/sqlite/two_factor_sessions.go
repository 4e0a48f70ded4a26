package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

type twoFactorSessionsRepo struct {
	db  *sql.DB
	now func() time.Time
}

const twoFactorSessionColumns = `user_id, client_id, redirect_uri, scopes, state,
    code_challenge, code_challenge_method, expires_at, created_at`

func (r *twoFactorSessionsRepo) PutTwoFactorSession(ctx context.Context, s domain.TwoFactorSession) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO two_factor_sessions (token_hash, `+twoFactorSessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fingerprint(s.Token),
		s.UserID,
		s.ClientID,
		s.RedirectURI,
		joinScopes(s.Scopes),
		s.State,
		s.CodeChallenge,
		s.CodeChallengeMethod,
		toMillis(s.ExpiresAt),
		toMillis(s.CreatedAt),
	)
	return err
}

func (r *twoFactorSessionsRepo) GetTwoFactorSession(ctx context.Context, token string) (domain.TwoFactorSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+twoFactorSessionColumns+` FROM two_factor_sessions WHERE token_hash = ?`,
		fingerprint(token),
	)
	s, err := scanTwoFactorSession(row, token)
	if err != nil {
		return domain.TwoFactorSession{}, err
	}
	if s.Expired(r.now()) {
		_ = r.RevokeTwoFactorSession(ctx, token)
		return domain.TwoFactorSession{}, store.ErrNotFound
	}
	return s, nil
}

func (r *twoFactorSessionsRepo) TakeTwoFactorSession(ctx context.Context, token string) (domain.TwoFactorSession, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM two_factor_sessions WHERE token_hash = ? RETURNING `+twoFactorSessionColumns,
		fingerprint(token),
	)
	s, err := scanTwoFactorSession(row, token)
	if err != nil {
		return domain.TwoFactorSession{}, err
	}
	if s.Expired(r.now()) {
		return domain.TwoFactorSession{}, store.ErrNotFound
	}
	return s, nil
}

func (r *twoFactorSessionsRepo) RevokeTwoFactorSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_sessions WHERE token_hash = ?`, fingerprint(token))
	return err
}

func (r *twoFactorSessionsRepo) DeleteExpiredTwoFactorSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_sessions WHERE expires_at <= ?`, toMillis(r.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanTwoFactorSession(row *sql.Row, token string) (domain.TwoFactorSession, error) {
	var (
		scopes               string
		expiresAt, createdAt int64
	)
	s := domain.TwoFactorSession{Token: token}
	err := row.Scan(
		&s.UserID,
		&s.ClientID,
		&s.RedirectURI,
		&scopes,
		&s.State,
		&s.CodeChallenge,
		&s.CodeChallengeMethod,
		&expiresAt,
		&createdAt,
	)
	if err != nil {
		return domain.TwoFactorSession{}, mapNotFound(err)
	}
	s.Scopes = splitAndFilter(scopes)
	s.ExpiresAt = fromMillis(expiresAt)
	s.CreatedAt = fromMillis(createdAt)
	return s, nil
}
