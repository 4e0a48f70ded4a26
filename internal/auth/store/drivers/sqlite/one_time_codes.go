package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type oneTimeCodesRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *oneTimeCodesRepo) PutOneTimeCode(ctx context.Context, c domain.OneTimeCode) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO one_time_codes (phone_number, code_hash, expires_at) VALUES (?, ?, ?)
ON CONFLICT (phone_number) DO UPDATE SET
    code_hash  = excluded.code_hash,
    expires_at = excluded.expires_at`,
		c.PhoneNumber,
		fingerprint(c.Code),
		toMillis(c.ExpiresAt),
	)
	return err
}

// ConsumeOneTimeCode deletes the row only when phone, code and expiry all
// match, so the comparison and removal happen in one statement.
func (r *oneTimeCodesRepo) ConsumeOneTimeCode(ctx context.Context, phone, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	now := toMillis(r.now())

	var matched string
	err := r.db.QueryRowContext(ctx, `
DELETE FROM one_time_codes
WHERE phone_number = ? AND code_hash = ? AND expires_at > ?
RETURNING phone_number`,
		phone, fingerprint(code), now,
	).Scan(&matched)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, err
	}

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM one_time_codes WHERE phone_number = ? AND expires_at <= ?`,
		phone, now,
	)
	return false, err
}

func (r *oneTimeCodesRepo) RevokeOneTimeCode(ctx context.Context, phone string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE phone_number = ?`, phone)
	return err
}

func (r *oneTimeCodesRepo) DeleteExpiredOneTimeCodes(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE expires_at <= ?`, toMillis(r.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
