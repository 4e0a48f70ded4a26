package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

// ErrNotFound is returned for keys that are absent, expired or already
// consumed. Callers cannot tell these apart.
var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (memory, sqlite,
// redis) implement it and expose one sub-repository per kind of grant.
//
// Every Take/Consume operation is atomic: of two concurrent callers
// redeeming the same key, at most one succeeds. Expiry is checked on read, so
// a background sweep is never needed for correctness.
type Store interface {
	AuthorizationCodes() AuthorizationCodes
	RefreshTokens() RefreshTokens
	TwoFactorSessions() TwoFactorSessions
	OneTimeCodes() OneTimeCodes

	// Driver names the backing implementation, for logs and readiness.
	Driver() string

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

type AuthorizationCodes interface {
	// PutAuthorizationCode stores a new code, keyed by its Code field.
	PutAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error

	// TakeAuthorizationCode atomically removes and returns the code. Expired
	// codes are removed and reported as ErrNotFound.
	TakeAuthorizationCode(ctx context.Context, code string) (domain.AuthorizationCode, error)

	// RevokeAuthorizationCode deletes the code. Unknown codes are not an error.
	RevokeAuthorizationCode(ctx context.Context, code string) error

	// DeleteExpiredAuthorizationCodes reclaims expired codes and reports how
	// many were removed.
	DeleteExpiredAuthorizationCodes(ctx context.Context) (int64, error)
}

type RefreshTokens interface {
	PutRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// TakeRefreshToken atomically removes and returns the token.
	TakeRefreshToken(ctx context.Context, token string) (domain.RefreshToken, error)

	RevokeRefreshToken(ctx context.Context, token string) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}

type TwoFactorSessions interface {
	PutTwoFactorSession(ctx context.Context, s domain.TwoFactorSession) error

	// GetTwoFactorSession reads a session without consuming it. Sessions
	// survive wrong codes and are only consumed by TakeTwoFactorSession.
	GetTwoFactorSession(ctx context.Context, token string) (domain.TwoFactorSession, error)

	// TakeTwoFactorSession atomically removes and returns the session.
	TakeTwoFactorSession(ctx context.Context, token string) (domain.TwoFactorSession, error)

	RevokeTwoFactorSession(ctx context.Context, token string) error
	DeleteExpiredTwoFactorSessions(ctx context.Context) (int64, error)
}

// OneTimeCodes is the phone number keyed cache of out-of-band codes.
type OneTimeCodes interface {
	// PutOneTimeCode stores a code, replacing any earlier code for the same
	// phone number.
	PutOneTimeCode(ctx context.Context, c domain.OneTimeCode) error

	// ConsumeOneTimeCode reports whether code matches the live code for
	// phone. A match removes the code. A mismatch leaves it in place until it
	// expires.
	ConsumeOneTimeCode(ctx context.Context, phone, code string) (bool, error)

	RevokeOneTimeCode(ctx context.Context, phone string) error
	DeleteExpiredOneTimeCodes(ctx context.Context) (int64, error)
}
