// Package memory is an in-process store driver. State is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	gocache "github.com/patrickmn/go-cache"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	now func() time.Time

	codes    *authorizationCodesRepo
	tokens   *refreshTokensRepo
	sessions *twoFactorSessionsRepo
	otps     *oneTimeCodesRepo
}

func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	s.codes = &authorizationCodesRepo{now: s.clock, items: map[string]domain.AuthorizationCode{}}
	s.tokens = &refreshTokensRepo{now: s.clock, items: map[string]domain.RefreshToken{}}
	s.sessions = &twoFactorSessionsRepo{now: s.clock, items: map[string]domain.TwoFactorSession{}}
	s.otps = &oneTimeCodesRepo{
		now: s.clock,
		// Entries carry their own deadline, the cache janitor only reclaims memory.
		cache: gocache.New(gocache.NoExpiration, time.Minute),
	}
	return s
}

func (s *Store) clock() time.Time { return s.now() }

func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return s.codes }
func (s *Store) RefreshTokens() store.RefreshTokens           { return s.tokens }
func (s *Store) TwoFactorSessions() store.TwoFactorSessions   { return s.sessions }
func (s *Store) OneTimeCodes() store.OneTimeCodes             { return s.otps }

func (s *Store) Driver() string                 { return "memory" }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type authorizationCodesRepo struct {
	now   func() time.Time
	mu    sync.Mutex
	items map[string]domain.AuthorizationCode
}

func (r *authorizationCodesRepo) PutAuthorizationCode(_ context.Context, c domain.AuthorizationCode) error {
	c.Scopes = cloneStrings(c.Scopes)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.Code] = c
	return nil
}

func (r *authorizationCodesRepo) TakeAuthorizationCode(_ context.Context, code string) (domain.AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[code]
	if !ok {
		return domain.AuthorizationCode{}, store.ErrNotFound
	}
	delete(r.items, code)
	if c.Expired(r.now()) {
		return domain.AuthorizationCode{}, store.ErrNotFound
	}
	return c, nil
}

func (r *authorizationCodesRepo) RevokeAuthorizationCode(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, code)
	return nil
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sweep(r.items, r.now(), domain.AuthorizationCode.Expired), nil
}

type refreshTokensRepo struct {
	now   func() time.Time
	mu    sync.Mutex
	items map[string]domain.RefreshToken
}

func (r *refreshTokensRepo) PutRefreshToken(_ context.Context, t domain.RefreshToken) error {
	t.Scopes = cloneStrings(t.Scopes)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.Token] = t
	return nil
}

func (r *refreshTokensRepo) TakeRefreshToken(_ context.Context, token string) (domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[token]
	if !ok {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	delete(r.items, token)
	if t.Expired(r.now()) {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, token)
	return nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sweep(r.items, r.now(), domain.RefreshToken.Expired), nil
}

type twoFactorSessionsRepo struct {
	now   func() time.Time
	mu    sync.Mutex
	items map[string]domain.TwoFactorSession
}

func (r *twoFactorSessionsRepo) PutTwoFactorSession(_ context.Context, s domain.TwoFactorSession) error {
	s.Scopes = cloneStrings(s.Scopes)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.Token] = s
	return nil
}

func (r *twoFactorSessionsRepo) GetTwoFactorSession(_ context.Context, token string) (domain.TwoFactorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[token]
	if !ok {
		return domain.TwoFactorSession{}, store.ErrNotFound
	}
	if s.Expired(r.now()) {
		delete(r.items, token)
		return domain.TwoFactorSession{}, store.ErrNotFound
	}
	s.Scopes = cloneStrings(s.Scopes)
	return s, nil
}

func (r *twoFactorSessionsRepo) TakeTwoFactorSession(_ context.Context, token string) (domain.TwoFactorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[token]
	if !ok {
		return domain.TwoFactorSession{}, store.ErrNotFound
	}
	delete(r.items, token)
	if s.Expired(r.now()) {
		return domain.TwoFactorSession{}, store.ErrNotFound
	}
	return s, nil
}

func (r *twoFactorSessionsRepo) RevokeTwoFactorSession(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, token)
	return nil
}

func (r *twoFactorSessionsRepo) DeleteExpiredTwoFactorSessions(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sweep(r.items, r.now(), domain.TwoFactorSession.Expired), nil
}

// oneTimeCodesRepo keeps codes in a go-cache keyed by phone number. The cache
// is safe for concurrent use on its own, the mutex makes compare-and-delete
// atomic.
type oneTimeCodesRepo struct {
	now   func() time.Time
	mu    sync.Mutex
	cache *gocache.Cache
}

func (r *oneTimeCodesRepo) PutOneTimeCode(_ context.Context, c domain.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ttl := c.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		r.cache.Delete(c.PhoneNumber)
		return nil
	}
	r.cache.Set(c.PhoneNumber, c, ttl)
	return nil
}

func (r *oneTimeCodesRepo) ConsumeOneTimeCode(_ context.Context, phone, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.cache.Get(phone)
	if !ok {
		return false, nil
	}
	stored := v.(domain.OneTimeCode)
	if stored.Expired(r.now()) {
		r.cache.Delete(phone)
		return false, nil
	}
	if !stored.Matches(code) {
		return false, nil
	}
	r.cache.Delete(phone)
	return true, nil
}

func (r *oneTimeCodesRepo) RevokeOneTimeCode(_ context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(phone)
	return nil
}

func (r *oneTimeCodesRepo) DeleteExpiredOneTimeCodes(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var n int64
	for phone, item := range r.cache.Items() {
		if c, ok := item.Object.(domain.OneTimeCode); ok && c.Expired(now) {
			r.cache.Delete(phone)
			n++
		}
	}
	r.cache.DeleteExpired()
	return n, nil
}

func sweep[T any](items map[string]T, now time.Time, expired func(T, time.Time) bool) int64 {
	var n int64
	for k, v := range items {
		if expired(v, now) {
			delete(items, k)
			n++
		}
	}
	return n
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
