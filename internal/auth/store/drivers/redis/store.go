// Package redis stores grants in Redis so several instances can share them.
// Keys expire natively. Reads still check the recorded deadline because Redis
// TTLs are floored to a second for already expired entries.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	rdb "github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "tollgate:"
	minTTL           = time.Second
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKeyPrefix namespaces every key written by the store.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

type Store struct {
	client rdb.UniversalClient
	prefix string
	now    func() time.Time
}

// Open parses a redis:// URL and connects.
func Open(url string, opts ...Option) (*Store, error) {
	o, err := rdb.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewStore(rdb.NewClient(o), opts...), nil
}

func NewStore(client rdb.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Driver() string { return "redis" }

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{s} }
func (s *Store) RefreshTokens() store.RefreshTokens           { return &refreshTokensRepo{s} }
func (s *Store) TwoFactorSessions() store.TwoFactorSessions   { return &twoFactorSessionsRepo{s} }
func (s *Store) OneTimeCodes() store.OneTimeCodes             { return &oneTimeCodesRepo{s} }

func (s *Store) key(kind, id string) string {
	return s.prefix + kind + ":" + cryptox.FingerprintToken(id)
}

func (s *Store) ttl(expiresAt time.Time) time.Duration {
	return max(expiresAt.Sub(s.now()), minTTL)
}

func (s *Store) put(ctx context.Context, key string, v any, expiresAt time.Time) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, s.ttl(expiresAt)).Err()
}

func (s *Store) getdel(ctx context.Context, key string, v any) error {
	return decode(s.client.GetDel(ctx, key).Bytes())(v)
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	return decode(s.client.Get(ctx, key).Bytes())(v)
}

func (s *Store) del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func decode(b []byte, err error) func(any) error {
	return func(v any) error {
		if errors.Is(err, rdb.Nil) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(b, v)
	}
}
