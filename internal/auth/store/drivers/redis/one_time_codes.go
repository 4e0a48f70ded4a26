package redis

import (
	"context"
	"strconv"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	rdb "github.com/redis/go-redis/v9"
)

// One-time codes live in a hash of {code, exp} keyed by phone number.
// consumeScript deletes the hash only on a live match. Expired entries are
// deleted on sight.
var consumeScript = rdb.NewScript(`
local fields = redis.call('HMGET', KEYS[1], 'code', 'exp')
if not fields[1] then
  return 0
end
if tonumber(fields[2]) <= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return 0
end
if fields[1] ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

type oneTimeCodesRepo struct{ s *Store }

func (r *oneTimeCodesRepo) key(phone string) string {
	return r.s.prefix + kindOneTimeCode + ":" + phone
}

func (r *oneTimeCodesRepo) PutOneTimeCode(ctx context.Context, c domain.OneTimeCode) error {
	key := r.key(c.PhoneNumber)
	_, err := r.s.client.TxPipelined(ctx, func(p rdb.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			"code", cryptox.FingerprintToken(c.Code),
			"exp", strconv.FormatInt(c.ExpiresAt.UnixMilli(), 10),
		)
		p.PExpire(ctx, key, r.s.ttl(c.ExpiresAt))
		return nil
	})
	return err
}

func (r *oneTimeCodesRepo) ConsumeOneTimeCode(ctx context.Context, phone, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	n, err := consumeScript.Run(ctx, r.s.client,
		[]string{r.key(phone)},
		cryptox.FingerprintToken(code),
		r.s.now().UnixMilli(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *oneTimeCodesRepo) RevokeOneTimeCode(ctx context.Context, phone string) error {
	return r.s.del(ctx, r.key(phone))
}

func (r *oneTimeCodesRepo) DeleteExpiredOneTimeCodes(context.Context) (int64, error) {
	return 0, nil
}
