package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/storetest"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway Redis container and returns its address.
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("redis driver tests need docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}

func TestConformance(t *testing.T) {
	addr := startRedis(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		// Each subtest gets its own key space on the shared container.
		client := rdb.NewClient(&rdb.Options{Addr: addr})
		s := redis.NewStore(client, redis.WithKeyPrefix("test:"+idx.New().String()+":"))
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestKeysExpireInRedis(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	client := rdb.NewClient(&rdb.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	s := redis.NewStore(client, redis.WithKeyPrefix("ttl:"))

	require.NoError(t, s.RefreshTokens().PutRefreshToken(ctx, domain.RefreshToken{
		Token:     "tok",
		ClientID:  "demo-web-app",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	keys, err := client.Keys(ctx, "ttl:refresh:*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.NotContains(t, keys[0], "tok")

	ttl, err := client.TTL(ctx, keys[0]).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 59*time.Minute)
	require.LessOrEqual(t, ttl, time.Hour)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := redis.Open("not-a-url")
	require.Error(t, err)
}
