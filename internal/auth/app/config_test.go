package app

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "dev")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, "/login", cfg.LoginURL)
	require.Equal(t, "tollgate:", cfg.RedisPrefix)
	require.Zero(t, cfg.StrictLimit.Requests)
	require.Equal(t, 1.0, cfg.TraceSampleRatio)
	require.Empty(t, cfg.OTLPEndpoint)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("AUTH_SIGNING_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_SMS_SERVICE_URL", "http://sms.internal")
	t.Setenv("AUTH_OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("AUTH_OTEL_SAMPLE_RATIO", "0.25")
	t.Setenv("AUTH_STORE_DRIVER", "redis")
	t.Setenv("AUTH_REDIS_DB", "3")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "5")
	t.Setenv("RATELIMIT_STRICT_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverRedis, cfg.StoreDriver)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, "http://collector:4318", cfg.OTLPEndpoint)
	require.Equal(t, 0.25, cfg.TraceSampleRatio)
	require.Equal(t, RateLimit{Requests: 5, Window: 30 * time.Second}, cfg.StrictLimit)
}

func TestConfigValidate(t *testing.T) {
	base := Config{Env: "dev", StoreDriver: DriverMemory, Issuer: "i", Audience: "a"}

	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr bool
	}{
		{"dev without secret", func(*Config) {}, false},
		{"prod without secret", func(c *Config) {
			c.Env = "prod"
			c.SMSServiceURL = "http://sms"
		}, true},
		{"prod without sms service", func(c *Config) {
			c.Env = "prod"
			c.SigningSecret = "0123456789abcdef0123456789abcdef"
		}, true},
		{"prod fully configured", func(c *Config) {
			c.Env = "prod"
			c.SigningSecret = "0123456789abcdef0123456789abcdef"
			c.SMSServiceURL = "http://sms"
		}, false},
		{"sample ratio above one", func(c *Config) { c.TraceSampleRatio = 1.5 }, true},
		{"short secret", func(c *Config) { c.SigningSecret = "short" }, true},
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }, true},
		{"empty audience", func(c *Config) { c.Audience = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.edit(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestApplyRateLimits(t *testing.T) {
	strict, lenient := httpx.StrictLimit, httpx.LenientLimit
	t.Cleanup(func() { httpx.StrictLimit, httpx.LenientLimit = strict, lenient })

	applyRateLimits(Config{StrictLimit: RateLimit{Requests: 3, Burst: 1}})

	require.Equal(t, 3, httpx.StrictLimit.RequestsPerWindow)
	require.Equal(t, 1, httpx.StrictLimit.Burst)
	require.Equal(t, strict.Window, httpx.StrictLimit.Window)
	require.Equal(t, lenient, httpx.LenientLimit)
}
