package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// minSecretLen is the shortest accepted HS256 signing secret, in bytes.
const minSecretLen = 32

type Config struct {
	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"5m"`

	Issuer        string `env:"AUTH_ISSUER" envDefault:"tollgate"`
	Audience      string `env:"AUTH_AUDIENCE" envDefault:"tollgate-api"`
	SigningSecret string `env:"AUTH_SIGNING_SECRET"`

	ClientsFile string `env:"AUTH_CLIENTS_FILE" envDefault:"config/clients.yaml"`
	UsersFile   string `env:"AUTH_USERS_FILE" envDefault:"config/users.yaml"`

	LoginURL        string        `env:"AUTH_LOGIN_URL" envDefault:"/login"`
	UserServiceURL  string        `env:"AUTH_USER_SERVICE_URL"`
	SMSServiceURL   string        `env:"AUTH_SMS_SERVICE_URL"`
	UpstreamTimeout time.Duration `env:"AUTH_UPSTREAM_TIMEOUT" envDefault:"5s"`

	StoreDriver   string `env:"AUTH_STORE_DRIVER" envDefault:"memory"`
	DatabaseFile  string `env:"AUTH_DATABASE_FILE" envDefault:"tollgate.db"`
	RedisAddr     string `env:"AUTH_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"AUTH_REDIS_PASSWORD"`
	RedisDB       int    `env:"AUTH_REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"AUTH_REDIS_PREFIX" envDefault:"tollgate:"`

	OTLPEndpoint     string  `env:"AUTH_OTEL_ENDPOINT"`
	TraceSampleRatio float64 `env:"AUTH_OTEL_SAMPLE_RATIO" envDefault:"1"`

	StrictLimit  RateLimit `envPrefix:"RATELIMIT_STRICT_"`
	LenientLimit RateLimit `envPrefix:"RATELIMIT_LENIENT_"`
}

// RateLimit overrides one of the httpx rate limit profiles. Zero values keep
// the built-in default.
type RateLimit struct {
	Requests int           `env:"REQUESTS"`
	Window   time.Duration `env:"WINDOW"`
	Burst    int           `env:"BURST"`
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have no safe default.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverRedis:
	default:
		return fmt.Errorf("unknown AUTH_STORE_DRIVER %q", c.StoreDriver)
	}

	if c.SigningSecret == "" && !c.IsDev() {
		return errors.New("AUTH_SIGNING_SECRET is required outside dev")
	}
	if c.SMSServiceURL == "" && !c.IsDev() {
		return errors.New("AUTH_SMS_SERVICE_URL is required outside dev")
	}
	if c.SigningSecret != "" && len(c.SigningSecret) < minSecretLen {
		return fmt.Errorf("AUTH_SIGNING_SECRET must be at least %d bytes", minSecretLen)
	}
	if c.Issuer == "" || c.Audience == "" {
		return errors.New("AUTH_ISSUER and AUTH_AUDIENCE must not be empty")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("AUTH_OTEL_SAMPLE_RATIO must be between 0 and 1, got %v", c.TraceSampleRatio)
	}
	return nil
}

func (c Config) IsDev() bool { return c.Env == "dev" }
