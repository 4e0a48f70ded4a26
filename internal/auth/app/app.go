package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/tollgate/internal/auth/http"
	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/registry"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/internal/auth/upstream"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	rdb "github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	registry *registry.Registry
	users    upstream.UserDirectory
	sms      upstream.SmsGateway
	issuer   *jwtx.Issuer
	verifier *jwtx.HS256Verifier
	metrics  *metrics.Recorder
	tracing  *sdktrace.TracerProvider
	tracer   trace.Tracer

	// Services
	twoFactorService    *service.TwoFactorService
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tollgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	applyRateLimits(cfg)

	if err := app.initTracing(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		app.closeTracing()
		return nil, err
	}
	if err := app.initUpstreams(); err != nil {
		_ = app.db.Close()
		app.closeTracing()
		return nil, err
	}
	if err := app.initTokens(); err != nil {
		_ = app.db.Close()
		app.closeTracing()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until ctx is cancelled, a shutdown
// signal arrives or the server fails.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("auth service starting",
			"port", app.cfg.Port,
			"version", BuildVersion,
			"store", app.db.Driver(),
		)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		app.housekeepingService.Start()
		<-ctx.Done()
		app.logger.Info("shutdown requested", "cause", context.Cause(ctx))
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.tracing.Shutdown(ctx); err != nil {
		app.logger.Error("error flushing traces", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the configured router, mostly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// initTracing builds the tracer provider shared by the services and the
// upstream clients.
func (app *Application) initTracing() error {
	tp, err := newTracerProvider(context.Background(), app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.tracing = tp
	app.tracer = tp.Tracer(tracerName)
	if app.cfg.OTLPEndpoint != "" {
		app.logger.Info("exporting traces", "endpoint", app.cfg.OTLPEndpoint, "sample_ratio", app.cfg.TraceSampleRatio)
	}
	return nil
}

func (app *Application) closeTracing() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = app.tracing.Shutdown(ctx)
}

// initDatabase opens the configured store driver
func (app *Application) initDatabase() error {
	switch app.cfg.StoreDriver {
	case DriverSQLite:
		db, err := sqlite.NewStore("file:" + app.cfg.DatabaseFile)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
		app.db = db

	case DriverRedis:
		client := rdb.NewClient(&rdb.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		app.db = redis.NewStore(client, redis.WithKeyPrefix(app.cfg.RedisPrefix))
		app.logger.Info("using redis store", "addr", app.cfg.RedisAddr, "db", app.cfg.RedisDB)

	default:
		app.db = memory.NewStore()
		app.logger.Warn("using in-memory store, grants are lost on restart")
	}
	return nil
}

// initUpstreams loads the client registry and picks the user directory and
// SMS gateway.
func (app *Application) initUpstreams() error {
	reg, err := registry.Load(app.cfg.ClientsFile)
	if err != nil {
		return fmt.Errorf("failed to load client registry: %w", err)
	}
	app.registry = reg
	app.logger.Info("client registry loaded", "clients", len(reg.IDs()))

	if app.cfg.UserServiceURL != "" {
		app.users = upstream.NewHTTPDirectory(app.cfg.UserServiceURL, app.cfg.UpstreamTimeout, upstream.WithTracer(app.tracer))
		app.logger.Info("using user service", "url", app.cfg.UserServiceURL)
	} else {
		users, err := upstream.LoadStaticDirectory(app.cfg.UsersFile)
		if err != nil {
			return fmt.Errorf("failed to load user directory: %w", err)
		}
		app.users = users
		app.logger.Info("using static user directory", "file", app.cfg.UsersFile, "users", users.Len())
	}

	if app.cfg.SMSServiceURL != "" {
		app.sms = upstream.NewHTTPGateway(app.cfg.SMSServiceURL, app.cfg.UpstreamTimeout, upstream.WithTracer(app.tracer))
		app.logger.Info("using sms service", "url", app.cfg.SMSServiceURL)
	} else {
		app.sms = &upstream.LogGateway{Logger: app.logger, Reveal: app.cfg.IsDev()}
		if app.cfg.IsDev() {
			app.logger.Warn("no sms service configured, verification codes are logged")
		} else {
			app.logger.Warn("no sms service configured, two-factor logins will fail")
		}
	}
	return nil
}

// initTokens builds the HS256 signer and verifier. Outside dev the secret is
// mandatory; in dev a random one is generated, so tokens die with the process.
func (app *Application) initTokens() error {
	secret := []byte(app.cfg.SigningSecret)
	if len(secret) == 0 {
		secret = make([]byte, minSecretLen)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate signing secret: %w", err)
		}
		app.logger.Warn("AUTH_SIGNING_SECRET not set, using a random secret")
	}

	signer, err := jwtx.NewSignerHS256(secret)
	if err != nil {
		return fmt.Errorf("failed to initialize signer: %w", err)
	}
	app.issuer = jwtx.NewIssuer(signer, app.cfg.Issuer, app.cfg.Audience, jwtx.DefaultAccessTokenTTL)
	app.verifier = jwtx.NewVerifierHS256(secret, app.cfg.Issuer, []string{app.cfg.Audience})
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.twoFactorService = &service.TwoFactorService{
		Store:      app.db,
		SMS:        app.sms,
		SessionTTL: service.DefaultTwoFactorSessionTTL,
		CodeTTL:    service.DefaultOneTimeCodeTTL,
		Metrics:    app.metrics,
		Tracer:     app.tracer,
	}

	app.authorizeService = &service.AuthorizeService{
		Registry:  app.registry,
		Users:     app.users,
		Store:     app.db,
		TwoFactor: app.twoFactorService,
		LoginURL:  app.cfg.LoginURL,
		CodeTTL:   service.DefaultCodeTTL,
		Metrics:   app.metrics,
		Tracer:    app.tracer,
	}

	app.tokenService = &service.TokenService{
		Registry:   app.registry,
		Users:      app.users,
		Store:      app.db,
		Issuer:     app.issuer,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
		Metrics:    app.metrics,
		Tracer:     app.tracer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Metrics = app.metrics
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		app.registry,
		BuildVersion,
		app.db,
		app.metrics,
		app.logger,
	)

	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// applyRateLimits overrides the httpx profiles with any configured values.
func applyRateLimits(cfg Config) {
	override := func(dst *httpx.RateLimitConfig, src RateLimit) {
		if src.Requests > 0 {
			dst.RequestsPerWindow = src.Requests
		}
		if src.Window > 0 {
			dst.Window = src.Window
		}
		if src.Burst > 0 {
			dst.Burst = src.Burst
		}
	}
	override(&httpx.StrictLimit, cfg.StrictLimit)
	override(&httpx.LenientLimit, cfg.LenientLimit)
}
