package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	httpapi "github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/http"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/service"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store/drivers/sqlite"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store/seq"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/cryptox"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/idx"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/qrtoken"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the attendance service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	redisClient *redis.Client

	// Services
	relay               *service.Relay
	rotationService     *service.RotationService
	aggregator          *service.Aggregator
	credentialService   *service.CredentialService
	sessionService      *service.SessionService
	verifyService       *service.VerifyService
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
			Service: "attend-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	ctx := context.Background()
	if err := app.sessionService.ExpireOrphans(ctx); err != nil {
		return nil, fmt.Errorf("failed to expire orphaned sessions: %w", err)
	}
	if err := app.bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("failed to bootstrap: %w", err)
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("attend service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down attend service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// Sessions still rotating will be expired by orphan cleanup on the
	// next boot.
	app.rotationService.StopAll()

	if err := app.relay.Close(); err != nil {
		app.logger.Error("error closing relay", "error", err)
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("attend service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	tokenSecret, err := app.secret(app.cfg.TokenSecret, "ATTEND_TOKEN_SECRET")
	if err != nil {
		return err
	}
	jwtSecret, err := app.secret(app.cfg.JWTSecret, "ATTEND_JWT_SECRET")
	if err != nil {
		return err
	}

	var seqStore seq.Store
	if app.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		app.redisClient = redis.NewClient(opts)
		seqStore = seq.NewRedisStore(app.redisClient)
		app.logger.Info("using redis sequence counters")
	} else {
		seqStore = seq.NewMemoryStore()
	}

	codec := qrtoken.NewCodec(tokenSecret).
		WithWindows(app.cfg.RotationInterval, app.cfg.GracePeriod)

	app.relay = service.NewRelay(app.logger)
	app.aggregator = service.NewAggregator()
	app.rotationService = service.NewRotationService(
		app.db, seqStore, codec, app.relay, app.logger, app.cfg.RotationInterval)

	app.credentialService = &service.CredentialService{
		Store:  app.db,
		Secret: jwtSecret,
		TTL:    app.cfg.BearerTTL,
	}

	app.sessionService = &service.SessionService{
		Store:      app.db,
		Rotation:   app.rotationService,
		Relay:      app.relay,
		Aggregator: app.aggregator,
		Logger:     app.logger,
	}

	app.verifyService = &service.VerifyService{
		Store:    app.db,
		Codec:    codec,
		Rotation: app.rotationService,
		Scorer: service.NewScorer(service.ScoringConfig{
			TokenWeight:    app.cfg.WeightToken,
			RadioWeight:    app.cfg.WeightRadio,
			NetworkWeight:  app.cfg.WeightNetwork,
			PositionWeight: app.cfg.WeightPosition,
			Threshold:      app.cfg.ScoreThreshold,
			RSSIFloor:      app.cfg.RSSIFloor,
			MinBeaconHits:  app.cfg.MinBeaconHits,
		}),
		Aggregator: app.aggregator,
		Relay:      app.relay,
		Logger:     app.logger,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.rotationService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.credentialService,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.CredentialService = app.credentialService
	router.SessionService = app.sessionService
	router.VerifyService = app.verifyService
	router.Relay = app.relay
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// bootstrap seeds a host account into an empty database so the first
// deployment can log in.
func (app *Application) bootstrap(ctx context.Context) error {
	if app.cfg.BootstrapUsername == "" || app.cfg.BootstrapPassword == "" {
		return nil
	}

	empty, err := app.db.Accounts().IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashPassword(app.cfg.BootstrapPassword)
	if err != nil {
		return err
	}
	err = app.db.Accounts().CreateAccount(ctx, domain.Account{
		ID:           idx.New().String(),
		Username:     app.cfg.BootstrapUsername,
		PasswordHash: hash,
		Role:         domain.RoleHost,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return err
	}

	app.logger.Info("bootstrap host account created", "username", app.cfg.BootstrapUsername)
	return nil
}

// secret returns the configured secret, or generates an ephemeral one with
// a loud warning. Ephemeral secrets invalidate all outstanding tokens on
// restart and cannot be shared across nodes.
func (app *Application) secret(configured, name string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral secret: %w", err)
	}
	app.logger.Warn("no secret configured, generated an ephemeral one", "env_var", name)
	return []byte(base64.RawStdEncoding.EncodeToString(buf)), nil
}
