package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	httpapi "github.com/leafmarks/leafmarks/internal/auth/http"
	"github.com/leafmarks/leafmarks/internal/auth/service"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/internal/auth/store/drivers/sqlite"
	"github.com/leafmarks/leafmarks/pkg/cachex"
	"github.com/leafmarks/leafmarks/pkg/cryptox"
	"github.com/leafmarks/leafmarks/pkg/jwtx"
	"github.com/leafmarks/leafmarks/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the auth service together: store, signing key,
// services, HTTP server, and the housekeeping worker.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec

	authService         *service.AuthService
	userService         *service.UserService
	authorizer          *service.Authorizer
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "leafmarks-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	key, err := jwtx.LoadOrGenerateKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing key: %w", err)
	}
	codec, err := jwtx.NewCodec(key, cfg.Issuer, cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to build token codec: %w", err)
	}
	app.codec = codec

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown drains in-flight requests, stops the housekeeping worker, and
// closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

func (app *Application) initServices() {
	app.userService = &service.UserService{
		Store: app.db,
		Cache: cachex.NewTTL[domain.User](app.cfg.UserCacheTTL),
	}
	app.authorizer = &service.Authorizer{Users: app.userService}

	app.authService = &service.AuthService{
		Store: app.db,
		Tokens: &service.TokenService{
			Store:      app.db,
			Codec:      app.codec,
			Users:      app.userService,
			RefreshTTL: app.cfg.RefreshTokenTTL,
		},
		Users:    app.userService,
		Notifier: &service.LogNotifier{Logger: app.logger},
		Limiter: &service.RateLimiter{
			Store:       app.db,
			MaxAttempts: app.cfg.LoginMaxAttempts,
			Window:      app.cfg.LoginWindow,
		},
		RequireVerifiedEmail: app.cfg.RequireVerifiedEmail,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.db, app.logger)
	router.Auth = app.authService
	router.Users = app.userService
	router.Authorizer = app.authorizer
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
