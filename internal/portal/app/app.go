package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/nyaypaksh/memberportal/internal/portal/http"
	"github.com/nyaypaksh/memberportal/internal/portal/oracle"
	"github.com/nyaypaksh/memberportal/internal/portal/service"
	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/nyaypaksh/memberportal/internal/portal/store/drivers/redis"
	"github.com/nyaypaksh/memberportal/internal/portal/store/drivers/sqlite"
	"github.com/nyaypaksh/memberportal/internal/portal/store/memory"
	"github.com/nyaypaksh/memberportal/pkg/clockx"
	"github.com/nyaypaksh/memberportal/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the portal with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	kv     store.KeyValue
	oracle *oracle.Client

	sessions     *service.SessionService
	guard        *service.RouteGuard
	housekeeping *service.HousekeepingService
	flows        *httpapi.FlowRegistry

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "member-portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("member portal starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down member portal...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Tear down any in-flight login flows so their passcode runners exit.
	app.flows.Close()

	app.housekeeping.Stop()

	if err := app.kv.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("member portal stopped")
	return nil
}

// initStore initializes the durable key-value store per the configured driver.
func (app *Application) initStore() error {
	switch app.cfg.StorageDriver {
	case "memory":
		app.kv = memory.NewKV()
		app.logger.Info("using in-memory store")

	case "redis":
		app.kv = redis.NewStore(app.cfg.RedisAddr)
		if err := app.kv.Ping(context.Background()); err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", app.cfg.RedisAddr, err)
		}
		app.logger.Info("using redis store", "addr", app.cfg.RedisAddr)

	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.kv = db
		app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)

	default:
		return fmt.Errorf("unknown storage driver %q", app.cfg.StorageDriver)
	}

	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	clock := clockx.Real()

	app.oracle = oracle.NewClient(app.logger, clock)
	app.oracle.Unavailable = app.cfg.OracleUnavailable

	adminEphemeral := memory.NewEphemeral()

	app.sessions = &service.SessionService{
		KV:             app.kv,
		Clock:          clock,
		Logger:         app.logger,
		AdminTTL:       app.cfg.AdminSessionTTL,
		AdminEphemeral: adminEphemeral,
	}

	app.guard = &service.RouteGuard{Sessions: app.sessions}

	app.housekeeping = service.NewHousekeepingService(
		app.sessions,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	app.flows = httpapi.NewFlowRegistry(httpapi.FlowDeps{
		Clock:    clock,
		Oracle:   app.oracle,
		Sessions: app.sessions,
		Logger:   app.logger,
		MemberOtp: service.OtpConfig{
			Validity:       app.cfg.MemberOtpValidity,
			ResendCooldown: app.cfg.MemberOtpCooldown,
		},
		AdminOtp: service.OtpConfig{
			Validity:       app.cfg.AdminOtpValidity,
			ResendCooldown: app.cfg.AdminOtpCooldown,
		},
		MemberEphemeral: memory.NewEphemeral(),
		AdminEphemeral:  adminEphemeral,
	})
}

// initHTTP initializes the router and HTTP server.
func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(BuildVersion, app.kv, app.flows, app.logger)
	app.router.Sessions = app.sessions
	app.router.Guard = app.guard
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
