// Package runtime wires configuration, storage, services and the HTTP
// server into a runnable process.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	app "github.com/atlaslab/labmanager/internal/app"
	"github.com/atlaslab/labmanager/internal/app/httpapi"
	"github.com/atlaslab/labmanager/internal/app/metrics"
	"github.com/atlaslab/labmanager/internal/app/services/identitysvc"
	"github.com/atlaslab/labmanager/internal/app/services/notify"
	"github.com/atlaslab/labmanager/internal/app/services/retention"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/app/storage/postgres"
	"github.com/atlaslab/labmanager/internal/config"
	"github.com/atlaslab/labmanager/internal/middleware"
	"github.com/atlaslab/labmanager/internal/platform/migrations"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server
// lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sql.DB
	stopClean  chan struct{}
}

// NewApplication constructs the process with default wiring from the
// given config file path (empty means env-only).
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	var backend storage.Backend
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrations.Apply(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		backend = postgres.New(db)
		log.Info("using postgres storage backend")
	}

	var notifier notify.Notifier
	if cfg.Notify.Enabled && len(cfg.Notify.URLs) > 0 {
		sender, err := notify.NewShoutrrr(cfg.Notify.URLs, log)
		if err != nil {
			log.WithError(err).Warn("notifications disabled: sender could not be built")
		} else {
			notifier = sender
		}
	}

	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty, issued tokens are not secure")
	}

	retentionCfg := retention.Config{}
	if cfg.Retention.Enabled {
		retentionCfg = retention.Config{
			Schedule:       cfg.Retention.Schedule,
			RequestLogDays: cfg.Retention.RequestLogDays,
		}
	}

	application, err := app.New(app.Options{
		Backend:  backend,
		Notifier: notifier,
		Identity: identitysvc.Config{
			JWTSecret: cfg.Auth.JWTSecret,
			TokenTTL:  cfg.Auth.TokenTTL,
			Issuer:    cfg.Auth.Issuer,
		},
		Retention:     retentionCfg,
		PublicBaseURL: cfg.Server.PublicBaseURL,
	}, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	a := &Application{
		cfg:       cfg,
		log:       log,
		app:       application,
		db:        db,
		stopClean: make(chan struct{}),
	}
	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.buildHandler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

// buildHandler layers the middleware chain over the REST routes.
func (a *Application) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	api := httpapi.NewHandler(a.app)

	auth := middleware.NewAuthMiddleware(a.app.Identity, a.log,
		[]string{"/healthz", "/auth/login", "/metrics"},
		[]string{"/public/"})
	var handler http.Handler = auth.Handler(api)

	if a.cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(a.cfg.RateLimit.RequestsPerSecond, a.cfg.RateLimit.Burst, a.log)
		limiter.StartCleanup(10*time.Minute, a.stopClean)
		handler = limiter.Handler(handler)
	}

	handler = middleware.NewRequestLogger(a.app.Backend, a.log).Handler(handler)
	handler = middleware.NewCORSMiddleware([]string{"*"}).Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	mux.Handle("/", handler)
	return mux
}

// Run starts background services and the HTTP server, blocking until
// the context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.httpServer.Addr).Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the server, background jobs and the
// database connection.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	close(a.stopClean)
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping background services")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
