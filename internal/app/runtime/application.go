// Package runtime wires configuration, stores, services, middleware, and the
// HTTP server into a runnable registry process.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	app "github.com/circuitforge/registry/internal/app"
	"github.com/circuitforge/registry/internal/app/httpapi"
	"github.com/circuitforge/registry/internal/app/metrics"
	"github.com/circuitforge/registry/internal/app/seed"
	"github.com/circuitforge/registry/internal/app/storage"
	"github.com/circuitforge/registry/internal/app/storage/memory"
	"github.com/circuitforge/registry/internal/app/storage/postgres"
	"github.com/circuitforge/registry/internal/config"
	"github.com/circuitforge/registry/internal/middleware"
	"github.com/circuitforge/registry/pkg/logger"
)

// Application owns the process lifecycle: it builds the store backends,
// seeds fixtures, assembles the middleware chain, and runs the HTTP server.
type Application struct {
	cfg *config.Config
	log *logger.Logger
	app *app.Application

	httpServer *http.Server
	db         *sql.DB
	rateStop   chan struct{}
}

// seedStores adapts the resolved store fields to the seeder's interface.
type seedStores struct {
	storage.AccountStore
	storage.OrgStore
	storage.PackageStore
	storage.ReleaseStore
	storage.FileStore
	storage.BuildStore
	storage.SnippetStore
	storage.OrderStore
}

// NewApplication constructs a registry application from the environment.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Logging)

	stores, db, err := buildStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	application, err := app.New(stores, app.Config{
		JWTSecret:  cfg.Auth.JWTSecret,
		SessionTTL: time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute,
	}, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("build application: %w", err)
	}

	if cfg.Seed.Enabled {
		if err := runSeed(cfg, stores, log); err != nil {
			log.WithError(err).Warn("seeding failed")
		}
	}

	handler, rateMW := buildHandler(cfg, application, log)
	rateStop := make(chan struct{})
	rateMW.StartCleanup(10*time.Minute, rateStop)
	a := &Application{
		cfg:      cfg,
		log:      log,
		app:      application,
		db:       db,
		rateStop: rateStop,
	}
	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	return a, nil
}

// App exposes the wired service container, mainly for tests.
func (a *Application) App() *app.Application { return a.app }

// Run starts background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("registry listening on %s", a.httpServer.Addr)
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

// Shutdown gracefully stops the HTTP server, background services, and the
// database connection.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	close(a.rateStop)
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

// buildStores resolves the persistence backends. With a DSN configured the
// core aggregates go to Postgres; everything else stays in memory.
func buildStores(cfg *config.Config) (app.Stores, *sql.DB, error) {
	mem := memory.New()
	stores := app.Stores{
		Accounts: mem,
		Orgs:     mem,
		Sessions: mem,
		Packages: mem,
		Releases: mem,
		Files:    mem,
		Builds:   mem,
		Snippets: mem,
		Orders:   mem,
	}
	if cfg.Database.DSN == "" {
		return stores, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}
	pg := postgres.New(db)
	stores.Accounts = pg
	stores.Packages = pg
	stores.Releases = pg
	stores.Files = pg
	stores.Snippets = pg
	return stores, db, nil
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
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runSeed(cfg *config.Config, stores app.Stores, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store := seedStores{
		AccountStore: stores.Accounts,
		OrgStore:     stores.Orgs,
		PackageStore: stores.Packages,
		ReleaseStore: stores.Releases,
		FileStore:    stores.Files,
		BuildStore:   stores.Builds,
		SnippetStore: stores.Snippets,
		OrderStore:   stores.Orders,
	}
	if err := seed.Seed(ctx, store, log); err != nil {
		return err
	}

	if cfg.Seed.AutoloadPackages {
		loader := seed.NewAutoloader(store, seed.NewHTTPFetcher(cfg.Seed.RegistryURL), log)
		if err := loader.Load(ctx, seed.DefaultAutoloadPackages); err != nil {
			return err
		}
	}
	return nil
}

// buildHandler assembles the middleware chain around the API router.
func buildHandler(cfg *config.Config, application *app.Application, log *logger.Logger) (http.Handler, *middleware.RateLimiter) {
	api := httpapi.NewHandler(application, log)

	authMW := middleware.NewAuthMiddleware(application.Auth, application.Accounts, cfg.Auth.AllowLegacyTokens, log)
	rateMW := middleware.NewRateLimiter(100, 200, log)
	corsMW := middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)
	traceMW := middleware.NewTracingMiddleware(log)

	// The limiter sits inside auth so authenticated traffic is keyed by
	// account id rather than remote address.
	var handler http.Handler = api
	handler = metrics.InstrumentHandler(handler)
	handler = rateMW.Handler(handler)
	handler = authMW.Handler(handler)
	handler = corsMW.Handler(handler)
	handler = traceMW.Handler(handler)

	root := http.NewServeMux()
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", handler)
	return root, rateMW
}
