package app

import (
	"context"
	"fmt"
	"time"

	"github.com/circuitforge/registry/internal/app/services/accounts"
	"github.com/circuitforge/registry/internal/app/services/auth"
	orderssvc "github.com/circuitforge/registry/internal/app/services/orders"
	orgssvc "github.com/circuitforge/registry/internal/app/services/orgs"
	packagessvc "github.com/circuitforge/registry/internal/app/services/packages"
	releasessvc "github.com/circuitforge/registry/internal/app/services/releases"
	snippetssvc "github.com/circuitforge/registry/internal/app/services/snippets"
	"github.com/circuitforge/registry/internal/app/storage"
	"github.com/circuitforge/registry/internal/app/storage/memory"
	"github.com/circuitforge/registry/internal/app/system"
	"github.com/circuitforge/registry/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts storage.AccountStore
	Orgs     storage.OrgStore
	Sessions storage.SessionStore
	Packages storage.PackageStore
	Releases storage.ReleaseStore
	Files    storage.FileStore
	Builds   storage.BuildStore
	Snippets storage.SnippetStore
	Orders   storage.OrderStore
}

// Config carries the settings the application needs beyond its stores.
type Config struct {
	JWTSecret  string
	SessionTTL time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts *accounts.Service
	Auth     *auth.Service
	Packages *packagessvc.Service
	Releases *releasessvc.Service
	Snippets *snippetssvc.Service
	Orgs     *orgssvc.Service
	Orders   *orderssvc.Service
}

type packagesStore struct {
	storage.PackageStore
	storage.OrgStore
}

type releasesStore struct {
	storage.PackageStore
	storage.ReleaseStore
	storage.FileStore
	storage.BuildStore
	storage.OrgStore
}

type snippetsStore struct {
	storage.SnippetStore
	storage.ReleaseStore
}

type orgsStore struct {
	storage.OrgStore
	storage.AccountStore
}

type ordersStore struct {
	storage.OrderStore
	storage.ReleaseStore
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, cfg Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Orgs == nil {
		stores.Orgs = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}
	if stores.Packages == nil {
		stores.Packages = mem
	}
	if stores.Releases == nil {
		stores.Releases = mem
	}
	if stores.Files == nil {
		stores.Files = mem
	}
	if stores.Builds == nil {
		stores.Builds = mem
	}
	if stores.Snippets == nil {
		stores.Snippets = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}

	manager := system.NewManager()

	acctService := accounts.New(stores.Accounts, log)
	authService := auth.New(stores.Sessions, acctService, auth.Config{
		JWTSecret:  []byte(cfg.JWTSecret),
		SessionTTL: cfg.SessionTTL,
	}, log)
	pkgService := packagessvc.New(packagesStore{stores.Packages, stores.Orgs}, log)
	relService := releasessvc.New(releasesStore{stores.Packages, stores.Releases, stores.Files, stores.Builds, stores.Orgs}, log)
	snipService := snippetssvc.New(snippetsStore{stores.Snippets, stores.Releases}, log)
	orgService := orgssvc.New(orgsStore{stores.Orgs, stores.Accounts}, log)
	orderService := orderssvc.New(ordersStore{stores.Orders, stores.Releases}, log)

	janitor := auth.NewJanitor(stores.Sessions, 10*time.Minute, log)
	if err := manager.Register(janitor); err != nil {
		return nil, fmt.Errorf("register %s: %w", janitor.Name(), err)
	}

	return &Application{
		manager:  manager,
		log:      log,
		Accounts: acctService,
		Auth:     authService,
		Packages: pkgService,
		Releases: relService,
		Snippets: snipService,
		Orgs:     orgService,
		Orders:   orderService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
