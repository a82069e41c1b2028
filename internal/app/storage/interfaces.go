// Package storage defines the persistence interfaces for the registry. The
// in-memory implementation backs local development and tests; a Postgres
// implementation covers the core aggregates for durable deployments.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/order"
	"github.com/circuitforge/registry/internal/app/domain/org"
	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/domain/session"
	"github.com/circuitforge/registry/internal/app/domain/snippet"
)

// ErrNotFound is wrapped by store errors when a record is absent. Handlers
// check it with errors.Is to produce 404 responses.
var ErrNotFound = errors.New("not found")

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	GetAccountByGithubUsername(ctx context.Context, username string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
}

// OrgStore persists organizations and membership join rows.
type OrgStore interface {
	CreateOrg(ctx context.Context, o org.Org) (org.Org, error)
	GetOrg(ctx context.Context, id string) (org.Org, error)
	GetOrgByName(ctx context.Context, name string) (org.Org, error)
	ListOrgs(ctx context.Context, accountID string) ([]org.Org, error)

	AddOrgMember(ctx context.Context, m org.Member) (org.Member, error)
	ListOrgMembers(ctx context.Context, orgID string) ([]org.Member, error)
	IsOrgMember(ctx context.Context, orgID, accountID string) (bool, error)
}

// SessionStore persists sessions and login pages.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Session) (session.Session, error)
	GetSession(ctx context.Context, id string) (session.Session, error)
	DeleteSession(ctx context.Context, id string) error

	CreateLoginPage(ctx context.Context, p session.LoginPage) (session.LoginPage, error)
	GetLoginPage(ctx context.Context, id string) (session.LoginPage, error)
	GetLoginPageByAuthToken(ctx context.Context, token string) (session.LoginPage, error)
	UpdateLoginPage(ctx context.Context, p session.LoginPage) (session.LoginPage, error)
	DeleteExpiredLoginPages(ctx context.Context, now time.Time) (int, error)
}

// PackageStore persists packages and package star join rows. Star counts on
// returned packages are derived from the star rows at read time.
type PackageStore interface {
	CreatePackage(ctx context.Context, p pkg.Package) (pkg.Package, error)
	UpdatePackage(ctx context.Context, p pkg.Package) (pkg.Package, error)
	GetPackage(ctx context.Context, id string) (pkg.Package, error)
	GetPackageByName(ctx context.Context, name string) (pkg.Package, error)
	ListPackages(ctx context.Context, ownerUsername string) ([]pkg.Package, error)
	SearchPackages(ctx context.Context, query string) ([]pkg.Package, error)

	StarPackage(ctx context.Context, accountID, packageID string) (pkg.Star, error)
	UnstarPackage(ctx context.Context, accountID, packageID string) error
	PackageStarCount(ctx context.Context, packageID string) (int, error)
}

// ReleaseStore persists package releases.
type ReleaseStore interface {
	CreateRelease(ctx context.Context, r pkg.Release) (pkg.Release, error)
	UpdateRelease(ctx context.Context, r pkg.Release) (pkg.Release, error)
	GetRelease(ctx context.Context, id string) (pkg.Release, error)
	ListReleases(ctx context.Context, packageID string) ([]pkg.Release, error)
}

// FileStore persists package files.
type FileStore interface {
	CreatePackageFile(ctx context.Context, f pkg.File) (pkg.File, error)
	GetPackageFile(ctx context.Context, id string) (pkg.File, error)
	GetPackageFileByPath(ctx context.Context, releaseID, filePath string) (pkg.File, error)
	ListPackageFiles(ctx context.Context, releaseID string) ([]pkg.File, error)
}

// BuildStore persists package builds.
type BuildStore interface {
	CreateBuild(ctx context.Context, b pkg.Build) (pkg.Build, error)
	UpdateBuild(ctx context.Context, b pkg.Build) (pkg.Build, error)
	GetBuild(ctx context.Context, id string) (pkg.Build, error)
	ListBuilds(ctx context.Context, releaseID string) ([]pkg.Build, error)
}

// SnippetStore persists snippets and snippet star join rows.
type SnippetStore interface {
	CreateSnippet(ctx context.Context, s snippet.Snippet) (snippet.Snippet, error)
	UpdateSnippet(ctx context.Context, s snippet.Snippet) (snippet.Snippet, error)
	GetSnippet(ctx context.Context, id string) (snippet.Snippet, error)
	GetSnippetByName(ctx context.Context, name string) (snippet.Snippet, error)
	ListSnippets(ctx context.Context, ownerName string) ([]snippet.Snippet, error)
	ListNewestSnippets(ctx context.Context, limit int) ([]snippet.Snippet, error)
	ListTrendingSnippets(ctx context.Context, limit int, since time.Time) ([]snippet.Snippet, error)
	SearchSnippets(ctx context.Context, query string) ([]snippet.Snippet, error)
	DeleteSnippet(ctx context.Context, id string) error

	StarSnippet(ctx context.Context, accountID, snippetID string) (snippet.Star, error)
	UnstarSnippet(ctx context.Context, accountID, snippetID string) error
	SnippetStarCount(ctx context.Context, snippetID string) (int, error)
}

// OrderStore persists orders and order files.
type OrderStore interface {
	CreateOrder(ctx context.Context, o order.Order) (order.Order, error)
	UpdateOrder(ctx context.Context, o order.Order) (order.Order, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	ListOrders(ctx context.Context, accountID string) ([]order.Order, error)

	CreateOrderFile(ctx context.Context, f order.File) (order.File, error)
	GetOrderFile(ctx context.Context, id string) (order.File, error)
	ListOrderFiles(ctx context.Context, orderID string) ([]order.File, error)
}
