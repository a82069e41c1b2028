// Package seed populates the store with fixture data at startup and
// optionally imports real packages from an upstream registry.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/order"
	"github.com/circuitforge/registry/internal/app/domain/org"
	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/domain/snippet"
	"github.com/circuitforge/registry/internal/app/storage"
	"github.com/circuitforge/registry/pkg/logger"
)

// Stores is the persistence surface the seeder writes to.
type Stores interface {
	storage.AccountStore
	storage.OrgStore
	storage.PackageStore
	storage.ReleaseStore
	storage.FileStore
	storage.BuildStore
	storage.SnippetStore
	storage.OrderStore
}

// Seed creates the deterministic development fixture set: two accounts, an
// org, a package with a release, file, and completed build, a snippet, a
// star, and a draft order.
func Seed(ctx context.Context, store Stores, log *logger.Logger) error {
	if log == nil {
		log = logger.NewDefault("seed")
	}

	alice, err := store.CreateAccount(ctx, account.Account{GithubUsername: "testuser"})
	if err != nil {
		return fmt.Errorf("seed account: %w", err)
	}
	bob, err := store.CreateAccount(ctx, account.Account{GithubUsername: "demouser"})
	if err != nil {
		return fmt.Errorf("seed account: %w", err)
	}

	o, err := store.CreateOrg(ctx, org.Org{Name: "circuitforge"})
	if err != nil {
		return fmt.Errorf("seed org: %w", err)
	}
	if _, err := store.AddOrgMember(ctx, org.Member{OrgID: o.ID, AccountID: alice.ID, IsOwner: true}); err != nil {
		return fmt.Errorf("seed org member: %w", err)
	}

	p, err := store.CreatePackage(ctx, pkg.Package{
		CreatorAccountID:    alice.ID,
		OwnerGithubUsername: "testuser",
		Name:                "testuser/led-matrix",
		UnscopedName:        "led-matrix",
		Description:         "An 8x8 LED matrix demo board",
		IsPublic:            true,
		IsBoard:             true,
	})
	if err != nil {
		return fmt.Errorf("seed package: %w", err)
	}

	release, err := store.CreateRelease(ctx, pkg.Release{
		PackageID: p.ID,
		Version:   "0.0.1",
		IsLatest:  true,
	})
	if err != nil {
		return fmt.Errorf("seed release: %w", err)
	}
	if _, err := store.CreatePackageFile(ctx, pkg.File{
		ReleaseID:   release.ID,
		FilePath:    "index.tsx",
		ContentText: "export default () => <board width=\"30mm\" height=\"30mm\" />\n",
		Mimetype:    "text/tsx",
	}); err != nil {
		return fmt.Errorf("seed file: %w", err)
	}

	build := pkg.NewBuild(release.ID)
	now := time.Now().UTC()
	for _, stage := range []*pkg.Stage{&build.Transpilation, &build.CircuitJSON, &build.FinalBuild} {
		if err := stage.Start(now); err != nil {
			return fmt.Errorf("seed build: %w", err)
		}
		if err := stage.Complete(now); err != nil {
			return fmt.Errorf("seed build: %w", err)
		}
	}
	created, err := store.CreateBuild(ctx, build)
	if err != nil {
		return fmt.Errorf("seed build: %w", err)
	}
	release.LatestBuildID = created.ID
	if _, err := store.UpdateRelease(ctx, release); err != nil {
		return fmt.Errorf("seed release update: %w", err)
	}
	p.LatestReleaseID = release.ID
	p.LatestVersion = release.Version
	if _, err := store.UpdatePackage(ctx, p); err != nil {
		return fmt.Errorf("seed package update: %w", err)
	}

	if _, err := store.StarPackage(ctx, bob.ID, p.ID); err != nil {
		return fmt.Errorf("seed star: %w", err)
	}

	snippetRelease, err := store.CreateRelease(ctx, pkg.Release{Version: "0.0.1", IsLatest: true})
	if err != nil {
		return fmt.Errorf("seed snippet release: %w", err)
	}
	if _, err := store.CreateSnippet(ctx, snippet.Snippet{
		ReleaseID:    snippetRelease.ID,
		Name:         "testuser/blinker",
		UnscopedName: "blinker",
		OwnerName:    "testuser",
		Code:         "export default () => <led footprint=\"0805\" />\n",
		Type:         snippet.TypeBoard,
		IsPublic:     true,
	}); err != nil {
		return fmt.Errorf("seed snippet: %w", err)
	}

	if _, err := store.CreateOrder(ctx, order.Order{
		AccountID:        alice.ID,
		PackageReleaseID: release.ID,
	}); err != nil {
		return fmt.Errorf("seed order: %w", err)
	}

	log.WithField("package", p.Name).Info("fixture data seeded")
	return nil
}
