// Package packages implements package registry operations: creation, lookup,
// listing, search, updates, and stars.
package packages

import (
	"context"
	"errors"
	"strings"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/storage"
	svcerr "github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/pkg/logger"
)

// Store is the persistence surface the package service needs.
type Store interface {
	storage.PackageStore
	storage.OrgStore
}

// Service manages packages.
type Service struct {
	store Store
	log   *logger.Logger
}

// New constructs a package service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("packages")
	}
	return &Service{store: store, log: log}
}

// CreateInput is the caller-supplied portion of a new package.
type CreateInput struct {
	Name        string
	Description string
	IsPrivate   bool
	IsUnlisted  bool
	IsSnippet   bool
	IsBoard     bool
	IsPackage   bool
	IsModel     bool
	IsFootprint bool
}

// Create registers a package owned by the authenticated account or one of its
// orgs. A bare unscoped name is scoped under the caller's GitHub username.
func (s *Service) Create(ctx context.Context, caller account.Account, in CreateInput) (pkg.Package, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return pkg.Package{}, svcerr.InvalidRequest("name is required")
	}
	if !strings.Contains(name, "/") {
		name = caller.GithubUsername + "/" + name
	}
	owner, unscoped, err := pkg.SplitName(name)
	if err != nil {
		return pkg.Package{}, svcerr.InvalidRequest(err.Error())
	}

	p := pkg.Package{
		CreatorAccountID:    caller.ID,
		OwnerGithubUsername: owner,
		Name:                name,
		UnscopedName:        unscoped,
		Description:         in.Description,
		IsPrivate:           in.IsPrivate,
		IsPublic:            !in.IsPrivate,
		IsUnlisted:          in.IsUnlisted,
		IsSnippet:           in.IsSnippet,
		IsBoard:             in.IsBoard,
		IsPackage:           in.IsPackage,
		IsModel:             in.IsModel,
		IsFootprint:         in.IsFootprint,
	}

	if !strings.EqualFold(owner, caller.GithubUsername) {
		o, err := s.store.GetOrgByName(ctx, owner)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return pkg.Package{}, svcerr.Forbidden("You can only create packages under your username or an org you belong to")
			}
			return pkg.Package{}, err
		}
		member, err := s.store.IsOrgMember(ctx, o.ID, caller.ID)
		if err != nil {
			return pkg.Package{}, err
		}
		if !member {
			return pkg.Package{}, svcerr.Forbidden("You are not a member of this org")
		}
		p.OwnerOrgID = o.ID
	}

	created, err := s.store.CreatePackage(ctx, p)
	if err != nil {
		return pkg.Package{}, svcerr.UpdateFailed("failed to create package", err)
	}
	s.log.WithField("package_id", created.ID).
		WithField("name", created.Name).
		Info("package created")
	return created, nil
}

// Get returns a package by id or name, enforcing visibility for the caller.
// Caller may be the zero Account for anonymous reads.
func (s *Service) Get(ctx context.Context, caller account.Account, id, name string) (pkg.Package, error) {
	var (
		p   pkg.Package
		err error
	)
	switch {
	case id != "":
		p, err = s.store.GetPackage(ctx, id)
	case name != "":
		p, err = s.store.GetPackageByName(ctx, name)
	default:
		return pkg.Package{}, svcerr.InvalidRequest("package_id or name is required")
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return pkg.Package{}, svcerr.NotFound(svcerr.CodePackageNotFound, "Package not found")
		}
		return pkg.Package{}, err
	}

	if p.IsPrivate {
		ok, err := s.canAccess(ctx, caller, p)
		if err != nil {
			return pkg.Package{}, err
		}
		if !ok {
			// Private packages are indistinguishable from absent ones.
			return pkg.Package{}, svcerr.NotFound(svcerr.CodePackageNotFound, "Package not found")
		}
	}
	return p, nil
}

// List returns packages for an owner, hiding private ones the caller cannot
// see.
func (s *Service) List(ctx context.Context, caller account.Account, ownerUsername string) ([]pkg.Package, error) {
	all, err := s.store.ListPackages(ctx, ownerUsername)
	if err != nil {
		return nil, err
	}
	visible := make([]pkg.Package, 0, len(all))
	for _, p := range all {
		if p.IsPrivate {
			ok, err := s.canAccess(ctx, caller, p)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		visible = append(visible, p)
	}
	return visible, nil
}

// Search returns public, listed packages matching the query.
func (s *Service) Search(ctx context.Context, query string) ([]pkg.Package, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, svcerr.InvalidRequest("query is required")
	}
	return s.store.SearchPackages(ctx, query)
}

// UpdateInput carries optional mutations; nil fields are left unchanged.
type UpdateInput struct {
	Description         *string
	AIDescription       *string
	AIUsageInstructions *string
	IsPrivate           *bool
	IsUnlisted          *bool
}

// Update mutates a package owned by the caller.
func (s *Service) Update(ctx context.Context, caller account.Account, packageID string, in UpdateInput) (pkg.Package, error) {
	p, err := s.Get(ctx, caller, packageID, "")
	if err != nil {
		return pkg.Package{}, err
	}
	ok, err := s.canAccess(ctx, caller, p)
	if err != nil {
		return pkg.Package{}, err
	}
	if !ok {
		return pkg.Package{}, svcerr.Forbidden("You do not have permission to update this package")
	}

	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.AIDescription != nil {
		p.AIDescription = *in.AIDescription
	}
	if in.AIUsageInstructions != nil {
		p.AIUsageInstructions = *in.AIUsageInstructions
	}
	if in.IsPrivate != nil {
		p.IsPrivate = *in.IsPrivate
		p.IsPublic = !*in.IsPrivate
	}
	if in.IsUnlisted != nil {
		p.IsUnlisted = *in.IsUnlisted
	}

	updated, err := s.store.UpdatePackage(ctx, p)
	if err != nil {
		return pkg.Package{}, svcerr.UpdateFailed("failed to update package", err)
	}
	s.log.WithField("package_id", packageID).Info("package updated")
	return updated, nil
}

// Star records the caller starring a package. Starring twice is a no-op.
func (s *Service) Star(ctx context.Context, caller account.Account, packageID, name string) (pkg.Package, error) {
	p, err := s.Get(ctx, caller, packageID, name)
	if err != nil {
		return pkg.Package{}, err
	}
	if _, err := s.store.StarPackage(ctx, caller.ID, p.ID); err != nil {
		return pkg.Package{}, err
	}
	return s.Get(ctx, caller, p.ID, "")
}

// Unstar removes the caller's star from a package.
func (s *Service) Unstar(ctx context.Context, caller account.Account, packageID, name string) (pkg.Package, error) {
	p, err := s.Get(ctx, caller, packageID, name)
	if err != nil {
		return pkg.Package{}, err
	}
	if err := s.store.UnstarPackage(ctx, caller.ID, p.ID); err != nil {
		return pkg.Package{}, err
	}
	return s.Get(ctx, caller, p.ID, "")
}

// canAccess reports whether the caller may see or mutate a package: the
// creator always can, and members of the owning org can.
func (s *Service) canAccess(ctx context.Context, caller account.Account, p pkg.Package) (bool, error) {
	if caller.ID == "" {
		return false, nil
	}
	if p.CreatorAccountID == caller.ID {
		return true, nil
	}
	if strings.EqualFold(p.OwnerGithubUsername, caller.GithubUsername) {
		return true, nil
	}
	if p.OwnerOrgID != "" {
		return s.store.IsOrgMember(ctx, p.OwnerOrgID, caller.ID)
	}
	return false, nil
}
