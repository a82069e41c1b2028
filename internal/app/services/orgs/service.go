// Package orgs implements organizations and membership.
package orgs

import (
	"context"
	"errors"
	"strings"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/org"
	"github.com/circuitforge/registry/internal/app/storage"
	svcerr "github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/pkg/logger"
)

// Store is the persistence surface the org service needs.
type Store interface {
	storage.OrgStore
	storage.AccountStore
}

// Service manages orgs.
type Service struct {
	store Store
	log   *logger.Logger
}

// New constructs an org service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orgs")
	}
	return &Service{store: store, log: log}
}

// Create registers an org with the caller as its owning member.
func (s *Service) Create(ctx context.Context, caller account.Account, name string) (org.Org, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return org.Org{}, svcerr.InvalidRequest("name is required")
	}
	if strings.Contains(name, "/") {
		return org.Org{}, svcerr.InvalidRequest("org name cannot contain '/'")
	}

	o, err := s.store.CreateOrg(ctx, org.Org{Name: name})
	if err != nil {
		return org.Org{}, svcerr.UpdateFailed("failed to create org", err)
	}
	if _, err := s.store.AddOrgMember(ctx, org.Member{
		OrgID:     o.ID,
		AccountID: caller.ID,
		IsOwner:   true,
	}); err != nil {
		return org.Org{}, err
	}
	s.log.WithField("org_id", o.ID).
		WithField("name", name).
		Info("org created")
	return o, nil
}

// Get returns an org by id or name.
func (s *Service) Get(ctx context.Context, id, name string) (org.Org, error) {
	var (
		o   org.Org
		err error
	)
	switch {
	case id != "":
		o, err = s.store.GetOrg(ctx, id)
	case name != "":
		o, err = s.store.GetOrgByName(ctx, name)
	default:
		return org.Org{}, svcerr.InvalidRequest("org_id or name is required")
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return org.Org{}, svcerr.NotFound(svcerr.CodeOrgNotFound, "Org not found")
		}
		return org.Org{}, err
	}
	return o, nil
}

// List returns the orgs the given account belongs to, or all orgs when
// accountID is empty.
func (s *Service) List(ctx context.Context, accountID string) ([]org.Org, error) {
	return s.store.ListOrgs(ctx, accountID)
}

// AddMember adds an account to an org. Only owning members may do this.
func (s *Service) AddMember(ctx context.Context, caller account.Account, orgID, accountID string) (org.Member, error) {
	o, err := s.Get(ctx, orgID, "")
	if err != nil {
		return org.Member{}, err
	}
	owner, err := s.isOwner(ctx, o.ID, caller.ID)
	if err != nil {
		return org.Member{}, err
	}
	if !owner {
		return org.Member{}, svcerr.Forbidden("Only org owners can add members")
	}

	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return org.Member{}, svcerr.NotFound(svcerr.CodeAccountNotFound, "Account not found")
		}
		return org.Member{}, err
	}

	m, err := s.store.AddOrgMember(ctx, org.Member{OrgID: o.ID, AccountID: accountID})
	if err != nil {
		return org.Member{}, svcerr.UpdateFailed("failed to add member", err)
	}
	s.log.WithField("org_id", o.ID).
		WithField("account_id", accountID).
		Info("org member added")
	return m, nil
}

// ListMembers returns an org's membership rows.
func (s *Service) ListMembers(ctx context.Context, orgID string) ([]org.Member, error) {
	if _, err := s.Get(ctx, orgID, ""); err != nil {
		return nil, err
	}
	return s.store.ListOrgMembers(ctx, orgID)
}

func (s *Service) isOwner(ctx context.Context, orgID, accountID string) (bool, error) {
	members, err := s.store.ListOrgMembers(ctx, orgID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.AccountID == accountID && m.IsOwner {
			return true, nil
		}
	}
	return false, nil
}
