// Package accounts manages registered user accounts and their shipping info.
package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/storage"
	svcerr "github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/pkg/logger"
)

// Service manages accounts.
type Service struct {
	store storage.AccountStore
	log   *logger.Logger
}

// New constructs an account service.
func New(store storage.AccountStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{store: store, log: log}
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, accountID string) (account.Account, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return account.Account{}, svcerr.NotFound(svcerr.CodeAccountNotFound, "Account not found")
		}
		return account.Account{}, err
	}
	return acct, nil
}

// Ensure returns the account for a GitHub username, creating it if absent.
func (s *Service) Ensure(ctx context.Context, githubUsername string) (account.Account, error) {
	githubUsername = strings.TrimSpace(githubUsername)
	if githubUsername == "" {
		return account.Account{}, svcerr.InvalidRequest("github_username is required")
	}

	acct, err := s.store.GetAccountByGithubUsername(ctx, githubUsername)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return account.Account{}, err
	}

	acct, err = s.store.CreateAccount(ctx, account.Account{GithubUsername: githubUsername})
	if err != nil {
		return account.Account{}, err
	}
	s.log.WithField("account_id", acct.ID).
		WithField("github_username", githubUsername).
		Info("account created")
	return acct, nil
}

// UpdateShippingInfo overlays the provided fields onto the stored shipping
// info and returns the updated account.
func (s *Service) UpdateShippingInfo(ctx context.Context, accountID string, info *account.ShippingInfo) (account.Account, error) {
	if info == nil {
		return account.Account{}, svcerr.InvalidRequest("shipping_info is required")
	}
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	acct.ShippingInfo = acct.ShippingInfo.Merge(info)

	updated, err := s.store.UpdateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, err
	}
	s.log.WithField("account_id", accountID).Info("shipping info updated")
	return updated, nil
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}
