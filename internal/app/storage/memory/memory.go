// Package memory implements the storage interfaces with process-local state.
// It is the backing store for local development and tests and simulates the
// relational backend: flat collections keyed by id, manual referential
// lookups, and star counts derived from join rows at read time.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/order"
	"github.com/circuitforge/registry/internal/app/domain/org"
	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/domain/session"
	"github.com/circuitforge/registry/internal/app/domain/snippet"
	"github.com/circuitforge/registry/internal/app/storage"
)

// Store is a thread-safe in-memory implementation of every storage interface.
// IDs come from a monotonic counter so rapid creation in tests cannot collide.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	accounts          map[string]account.Account
	accountsByLogin   map[string]string
	orgs              map[string]org.Org
	orgsByName        map[string]string
	orgMembers        map[string][]org.Member
	sessions          map[string]session.Session
	loginPages        map[string]session.LoginPage
	loginPagesByToken map[string]string

	packages       map[string]pkg.Package
	packagesByName map[string]string
	packageStars   map[string]map[string]pkg.Star
	releases       map[string]pkg.Release
	packageFiles   map[string]pkg.File
	builds         map[string]pkg.Build

	snippets       map[string]snippet.Snippet
	snippetsByName map[string]string
	snippetStars   map[string]map[string]snippet.Star

	orders     map[string]order.Order
	orderFiles map[string]order.File
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.OrgStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.PackageStore = (*Store)(nil)
var _ storage.ReleaseStore = (*Store)(nil)
var _ storage.FileStore = (*Store)(nil)
var _ storage.BuildStore = (*Store)(nil)
var _ storage.SnippetStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	s := &Store{}
	s.resetLocked()
	return s
}

// Reset restores the store to its empty state. Calling it twice in a row
// yields the same empty state both times.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Store) resetLocked() {
	s.nextID = 1
	s.accounts = make(map[string]account.Account)
	s.accountsByLogin = make(map[string]string)
	s.orgs = make(map[string]org.Org)
	s.orgsByName = make(map[string]string)
	s.orgMembers = make(map[string][]org.Member)
	s.sessions = make(map[string]session.Session)
	s.loginPages = make(map[string]session.LoginPage)
	s.loginPagesByToken = make(map[string]string)
	s.packages = make(map[string]pkg.Package)
	s.packagesByName = make(map[string]string)
	s.packageStars = make(map[string]map[string]pkg.Star)
	s.releases = make(map[string]pkg.Release)
	s.packageFiles = make(map[string]pkg.File)
	s.builds = make(map[string]pkg.Build)
	s.snippets = make(map[string]snippet.Snippet)
	s.snippetsByName = make(map[string]string)
	s.snippetStars = make(map[string]map[string]snippet.Star)
	s.orders = make(map[string]order.Order)
	s.orderFiles = make(map[string]order.File)
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

// idLess orders counter-assigned ids numerically (shorter first, then
// lexicographic), used as a deterministic sort tiebreak.
func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// AccountStore implementation -------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, fmt.Errorf("account %s already exists", acct.ID)
	}

	loginKey := strings.ToLower(strings.TrimSpace(acct.GithubUsername))
	if loginKey != "" {
		if existing, exists := s.accountsByLogin[loginKey]; exists {
			return account.Account{}, fmt.Errorf("github username %s already taken by account %s", acct.GithubUsername, existing)
		}
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.accounts[acct.ID] = cloneAccount(acct)
	if loginKey != "" {
		s.accountsByLogin[loginKey] = acct.ID
	}
	return cloneAccount(acct), nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, notFound("account", acct.ID)
	}

	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()
	// Nested shipping info merges field-by-field rather than replacing.
	acct.ShippingInfo = original.ShippingInfo.Merge(acct.ShippingInfo)
	if acct.GithubUsername == "" {
		acct.GithubUsername = original.GithubUsername
	}

	oldKey := strings.ToLower(original.GithubUsername)
	newKey := strings.ToLower(acct.GithubUsername)
	if newKey != oldKey {
		if existing, exists := s.accountsByLogin[newKey]; exists && existing != acct.ID {
			return account.Account{}, fmt.Errorf("github username %s already taken by account %s", acct.GithubUsername, existing)
		}
		delete(s.accountsByLogin, oldKey)
		s.accountsByLogin[newKey] = acct.ID
	}

	s.accounts[acct.ID] = cloneAccount(acct)
	return cloneAccount(acct), nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, notFound("account", id)
	}
	return cloneAccount(acct), nil
}

func (s *Store) GetAccountByGithubUsername(_ context.Context, username string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.accountsByLogin[strings.ToLower(strings.TrimSpace(username))]; ok {
		return cloneAccount(s.accounts[id]), nil
	}
	return account.Account{}, notFound("account", username)
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, cloneAccount(acct))
	}
	return result, nil
}

// OrgStore implementation -----------------------------------------------------

func (s *Store) CreateOrg(_ context.Context, o org.Org) (org.Org, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = s.nextIDLocked()
	} else if _, exists := s.orgs[o.ID]; exists {
		return org.Org{}, fmt.Errorf("org %s already exists", o.ID)
	}

	nameKey := strings.ToLower(strings.TrimSpace(o.Name))
	if nameKey == "" {
		return org.Org{}, fmt.Errorf("org name is required")
	}
	if existing, exists := s.orgsByName[nameKey]; exists {
		return org.Org{}, fmt.Errorf("org name %s already taken by org %s", o.Name, existing)
	}

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	s.orgs[o.ID] = o
	s.orgsByName[nameKey] = o.ID
	return o, nil
}

func (s *Store) GetOrg(_ context.Context, id string) (org.Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orgs[id]
	if !ok {
		return org.Org{}, notFound("org", id)
	}
	return o, nil
}

func (s *Store) GetOrgByName(_ context.Context, name string) (org.Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.orgsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s.orgs[id], nil
	}
	return org.Org{}, notFound("org", name)
}

func (s *Store) ListOrgs(_ context.Context, accountID string) ([]org.Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]org.Org, 0)
	for _, o := range s.orgs {
		if accountID == "" || s.isMemberLocked(o.ID, accountID) {
			result = append(result, o)
		}
	}
	return result, nil
}

func (s *Store) AddOrgMember(_ context.Context, m org.Member) (org.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[m.OrgID]; !ok {
		return org.Member{}, notFound("org", m.OrgID)
	}
	for _, existing := range s.orgMembers[m.OrgID] {
		if existing.AccountID == m.AccountID {
			return org.Member{}, fmt.Errorf("account %s is already a member of org %s", m.AccountID, m.OrgID)
		}
	}

	m.CreatedAt = time.Now().UTC()
	s.orgMembers[m.OrgID] = append(s.orgMembers[m.OrgID], m)
	return m, nil
}

func (s *Store) ListOrgMembers(_ context.Context, orgID string) ([]org.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]org.Member(nil), s.orgMembers[orgID]...), nil
}

func (s *Store) IsOrgMember(_ context.Context, orgID, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.isMemberLocked(orgID, accountID), nil
}

func (s *Store) isMemberLocked(orgID, accountID string) bool {
	for _, m := range s.orgMembers[orgID] {
		if m.AccountID == accountID {
			return true
		}
	}
	return false
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = s.nextIDLocked()
	} else if _, exists := s.sessions[sess.ID]; exists {
		return session.Session{}, fmt.Errorf("session %s already exists", sess.ID)
	}

	sess.CreatedAt = time.Now().UTC()
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(_ context.Context, id string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, notFound("session", id)
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return notFound("session", id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) CreateLoginPage(_ context.Context, p session.LoginPage) (session.LoginPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.loginPages[p.ID]; exists {
		return session.LoginPage{}, fmt.Errorf("login page %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = now.Add(session.LoginPageTTL)
	}

	s.loginPages[p.ID] = p
	if p.AuthToken != "" {
		s.loginPagesByToken[p.AuthToken] = p.ID
	}
	return p, nil
}

func (s *Store) GetLoginPage(_ context.Context, id string) (session.LoginPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.loginPages[id]
	if !ok {
		return session.LoginPage{}, notFound("login page", id)
	}
	return p, nil
}

func (s *Store) GetLoginPageByAuthToken(_ context.Context, token string) (session.LoginPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.loginPagesByToken[token]; ok {
		return s.loginPages[id], nil
	}
	return session.LoginPage{}, notFound("login page", "by token")
}

func (s *Store) UpdateLoginPage(_ context.Context, p session.LoginPage) (session.LoginPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.loginPages[p.ID]
	if !ok {
		return session.LoginPage{}, notFound("login page", p.ID)
	}

	p.CreatedAt = original.CreatedAt
	p.AuthToken = original.AuthToken
	p.ExpiresAt = original.ExpiresAt

	s.loginPages[p.ID] = p
	return p, nil
}

func (s *Store) DeleteExpiredLoginPages(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, p := range s.loginPages {
		if p.Expired(now) {
			delete(s.loginPages, id)
			delete(s.loginPagesByToken, p.AuthToken)
			removed++
		}
	}
	return removed, nil
}

// Helpers ---------------------------------------------------------------------

func cloneAccount(acct account.Account) account.Account {
	if acct.ShippingInfo != nil {
		info := *acct.ShippingInfo
		acct.ShippingInfo = &info
	}
	return acct
}
