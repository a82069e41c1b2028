// Package auth implements sessions, bearer token issuance, and the
// device-style login page flow used by the CLI.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/session"
	"github.com/circuitforge/registry/internal/app/storage"
	svcerr "github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/pkg/logger"
)

// AccountEnsurer resolves a GitHub username to an account, creating one on
// first login.
type AccountEnsurer interface {
	Ensure(ctx context.Context, githubUsername string) (account.Account, error)
	Get(ctx context.Context, accountID string) (account.Account, error)
}

// Claims is the JWT payload carried by session tokens.
type Claims struct {
	AccountID      string `json:"account_id"`
	SessionID      string `json:"session_id"`
	GithubUsername string `json:"github_username,omitempty"`
	jwt.RegisteredClaims
}

// Config controls token issuance.
type Config struct {
	JWTSecret  []byte
	SessionTTL time.Duration
}

// Service manages login and session lifecycle.
type Service struct {
	store    storage.SessionStore
	accounts AccountEnsurer
	cfg      Config
	log      *logger.Logger

	now func() time.Time
}

// New constructs an auth service.
func New(store storage.SessionStore, accounts AccountEnsurer, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	return &Service{store: store, accounts: accounts, cfg: cfg, log: log, now: time.Now}
}

// LoginResult bundles the session and its signed bearer token.
type LoginResult struct {
	Session session.Session
	Account account.Account
	Token   string
}

// DevLogin creates (or reuses) the account for a GitHub username and issues a
// fresh session token. It backs the fake registry's unauthenticated login
// endpoint and is not a real OAuth flow.
func (s *Service) DevLogin(ctx context.Context, githubUsername string) (LoginResult, error) {
	acct, err := s.accounts.Ensure(ctx, githubUsername)
	if err != nil {
		return LoginResult{}, err
	}
	return s.issueSession(ctx, acct, false)
}

// CreateLoginPage starts the device flow: it returns a short-lived page the
// CLI polls while the browser approves it.
func (s *Service) CreateLoginPage(ctx context.Context) (session.LoginPage, error) {
	now := s.now().UTC()
	page := session.LoginPage{
		AuthToken: uuid.NewString(),
		ExpiresAt: now.Add(session.LoginPageTTL),
	}
	page, err := s.store.CreateLoginPage(ctx, page)
	if err != nil {
		return session.LoginPage{}, err
	}
	s.log.WithField("login_page_id", page.ID).Info("login page created")
	return page, nil
}

// GetLoginPage returns the page's current state, authorised by its auth token.
func (s *Service) GetLoginPage(ctx context.Context, pageID, authToken string) (session.LoginPage, error) {
	page, err := s.store.GetLoginPage(ctx, pageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return session.LoginPage{}, svcerr.NotFound(svcerr.CodeLoginPageNotFound, "Login page not found")
		}
		return session.LoginPage{}, err
	}
	if page.AuthToken != authToken {
		return session.LoginPage{}, svcerr.Forbidden("Incorrect login page auth token")
	}
	return page, nil
}

// ApproveLoginPage marks a page as successfully logged in by the browser
// session of the given account.
func (s *Service) ApproveLoginPage(ctx context.Context, pageID, authToken, accountID string) (session.LoginPage, error) {
	page, err := s.GetLoginPage(ctx, pageID, authToken)
	if err != nil {
		return session.LoginPage{}, err
	}
	if page.Expired(s.now().UTC()) {
		return session.LoginPage{}, svcerr.InvalidRequest("Login page has expired")
	}
	page.AccountID = accountID
	page.WasLoginSuccessful = true
	return s.store.UpdateLoginPage(ctx, page)
}

// ExchangeLoginPage trades an approved page for a CLI session token. Each
// page can be exchanged exactly once.
func (s *Service) ExchangeLoginPage(ctx context.Context, pageID, authToken string) (LoginResult, error) {
	page, err := s.GetLoginPage(ctx, pageID, authToken)
	if err != nil {
		return LoginResult{}, err
	}
	now := s.now().UTC()
	switch {
	case page.Expired(now):
		return LoginResult{}, svcerr.InvalidRequest("Login page has expired")
	case page.HasBeenUsed:
		return LoginResult{}, svcerr.InvalidRequest("Login page has already been used to create a session")
	case !page.WasLoginSuccessful:
		return LoginResult{}, svcerr.InvalidRequest("Login page has not been approved")
	}

	page.HasBeenUsed = true
	if _, err := s.store.UpdateLoginPage(ctx, page); err != nil {
		return LoginResult{}, err
	}

	acct, err := s.accounts.Get(ctx, page.AccountID)
	if err != nil {
		return LoginResult{}, err
	}
	return s.issueSession(ctx, acct, true)
}

// GetSession returns a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (session.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return session.Session{}, svcerr.Unauthorized("Session not found")
		}
		return session.Session{}, err
	}
	if sess.Expired(s.now().UTC()) {
		return session.Session{}, svcerr.SessionExpired()
	}
	return sess, nil
}

// Logout deletes a session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.cfg.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, svcerr.InvalidToken(err)
	}
	return claims, nil
}

func (s *Service) issueSession(ctx context.Context, acct account.Account, isCLI bool) (LoginResult, error) {
	now := s.now().UTC()
	sess := session.Session{
		AccountID:    acct.ID,
		IsCLISession: isCLI,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
	}
	sess, err := s.store.CreateSession(ctx, sess)
	if err != nil {
		return LoginResult{}, err
	}

	claims := Claims{
		AccountID:      acct.ID,
		SessionID:      sess.ID,
		GithubUsername: acct.GithubUsername,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.JWTSecret)
	if err != nil {
		return LoginResult{}, svcerr.Internal("failed to sign session token", err)
	}

	s.log.WithField("session_id", sess.ID).
		WithField("account_id", acct.ID).
		WithField("cli", isCLI).
		Info("session created")
	return LoginResult{Session: sess, Account: acct, Token: token}, nil
}
