// Package middleware provides the HTTP middleware chain for the registry API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/services/auth"
	"github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/internal/httputil"
	"github.com/circuitforge/registry/pkg/logger"
)

type contextKey string

const (
	accountKey contextKey = "auth_account"
	sessionKey contextKey = "auth_session"
)

// AuthMiddleware resolves bearer tokens to accounts. Tokens are normally
// signed JWTs; when legacy tokens are allowed, a raw account id is accepted
// the way the original development registry did.
type AuthMiddleware struct {
	auth        *auth.Service
	accounts    auth.AccountEnsurer
	allowLegacy bool
	log         *logger.Logger
}

// NewAuthMiddleware creates the authentication middleware.
func NewAuthMiddleware(authSvc *auth.Service, accounts auth.AccountEnsurer, allowLegacy bool, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth-middleware")
	}
	return &AuthMiddleware{auth: authSvc, accounts: accounts, allowLegacy: allowLegacy, log: log}
}

// Handler attaches the resolved account to the request context. Requests
// without an Authorization header pass through anonymously; handlers that
// need auth use RequireAccount.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.respondError(w, r, errors.Unauthorized("Invalid Authorization header format"))
			return
		}

		acct, sessionID, err := m.resolve(r.Context(), parts[1])
		if err != nil {
			m.log.WithContext(r.Context()).WithError(err).Warn("token resolution failed")
			m.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, acct)
		ctx = logger.WithAccountID(ctx, acct.ID)
		if sessionID != "" {
			ctx = context.WithValue(ctx, sessionKey, sessionID)
			ctx = logger.WithSessionID(ctx, sessionID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) resolve(ctx context.Context, token string) (account.Account, string, error) {
	claims, err := m.auth.ParseToken(token)
	if err == nil {
		if _, serr := m.auth.GetSession(ctx, claims.SessionID); serr != nil {
			return account.Account{}, "", serr
		}
		acct, aerr := m.accounts.Get(ctx, claims.AccountID)
		if aerr != nil {
			return account.Account{}, "", errors.Unauthorized("Account for token no longer exists")
		}
		return acct, claims.SessionID, nil
	}

	// Legacy tokens are bare account ids.
	if m.allowLegacy {
		if acct, aerr := m.accounts.Get(ctx, token); aerr == nil {
			return acct, "", nil
		}
	}
	return account.Account{}, "", err
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("Authentication failed", err)
	}
	httputil.WriteErrorResponse(w, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
}

// AccountFromContext returns the authenticated account, if any.
func AccountFromContext(ctx context.Context) (account.Account, bool) {
	acct, ok := ctx.Value(accountKey).(account.Account)
	return acct, ok && acct.ID != ""
}

// SessionIDFromContext returns the session id for JWT-authenticated requests,
// or "" for anonymous and legacy-token requests.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// RequireAccount wraps a handler so it rejects anonymous requests.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFromContext(r.Context()); !ok {
			httputil.WriteErrorResponse(w, http.StatusUnauthorized, string(errors.CodeUnauthorized), "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
