package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/circuitforge/registry/internal/app/services/accounts"
	"github.com/circuitforge/registry/internal/app/services/auth"
	"github.com/circuitforge/registry/internal/app/storage/memory"
)

func newAuthFixture(t *testing.T, allowLegacy bool) (*AuthMiddleware, *auth.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	accountsSvc := accounts.New(store, nil)
	authSvc := auth.New(store, accountsSvc, auth.Config{
		JWTSecret:  []byte("test-secret"),
		SessionTTL: time.Hour,
	}, nil)
	return NewAuthMiddleware(authSvc, accountsSvc, allowLegacy, nil), authSvc, store
}

func echoAccount(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var got string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if acct, ok := AccountFromContext(r.Context()); ok {
			got = acct.GithubUsername
		}
		w.WriteHeader(http.StatusOK)
	})
	return h, &got
}

func TestValidTokenResolvesAccount(t *testing.T) {
	mw, authSvc, _ := newAuthFixture(t, false)

	login, err := authSvc.DevLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}

	inner, got := echoAccount(t)
	req := httptest.NewRequest(http.MethodGet, "/api/packages/list", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()
	mw.Handler(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if *got != "alice" {
		t.Fatalf("expected alice in context, got %q", *got)
	}
}

func TestMissingHeaderIsAnonymous(t *testing.T) {
	mw, _, _ := newAuthFixture(t, false)

	inner, got := echoAccount(t)
	req := httptest.NewRequest(http.MethodGet, "/api/packages/list", nil)
	rec := httptest.NewRecorder()
	mw.Handler(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous request should pass through, got %d", rec.Code)
	}
	if *got != "" {
		t.Fatalf("expected no account, got %q", *got)
	}
}

func TestMalformedHeaderRejected(t *testing.T) {
	mw, _, _ := newAuthFixture(t, false)

	inner, _ := echoAccount(t)
	req := httptest.NewRequest(http.MethodGet, "/api/packages/list", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	mw.Handler(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	mw, _, _ := newAuthFixture(t, false)

	inner, _ := echoAccount(t)
	req := httptest.NewRequest(http.MethodGet, "/api/packages/list", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	mw.Handler(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLegacyAccountIDToken(t *testing.T) {
	mw, authSvc, _ := newAuthFixture(t, true)

	login, err := authSvc.DevLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}

	inner, got := echoAccount(t)
	req := httptest.NewRequest(http.MethodGet, "/api/packages/list", nil)
	req.Header.Set("Authorization", "Bearer "+login.Account.ID)
	rec := httptest.NewRecorder()
	mw.Handler(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if *got != "alice" {
		t.Fatalf("expected alice via legacy token, got %q", *got)
	}
}

func TestLegacyTokenDisabledByDefault(t *testing.T) {
	mw, authSvc, _ := newAuthFixture(t, false)

	login, err := authSvc.DevLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}

	inner, _ := echoAccount(t)
	req := httptest.NewRequest(http.MethodGet, "/api/packages/list", nil)
	req.Header.Set("Authorization", "Bearer "+login.Account.ID)
	rec := httptest.NewRecorder()
	mw.Handler(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when legacy tokens disabled, got %d", rec.Code)
	}
}

func TestRequireAccount(t *testing.T) {
	handler := RequireAccount(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/packages/create", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", rec.Code)
	}
}
