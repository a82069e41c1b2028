package auth

import (
	"context"
	"testing"
	"time"

	"github.com/circuitforge/registry/internal/app/services/accounts"
	"github.com/circuitforge/registry/internal/app/storage/memory"
	svcerr "github.com/circuitforge/registry/internal/errors"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	accountsSvc := accounts.New(store, nil)
	svc := New(store, accountsSvc, Config{
		JWTSecret:  []byte("test-secret"),
		SessionTTL: time.Hour,
	}, nil)
	return svc, store
}

func TestDevLoginIssuesParsableToken(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.DevLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected a signed token")
	}
	if result.Account.GithubUsername != "alice" {
		t.Fatalf("expected account for alice, got %+v", result.Account)
	}

	claims, err := svc.ParseToken(result.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.AccountID != result.Account.ID {
		t.Fatalf("claims account %s, want %s", claims.AccountID, result.Account.ID)
	}
	if claims.SessionID != result.Session.ID {
		t.Fatalf("claims session %s, want %s", claims.SessionID, result.Session.ID)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc, _ := newTestService(t)
	result, err := svc.DevLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}

	other := New(memory.New(), accounts.New(memory.New(), nil), Config{
		JWTSecret: []byte("different-secret"),
	}, nil)
	if _, err := other.ParseToken(result.Token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestLoginPageFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	page, err := svc.CreateLoginPage(ctx)
	if err != nil {
		t.Fatalf("create login page: %v", err)
	}
	if page.AuthToken == "" {
		t.Fatalf("expected auth token")
	}

	// Polling before approval reports no success yet.
	polled, err := svc.GetLoginPage(ctx, page.ID, page.AuthToken)
	if err != nil {
		t.Fatalf("get login page: %v", err)
	}
	if polled.WasLoginSuccessful {
		t.Fatalf("page should not be approved yet")
	}

	login, err := svc.DevLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	if _, err := svc.ApproveLoginPage(ctx, page.ID, page.AuthToken, login.Account.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	result, err := svc.ExchangeLoginPage(ctx, page.ID, page.AuthToken)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if result.Session.AccountID != login.Account.ID {
		t.Fatalf("session bound to %s, want %s", result.Session.AccountID, login.Account.ID)
	}
	if !result.Session.IsCLISession {
		t.Fatalf("exchanged session should be a CLI session")
	}

	// Second exchange is rejected.
	if _, err := svc.ExchangeLoginPage(ctx, page.ID, page.AuthToken); err == nil {
		t.Fatalf("expected second exchange to fail")
	}
}

func TestLoginPageWrongAuthToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	page, err := svc.CreateLoginPage(ctx)
	if err != nil {
		t.Fatalf("create login page: %v", err)
	}
	_, err = svc.GetLoginPage(ctx, page.ID, "bogus")
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestExpiredLoginPageCannotBeExchanged(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	page, err := svc.CreateLoginPage(ctx)
	if err != nil {
		t.Fatalf("create login page: %v", err)
	}
	login, err := svc.DevLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	if _, err := svc.ApproveLoginPage(ctx, page.ID, page.AuthToken, login.Account.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := svc.ExchangeLoginPage(ctx, page.ID, page.AuthToken); err == nil {
		t.Fatalf("expected expired page exchange to fail")
	}
}

func TestExpiredSessionReported(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.DevLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.GetSession(ctx, result.Session.ID)
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeSessionExpired {
		t.Fatalf("expected session_expired, got %v", err)
	}
}

func TestJanitorSweepsExpiredPages(t *testing.T) {
	store := memory.New()
	accountsSvc := accounts.New(store, nil)
	svc := New(store, accountsSvc, Config{JWTSecret: []byte("s")}, nil)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	if _, err := svc.CreateLoginPage(ctx); err != nil {
		t.Fatalf("create login page: %v", err)
	}

	removed, err := store.DeleteExpiredLoginPages(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired page removed, got %d", removed)
	}
}
