package snippets

import (
	"context"
	"testing"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/snippet"
	"github.com/circuitforge/registry/internal/app/storage/memory"
	svcerr "github.com/circuitforge/registry/internal/errors"
)

func seedAccount(t *testing.T, store *memory.Store, username string) account.Account {
	t.Helper()
	acct, err := store.CreateAccount(context.Background(), account.Account{GithubUsername: username})
	if err != nil {
		t.Fatalf("seed account %s: %v", username, err)
	}
	return acct
}

func TestCreateSynthesizesRelease(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")

	sn, err := svc.Create(ctx, alice, CreateInput{
		UnscopedName: "blinker",
		Code:         "export default () => <led />",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sn.Name != "alice/blinker" {
		t.Fatalf("expected scoped name, got %s", sn.Name)
	}
	if sn.Type != snippet.TypeBoard {
		t.Fatalf("expected default board type, got %s", sn.Type)
	}
	if sn.ReleaseID == "" {
		t.Fatalf("expected a synthesized release")
	}
	r, err := store.GetRelease(ctx, sn.ReleaseID)
	if err != nil {
		t.Fatalf("get release: %v", err)
	}
	if r.PackageID != "" {
		t.Fatalf("snippet release should not belong to a package")
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	alice := seedAccount(t, store, "alice")

	_, err := svc.Create(context.Background(), alice, CreateInput{
		UnscopedName: "blinker",
		Type:         snippet.Type("widget"),
	})
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestUpdateAndDeleteOwnerOnly(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	sn, err := svc.Create(ctx, alice, CreateInput{UnscopedName: "blinker", Code: "v1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	code := "v2"
	updated, err := svc.Update(ctx, alice, sn.ID, UpdateInput{Code: &code})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Code != "v2" {
		t.Fatalf("code not updated")
	}
	if updated.Name != "alice/blinker" {
		t.Fatalf("name should be immutable, got %s", updated.Name)
	}

	_, err = svc.Update(ctx, bob, sn.ID, UpdateInput{Code: &code})
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeForbidden {
		t.Fatalf("expected forbidden for non-owner update, got %v", err)
	}

	if err := svc.Delete(ctx, bob, sn.ID); svcerr.GetServiceError(err) == nil {
		t.Fatalf("expected forbidden for non-owner delete, got %v", err)
	}
	if err := svc.Delete(ctx, alice, sn.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	// The backing release survives deletion.
	if _, err := store.GetRelease(ctx, sn.ReleaseID); err != nil {
		t.Fatalf("release should survive snippet deletion: %v", err)
	}
}

func TestPrivateSnippetHiddenFromStrangers(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	sn, err := svc.Create(ctx, alice, CreateInput{UnscopedName: "secret", IsPrivate: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, alice, sn.ID, ""); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	_, err = svc.Get(ctx, bob, "", "alice/secret")
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeSnippetNotFound {
		t.Fatalf("expected snippet_not_found, got %v", err)
	}
}

func TestTrendingRanksByRecentStars(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")
	carol := seedAccount(t, store, "carol")

	quiet, err := svc.Create(ctx, alice, CreateInput{UnscopedName: "quiet"})
	if err != nil {
		t.Fatalf("create quiet: %v", err)
	}
	popular, err := svc.Create(ctx, alice, CreateInput{UnscopedName: "popular"})
	if err != nil {
		t.Fatalf("create popular: %v", err)
	}

	if _, err := svc.Star(ctx, bob, popular.ID); err != nil {
		t.Fatalf("star: %v", err)
	}
	if _, err := svc.Star(ctx, carol, popular.ID); err != nil {
		t.Fatalf("star: %v", err)
	}

	trending, err := svc.ListTrending(ctx, 10)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(trending) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(trending))
	}
	if trending[0].ID != popular.ID {
		t.Fatalf("expected popular snippet first, got %s", trending[0].Name)
	}
	if trending[0].StarCount != 2 {
		t.Fatalf("expected windowed star count 2, got %d", trending[0].StarCount)
	}
	_ = quiet

	// Stars older than the window do not count.
	svc.now = func() time.Time { return time.Now().Add(TrendingWindow + time.Hour) }
	trending, err = svc.ListTrending(ctx, 10)
	if err != nil {
		t.Fatalf("trending after window: %v", err)
	}
	if trending[0].StarCount != 0 {
		t.Fatalf("expected stale stars to be excluded, got %d", trending[0].StarCount)
	}
}

func TestSearchMatchesCode(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")

	if _, err := svc.Create(ctx, alice, CreateInput{UnscopedName: "a", Code: "uses RESISTOR here"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, alice, CreateInput{UnscopedName: "b", Code: "nothing relevant"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := svc.Search(ctx, "resistor")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].UnscopedName != "a" {
		t.Fatalf("unexpected results: %+v", found)
	}
}
