package packages

import (
	"context"
	"fmt"
	"testing"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/org"
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

func TestCreateScopesBareName(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	alice := seedAccount(t, store, "alice")

	p, err := svc.Create(context.Background(), alice, CreateInput{Name: "led-matrix"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Name != "alice/led-matrix" {
		t.Fatalf("expected scoped name, got %s", p.Name)
	}
	if p.UnscopedName != "led-matrix" || p.OwnerGithubUsername != "alice" {
		t.Fatalf("owner split wrong: %+v", p)
	}
	if !p.IsPublic || p.IsPrivate {
		t.Fatalf("default visibility should be public")
	}
}

func TestCreateUnderForeignOwnerRejected(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	alice := seedAccount(t, store, "alice")

	_, err := svc.Create(context.Background(), alice, CreateInput{Name: "bob/thing"})
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateUnderOrgRequiresMembership(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	o, err := store.CreateOrg(ctx, org.Org{Name: "acme"})
	if err != nil {
		t.Fatalf("create org: %v", err)
	}
	if _, err := store.AddOrgMember(ctx, org.Member{OrgID: o.ID, AccountID: alice.ID, IsOwner: true}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	p, err := svc.Create(ctx, alice, CreateInput{Name: "acme/widget"})
	if err != nil {
		t.Fatalf("member create: %v", err)
	}
	if p.OwnerOrgID != o.ID {
		t.Fatalf("expected org ownership, got %+v", p)
	}

	_, err = svc.Create(ctx, bob, CreateInput{Name: "acme/other"})
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeForbidden {
		t.Fatalf("expected forbidden for non-member, got %v", err)
	}
}

func TestPrivatePackageHiddenFromStrangers(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	p, err := svc.Create(ctx, alice, CreateInput{Name: "secret-board", IsPrivate: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, alice, p.ID, ""); err != nil {
		t.Fatalf("owner read: %v", err)
	}

	_, err = svc.Get(ctx, bob, p.ID, "")
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodePackageNotFound {
		t.Fatalf("expected package_not_found for stranger, got %v", err)
	}

	// Anonymous callers cannot see it either.
	_, err = svc.Get(ctx, account.Account{}, p.ID, "")
	if svcerr.GetServiceError(err) == nil {
		t.Fatalf("expected error for anonymous read, got %v", err)
	}

	listed, err := svc.List(ctx, bob, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("stranger should not see private packages, got %d", len(listed))
	}
}

func TestStarUnstarAdjustsCount(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	p, err := svc.Create(ctx, alice, CreateInput{Name: "led-matrix"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	starred, err := svc.Star(ctx, bob, "", "alice/led-matrix")
	if err != nil {
		t.Fatalf("star: %v", err)
	}
	if starred.StarCount != 1 {
		t.Fatalf("expected 1 star, got %d", starred.StarCount)
	}

	// Starring again does not double count.
	starred, err = svc.Star(ctx, bob, p.ID, "")
	if err != nil {
		t.Fatalf("re-star: %v", err)
	}
	if starred.StarCount != 1 {
		t.Fatalf("expected 1 star after repeat, got %d", starred.StarCount)
	}

	unstarred, err := svc.Unstar(ctx, bob, p.ID, "")
	if err != nil {
		t.Fatalf("unstar: %v", err)
	}
	if unstarred.StarCount != 0 {
		t.Fatalf("expected 0 stars, got %d", unstarred.StarCount)
	}
}

func TestUpdateOwnershipEnforced(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	p, err := svc.Create(ctx, alice, CreateInput{Name: "led-matrix"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	desc := "an 8x8 LED matrix"
	updated, err := svc.Update(ctx, alice, p.ID, UpdateInput{Description: &desc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != desc {
		t.Fatalf("description not applied")
	}

	_, err = svc.Update(ctx, bob, p.ID, UpdateInput{Description: &desc})
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeForbidden {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
}

func TestSearchExcludesPrivate(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")

	if _, err := svc.Create(ctx, alice, CreateInput{Name: "matrix-driver"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, alice, CreateInput{Name: "matrix-secret", IsPrivate: true}); err != nil {
		t.Fatalf("create private: %v", err)
	}

	found, err := svc.Search(ctx, "matrix")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Name != "alice/matrix-driver" {
		t.Fatalf("unexpected results: %+v", found)
	}
}

func ExampleService_Create() {
	store := memory.New()
	svc := New(store, nil)
	alice, _ := store.CreateAccount(context.Background(), account.Account{GithubUsername: "alice"})

	p, _ := svc.Create(context.Background(), alice, CreateInput{Name: "led-matrix", IsBoard: true})
	fmt.Println(p.Name)
	// Output: alice/led-matrix
}
