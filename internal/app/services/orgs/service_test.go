package orgs

import (
	"context"
	"testing"

	"github.com/circuitforge/registry/internal/app/domain/account"
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

func TestCreateMakesCallerOwner(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")

	o, err := svc.Create(ctx, alice, "acme")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	members, err := svc.ListMembers(ctx, o.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].AccountID != alice.ID || !members[0].IsOwner {
		t.Fatalf("expected alice as owning member, got %+v", members)
	}
}

func TestAddMemberOwnerOnly(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")
	carol := seedAccount(t, store, "carol")

	o, err := svc.Create(ctx, alice, "acme")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Non-member cannot add.
	_, err = svc.AddMember(ctx, bob, o.ID, carol.ID)
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	m, err := svc.AddMember(ctx, alice, o.ID, bob.ID)
	if err != nil {
		t.Fatalf("owner add: %v", err)
	}
	if m.IsOwner {
		t.Fatalf("added member should not be owner")
	}

	// Plain members cannot add either.
	_, err = svc.AddMember(ctx, bob, o.ID, carol.ID)
	if svcerr.GetServiceError(err) == nil {
		t.Fatalf("expected plain member to be denied, got %v", err)
	}
}

func TestListByMembership(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	if _, err := svc.Create(ctx, alice, "acme"); err != nil {
		t.Fatalf("create acme: %v", err)
	}
	if _, err := svc.Create(ctx, bob, "globex"); err != nil {
		t.Fatalf("create globex: %v", err)
	}

	mine, err := svc.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].Name != "acme" {
		t.Fatalf("expected only acme for alice, got %+v", mine)
	}
}

func TestGetMissingOrg(t *testing.T) {
	svc := New(memory.New(), nil)
	_, err := svc.Get(context.Background(), "", "ghost")
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeOrgNotFound {
		t.Fatalf("expected org_not_found, got %v", err)
	}
}
