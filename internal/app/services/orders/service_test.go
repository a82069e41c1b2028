package orders

import (
	"context"
	"testing"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/order"
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

func TestCreateStartsDraft(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	alice := seedAccount(t, store, "alice")

	o, err := svc.Create(context.Background(), alice, CreateInput{
		CircuitJSON: []interface{}{map[string]interface{}{"type": "board"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != order.StatusDraft {
		t.Fatalf("expected draft, got %s", o.Status)
	}
}

func TestCreateRequiresSource(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	alice := seedAccount(t, store, "alice")

	_, err := svc.Create(context.Background(), alice, CreateInput{})
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")

	o, err := svc.Create(ctx, alice, CreateInput{CircuitJSON: []interface{}{"x"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Draft cannot jump straight to shipped.
	_, err = svc.UpdateStatus(ctx, alice, o.ID, order.StatusShipped, "")
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeUpdateFailed {
		t.Fatalf("expected update_failed, got %v", err)
	}

	for _, next := range []order.Status{
		order.StatusSubmitted,
		order.StatusValidated,
		order.StatusInProduction,
		order.StatusShipped,
		order.StatusDelivered,
	} {
		o, err = svc.UpdateStatus(ctx, alice, o.ID, next, "")
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	// Delivered is terminal.
	if _, err := svc.UpdateStatus(ctx, alice, o.ID, order.StatusCancelled, ""); err == nil {
		t.Fatalf("expected terminal state to reject transitions")
	}
}

func TestFailureRecordsError(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")

	o, err := svc.Create(ctx, alice, CreateInput{CircuitJSON: []interface{}{"x"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	o, err = svc.UpdateStatus(ctx, alice, o.ID, order.StatusSubmitted, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	o, err = svc.UpdateStatus(ctx, alice, o.ID, order.StatusFailed, "board outline missing")
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if o.Error != "board outline missing" {
		t.Fatalf("expected failure reason recorded, got %q", o.Error)
	}
}

func TestOrdersArePrivate(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	o, err := svc.Create(ctx, alice, CreateInput{CircuitJSON: []interface{}{"x"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.Get(ctx, bob, o.ID)
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeOrderNotFound {
		t.Fatalf("expected order_not_found for other account, got %v", err)
	}
}

func TestOrderFiles(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()
	alice := seedAccount(t, store, "alice")
	bob := seedAccount(t, store, "bob")

	o, err := svc.Create(ctx, alice, CreateInput{CircuitJSON: []interface{}{"x"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f, err := svc.AddFile(ctx, alice, FileInput{
		OrderID:      o.ID,
		IsGerbersZip: true,
		Content:      []byte{0x50, 0x4b},
		ContentType:  "application/zip",
		ForProvider:  "jlcpcb",
	})
	if err != nil {
		t.Fatalf("add file: %v", err)
	}

	files, err := svc.ListFiles(ctx, alice, o.ID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 || files[0].ID != f.ID {
		t.Fatalf("unexpected files: %+v", files)
	}

	// Files inherit order privacy.
	if _, err := svc.GetFile(ctx, bob, f.ID); svcerr.GetServiceError(err) == nil {
		t.Fatalf("expected other accounts to be denied")
	}
}
