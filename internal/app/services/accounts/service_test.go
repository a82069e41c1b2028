package accounts

import (
	"context"
	"testing"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/storage/memory"
	svcerr "github.com/circuitforge/registry/internal/errors"
)

func TestEnsureIsIdempotent(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	first, err := svc.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected id to be generated")
	}

	second, err := svc.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same account, got %s and %s", first.ID, second.ID)
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 account, got %d", len(list))
	}
}

func TestUpdateShippingInfoMerges(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	acct, err := svc.Ensure(context.Background(), "bob")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	_, err = svc.UpdateShippingInfo(context.Background(), acct.ID, &account.ShippingInfo{
		FirstName: "Bob",
		City:      "Austin",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	updated, err := svc.UpdateShippingInfo(context.Background(), acct.ID, &account.ShippingInfo{
		City: "Denver",
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if updated.ShippingInfo.FirstName != "Bob" {
		t.Fatalf("expected first name to survive partial update")
	}
	if updated.ShippingInfo.City != "Denver" {
		t.Fatalf("expected city to be overwritten, got %s", updated.ShippingInfo.City)
	}
}

func TestGetMissingAccount(t *testing.T) {
	svc := New(memory.New(), nil)

	_, err := svc.Get(context.Background(), "999")
	if err == nil {
		t.Fatalf("expected error for missing account")
	}
	se := svcerr.GetServiceError(err)
	if se == nil || se.Code != svcerr.CodeAccountNotFound {
		t.Fatalf("expected account_not_found, got %v", err)
	}
}
