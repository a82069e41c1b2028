// Package orders implements fabrication orders and their attached files.
package orders

import (
	"context"
	"errors"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/order"
	"github.com/circuitforge/registry/internal/app/storage"
	svcerr "github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/pkg/logger"
)

// Store is the persistence surface the order service needs.
type Store interface {
	storage.OrderStore
	storage.ReleaseStore
}

// Service manages orders.
type Service struct {
	store Store
	log   *logger.Logger
}

// New constructs an order service.
func New(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	return &Service{store: store, log: log}
}

// CreateInput describes a new order. Either a release or inline circuit JSON
// must be supplied.
type CreateInput struct {
	PackageReleaseID string
	CircuitJSON      []interface{}
}

// Create opens a draft order for the caller.
func (s *Service) Create(ctx context.Context, caller account.Account, in CreateInput) (order.Order, error) {
	if in.PackageReleaseID == "" && len(in.CircuitJSON) == 0 {
		return order.Order{}, svcerr.InvalidRequest("package_release_id or circuit_json is required")
	}
	if in.PackageReleaseID != "" {
		if _, err := s.store.GetRelease(ctx, in.PackageReleaseID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return order.Order{}, svcerr.NotFound(svcerr.CodeReleaseNotFound, "Package release not found")
			}
			return order.Order{}, err
		}
	}

	o, err := s.store.CreateOrder(ctx, order.Order{
		AccountID:        caller.ID,
		PackageReleaseID: in.PackageReleaseID,
		CircuitJSON:      in.CircuitJSON,
	})
	if err != nil {
		return order.Order{}, err
	}
	s.log.WithField("order_id", o.ID).
		WithField("account_id", caller.ID).
		Info("order created")
	return o, nil
}

// Get returns an order owned by the caller.
func (s *Service) Get(ctx context.Context, caller account.Account, orderID string) (order.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return order.Order{}, svcerr.NotFound(svcerr.CodeOrderNotFound, "Order not found")
		}
		return order.Order{}, err
	}
	if o.AccountID != caller.ID {
		// Orders are private to their creator.
		return order.Order{}, svcerr.NotFound(svcerr.CodeOrderNotFound, "Order not found")
	}
	return o, nil
}

// List returns the caller's orders.
func (s *Service) List(ctx context.Context, caller account.Account) ([]order.Order, error) {
	return s.store.ListOrders(ctx, caller.ID)
}

// UpdateStatus moves an order through its lifecycle. Illegal transitions are
// rejected.
func (s *Service) UpdateStatus(ctx context.Context, caller account.Account, orderID string, next order.Status, errMsg string) (order.Order, error) {
	o, err := s.Get(ctx, caller, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if err := o.Transition(next, errMsg); err != nil {
		return order.Order{}, svcerr.UpdateFailed(err.Error(), nil)
	}
	updated, err := s.store.UpdateOrder(ctx, o)
	if err != nil {
		return order.Order{}, err
	}
	s.log.WithField("order_id", orderID).
		WithField("status", string(next)).
		Info("order status changed")
	return updated, nil
}

// FileInput describes a file attached to an order.
type FileInput struct {
	OrderID      string
	IsGerbersZip bool
	Content      []byte
	ContentType  string
	ForProvider  string
}

// AddFile attaches a file to the caller's order.
func (s *Service) AddFile(ctx context.Context, caller account.Account, in FileInput) (order.File, error) {
	if len(in.Content) == 0 {
		return order.File{}, svcerr.InvalidRequest("content is required")
	}
	o, err := s.Get(ctx, caller, in.OrderID)
	if err != nil {
		return order.File{}, err
	}
	return s.store.CreateOrderFile(ctx, order.File{
		OrderID:      o.ID,
		IsGerbersZip: in.IsGerbersZip,
		Content:      in.Content,
		ContentType:  in.ContentType,
		ForProvider:  in.ForProvider,
	})
}

// GetFile returns an order file, checking the caller owns the parent order.
func (s *Service) GetFile(ctx context.Context, caller account.Account, fileID string) (order.File, error) {
	f, err := s.store.GetOrderFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return order.File{}, svcerr.NotFound(svcerr.CodeFileNotFound, "Order file not found")
		}
		return order.File{}, err
	}
	if _, err := s.Get(ctx, caller, f.OrderID); err != nil {
		return order.File{}, err
	}
	return f, nil
}

// ListFiles returns the files attached to the caller's order.
func (s *Service) ListFiles(ctx context.Context, caller account.Account, orderID string) ([]order.File, error) {
	if _, err := s.Get(ctx, caller, orderID); err != nil {
		return nil, err
	}
	return s.store.ListOrderFiles(ctx, orderID)
}
