package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/circuitforge/registry/internal/app/domain/order"
)

// OrderStore implementation ---------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = s.nextIDLocked()
	} else if _, exists := s.orders[o.ID]; exists {
		return order.Order{}, fmt.Errorf("order %s already exists", o.ID)
	}

	if o.Status == "" {
		o.Status = order.StatusDraft
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	s.orders[o.ID] = cloneOrder(o)
	return cloneOrder(o), nil
}

func (s *Store) UpdateOrder(_ context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.orders[o.ID]
	if !ok {
		return order.Order{}, notFound("order", o.ID)
	}

	o.CreatedAt = original.CreatedAt
	o.UpdatedAt = time.Now().UTC()
	s.orders[o.ID] = cloneOrder(o)
	return cloneOrder(o), nil
}

func (s *Store) GetOrder(_ context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, notFound("order", id)
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, accountID string) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]order.Order, 0)
	for _, o := range s.orders {
		if accountID == "" || o.AccountID == accountID {
			result = append(result, cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return idLess(result[j].ID, result[i].ID)
	})
	return result, nil
}

func (s *Store) CreateOrderFile(_ context.Context, f order.File) (order.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = s.nextIDLocked()
	} else if _, exists := s.orderFiles[f.ID]; exists {
		return order.File{}, fmt.Errorf("order file %s already exists", f.ID)
	}

	if _, ok := s.orders[f.OrderID]; !ok {
		return order.File{}, notFound("order", f.OrderID)
	}

	f.CreatedAt = time.Now().UTC()
	f.Content = append([]byte(nil), f.Content...)

	s.orderFiles[f.ID] = f
	return cloneOrderFile(f), nil
}

func (s *Store) GetOrderFile(_ context.Context, id string) (order.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.orderFiles[id]
	if !ok {
		return order.File{}, notFound("order file", id)
	}
	return cloneOrderFile(f), nil
}

func (s *Store) ListOrderFiles(_ context.Context, orderID string) ([]order.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]order.File, 0)
	for _, f := range s.orderFiles {
		if f.OrderID == orderID {
			result = append(result, cloneOrderFile(f))
		}
	}
	sort.Slice(result, func(i, j int) bool { return idLess(result[i].ID, result[j].ID) })
	return result, nil
}

func cloneOrder(o order.Order) order.Order {
	o.CircuitJSON = append([]interface{}(nil), o.CircuitJSON...)
	return o
}

func cloneOrderFile(f order.File) order.File {
	f.Content = append([]byte(nil), f.Content...)
	return f
}
