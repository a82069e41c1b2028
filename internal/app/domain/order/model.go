// Package order defines fabrication orders and their attached files.
package order

import (
	"fmt"
	"time"
)

// Status is the explicit order lifecycle state.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusSubmitted    Status = "submitted"
	StatusValidated    Status = "validated"
	StatusInProduction Status = "in_production"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
	StatusCancelled    Status = "cancelled"
	StatusFailed       Status = "failed"
)

// transitions lists the legal next states for each status. Terminal states
// have no entries.
var transitions = map[Status][]Status{
	StatusDraft:        {StatusSubmitted, StatusCancelled},
	StatusSubmitted:    {StatusValidated, StatusCancelled, StatusFailed},
	StatusValidated:    {StatusInProduction, StatusCancelled, StatusFailed},
	StatusInProduction: {StatusShipped, StatusFailed},
	StatusShipped:      {StatusDelivered},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusValidated, StatusInProduction,
		StatusShipped, StatusDelivered, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a fabrication order for a circuit.
type Order struct {
	ID               string        `json:"order_id"`
	AccountID        string        `json:"account_id"`
	PackageReleaseID string        `json:"package_release_id,omitempty"`
	CircuitJSON      []interface{} `json:"circuit_json,omitempty"`
	Status           Status        `json:"status"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Transition applies a status change, enforcing lifecycle legality.
func (o *Order) Transition(next Status, errMsg string) error {
	if !next.Valid() {
		return fmt.Errorf("unknown order status %q", next)
	}
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("cannot move order from %s to %s", o.Status, next)
	}
	o.Status = next
	if next == StatusFailed {
		o.Error = errMsg
	}
	return nil
}

// File is a file attached to an order, e.g. a gerbers archive sent to the
// fabrication provider.
type File struct {
	ID           string    `json:"order_file_id"`
	OrderID      string    `json:"order_id"`
	IsGerbersZip bool      `json:"is_gerbers_zip"`
	Content      []byte    `json:"content_b64,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	ForProvider  string    `json:"for_provider,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
