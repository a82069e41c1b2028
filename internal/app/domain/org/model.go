package org

import "time"

// Org is an organization that can own packages.
type Org struct {
	ID        string    `json:"org_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a join row recording an account's membership in an org.
type Member struct {
	OrgID     string    `json:"org_id"`
	AccountID string    `json:"account_id"`
	IsOwner   bool      `json:"is_owner"`
	CreatedAt time.Time `json:"created_at"`
}
