package account

import "time"

// Account represents a registered user, keyed by their GitHub identity.
type Account struct {
	ID             string        `json:"account_id"`
	GithubUsername string        `json:"github_username"`
	ShippingInfo   *ShippingInfo `json:"shipping_info,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ShippingInfo is the nested shipping sub-record on an account. Updates
// merge field-by-field rather than replacing the whole record.
type ShippingInfo struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	ZipCode     string `json:"zip_code,omitempty"`
	Country     string `json:"country,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Merge overlays non-empty fields of other onto a copy of s.
func (s *ShippingInfo) Merge(other *ShippingInfo) *ShippingInfo {
	if other == nil {
		return s
	}
	if s == nil {
		merged := *other
		return &merged
	}
	merged := *s
	if other.FirstName != "" {
		merged.FirstName = other.FirstName
	}
	if other.LastName != "" {
		merged.LastName = other.LastName
	}
	if other.CompanyName != "" {
		merged.CompanyName = other.CompanyName
	}
	if other.Address1 != "" {
		merged.Address1 = other.Address1
	}
	if other.Address2 != "" {
		merged.Address2 = other.Address2
	}
	if other.City != "" {
		merged.City = other.City
	}
	if other.State != "" {
		merged.State = other.State
	}
	if other.ZipCode != "" {
		merged.ZipCode = other.ZipCode
	}
	if other.Country != "" {
		merged.Country = other.Country
	}
	if other.Phone != "" {
		merged.Phone = other.Phone
	}
	return &merged
}
