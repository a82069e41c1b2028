package session

import "time"

// LoginPageTTL is how long a login page stays valid after creation.
const LoginPageTTL = 30 * time.Minute

// Session is an authenticated session resolved from a bearer token.
type Session struct {
	ID           string    `json:"session_id"`
	AccountID    string    `json:"account_id"`
	IsCLISession bool      `json:"is_cli_session"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// LoginPage is a short-lived artifact for the device-style login flow. A CLI
// creates one, the browser approves it, and the CLI exchanges it for a
// session exactly once.
type LoginPage struct {
	ID                 string    `json:"login_page_id"`
	AuthToken          string    `json:"login_page_auth_token"`
	AccountID          string    `json:"account_id,omitempty"`
	WasLoginSuccessful bool      `json:"was_login_successful"`
	HasBeenUsed        bool      `json:"has_been_used_to_create_session"`
	ExpiresAt          time.Time `json:"expires_at"`
	CreatedAt          time.Time `json:"created_at"`
}

// Expired reports whether the login page is past its expiry.
func (p LoginPage) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
