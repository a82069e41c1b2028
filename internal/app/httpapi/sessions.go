package httpapi

import (
	"net/http"
	"strings"

	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/app/domain/session"
	"github.com/circuitforge/registry/internal/app/services/auth"
	"github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/internal/middleware"
)

type loginResponse struct {
	Account account.Account `json:"account"`
	Session session.Session `json:"session"`
	Token   string          `json:"token"`
}

func toLoginResponse(res auth.LoginResult) loginResponse {
	return loginResponse{Account: res.Account, Session: res.Session, Token: res.Token}
}

// sessionsLogin is the development login: it upserts an account for a GitHub
// username and issues a session token without any OAuth exchange.
func (h *handler) sessionsLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GithubUsername string `json:"github_username"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.GithubUsername) == "" {
		writeError(w, errors.InvalidRequest("github_username is required"))
		return
	}

	res, err := h.app.Auth.DevLogin(r.Context(), payload.GithubUsername)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoginResponse(res))
}

func (h *handler) sessionsLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireCaller(w, r); !ok {
		return
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		// Legacy tokens carry no session to revoke.
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	if err := h.app.Auth.Logout(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) loginPagesCreate(w http.ResponseWriter, r *http.Request) {
	page, err := h.app.Auth.CreateLoginPage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) loginPagesGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.app.Auth.GetLoginPage(r.Context(), q.Get("login_page_id"), q.Get("login_page_auth_token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// loginPagesApprove marks a pending login page as successful on behalf of the
// authenticated browser session.
func (h *handler) loginPagesApprove(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		LoginPageID string `json:"login_page_id"`
		AuthToken   string `json:"login_page_auth_token"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	page, err := h.app.Auth.ApproveLoginPage(r.Context(), payload.LoginPageID, payload.AuthToken, acct.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) loginPagesExchange(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LoginPageID string `json:"login_page_id"`
		AuthToken   string `json:"login_page_auth_token"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	res, err := h.app.Auth.ExchangeLoginPage(r.Context(), payload.LoginPageID, payload.AuthToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoginResponse(res))
}

// accountsGet returns the named account, or the caller's own when no
// account_id is given.
func (h *handler) accountsGet(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		acct, ok := h.requireCaller(w, r)
		if !ok {
			return
		}
		accountID = acct.ID
	}

	acct, err := h.app.Accounts.Get(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) accountsUpdate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		ShippingInfo *account.ShippingInfo `json:"shipping_info"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}
	if payload.ShippingInfo == nil {
		writeError(w, errors.InvalidRequest("shipping_info is required"))
		return
	}

	updated, err := h.app.Accounts.UpdateShippingInfo(r.Context(), acct.ID, payload.ShippingInfo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
