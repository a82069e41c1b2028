package httpapi

import (
	"net/http"
)

func (h *handler) orgsCreate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	created, err := h.app.Orgs.Create(r.Context(), acct, payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *handler) orgsGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	o, err := h.app.Orgs.Get(r.Context(), q.Get("org_id"), q.Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// orgsList returns the orgs the named account belongs to, defaulting to the
// caller.
func (h *handler) orgsList(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		acct, ok := h.requireCaller(w, r)
		if !ok {
			return
		}
		accountID = acct.ID
	}

	list, err := h.app.Orgs.List(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) orgsAddMember(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		OrgID     string `json:"org_id"`
		AccountID string `json:"account_id"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	member, err := h.app.Orgs.AddMember(r.Context(), acct, payload.OrgID, payload.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *handler) orgsListMembers(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Orgs.ListMembers(r.Context(), r.URL.Query().Get("org_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
