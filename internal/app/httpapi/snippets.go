package httpapi

import (
	"net/http"
	"strconv"

	"github.com/circuitforge/registry/internal/app/domain/snippet"
	"github.com/circuitforge/registry/internal/app/services/snippets"
)

const defaultSnippetListLimit = 20

func (h *handler) snippetsCreate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		UnscopedName string        `json:"unscoped_name"`
		Code         string        `json:"code"`
		DTS          string        `json:"dts"`
		CompiledJS   string        `json:"compiled_js"`
		CircuitJSON  []interface{} `json:"circuit_json"`
		Type         string        `json:"snippet_type"`
		Description  string        `json:"description"`
		IsPrivate    bool          `json:"is_private"`
		IsUnlisted   bool          `json:"is_unlisted"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	created, err := h.app.Snippets.Create(r.Context(), acct, snippets.CreateInput{
		UnscopedName: payload.UnscopedName,
		Code:         payload.Code,
		DTS:          payload.DTS,
		CompiledJS:   payload.CompiledJS,
		CircuitJSON:  payload.CircuitJSON,
		Type:         snippet.Type(payload.Type),
		Description:  payload.Description,
		IsPrivate:    payload.IsPrivate,
		IsUnlisted:   payload.IsUnlisted,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *handler) snippetsGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sn, err := h.app.Snippets.Get(r.Context(), caller(r), q.Get("snippet_id"), q.Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

func (h *handler) snippetsList(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Snippets.List(r.Context(), caller(r), r.URL.Query().Get("owner_name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) snippetsListNewest(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Snippets.ListNewest(r.Context(), listLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) snippetsListTrending(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Snippets.ListTrending(r.Context(), listLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) snippetsSearch(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Snippets.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) snippetsUpdate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		SnippetID   string        `json:"snippet_id"`
		Code        *string       `json:"code"`
		DTS         *string       `json:"dts"`
		CompiledJS  *string       `json:"compiled_js"`
		CircuitJSON []interface{} `json:"circuit_json"`
		Description *string       `json:"description"`
		IsPrivate   *bool         `json:"is_private"`
		IsUnlisted  *bool         `json:"is_unlisted"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	updated, err := h.app.Snippets.Update(r.Context(), acct, payload.SnippetID, snippets.UpdateInput{
		Code:        payload.Code,
		DTS:         payload.DTS,
		CompiledJS:  payload.CompiledJS,
		CircuitJSON: payload.CircuitJSON,
		Description: payload.Description,
		IsPrivate:   payload.IsPrivate,
		IsUnlisted:  payload.IsUnlisted,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) snippetsDelete(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		SnippetID string `json:"snippet_id"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	if err := h.app.Snippets.Delete(r.Context(), acct, payload.SnippetID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) snippetsStar(w http.ResponseWriter, r *http.Request) {
	h.snippetsSetStar(w, r, true)
}

func (h *handler) snippetsUnstar(w http.ResponseWriter, r *http.Request) {
	h.snippetsSetStar(w, r, false)
}

func (h *handler) snippetsSetStar(w http.ResponseWriter, r *http.Request, starred bool) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		SnippetID string `json:"snippet_id"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	var (
		sn  snippet.Snippet
		err error
	)
	if starred {
		sn, err = h.app.Snippets.Star(r.Context(), acct, payload.SnippetID)
	} else {
		sn, err = h.app.Snippets.Unstar(r.Context(), acct, payload.SnippetID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

func listLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return defaultSnippetListLimit
}
