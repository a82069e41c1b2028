package httpapi

import (
	"net/http"

	"github.com/circuitforge/registry/internal/app/domain/order"
	"github.com/circuitforge/registry/internal/app/services/orders"
)

func (h *handler) ordersCreate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		PackageReleaseID string        `json:"package_release_id"`
		CircuitJSON      []interface{} `json:"circuit_json"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	created, err := h.app.Orders.Create(r.Context(), acct, orders.CreateInput{
		PackageReleaseID: payload.PackageReleaseID,
		CircuitJSON:      payload.CircuitJSON,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *handler) ordersGet(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	o, err := h.app.Orders.Get(r.Context(), acct, r.URL.Query().Get("order_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handler) ordersList(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.app.Orders.List(r.Context(), acct)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) ordersUpdate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
		Error   string `json:"error"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	updated, err := h.app.Orders.UpdateStatus(r.Context(), acct, payload.OrderID, order.Status(payload.Status), payload.Error)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) orderFilesUpload(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		OrderID      string `json:"order_id"`
		IsGerbersZip bool   `json:"is_gerbers_zip"`
		Content      []byte `json:"content_b64"`
		ContentType  string `json:"content_type"`
		ForProvider  string `json:"for_provider"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	f, err := h.app.Orders.AddFile(r.Context(), acct, orders.FileInput{
		OrderID:      payload.OrderID,
		IsGerbersZip: payload.IsGerbersZip,
		Content:      payload.Content,
		ContentType:  payload.ContentType,
		ForProvider:  payload.ForProvider,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *handler) orderFilesGet(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	f, err := h.app.Orders.GetFile(r.Context(), acct, r.URL.Query().Get("order_file_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *handler) orderFilesList(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.app.Orders.ListFiles(r.Context(), acct, r.URL.Query().Get("order_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
