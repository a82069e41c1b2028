// Package httpapi exposes the registry's RPC-style JSON endpoints under /api.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/circuitforge/registry/internal/app"
	"github.com/circuitforge/registry/internal/app/domain/account"
	"github.com/circuitforge/registry/internal/errors"
	"github.com/circuitforge/registry/internal/httputil"
	"github.com/circuitforge/registry/internal/middleware"
	"github.com/circuitforge/registry/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a router exposing the registry API. Authentication is
// resolved by middleware before requests reach these handlers.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api.HandleFunc("/sessions/login", h.sessionsLogin).Methods(http.MethodPost)
	api.HandleFunc("/sessions/logout", h.sessionsLogout).Methods(http.MethodPost)

	api.HandleFunc("/login_pages/create", h.loginPagesCreate).Methods(http.MethodPost)
	api.HandleFunc("/login_pages/get", h.loginPagesGet).Methods(http.MethodGet)
	api.HandleFunc("/login_pages/approve", h.loginPagesApprove).Methods(http.MethodPost)
	api.HandleFunc("/login_pages/exchange", h.loginPagesExchange).Methods(http.MethodPost)

	api.HandleFunc("/accounts/get", h.accountsGet).Methods(http.MethodGet)
	api.HandleFunc("/accounts/update", h.accountsUpdate).Methods(http.MethodPost)

	api.HandleFunc("/packages/create", h.packagesCreate).Methods(http.MethodPost)
	api.HandleFunc("/packages/get", h.packagesGet).Methods(http.MethodGet)
	api.HandleFunc("/packages/list", h.packagesList).Methods(http.MethodGet)
	api.HandleFunc("/packages/search", h.packagesSearch).Methods(http.MethodGet)
	api.HandleFunc("/packages/update", h.packagesUpdate).Methods(http.MethodPost)
	api.HandleFunc("/packages/star", h.packagesStar).Methods(http.MethodPost)
	api.HandleFunc("/packages/unstar", h.packagesUnstar).Methods(http.MethodPost)

	api.HandleFunc("/package_releases/create", h.releasesCreate).Methods(http.MethodPost)
	api.HandleFunc("/package_releases/get", h.releasesGet).Methods(http.MethodGet)
	api.HandleFunc("/package_releases/list", h.releasesList).Methods(http.MethodGet)
	api.HandleFunc("/package_releases/update", h.releasesUpdate).Methods(http.MethodPost)

	api.HandleFunc("/package_files/create", h.filesCreate).Methods(http.MethodPost)
	api.HandleFunc("/package_files/get", h.filesGet).Methods(http.MethodGet)
	api.HandleFunc("/package_files/list", h.filesList).Methods(http.MethodGet)

	api.HandleFunc("/package_builds/get", h.buildsGet).Methods(http.MethodGet)
	api.HandleFunc("/package_builds/list", h.buildsList).Methods(http.MethodGet)
	api.HandleFunc("/package_builds/create", h.buildsCreate).Methods(http.MethodPost)
	api.HandleFunc("/package_builds/update", h.buildsUpdate).Methods(http.MethodPost)

	api.HandleFunc("/snippets/create", h.snippetsCreate).Methods(http.MethodPost)
	api.HandleFunc("/snippets/get", h.snippetsGet).Methods(http.MethodGet)
	api.HandleFunc("/snippets/list", h.snippetsList).Methods(http.MethodGet)
	api.HandleFunc("/snippets/list_newest", h.snippetsListNewest).Methods(http.MethodGet)
	api.HandleFunc("/snippets/list_trending", h.snippetsListTrending).Methods(http.MethodGet)
	api.HandleFunc("/snippets/search", h.snippetsSearch).Methods(http.MethodGet)
	api.HandleFunc("/snippets/update", h.snippetsUpdate).Methods(http.MethodPost)
	api.HandleFunc("/snippets/delete", h.snippetsDelete).Methods(http.MethodPost)
	api.HandleFunc("/snippets/star", h.snippetsStar).Methods(http.MethodPost)
	api.HandleFunc("/snippets/unstar", h.snippetsUnstar).Methods(http.MethodPost)

	api.HandleFunc("/orgs/create", h.orgsCreate).Methods(http.MethodPost)
	api.HandleFunc("/orgs/get", h.orgsGet).Methods(http.MethodGet)
	api.HandleFunc("/orgs/list", h.orgsList).Methods(http.MethodGet)
	api.HandleFunc("/orgs/add_member", h.orgsAddMember).Methods(http.MethodPost)
	api.HandleFunc("/orgs/list_members", h.orgsListMembers).Methods(http.MethodGet)

	api.HandleFunc("/orders/create", h.ordersCreate).Methods(http.MethodPost)
	api.HandleFunc("/orders/get", h.ordersGet).Methods(http.MethodGet)
	api.HandleFunc("/orders/list", h.ordersList).Methods(http.MethodGet)
	api.HandleFunc("/orders/update", h.ordersUpdate).Methods(http.MethodPost)

	api.HandleFunc("/order_files/upload", h.orderFilesUpload).Methods(http.MethodPost)
	api.HandleFunc("/order_files/get", h.orderFilesGet).Methods(http.MethodGet)
	api.HandleFunc("/order_files/list", h.orderFilesList).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusNotFound, "not_found", "Unknown endpoint", nil)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// caller returns the authenticated account or the zero account for anonymous
// requests. Handlers that require auth use requireCaller.
func caller(r *http.Request) account.Account {
	acct, _ := middleware.AccountFromContext(r.Context())
	return acct
}

func (h *handler) requireCaller(w http.ResponseWriter, r *http.Request) (account.Account, bool) {
	acct, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		writeError(w, errors.Unauthorized(""))
		return account.Account{}, false
	}
	return acct, true
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r.Body, dst); err != nil {
		writeError(w, errors.InvalidRequest("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	if svcErr := errors.GetServiceError(err); svcErr != nil {
		httputil.WriteErrorResponse(w, svcErr.HTTPStatus, string(svcErr.Code), svcErr.Message, svcErr.Details)
		return
	}
	httputil.WriteErrorResponse(w, http.StatusInternalServerError, string(errors.CodeInternal), "Internal server error", nil)
}
