package httpapi

import (
	"net/http"

	"github.com/circuitforge/registry/internal/app/domain/pkg"
	"github.com/circuitforge/registry/internal/app/metrics"
	"github.com/circuitforge/registry/internal/app/services/packages"
	"github.com/circuitforge/registry/internal/app/services/releases"
	"github.com/circuitforge/registry/internal/errors"
)

func (h *handler) packagesCreate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IsPrivate   bool   `json:"is_private"`
		IsUnlisted  bool   `json:"is_unlisted"`
		IsSnippet   bool   `json:"is_snippet"`
		IsBoard     bool   `json:"is_board"`
		IsPackage   bool   `json:"is_package"`
		IsModel     bool   `json:"is_model"`
		IsFootprint bool   `json:"is_footprint"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	created, err := h.app.Packages.Create(r.Context(), acct, packages.CreateInput{
		Name:        payload.Name,
		Description: payload.Description,
		IsPrivate:   payload.IsPrivate,
		IsUnlisted:  payload.IsUnlisted,
		IsSnippet:   payload.IsSnippet,
		IsBoard:     payload.IsBoard,
		IsPackage:   payload.IsPackage,
		IsModel:     payload.IsModel,
		IsFootprint: payload.IsFootprint,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordPackageCreated()
	writeJSON(w, http.StatusOK, created)
}

func (h *handler) packagesGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := h.app.Packages.Get(r.Context(), caller(r), q.Get("package_id"), q.Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) packagesList(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Packages.List(r.Context(), caller(r), r.URL.Query().Get("owner_github_username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) packagesSearch(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Packages.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) packagesUpdate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		PackageID           string  `json:"package_id"`
		Description         *string `json:"description"`
		AIDescription       *string `json:"ai_description"`
		AIUsageInstructions *string `json:"ai_usage_instructions"`
		IsPrivate           *bool   `json:"is_private"`
		IsUnlisted          *bool   `json:"is_unlisted"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	updated, err := h.app.Packages.Update(r.Context(), acct, payload.PackageID, packages.UpdateInput{
		Description:         payload.Description,
		AIDescription:       payload.AIDescription,
		AIUsageInstructions: payload.AIUsageInstructions,
		IsPrivate:           payload.IsPrivate,
		IsUnlisted:          payload.IsUnlisted,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) packagesStar(w http.ResponseWriter, r *http.Request) {
	h.packagesSetStar(w, r, true)
}

func (h *handler) packagesUnstar(w http.ResponseWriter, r *http.Request) {
	h.packagesSetStar(w, r, false)
}

func (h *handler) packagesSetStar(w http.ResponseWriter, r *http.Request, starred bool) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		PackageID string `json:"package_id"`
		Name      string `json:"name"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	var (
		p   pkg.Package
		err error
	)
	if starred {
		p, err = h.app.Packages.Star(r.Context(), acct, payload.PackageID, payload.Name)
	} else {
		p, err = h.app.Packages.Unstar(r.Context(), acct, payload.PackageID, payload.Name)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) releasesCreate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		PackageID string `json:"package_id"`
		Version   string `json:"version"`
		IsLatest  bool   `json:"is_latest"`
		Branch    string `json:"branch"`
		CommitSHA string `json:"commit_sha"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	created, err := h.app.Releases.Create(r.Context(), acct, releases.CreateInput{
		PackageID: payload.PackageID,
		Version:   payload.Version,
		IsLatest:  payload.IsLatest,
		Branch:    payload.Branch,
		CommitSHA: payload.CommitSHA,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// releasesGet looks up a release by id, or the latest release of a package
// when package_id is given instead.
func (h *handler) releasesGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rel, err := h.app.Releases.Get(r.Context(), caller(r), q.Get("package_release_id"), q.Get("package_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (h *handler) releasesList(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Releases.List(r.Context(), caller(r), r.URL.Query().Get("package_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) releasesUpdate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		ReleaseID string `json:"package_release_id"`
		IsLocked  *bool  `json:"is_locked"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}
	if payload.IsLocked == nil || !*payload.IsLocked {
		writeError(w, errors.InvalidRequest("is_locked: true is the only supported release update"))
		return
	}

	rel, err := h.app.Releases.Lock(r.Context(), acct, payload.ReleaseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (h *handler) filesCreate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		ReleaseID    string `json:"package_release_id"`
		FilePath     string `json:"file_path"`
		ContentText  string `json:"content_text"`
		ContentBytes []byte `json:"content_b64"`
		Mimetype     string `json:"content_mimetype"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	f, err := h.app.Releases.AddFile(r.Context(), acct, releases.FileInput{
		ReleaseID:    payload.ReleaseID,
		FilePath:     payload.FilePath,
		ContentText:  payload.ContentText,
		ContentBytes: payload.ContentBytes,
		Mimetype:     payload.Mimetype,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *handler) filesGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := h.app.Releases.GetFile(r.Context(), caller(r), q.Get("package_file_id"), q.Get("package_release_id"), q.Get("file_path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *handler) filesList(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Releases.ListFiles(r.Context(), caller(r), r.URL.Query().Get("package_release_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) buildsGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Releases.GetBuild(r.Context(), caller(r), r.URL.Query().Get("package_build_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) buildsList(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Releases.ListBuilds(r.Context(), caller(r), r.URL.Query().Get("package_release_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// buildsCreate queues a fresh build attempt against a release.
func (h *handler) buildsCreate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		ReleaseID string `json:"package_release_id"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	b, err := h.app.Releases.Rebuild(r.Context(), acct, payload.ReleaseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) buildsUpdate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	var payload struct {
		BuildID string   `json:"package_build_id"`
		Stage   string   `json:"stage"`
		Action  string   `json:"action"`
		Logs    []string `json:"logs"`
		Error   string   `json:"error"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	b, err := h.app.Releases.AdvanceStage(r.Context(), acct, payload.BuildID,
		pkg.StageName(payload.Stage), releases.StageAction(payload.Action),
		payload.Logs, payload.Error)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordBuildStageTransition(payload.Stage, payload.Action)
	writeJSON(w, http.StatusOK, b)
}
