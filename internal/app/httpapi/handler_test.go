package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	app "github.com/circuitforge/registry/internal/app"
	"github.com/circuitforge/registry/internal/app/httpapi"
	"github.com/circuitforge/registry/internal/middleware"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Config{JWTSecret: "test-secret"}, nil)
	require.NoError(t, err)

	authMW := middleware.NewAuthMiddleware(application.Auth, application.Accounts, false, nil)
	srv := httptest.NewServer(authMW.Handler(httpapi.NewHandler(application, nil)))
	t.Cleanup(srv.Close)
	return srv
}

// doJSON issues a request and decodes the response body into out (unless nil).
func doJSON(t *testing.T, method, url, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequest(method, url, &reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func login(t *testing.T, srv *httptest.Server, username string) (token, accountID string) {
	t.Helper()
	var res struct {
		Account struct {
			ID string `json:"account_id"`
		} `json:"account"`
		Token string `json:"token"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/login", "",
		map[string]string{"github_username": username}, &res)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, res.Token)
	return res.Token, res.Account.ID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]bool
	status := doJSON(t, http.MethodGet, srv.URL+"/api/health", "", nil, &body)
	require.Equal(t, http.StatusOK, status)
	require.True(t, body["ok"])
}

func TestLoginAndAccountsGet(t *testing.T) {
	srv := newTestServer(t)
	token, accountID := login(t, srv, "alice")

	var acct struct {
		ID             string `json:"account_id"`
		GithubUsername string `json:"github_username"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/get", token, nil, &acct)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, accountID, acct.ID)
	require.Equal(t, "alice", acct.GithubUsername)
}

func TestMutationsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Error struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/packages/create", "",
		map[string]string{"name": "gadget"}, &body)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "unauthorized", body.Error.ErrorCode)
}

func TestPackageLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token, _ := login(t, srv, "alice")

	var created struct {
		ID   string `json:"package_id"`
		Name string `json:"name"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/packages/create", token,
		map[string]interface{}{"name": "led-driver", "description": "a driver", "is_board": true}, &created)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "alice/led-driver", created.Name)

	var fetched struct {
		ID          string `json:"package_id"`
		Description string `json:"description"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/packages/get?name=alice/led-driver", "", nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, created.ID, fetched.ID)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/packages/update", token,
		map[string]interface{}{"package_id": created.ID, "description": "a better driver"}, &fetched)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "a better driver", fetched.Description)

	var results []struct {
		ID string `json:"package_id"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/packages/search?query=led", "", nil, &results)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, results, 1)
}

func TestGetMissingPackage(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Error struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		} `json:"error"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/api/packages/get?package_id=nope", "", nil, &body)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "package_not_found", body.Error.ErrorCode)
}

func TestPrivatePackageHiddenFromStrangers(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := login(t, srv, "alice")
	strangerToken, _ := login(t, srv, "mallory")

	var created struct {
		ID string `json:"package_id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/packages/create", ownerToken,
		map[string]interface{}{"name": "secret-board", "is_private": true}, &created)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodGet, srv.URL+"/api/packages/get?package_id="+created.ID, strangerToken, nil, nil)
	require.Equal(t, http.StatusNotFound, status)

	status = doJSON(t, http.MethodGet, srv.URL+"/api/packages/get?package_id="+created.ID, ownerToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestReleaseFilesAndBuildPipeline(t *testing.T) {
	srv := newTestServer(t)
	token, _ := login(t, srv, "alice")

	var created struct {
		ID string `json:"package_id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/packages/create", token,
		map[string]interface{}{"name": "amp"}, &created)
	require.Equal(t, http.StatusOK, status)

	var release struct {
		ID            string `json:"package_release_id"`
		Version       string `json:"version"`
		LatestBuildID string `json:"latest_package_build_id"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/package_releases/create", token,
		map[string]interface{}{"package_id": created.ID, "version": "1.0.0", "is_latest": true}, &release)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, release.LatestBuildID)

	var file struct {
		ID       string `json:"package_file_id"`
		FilePath string `json:"file_path"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/package_files/create", token,
		map[string]interface{}{
			"package_release_id": release.ID,
			"file_path":          "index.tsx",
			"content_text":       "export default () => null",
		}, &file)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodGet,
		srv.URL+"/api/package_files/get?package_release_id="+release.ID+"&file_path=index.tsx", "", nil, &file)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "index.tsx", file.FilePath)

	var build struct {
		Transpilation struct {
			Status string `json:"status"`
		} `json:"transpilation"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/package_builds/update", token,
		map[string]interface{}{
			"package_build_id": release.LatestBuildID,
			"stage":            "transpilation",
			"action":           "start",
		}, &build)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "running", build.Transpilation.Status)

	// The second stage cannot start while the first is still running.
	var errBody struct {
		Error struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/package_builds/update", token,
		map[string]interface{}{
			"package_build_id": release.LatestBuildID,
			"stage":            "circuit_json_build",
			"action":           "start",
		}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "update_failed", errBody.Error.ErrorCode)
}

func TestSnippetCreateAndStar(t *testing.T) {
	srv := newTestServer(t)
	token, _ := login(t, srv, "alice")

	var created struct {
		ID        string `json:"snippet_id"`
		Name      string `json:"name"`
		ReleaseID string `json:"package_release_id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/snippets/create", token,
		map[string]interface{}{"unscoped_name": "blinker", "code": "export const x = 1"}, &created)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "alice/blinker", created.Name)
	require.NotEmpty(t, created.ReleaseID)

	var starred struct {
		StarCount int `json:"star_count"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/snippets/star", token,
		map[string]string{"snippet_id": created.ID}, &starred)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, starred.StarCount)
}

func TestOrgMembership(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := login(t, srv, "alice")
	_, bobID := login(t, srv, "bob")

	var created struct {
		ID string `json:"org_id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/orgs/create", ownerToken,
		map[string]string{"name": "widgets-inc"}, &created)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/orgs/add_member", ownerToken,
		map[string]string{"org_id": created.ID, "account_id": bobID}, nil)
	require.Equal(t, http.StatusOK, status)

	var members []struct {
		AccountID string `json:"account_id"`
		IsOwner   bool   `json:"is_owner"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/orgs/list_members?org_id="+created.ID, "", nil, &members)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, members, 2)
}

func TestOrderStatusTransitions(t *testing.T) {
	srv := newTestServer(t)
	token, _ := login(t, srv, "alice")

	var created struct {
		ID     string `json:"order_id"`
		Status string `json:"status"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/orders/create", token,
		map[string]interface{}{"circuit_json": []interface{}{map[string]interface{}{"type": "board"}}}, &created)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "draft", created.Status)

	var updated struct {
		Status string `json:"status"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/orders/update", token,
		map[string]string{"order_id": created.ID, "status": "submitted"}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "submitted", updated.Status)

	var errBody struct {
		Error struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/orders/update", token,
		map[string]string{"order_id": created.ID, "status": "shipped"}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "update_failed", errBody.Error.ErrorCode)
}

func TestLogoutRevokesSession(t *testing.T) {
	srv := newTestServer(t)
	token, _ := login(t, srv, "alice")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/logout", token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/get", token, nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginPageFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token, _ := login(t, srv, "alice")

	var page struct {
		ID        string `json:"login_page_id"`
		AuthToken string `json:"login_page_auth_token"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/login_pages/create", "", nil, &page)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/login_pages/approve", token,
		map[string]string{"login_page_id": page.ID, "login_page_auth_token": page.AuthToken}, nil)
	require.Equal(t, http.StatusOK, status)

	var res struct {
		Token   string `json:"token"`
		Session struct {
			IsCLISession bool `json:"is_cli_session"`
		} `json:"session"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/login_pages/exchange", "",
		map[string]string{"login_page_id": page.ID, "login_page_auth_token": page.AuthToken}, &res)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, res.Token)
	require.True(t, res.Session.IsCLISession)
}

func TestPrivatePackageChildrenHiddenOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	aliceToken, _ := login(t, srv, "alice")
	malloryToken, _ := login(t, srv, "mallory")

	var created struct {
		ID string `json:"package_id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/packages/create", aliceToken,
		map[string]interface{}{"name": "secret-board", "is_private": true}, &created)
	require.Equal(t, http.StatusOK, status)

	var release struct {
		ID string `json:"package_release_id"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/package_releases/create", aliceToken,
		map[string]interface{}{"package_id": created.ID, "version": "1.0.0", "is_latest": true}, &release)
	require.Equal(t, http.StatusOK, status)

	// Another account cannot attach releases or files to the hidden package.
	var errBody struct {
		Error struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/package_releases/create", malloryToken,
		map[string]interface{}{"package_id": created.ID, "version": "6.6.6"}, &errBody)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "package_not_found", errBody.Error.ErrorCode)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/package_files/create", malloryToken,
		map[string]interface{}{"package_release_id": release.ID, "file_path": "evil.tsx", "content_text": "x"}, &errBody)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "release_not_found", errBody.Error.ErrorCode)

	// Anonymous reads of the package's children are masked as not found.
	status = doJSON(t, http.MethodGet, srv.URL+"/api/package_releases/get?package_id="+created.ID, "", nil, &errBody)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "package_not_found", errBody.Error.ErrorCode)

	status = doJSON(t, http.MethodGet, srv.URL+"/api/package_releases/list?package_id="+created.ID, "", nil, &errBody)
	require.Equal(t, http.StatusNotFound, status)

	status = doJSON(t, http.MethodGet, srv.URL+"/api/package_files/list?package_release_id="+release.ID, "", nil, &errBody)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "release_not_found", errBody.Error.ErrorCode)

	// The owner keeps full access.
	status = doJSON(t, http.MethodGet, srv.URL+"/api/package_releases/get?package_id="+created.ID, aliceToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
}
