package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	app "github.com/circuitforge/registry/internal/app"
	"github.com/circuitforge/registry/internal/config"
)

func TestBuildStoresDefaultsToMemory(t *testing.T) {
	cfg := config.Default()
	stores, db, err := buildStores(cfg)
	require.NoError(t, err)
	require.Nil(t, db)
	require.NotNil(t, stores.Accounts)
	require.NotNil(t, stores.Orders)
}

func TestSeedPopulatesStores(t *testing.T) {
	cfg := config.Default()
	cfg.Seed.AutoloadPackages = false

	stores, _, err := buildStores(cfg)
	require.NoError(t, err)
	require.NoError(t, runSeed(cfg, stores, nil))

	pkgs, err := stores.Packages.ListPackages(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, pkgs)
}

func TestBuildHandlerServesHealthAndMetrics(t *testing.T) {
	cfg := config.Default()
	application, err := app.New(app.Stores{}, app.Config{JWTSecret: "test-secret"}, nil)
	require.NoError(t, err)

	handler, rateMW := buildHandler(cfg, application, nil)
	require.NotNil(t, rateMW)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
