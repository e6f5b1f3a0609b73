package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sommarioni/sommarioni/internal/config"
	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/views"
	"github.com/sommarioni/sommarioni/pkg/types"
)

const parcelsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": null, "properties": {"geometry_id": 1, "area": 120}},
    {"type": "Feature", "geometry": null, "properties": {"geometry_id": 2, "area": 80}},
    {"type": "Feature", "geometry": null, "properties": {"geometry_id": 9}}
  ]
}`

const registryJSON = `[
  {"geometry_id": 1, "ownership_types": "['CHURCH']", "owner_standardised": "Convento", "area": 120, "quality": "casa"},
  {"geometry_id": 2, "ownership_types": "['PRIVATE']", "owner_standardised": "Rossi", "area": 80, "quality": "porzion di casa"},
  {"geometry_id": null, "ownership_types": "['PRIVATE']"}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.ShutdownTimeout = 2 * time.Second

	datasets := filepath.Join(dir, "storage", "datasets")
	require.NoError(t, os.MkdirAll(datasets, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(datasets, "parcels.geojson"), []byte(parcelsJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(datasets, "registry.json"), []byte(registryJSON), 0644))
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "ftp"

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Equal(t, serrors.CodeInvalidConfig, serrors.GetCode(err))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)

	ws, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, ws.Bundle.Parcels.Features, 3)
	assert.Equal(t, 2, ws.Index.Size())
	assert.Equal(t, 1, ws.Index.Skipped())

	v, err := ws.Builder.Build(ctx, views.Ownership, ws.Inputs())
	require.NoError(t, err)
	assert.Equal(t, 2, v.Counts.Kept)
}

func TestLoad_MissingDataset(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Datasets.Registry = "datasets/absent.json"

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)

	_, err = a.BuildView(ctx, views.Ownership)
	require.Error(t, err)
	assert.Equal(t, serrors.CodeDatasetMissing, serrors.GetCode(err))
}

func TestSources_FormatFromName(t *testing.T) {
	cfg := testConfig(t)
	cfg.Datasets.Registry = "datasets/registry.csv.sz"
	a := &App{cfg: cfg}
	assert.Equal(t, "csv", string(a.Sources().RegistryFormat))

	cfg.Datasets.RegistryFormat = "json"
	assert.Equal(t, "json", string(a.Sources().RegistryFormat))
}

func TestEnsureSnapshot(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)

	_, err = a.OpenSnapshot(ctx)
	require.Error(t, err)
	assert.Equal(t, serrors.CodeObjectNotFound, serrors.GetCode(err))

	ws, err := a.Load(ctx)
	require.NoError(t, err)

	snap, err := a.EnsureSnapshot(ctx, ws.Index)
	require.NoError(t, err)
	first := snap.Info().ID
	assert.Equal(t, 2, snap.Info().Records)

	records, err := snap.Lookup(ctx, "1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, snap.Close())

	snap, err = a.EnsureSnapshot(ctx, ws.Index)
	require.NoError(t, err)
	defer snap.Close()
	assert.Equal(t, first, snap.Info().ID)
}

func TestEnsureSnapshot_RepublishesChangedContent(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)

	ws, err := a.Load(ctx)
	require.NoError(t, err)
	snap, err := a.EnsureSnapshot(ctx, ws.Index)
	require.NoError(t, err)
	first := snap.Info().ID
	require.NoError(t, snap.Close())

	edited := strings.Replace(registryJSON, `"Rossi"`, `"Bianchi"`, 1)
	registry := filepath.Join(cfg.DataDir, "storage", "datasets", "registry.json")
	require.NoError(t, os.WriteFile(registry, []byte(edited), 0644))
	require.NoError(t, a.PurgeCache())

	ws, err = a.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, ws.Index.Size())
	require.Equal(t, 2, ws.Index.Len())

	snap, err = a.EnsureSnapshot(ctx, ws.Index)
	require.NoError(t, err)
	defer snap.Close()
	assert.NotEqual(t, first, snap.Info().ID)

	records, err := snap.Lookup(ctx, "2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bianchi", records[0][types.ColOwner])
}

func TestPurgeCache(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)

	_, err = a.Load(ctx)
	require.NoError(t, err)
	entries, err := os.ReadDir(a.Config().Datasets.CacheDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	require.NoError(t, a.PurgeCache())
	entries, err = os.ReadDir(a.Config().Datasets.CacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrepare_ServesViews(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)

	handler, err := a.prepare(ctx)
	require.NoError(t, err)
	defer a.shutdown.Shutdown(ctx, "test")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/registry/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/views/porzione", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FeatureCollection", body["type"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/views/walkability", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)

	require.NoError(t, a.Start(ctx))
	assert.Error(t, a.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(stopCtx))
	assert.NoError(t, a.Stop(stopCtx))
}
