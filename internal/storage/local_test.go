package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLocalStorage_UploadDownload(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	src := writeTemp(t, "parcels.geojson", `{"type":"FeatureCollection","features":[]}`)
	require.NoError(t, store.Upload(ctx, src, "datasets/parcels.geojson"))

	exists, err := store.Exists(ctx, "datasets/parcels.geojson")
	require.NoError(t, err)
	assert.True(t, exists)

	dst := filepath.Join(t.TempDir(), "nested", "out.geojson")
	require.NoError(t, store.Download(ctx, "datasets/parcels.geojson", dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"FeatureCollection","features":[]}`, string(got))

	require.NoError(t, store.Delete(ctx, "datasets/parcels.geojson"))
	exists, err = store.Exists(ctx, "datasets/parcels.geojson")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_DownloadMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = store.Download(context.Background(), "nope", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_DeleteMissingIsIdempotent(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete(context.Background(), "nope"))
}

func TestLocalStorage_ListObjects(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	src := writeTemp(t, "f", "x")
	for _, p := range []string{"snapshots/b.sqlite", "snapshots/a.sqlite", "datasets/c.csv"} {
		require.NoError(t, store.Upload(ctx, src, p))
	}

	objects, err := store.ListObjects(ctx, "snapshots")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/a.sqlite", "snapshots/b.sqlite"}, objects)

	objects, err = store.ListObjects(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Upload(ctx, "x", "y"), context.Canceled)
	_, err = store.Exists(ctx, "y")
	assert.ErrorIs(t, err, context.Canceled)
}
