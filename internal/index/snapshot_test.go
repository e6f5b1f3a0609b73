package index

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/storage"
	"github.com/sommarioni/sommarioni/pkg/types"
)

func sampleIndex() *Index {
	return Build([]types.Record{
		rec(float64(7), types.ColOwner, "Scuola Grande di San Rocco", types.ColArea, 100.0),
		rec("8", types.ColOwner, "Demanio"),
		rec("7", types.ColOwner, "Procuratia de Supra", types.ColArea, "200"),
		rec(nil, types.ColOwner, "orphan"),
	})
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.sqlite")

	info, err := WriteSnapshot(ctx, sampleIndex(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, 3, info.Records)
	assert.Equal(t, 2, info.Geometries)
	assert.Equal(t, 1, info.Skipped)
	assert.Positive(t, info.SizeBytes)

	snap, err := OpenSnapshot(ctx, path)
	require.NoError(t, err)
	defer snap.Close()

	assert.Equal(t, info.ID, snap.Info().ID)
	assert.Equal(t, 3, snap.Info().Records)

	got, err := snap.Lookup(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Scuola Grande di San Rocco", got[0][types.ColOwner])
	assert.Equal(t, "Procuratia de Supra", got[1][types.ColOwner])
	assert.Equal(t, "200", got[1][types.ColArea])

	missing, err := snap.Lookup(ctx, "9999")
	require.NoError(t, err)
	assert.Empty(t, missing)

	none, err := snap.Lookup(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSnapshot_LoadRebuildsIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.sqlite")
	_, err := WriteSnapshot(ctx, sampleIndex(), path)
	require.NoError(t, err)

	snap, err := OpenSnapshot(ctx, path)
	require.NoError(t, err)
	defer snap.Close()

	ix, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "8"}, ix.IDs())
	assert.Equal(t, 1, ix.Skipped())
	assert.Len(t, ix.Lookup("7"), 2)
}

func TestSnapshot_ManyIDs(t *testing.T) {
	ctx := context.Background()
	records := make([]types.Record, 500)
	for i := range records {
		records[i] = rec(strconv.Itoa(i/2), "seq", float64(i))
	}
	path := filepath.Join(t.TempDir(), "many.sqlite")
	_, err := WriteSnapshot(ctx, Build(records), path)
	require.NoError(t, err)

	snap, err := OpenSnapshot(ctx, path)
	require.NoError(t, err)
	defer snap.Close()

	for _, id := range []string{"0", "124", "249"} {
		got, err := snap.Lookup(ctx, id)
		require.NoError(t, err)
		assert.Len(t, got, 2, "id %s", id)
	}
}

func TestOpenSnapshot_MissingFile(t *testing.T) {
	_, err := OpenSnapshot(context.Background(), filepath.Join(t.TempDir(), "nope.sqlite"))
	require.Error(t, err)
	assert.Equal(t, serrors.ErrCategoryIndex, serrors.GetCategory(err))
}

func TestStore_PublishAndOpen(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	publisher := NewStore(st, "snapshots", t.TempDir())
	info, err := publisher.Publish(ctx, sampleIndex(), "registry")
	require.NoError(t, err)

	exists, err := st.Exists(ctx, "snapshots/registry.sqlite")
	require.NoError(t, err)
	assert.True(t, exists)

	// A second store with an empty cache must download the object.
	reader := NewStore(st, "snapshots", t.TempDir())
	snap, err := reader.Open(ctx, "registry")
	require.NoError(t, err)
	defer snap.Close()
	assert.Equal(t, info.ID, snap.Info().ID)

	_, err = reader.Open(ctx, "absent")
	require.Error(t, err)
	assert.Equal(t, serrors.CodeObjectNotFound, serrors.GetCode(err))
}
