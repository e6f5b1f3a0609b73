package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sommarioni/sommarioni/pkg/types"
)

func TestDigest_StableForEqualContent(t *testing.T) {
	a, err := sampleIndex().Digest()
	require.NoError(t, err)
	b, err := sampleIndex().Digest()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestDigest_TracksValuesNotJustCounts(t *testing.T) {
	base, err := sampleIndex().Digest()
	require.NoError(t, err)

	edited := Build([]types.Record{
		rec(float64(7), types.ColOwner, "Scuola Grande di San Rocco", types.ColArea, 100.0),
		rec("8", types.ColOwner, "Demanio"),
		rec("7", types.ColOwner, "Procuratia de Supra", types.ColArea, "250"),
	})
	require.Equal(t, 3, edited.Size())
	require.Equal(t, 2, edited.Len())

	got, err := edited.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, base, got)
}

func TestDigest_TracksOrder(t *testing.T) {
	a, err := Build([]types.Record{rec("1", "k", "x"), rec("1", "k", "y")}).Digest()
	require.NoError(t, err)
	b, err := Build([]types.Record{rec("1", "k", "y"), rec("1", "k", "x")}).Digest()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDigest_StoredInSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.sqlite")
	ix := sampleIndex()

	info, err := WriteSnapshot(ctx, ix, path)
	require.NoError(t, err)
	want, err := ix.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, info.Digest)

	snap, err := OpenSnapshot(ctx, path)
	require.NoError(t, err)
	defer snap.Close()
	assert.Equal(t, want, snap.Info().Digest)
}
