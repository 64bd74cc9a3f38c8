package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "roads", testutils.Collection("a")))
	require.NoError(t, store.Save(ctx, "roads", testutils.Collection("a", "b")))

	data, err := os.ReadFile(filepath.Join(dir, "roads.geojson"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)

	// a leftover temp file and foreign files are not snapshots
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-x-1.geojson"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))
	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"roads"}, keys)

	fc, err := store.Load(ctx, "roads")
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestFileStore_MissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NoError(t, store.Delete(context.Background(), "k"))
}

func TestFileStore_InvalidKey(t *testing.T) {
	store := file.New(t.TempDir())
	for _, key := range []string{"", "..", "a/b", `a\b`} {
		err := store.Save(context.Background(), key, testutils.Collection())
		assert.ErrorIs(t, err, domain.ErrInvalidID, key)
	}
}
