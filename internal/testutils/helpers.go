package testutils

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/config"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// FastConfig returns the default settings with a short frame and wait timeout, so
// scheduled operations settle quickly in tests.
func FastConfig() config.Config {
	cfg := config.Default()
	cfg.Frame = 5 * time.Millisecond
	cfg.WaitTimeout = 200 * time.Millisecond
	return cfg
}

// Collection builds point features with the given ids, the i-th at (i, i).
func Collection(ids ...string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, id := range ids {
		f := geojson.NewFeature(orb.Point{float64(i), float64(i)})
		f.ID = id
		fc.Append(f)
	}
	return fc
}

// SetupRedis starts an in-process redis server and returns it with a connected
// client. Both are released when the test ends.
func SetupRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// SetupTestRepo creates a temporary directory and initializes a Loam repository in it.
// It returns the absolute path to the temp dir and the initialized repository.
// It fails the test immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	opts = append([]loam.Option{loam.WithVersioning(false)}, opts...)
	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}
