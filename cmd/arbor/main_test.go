package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/config"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const input = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[10,20]},"properties":{}},
 {"type":"Feature","id":"b","geometry":null,"properties":{}}
]}`

func TestTransform_RoundTrip(t *testing.T) {
	var view bytes.Buffer
	require.NoError(t, transform(strings.NewReader(input), &view, proj.EPSG4326, proj.EPSG3857, 8))

	fc, err := geojson.UnmarshalFeatureCollection(view.Bytes())
	require.NoError(t, err)
	pt := fc.Features[0].Geometry.(orb.Point)
	assert.Greater(t, pt[0], 1e6)
	assert.Nil(t, fc.Features[1].Geometry)

	var data bytes.Buffer
	require.NoError(t, transform(&view, &data, proj.EPSG3857, proj.EPSG4326, 8))
	fc, err = geojson.UnmarshalFeatureCollection(data.Bytes())
	require.NoError(t, err)
	pt = fc.Features[0].Geometry.(orb.Point)
	assert.InDelta(t, 10, pt[0], 1e-6)
	assert.InDelta(t, 20, pt[1], 1e-6)
}

func TestTransform_UnknownProjection(t *testing.T) {
	err := transform(strings.NewReader(input), &bytes.Buffer{}, "EPSG:0", proj.EPSG3857, 8)
	assert.ErrorIs(t, err, proj.ErrUnknownProjection)
}

func TestTransform_InvalidInput(t *testing.T) {
	err := transform(strings.NewReader("{"), &bytes.Buffer{}, proj.EPSG4326, proj.EPSG3857, 8)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "arbor version "))
}

func TestTransformCommand_Stdin(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs([]string{"transform", "--config", "missing.yaml", "--to", proj.EPSG3857})
	require.NoError(t, rootCmd.Execute())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
}

func TestSnapshotStore_Middlewares(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	cfg.Snapshots.MaskKeys = []string{"secret"}
	cfg.Snapshots.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))

	store, locker, err := snapshotStore(cfg)
	require.NoError(t, err)
	require.NotNil(t, locker)
	ctx := context.Background()

	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{1, 2})
	f.ID = "a"
	f.Properties["secret"] = "x"
	fc.Append(f)
	require.NoError(t, store.Save(ctx, "k", fc))

	raw, err := mr.Get(redis.DefaultPrefix + "k")
	require.NoError(t, err)
	assert.NotContains(t, raw, `"secret"`)

	loaded, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.Features[0].Properties["secret"])
}

const tree = `
kind: map
id: map
children:
  - kind: layer
    id: roads
    children:
      - kind: source
        id: roads-source
        props:
          features:
            type: FeatureCollection
            features:
              - type: Feature
                id: a
                geometry: {type: Point, coordinates: [1, 2]}
                properties: {}
`

func TestValidateCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(tree))
	rootCmd.SetArgs([]string{"validate", "-"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "(3 nodes)")

	rootCmd.SetIn(strings.NewReader("kind: feature\n"))
	rootCmd.SetArgs([]string{"validate", "-"})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, domain.ErrInvalidTree)
}

func TestBuildTree(t *testing.T) {
	ctx := context.Background()

	app, err := arbor.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(ctx) })
	require.NoError(t, buildTree(ctx, app, strings.NewReader(tree), "-", ""))
	fc, err := app.SourceFeatures(ctx, "roads-source")
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)

	def, err := arbor.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = def.Close(ctx) })
	require.NoError(t, buildTree(ctx, def, nil, "", ""))
	assert.Len(t, def.Nodes(), 3)
}

func TestMountDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roads.json"),
		[]byte(`{"kind": "map", "children": [{"kind": "layer", "id": "roads-layer"}]}`), 0644))
	ctx := context.Background()

	app, err := arbor.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(ctx) })

	loader, roots, err := mountDir(ctx, app, dir)
	require.NoError(t, err)
	require.NotNil(t, loader)
	require.Len(t, roots, 1)
	assert.Equal(t, "roads", roots[0].ID())
	assert.Len(t, app.Nodes(), 2)
}

func TestSnapshotStore_Dir(t *testing.T) {
	cfg := config.Default()
	cfg.Snapshots.Dir = t.TempDir()
	store, locker, err := snapshotStore(cfg)
	require.NoError(t, err)
	assert.Nil(t, locker)

	require.NoError(t, store.Save(context.Background(), "k", geojson.NewFeatureCollection()))
	_, err = os.Stat(filepath.Join(cfg.Snapshots.Dir, "k.geojson"))
	assert.NoError(t, err)
}

func TestGraphAndDescribeCommands(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(tree))
	rootCmd.SetArgs([]string{"graph", "-"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "graph TD")
	assert.Contains(t, out.String(), "roads --> roads_source")

	out.Reset()
	rootCmd.SetIn(strings.NewReader(tree))
	rootCmd.SetArgs([]string{"describe", "-"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "| · roads | layer |")
}
