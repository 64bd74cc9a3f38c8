package proj_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/geom"
	"github.com/aretw0/arbor/pkg/proj"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const precision = geom.DefaultPrecision

func TestTransformPoint_Known(t *testing.T) {
	got, err := proj.TransformPoint(orb.Point{0, 0}, proj.EPSG4326, proj.EPSG3857, precision)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{0, 0}, got)

	got, err = proj.TransformPoint(orb.Point{180, 0}, proj.EPSG4326, proj.EPSG3857, 2)
	require.NoError(t, err)
	assert.InDelta(t, 20037508.34, got[0], 0.01)
}

func TestTransform_RoundTrip(t *testing.T) {
	shapes := map[string]orb.Geometry{
		"point":        orb.Point{12.5, 41.9},
		"line":         orb.LineString{{0, 0}, {10.25, 20.125}, {-45.5, 60.75}},
		"polygon":      orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
		"multipoint":   orb.MultiPoint{{1, 2}, {-3.5, 4.25}},
		"multiline":    orb.MultiLineString{{{1, 1}, {2, 2}}, {{-1, -1}, {-2, -2}}},
		"multipolygon": orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, {{{5, 5}, {6, 5}, {6, 6}, {5, 5}}}},
	}

	for name, g := range shapes {
		t.Run(name, func(t *testing.T) {
			there, err := proj.TransformGeometry(g, proj.EPSG4326, proj.EPSG3857, precision)
			require.NoError(t, err)
			back, err := proj.TransformGeometry(there, proj.EPSG3857, proj.EPSG4326, precision)
			require.NoError(t, err)

			assert.Equal(t, g.GeoJSONType(), back.GeoJSONType())
			assert.Equal(t, geom.Round(g, precision), back)
		})
	}
}

func TestTransformExtent_RoundTrip(t *testing.T) {
	ext := orb.Bound{Min: orb.Point{-10, -20}, Max: orb.Point{30, 40}}

	there, err := proj.ExtentFromLonLat(ext, proj.EPSG3857, precision)
	require.NoError(t, err)
	back, err := proj.ExtentToLonLat(there, proj.EPSG3857, precision)
	require.NoError(t, err)

	assert.Equal(t, ext, back)
}

func TestTransformCircle_KeepsRadius(t *testing.T) {
	c := geom.Circle{Center: orb.Point{1000, 2000}, Radius: 50}

	got, err := proj.TransformCircle(c, proj.EPSG3857, proj.EPSG4326, precision)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Radius)

	back, err := proj.TransformCircle(got, proj.EPSG4326, proj.EPSG3857, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1000, back.Center[0], 0.01)
	assert.InDelta(t, 2000, back.Center[1], 0.01)
}

func TestUnknownProjection(t *testing.T) {
	_, err := proj.TransformPoint(orb.Point{0, 0}, "EPSG:9999", proj.EPSG4326, precision)
	assert.ErrorIs(t, err, proj.ErrUnknownProjection)

	_, err = proj.NewPair("EPSG:9999", proj.EPSG4326, precision)
	assert.ErrorIs(t, err, proj.ErrUnknownProjection)
}

func TestAliases(t *testing.T) {
	assert.True(t, proj.Equivalent("EPSG:900913", proj.EPSG3857))
	assert.False(t, proj.Equivalent(proj.EPSG4326, proj.EPSG3857))
}

func TestPair(t *testing.T) {
	p := proj.MustPair(proj.EPSG3857, proj.EPSG4326, precision)

	view := p.PointToViewProj(orb.Point{30, 50})
	assert.Equal(t, orb.Point{30, 50}, p.PointToDataProj(view))

	same := proj.MustPair(proj.EPSG3857, "", precision)
	assert.Equal(t, proj.EPSG3857, same.Data)
	assert.Equal(t, orb.Point{1.5, 2.5}, same.PointToViewProj(orb.Point{1.5, 2.5}))
}
