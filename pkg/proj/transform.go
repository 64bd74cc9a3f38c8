package proj

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/geom"
	"github.com/paulmach/orb"
)

func rounded(f orb.Projection, precision int) orb.Projection {
	return func(p orb.Point) orb.Point {
		return geom.RoundPoint(f(p), precision)
	}
}

// TransformPoint transforms a single coordinate.
func TransformPoint(p orb.Point, from, to string, precision int) (orb.Point, error) {
	f, err := Transformer(from, to)
	if err != nil {
		return p, err
	}
	return rounded(f, precision)(p), nil
}

// TransformLine transforms every vertex of a line.
func TransformLine(ls orb.LineString, from, to string, precision int) (orb.LineString, error) {
	g, err := TransformGeometry(ls, from, to, precision)
	if err != nil {
		return nil, err
	}
	return g.(orb.LineString), nil
}

// TransformPolygon transforms every ring of a polygon.
func TransformPolygon(p orb.Polygon, from, to string, precision int) (orb.Polygon, error) {
	g, err := TransformGeometry(p, from, to, precision)
	if err != nil {
		return nil, err
	}
	return g.(orb.Polygon), nil
}

// TransformMultiPoint transforms every point.
func TransformMultiPoint(mp orb.MultiPoint, from, to string, precision int) (orb.MultiPoint, error) {
	g, err := TransformGeometry(mp, from, to, precision)
	if err != nil {
		return nil, err
	}
	return g.(orb.MultiPoint), nil
}

// TransformMultiLine transforms every line.
func TransformMultiLine(ml orb.MultiLineString, from, to string, precision int) (orb.MultiLineString, error) {
	g, err := TransformGeometry(ml, from, to, precision)
	if err != nil {
		return nil, err
	}
	return g.(orb.MultiLineString), nil
}

// TransformMultiPolygon transforms every polygon.
func TransformMultiPolygon(mp orb.MultiPolygon, from, to string, precision int) (orb.MultiPolygon, error) {
	g, err := TransformGeometry(mp, from, to, precision)
	if err != nil {
		return nil, err
	}
	return g.(orb.MultiPolygon), nil
}

// TransformGeometry transforms any orb geometry, keeping its type.
func TransformGeometry(g orb.Geometry, from, to string, precision int) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	f, err := Transformer(from, to)
	if err != nil {
		return nil, err
	}
	if _, ok := g.(orb.Bound); ok {
		return nil, fmt.Errorf("use TransformExtent for extents")
	}
	return geom.Map(g, rounded(f, precision)), nil
}

// TransformCircle transforms the circle center. The radius stays in source units.
func TransformCircle(c geom.Circle, from, to string, precision int) (geom.Circle, error) {
	center, err := TransformPoint(c.Center, from, to, precision)
	if err != nil {
		return c, err
	}
	return geom.Circle{Center: center, Radius: c.Radius}, nil
}

// TransformExtent transforms the four corners of b and returns their bounding box.
func TransformExtent(b orb.Bound, from, to string, precision int) (orb.Bound, error) {
	f, err := Transformer(from, to)
	if err != nil {
		return b, err
	}
	corners := []orb.Point{
		b.Min,
		{b.Min[0], b.Max[1]},
		b.Max,
		{b.Max[0], b.Min[1]},
	}
	out := orb.Bound{Min: f(corners[0]), Max: f(corners[0])}
	for _, c := range corners[1:] {
		out = out.Extend(f(c))
	}
	return geom.RoundBound(out, precision), nil
}

// PointToLonLat converts a coordinate of projection to EPSG:4326.
func PointToLonLat(p orb.Point, projection string, precision int) (orb.Point, error) {
	return TransformPoint(p, projection, EPSG4326, precision)
}

// PointFromLonLat converts an EPSG:4326 coordinate to projection.
func PointFromLonLat(p orb.Point, projection string, precision int) (orb.Point, error) {
	return TransformPoint(p, EPSG4326, projection, precision)
}

// ExtentToLonLat converts an extent of projection to EPSG:4326.
func ExtentToLonLat(b orb.Bound, projection string, precision int) (orb.Bound, error) {
	return TransformExtent(b, projection, EPSG4326, precision)
}

// ExtentFromLonLat converts an EPSG:4326 extent to projection.
func ExtentFromLonLat(b orb.Bound, projection string, precision int) (orb.Bound, error) {
	return TransformExtent(b, EPSG4326, projection, precision)
}
