package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// DefaultPrecision is the number of decimals kept by every coordinate transform.
// Rounding makes transformed values comparable with plain equality.
const DefaultPrecision = 8

// RoundValue rounds v to precision decimals. A negative precision disables rounding.
func RoundValue(v float64, precision int) float64 {
	if precision < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	factor := math.Pow(10, float64(precision))
	r := math.Round(v*factor) / factor
	if r == 0 {
		// normalize -0
		return 0
	}
	return r
}

// RoundPoint rounds both ordinates of p.
func RoundPoint(p orb.Point, precision int) orb.Point {
	return orb.Point{RoundValue(p[0], precision), RoundValue(p[1], precision)}
}

// RoundBound rounds both corners of b.
func RoundBound(b orb.Bound, precision int) orb.Bound {
	return orb.Bound{Min: RoundPoint(b.Min, precision), Max: RoundPoint(b.Max, precision)}
}

// Round returns a rounded copy of g. Unknown geometry types are returned as is.
func Round(g orb.Geometry, precision int) orb.Geometry {
	return Map(g, func(p orb.Point) orb.Point { return RoundPoint(p, precision) })
}

// Map returns a copy of g with f applied to every vertex.
func Map(g orb.Geometry, f func(orb.Point) orb.Point) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		return f(g)
	case orb.MultiPoint:
		return orb.MultiPoint(mapPoints(g, f))
	case orb.LineString:
		return orb.LineString(mapPoints(g, f))
	case orb.Ring:
		return orb.Ring(mapPoints(g, f))
	case orb.Polygon:
		return mapPolygon(g, f)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = orb.LineString(mapPoints(ls, f))
		}
		return out
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = mapPolygon(p, f)
		}
		return out
	case orb.Bound:
		return orb.Bound{Min: f(g.Min), Max: f(g.Max)}
	case orb.Collection:
		out := make(orb.Collection, len(g))
		for i, c := range g {
			out[i] = Map(c, f)
		}
		return out
	}
	return g
}

func mapPoints(pts []orb.Point, f func(orb.Point) orb.Point) []orb.Point {
	if pts == nil {
		return nil
	}
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = f(p)
	}
	return out
}

func mapPolygon(p orb.Polygon, f func(orb.Point) orb.Point) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = orb.Ring(mapPoints(r, f))
	}
	return out
}
