package proj

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/geom"
	"github.com/paulmach/orb"
)

// Pair binds a view projection to a data projection so that nodes can move values
// between the engine (view) and their users (data) without repeating the codes.
type Pair struct {
	View      string
	Data      string
	Precision int

	toView orb.Projection
	toData orb.Projection
}

// NewPair validates both projections. An empty data projection means "same as view".
func NewPair(view, data string, precision int) (Pair, error) {
	if view == "" {
		view = EPSG3857
	}
	data = Resolve(data, view)

	toView, err := Transformer(data, view)
	if err != nil {
		return Pair{}, fmt.Errorf("view projection: %w", err)
	}
	toData, err := Transformer(view, data)
	if err != nil {
		return Pair{}, fmt.Errorf("data projection: %w", err)
	}
	return Pair{
		View:      view,
		Data:      data,
		Precision: precision,
		toView:    rounded(toView, precision),
		toData:    rounded(toData, precision),
	}, nil
}

// MustPair is NewPair for known-good codes.
func MustPair(view, data string, precision int) Pair {
	p, err := NewPair(view, data, precision)
	if err != nil {
		panic(err)
	}
	return p
}

// PointToViewProj converts a data coordinate to the view projection.
func (p Pair) PointToViewProj(pt orb.Point) orb.Point { return p.toView(pt) }

// PointToDataProj converts a view coordinate to the data projection.
func (p Pair) PointToDataProj(pt orb.Point) orb.Point { return p.toData(pt) }

// GeometryToViewProj converts any geometry from data to view coordinates.
func (p Pair) GeometryToViewProj(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return geom.Map(g, p.toView)
}

// GeometryToDataProj converts any geometry from view to data coordinates.
func (p Pair) GeometryToDataProj(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return geom.Map(g, p.toData)
}

// CircleToViewProj converts the circle center to the view projection.
func (p Pair) CircleToViewProj(c geom.Circle) geom.Circle {
	return geom.Circle{Center: p.toView(c.Center), Radius: c.Radius}
}

// CircleToDataProj converts the circle center to the data projection.
func (p Pair) CircleToDataProj(c geom.Circle) geom.Circle {
	return geom.Circle{Center: p.toData(c.Center), Radius: c.Radius}
}

// ExtentToViewProj converts an extent from data to view coordinates.
func (p Pair) ExtentToViewProj(b orb.Bound) orb.Bound {
	out, _ := TransformExtent(b, p.Data, p.View, p.Precision)
	return out
}

// ExtentToDataProj converts an extent from view to data coordinates.
func (p Pair) ExtentToDataProj(b orb.Bound) orb.Bound {
	out, _ := TransformExtent(b, p.View, p.Data, p.Precision)
	return out
}

// ToLonLat converts a view coordinate to EPSG:4326 without rounding.
func (p Pair) ToLonLat(pt orb.Point) orb.Point {
	v, err := Get(p.View)
	if err != nil {
		return pt
	}
	return v.ToLonLat(pt)
}
