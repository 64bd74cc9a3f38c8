// Package geom holds the small amount of geometry the engine needs beyond orb:
// a circle shape, its polygonal approximation and coordinate rounding.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// TypeCircle is the geometry type of circles. It is not a GeoJSON type.
const TypeCircle = "Circle"

// DefaultCircleSides is the number of vertices used to approximate a circle.
const DefaultCircleSides = 32

// Circle is a center and a radius in the units of its projection.
type Circle struct {
	Center orb.Point
	Radius float64
}

// Bound returns the square enclosing the circle.
func (c Circle) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.Center[0] - c.Radius, c.Center[1] - c.Radius},
		Max: orb.Point{c.Center[0] + c.Radius, c.Center[1] + c.Radius},
	}
}

// GeodesicRadius returns the length in meters of the radius measured eastwards from
// the center. toLonLat converts view coordinates to EPSG:4326.
func (c Circle) GeodesicRadius(toLonLat func(orb.Point) orb.Point) float64 {
	end := orb.Point{c.Center[0] + c.Radius, c.Center[1]}
	return geo.Distance(toLonLat(c.Center), toLonLat(end))
}

// CircularPolygon approximates a circle on the sphere with a closed ring.
// center is lon/lat, radius is in meters.
func CircularPolygon(center orb.Point, radius float64, sides int) orb.Polygon {
	if sides < 3 {
		sides = DefaultCircleSides
	}
	ring := make(orb.Ring, 0, sides+1)
	for i := 0; i < sides; i++ {
		bearing := 2 * math.Pi * float64(i) / float64(sides)
		ring = append(ring, destination(center, radius, bearing))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// destination is the point reached from p travelling distance meters along bearing (radians).
func destination(p orb.Point, distance, bearing float64) orb.Point {
	lon1 := deg2rad(p[0])
	lat1 := deg2rad(p[1])
	d := distance / orb.EarthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearing)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	return orb.Point{rad2deg(lon2), rad2deg(lat2)}
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
