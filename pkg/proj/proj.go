package proj

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Well known projection codes.
const (
	EPSG4326 = "EPSG:4326"
	EPSG3857 = "EPSG:3857"
)

// ErrUnknownProjection is returned for codes that were never registered.
var ErrUnknownProjection = errors.New("unknown projection")

// Projection converts between its own coordinates and lon/lat (EPSG:4326).
type Projection struct {
	Code       string
	Aliases    []string
	ToLonLat   orb.Projection
	FromLonLat orb.Projection
}

var (
	mu          sync.RWMutex
	projections = make(map[string]Projection)
)

func identity(p orb.Point) orb.Point { return p }

func init() {
	Register(Projection{
		Code:       EPSG4326,
		Aliases:    []string{"CRS:84", "urn:ogc:def:crs:EPSG::4326", "urn:ogc:def:crs:OGC:1.3:CRS84"},
		ToLonLat:   identity,
		FromLonLat: identity,
	})
	Register(Projection{
		Code:       EPSG3857,
		Aliases:    []string{"EPSG:900913", "EPSG:102100", "EPSG:102113", "urn:ogc:def:crs:EPSG::3857"},
		ToLonLat:   project.Mercator.ToWGS84,
		FromLonLat: project.WGS84.ToMercator,
	})
}

// Register adds or replaces a projection under its code and aliases.
func Register(p Projection) {
	mu.Lock()
	defer mu.Unlock()
	projections[p.Code] = p
	for _, alias := range p.Aliases {
		projections[alias] = p
	}
}

// Get looks up a registered projection.
func Get(code string) (Projection, error) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := projections[code]
	if !ok {
		return Projection{}, fmt.Errorf("%w: %q", ErrUnknownProjection, code)
	}
	return p, nil
}

// Equivalent reports whether two codes name the same registered projection.
func Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	pa, errA := Get(a)
	pb, errB := Get(b)
	return errA == nil && errB == nil && pa.Code == pb.Code
}

// Transformer returns the point transform from one projection to another.
func Transformer(from, to string) (orb.Projection, error) {
	src, err := Get(from)
	if err != nil {
		return nil, err
	}
	dst, err := Get(to)
	if err != nil {
		return nil, err
	}
	if src.Code == dst.Code {
		return identity, nil
	}
	return func(p orb.Point) orb.Point {
		return dst.FromLonLat(src.ToLonLat(p))
	}, nil
}

// Resolve returns the first non-empty code. It mirrors how nodes pick their data
// projection: explicit property, then the map's setting, then the view projection.
func Resolve(codes ...string) string {
	for _, c := range codes {
		if c != "" {
			return c
		}
	}
	return ""
}
