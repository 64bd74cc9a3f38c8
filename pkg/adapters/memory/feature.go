package memory

import (
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/geom"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb"
)

// Property keys used for the non-bag members of features.
const (
	PropGeometry = "geometry"
	PropStyle    = "style"
)

// Geometry holds either a standard shape or a circle, in view coordinates.
type Geometry struct {
	*Object

	mu     sync.RWMutex
	shape  orb.Geometry
	circle *geom.Circle
}

var _ ports.Geometry = (*Geometry)(nil)

// NewGeometry wraps a shape.
func NewGeometry(shape orb.Geometry) *Geometry {
	return &Geometry{Object: NewObject(nil), shape: shape}
}

// NewCircle wraps a circle.
func NewCircle(c geom.Circle) *Geometry {
	return &Geometry{Object: NewObject(nil), circle: &c}
}

func (g *Geometry) Type() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.circle != nil {
		return geom.TypeCircle
	}
	if g.shape == nil {
		return ""
	}
	return g.shape.GeoJSONType()
}

func (g *Geometry) Shape() orb.Geometry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.shape
}

func (g *Geometry) SetShape(shape orb.Geometry) {
	g.mu.Lock()
	g.shape, g.circle = shape, nil
	g.mu.Unlock()
	g.Changed()
}

func (g *Geometry) Circle() (geom.Circle, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.circle == nil {
		return geom.Circle{}, false
	}
	return *g.circle, true
}

func (g *Geometry) SetCircle(c geom.Circle) {
	g.mu.Lock()
	g.shape, g.circle = nil, &c
	g.mu.Unlock()
	g.Changed()
}

// Feature is an object with a geometry and a style list. A change of its geometry
// is reported as a change of the feature.
type Feature struct {
	*Object

	mu          sync.RWMutex
	geometry    ports.Geometry
	geometryOff func()
	style       []ports.Object
}

var _ ports.Feature = (*Feature)(nil)

// NewFeature creates an empty feature.
func NewFeature() *Feature {
	return &Feature{Object: NewObject(nil)}
}

func (f *Feature) Geometry() ports.Geometry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.geometry
}

func (f *Feature) SetGeometry(g ports.Geometry) {
	f.mu.Lock()
	if f.geometry == g {
		f.mu.Unlock()
		return
	}
	old := f.geometry
	if f.geometryOff != nil {
		f.geometryOff()
		f.geometryOff = nil
	}
	f.geometry = g
	if g != nil {
		f.geometryOff = g.On(ports.EventChange, func(ports.Event) { f.Changed() })
	}
	f.mu.Unlock()

	f.notify(PropGeometry, g, old, nextTx())
	f.Changed()
}

func (f *Feature) Style() []ports.Object {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.style)
}

func (f *Feature) SetStyle(styles []ports.Object) {
	f.mu.Lock()
	if slices.Equal(f.style, styles) {
		f.mu.Unlock()
		return
	}
	old := f.style
	f.style = slices.Clone(styles)
	f.mu.Unlock()

	f.notify(PropStyle, styles, old, nextTx())
	f.Changed()
}
