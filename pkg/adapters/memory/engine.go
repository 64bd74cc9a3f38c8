package memory

import (
	"github.com/aretw0/arbor/pkg/geom"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb"
)

// Engine is the in-memory ports.Factory. It backs tests and the CLI, where nothing
// is rendered and the object graph only has to hold state and fire events.
type Engine struct{}

var _ ports.Factory = Engine{}

// NewEngine returns the in-memory factory.
func NewEngine() Engine { return Engine{} }

func (Engine) NewObject() ports.Object         { return NewObject(nil) }
func (Engine) NewCollection() ports.Collection { return NewCollection() }
func (Engine) NewFeature() ports.Feature       { return NewFeature() }

func (Engine) NewGeometry(shape orb.Geometry) ports.Geometry {
	return NewGeometry(shape)
}

func (Engine) NewCircle(c geom.Circle) ports.Geometry {
	return NewCircle(c)
}
