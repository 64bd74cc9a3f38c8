package component

import (
	"context"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/services"
	"github.com/paulmach/orb"
)

// Overlay is an element anchored at a map position.
type Overlay struct {
	*lifecycle.Node
	env *Env

	// Position is expressed in the data projection; the engine holds it in the view
	// projection.
	Position    *binding.Property[[]float64]
	Offset      *binding.Property[[]float64]
	Positioning *binding.Property[string]
}

// NewOverlay creates an overlay node.
func NewOverlay(env *Env, opts ...lifecycle.Option) *Overlay {
	o := &Overlay{env: env}
	o.Node = lifecycle.New(KindOverlay, overlayHooks{o, member{services.OverlaysContainer}}, opts...)

	o.Position = binding.NewProperty("position", o.Node,
		binding.WithGetter(func(obj ports.Object) ([]float64, bool) {
			pt, ok := point(obj.Get("position"))
			if !ok {
				return nil, false
			}
			pt = projection(o.Node).PointToDataProj(pt)
			return pt[:], true
		}),
		binding.WithSetter(func(obj ports.Object, pos []float64) {
			pt, ok := point(pos)
			if !ok {
				obj.Set("position", nil)
				return
			}
			pt = projection(o.Node).PointToViewProj(pt)
			obj.Set("position", pt[:])
		}),
	)
	o.Offset = binding.NewProperty[[]float64]("offset", o.Node)
	o.Positioning = binding.NewProperty[string]("positioning", o.Node)
	o.Bridge().Add(o.Position, o.Offset, o.Positioning)
	return o
}

func point(v any) (orb.Point, bool) {
	pos, ok := v.([]float64)
	if !ok || len(pos) < 2 {
		return orb.Point{}, false
	}
	return orb.Point{pos[0], pos[1]}, true
}

type overlayHooks struct {
	*Overlay
	member
}

func (o overlayHooks) CreateObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	obj, err := o.env.createObject(ctx, n)
	if err != nil {
		return nil, err
	}
	if obj.Get("positioning") == nil {
		obj.Set("positioning", "top-left")
	}
	return obj, nil
}
