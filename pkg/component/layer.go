package component

import (
	"context"
	"math"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/services"
)

// PropSource is the layer object property holding its source object.
const PropSource = "source"

// Layer is a map layer. It mounts into the nearest layers container and hosts one
// source.
type Layer struct {
	*lifecycle.Node
	env *Env

	Opacity       *binding.Property[float64]
	Visible       *binding.Property[bool]
	ZIndex        *binding.Property[int]
	Extent        *binding.Property[[]float64]
	MinResolution *binding.Property[float64]
	MaxResolution *binding.Property[float64]
	MinZoom       *binding.Property[float64]
	MaxZoom       *binding.Property[float64]
}

// NewLayer creates a layer node. Properties default to opacity 1, visible, z-index 0
// and unbounded resolution and zoom.
func NewLayer(env *Env, opts ...lifecycle.Option) *Layer {
	l := &Layer{env: env}
	l.Node = lifecycle.New(KindLayer, layerHooks{l, member{services.LayersContainer}}, opts...)

	l.Opacity = binding.NewProperty[float64]("opacity", l.Node)
	l.Visible = binding.NewProperty[bool]("visible", l.Node)
	l.ZIndex = binding.NewProperty[int]("zIndex", l.Node)
	l.Extent = binding.NewProperty[[]float64]("extent", l.Node)
	l.MinResolution = binding.NewProperty[float64]("minResolution", l.Node)
	l.MaxResolution = binding.NewProperty[float64]("maxResolution", l.Node)
	l.MinZoom = binding.NewProperty[float64]("minZoom", l.Node)
	l.MaxZoom = binding.NewProperty[float64]("maxZoom", l.Node)
	l.Bridge().Add(l.Opacity, l.Visible, l.ZIndex, l.Extent,
		l.MinResolution, l.MaxResolution, l.MinZoom, l.MaxZoom)
	return l
}

// layerHooks drives the lifecycle of a Layer.
type layerHooks struct {
	*Layer
	member
}

func (l layerHooks) CreateObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	obj, err := l.env.createObject(ctx, n)
	if err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"opacity":       1.0,
		"visible":       true,
		"zIndex":        0,
		"minResolution": 0.0,
		"maxResolution": math.Inf(1),
		"minZoom":       math.Inf(-1),
		"maxZoom":       math.Inf(1),
	}
	props := make(map[string]any, len(defaults))
	for k, v := range defaults {
		if obj.Get(k) == nil {
			props[k] = v
		}
	}
	obj.SetProperties(props)
	return obj, nil
}

// Source returns the source object of the layer.
func (l *Layer) Source() ports.Object {
	obj := l.Object()
	if obj == nil {
		return nil
	}
	src, _ := obj.Get(PropSource).(ports.Object)
	return src
}

// SetSource replaces the source object of the layer.
func (l *Layer) SetSource(src ports.Object) {
	if obj := l.Object(); obj != nil {
		obj.Set(PropSource, src)
	}
}

func (l layerHooks) Services(n *lifecycle.Node) services.Descriptors {
	self := func() any {
		if n.Object() == nil {
			return nil
		}
		return l.Layer
	}
	return services.Descriptors{
		services.Layer:           self,
		services.SourceContainer: self,
	}
}
