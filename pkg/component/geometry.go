package component

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geom"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/services"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeometryHost is implemented by objects holding one geometry (features).
type GeometryHost interface {
	Geometry() ports.Geometry
	SetGeometry(g ports.Geometry)
}

// Geometry is a feature geometry whose coordinates are given in the data
// projection. A "Circle" type takes a center point as coordinates plus a radius in
// view units.
type Geometry struct {
	*lifecycle.Node
	env *Env

	Type        *binding.Property[string]
	Coordinates *binding.Property[orb.Geometry]
	Radius      *binding.Property[float64]
}

// NewGeometry creates a geometry node.
func NewGeometry(env *Env, opts ...lifecycle.Option) *Geometry {
	g := &Geometry{env: env}
	g.Node = lifecycle.New(KindGeometry, geometryHooks{g, member{services.GeometryContainer}}, opts...)

	g.Type = binding.NewProperty("type", g.Node, binding.Structural[string]())
	g.Coordinates = binding.NewProperty("coordinates", g.Node,
		binding.WithGetter(g.coordinates),
		binding.WithSetter(g.setCoordinates),
		binding.WithEqual(equalGeometry),
		binding.WithEvent[orb.Geometry](ports.EventChange),
	)
	g.Radius = binding.NewProperty("radius", g.Node,
		binding.WithGetter(func(obj ports.Object) (float64, bool) {
			c, ok := circleOf(obj)
			return c.Radius, ok
		}),
		binding.WithSetter(func(obj ports.Object, r float64) {
			if gm, ok := obj.(ports.Geometry); ok {
				if c, ok := gm.Circle(); ok {
					c.Radius = r
					gm.SetCircle(c)
				}
			}
		}),
		binding.WithEvent[float64](ports.EventChange),
	)
	g.Bridge().Add(g.Type, g.Coordinates, g.Radius)
	return g
}

func circleOf(obj ports.Object) (geom.Circle, bool) {
	gm, ok := obj.(ports.Geometry)
	if !ok {
		return geom.Circle{}, false
	}
	return gm.Circle()
}

func equalGeometry(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return orb.Equal(a, b)
}

// coordinates reads the engine geometry in the data projection.
func (g *Geometry) coordinates(obj ports.Object) (orb.Geometry, bool) {
	gm, ok := obj.(ports.Geometry)
	if !ok {
		return nil, false
	}
	pair := projection(g.Node)
	if c, ok := gm.Circle(); ok {
		return pair.PointToDataProj(c.Center), true
	}
	if gm.Shape() == nil {
		return nil, false
	}
	return pair.GeometryToDataProj(gm.Shape()), true
}

func (g *Geometry) setCoordinates(obj ports.Object, coords orb.Geometry) {
	gm, ok := obj.(ports.Geometry)
	if !ok || coords == nil {
		return
	}
	pair := projection(g.Node)
	if c, ok := gm.Circle(); ok {
		if center, ok := coords.(orb.Point); ok {
			c.Center = pair.PointToViewProj(center)
			gm.SetCircle(c)
		}
		return
	}
	gm.SetShape(pair.GeometryToViewProj(coords))
}

// SetProps applies declarative properties. "coordinates" may be an orb.Geometry or
// nested number arrays interpreted with "type" (or the current type).
func (g *Geometry) SetProps(ctx context.Context, props map[string]any) error {
	raw, ok := props["coordinates"]
	if !ok {
		return g.Node.SetProps(ctx, props)
	}

	typ, _ := props["type"].(string)
	if typ == "" {
		typ, _ = g.Type.CurrentValue()
	}
	coords, err := DecodeCoordinates(typ, raw)
	if err != nil {
		return fmt.Errorf("property coordinates: %w", err)
	}

	rest := maps.Clone(props)
	delete(rest, "coordinates")
	if err := g.Node.SetProps(ctx, rest); err != nil {
		return err
	}
	g.Coordinates.Set(ctx, coords)
	return nil
}

// DecodeCoordinates builds a shape of GeoJSON type typ from nested arrays. A
// "Circle" decodes as its center point.
func DecodeCoordinates(typ string, raw any) (orb.Geometry, error) {
	if g, ok := raw.(orb.Geometry); ok {
		return g, nil
	}
	if typ == geom.TypeCircle {
		typ = "Point"
	}
	if typ == "" {
		return nil, fmt.Errorf("geometry type required: %w", domain.ErrWrongType)
	}
	data, err := json.Marshal(map[string]any{"type": typ, "coordinates": raw})
	if err != nil {
		return nil, err
	}
	gj, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	return gj.Geometry(), nil
}

// geometryHooks drives the lifecycle of a Geometry.
type geometryHooks struct {
	*Geometry
	member
}

func (g geometryHooks) CreateObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	if create := g.env.override(KindGeometry); create != nil {
		return create(ctx, n)
	}
	engine, err := g.env.engine("createGeometry")
	if err != nil {
		return nil, err
	}

	coords, _ := g.Coordinates.Value()
	if coords == nil {
		return nil, fmt.Errorf("geometry coordinates: %w", domain.ErrObjectUndefined)
	}
	pair := projection(n)
	typ, _ := g.Type.Value()
	if typ == geom.TypeCircle {
		center, ok := coords.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("circle center %T: %w", coords, domain.ErrWrongType)
		}
		radius, _ := g.Radius.Value()
		return engine.NewCircle(geom.Circle{Center: pair.PointToViewProj(center), Radius: radius}), nil
	}
	if typ != "" && typ != coords.GeoJSONType() {
		return nil, fmt.Errorf("geometry type %s with %s coordinates: %w", typ, coords.GeoJSONType(), domain.ErrWrongType)
	}
	return engine.NewGeometry(pair.GeometryToViewProj(coords)), nil
}

func (g geometryHooks) host(n *lifecycle.Node) (GeometryHost, error) {
	h, ok := services.Lookup[GeometryHost](n.Upstream(), services.GeometryContainer)
	if !ok {
		return nil, fmt.Errorf("%s: %w", services.GeometryContainer, domain.ErrObjectUndefined)
	}
	return h, nil
}

func (g geometryHooks) Mount(ctx context.Context, n *lifecycle.Node) error {
	h, err := g.host(n)
	if err != nil {
		return err
	}
	gm, ok := n.Object().(ports.Geometry)
	if !ok {
		return fmt.Errorf("geometry object: %w", errWrongObject(n.Object()))
	}
	h.SetGeometry(gm)
	return nil
}

func (g geometryHooks) Unmount(ctx context.Context, n *lifecycle.Node) error {
	h, err := g.host(n)
	if err != nil {
		return err
	}
	if cur := h.Geometry(); cur != nil && cur == n.Object() {
		h.SetGeometry(nil)
	}
	return nil
}
