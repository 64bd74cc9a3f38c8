package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/container"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/proj"
	"github.com/aretw0/arbor/pkg/services"
)

// Map object properties holding the member collections.
const (
	PropLayers       = "layers"
	PropOverlays     = "overlays"
	PropInteractions = "interactions"
)

// Map is the root of a tree. It holds the layers, overlays and interactions
// containers and fixes the view and data projections for its descendants.
type Map struct {
	*lifecycle.Node
	env *Env

	projection     *binding.Property[string]
	dataProjection *binding.Property[string]

	mu           sync.RWMutex
	layers       *container.Layers
	overlays     *container.Overlays
	interactions *container.Interactions
}

// NewMap creates a map node.
func NewMap(env *Env, opts ...lifecycle.Option) *Map {
	m := &Map{env: env}
	m.Node = lifecycle.New(KindMap, mapHooks{m}, opts...)
	m.projection = binding.NewProperty("projection", m.Node, binding.Structural[string]())
	m.dataProjection = binding.NewProperty("dataProjection", m.Node, binding.Structural[string]())
	m.Bridge().Add(m.projection, m.dataProjection)
	return m
}

// Projection returns the view/data projection pair of the map.
func (m *Map) Projection() (proj.Pair, error) {
	view, _ := m.projection.Value()
	data, _ := m.dataProjection.Value()
	return proj.NewPair(view, data, m.env.precision())
}

// Layers returns the layers container, nil until created.
func (m *Map) Layers() *container.Layers {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layers
}

// Overlays returns the overlays container, nil until created.
func (m *Map) Overlays() *container.Overlays {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlays
}

// Interactions returns the interactions container, nil until created.
func (m *Map) Interactions() *container.Interactions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interactions
}

// mapHooks drives the lifecycle of a Map.
type mapHooks struct{ *Map }

func (m mapHooks) CreateObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	if _, err := m.Projection(); err != nil {
		return nil, err
	}
	engine, err := m.env.engine("createMap")
	if err != nil {
		return nil, err
	}
	obj, err := m.env.createObject(ctx, n)
	if err != nil {
		return nil, err
	}

	props := make(map[string]any, 3)
	for prop, suffix := range map[string]string{
		PropLayers:       container.LayersCollection,
		PropOverlays:     container.OverlaysCollection,
		PropInteractions: container.InteractionsCollection,
	} {
		coll, err := n.Instance(suffix, func() (any, error) { return engine.NewCollection(), nil })
		if err != nil {
			return nil, err
		}
		props[prop] = coll
	}
	obj.SetProperties(props)
	return obj, nil
}

func collection(obj ports.Object, prop string) (ports.Collection, error) {
	coll, ok := obj.Get(prop).(ports.Collection)
	if !ok {
		return nil, fmt.Errorf("map %s collection: %w", prop, errWrongObject(obj.Get(prop)))
	}
	return coll, nil
}

func (m mapHooks) SubscribeAll(ctx context.Context, n *lifecycle.Node, obj ports.Object) error {
	layers, err := collection(obj, PropLayers)
	if err != nil {
		return err
	}
	overlays, err := collection(obj, PropOverlays)
	if err != nil {
		return err
	}
	interactions, err := collection(obj, PropInteractions)
	if err != nil {
		return err
	}

	opts := []container.Option{
		container.WithRevision(n.Revision()),
		container.WithEmitter(n.Emit),
		container.WithFrame(n.Frame()),
		container.WithLogger(n.Logger()),
	}
	m.mu.Lock()
	m.layers = container.NewLayers(layers, opts...)
	m.overlays = container.NewOverlays(overlays, opts...)
	m.interactions = container.NewInteractions(interactions, opts...)
	m.mu.Unlock()
	return nil
}

func (m mapHooks) Deinit(ctx context.Context, n *lifecycle.Node) error {
	m.mu.Lock()
	layers, overlays, interactions := m.layers, m.overlays, m.interactions
	m.layers, m.overlays, m.interactions = nil, nil, nil
	m.mu.Unlock()

	if layers != nil {
		layers.Close()
		overlays.Close()
		interactions.Close()
	}
	return nil
}

func (m mapHooks) Services(n *lifecycle.Node) services.Descriptors {
	return services.Descriptors{
		services.Map: func() any {
			if n.Object() == nil {
				return nil
			}
			return m.Map
		},
		services.LayersContainer:       func() any { return m.Layers() },
		services.OverlaysContainer:     func() any { return m.Overlays() },
		services.InteractionsContainer: func() any { return m.Interactions() },
		services.Projection: func() any {
			p, err := m.Projection()
			if err != nil {
				return nil
			}
			return p
		},
	}
}
