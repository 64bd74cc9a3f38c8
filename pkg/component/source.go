package component

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/container"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/format"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/proj"
	"github.com/aretw0/arbor/pkg/services"
	"github.com/paulmach/orb/geojson"
)

// PropFeaturesCollection is the source object property holding its feature collection.
const PropFeaturesCollection = "featuresCollection"

// SourceHost is implemented by nodes accepting a source (layers).
type SourceHost interface {
	Source() ports.Object
	SetSource(src ports.Object)
}

// Source is a vector source. It owns a features container and mounts into the
// nearest source host.
type Source struct {
	*lifecycle.Node
	env *Env

	// Projection is the data projection of the features; it defaults to the data
	// projection of the map.
	Projection *binding.Property[string]

	mu       sync.RWMutex
	pair     *proj.Pair
	features *container.Features
	input    []*geojson.Feature
	hasInput bool
}

// NewSource creates a vector source node.
func NewSource(env *Env, opts ...lifecycle.Option) *Source {
	s := &Source{env: env}
	s.Node = lifecycle.New(KindSource, sourceHooks{s, member{services.SourceContainer}}, opts...)
	s.Projection = binding.NewProperty("projection", s.Node, binding.Structural[string]())
	s.Bridge().Add(s.Projection)
	return s
}

// Features returns the features container, nil until created.
func (s *Source) Features() *container.Features {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features
}

// Pair returns the projections used by the features, false until created.
func (s *Source) Pair() (proj.Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return proj.Pair{}, false
	}
	return *s.pair, true
}

// SetProps applies declarative properties. A "features" entry (a GeoJSON
// FeatureCollection or feature list, in the data projection) replaces the features.
func (s *Source) SetProps(ctx context.Context, props map[string]any) error {
	if raw, ok := props[container.PropFeatures]; ok {
		features, err := DecodeFeatures(raw)
		if err != nil {
			return fmt.Errorf("property features: %w", err)
		}
		if err := s.SetFeatures(ctx, features); err != nil {
			return err
		}
	}
	return s.Node.SetProps(ctx, props)
}

// SetFeatures makes the container hold exactly features: members with a known id
// are patched in place, others are added, and members not listed are removed.
// Before creation the list is kept and applied once the container exists.
func (s *Source) SetFeatures(ctx context.Context, features []*geojson.Feature) error {
	s.mu.Lock()
	s.input, s.hasInput = features, true
	fc := s.features
	s.mu.Unlock()

	if fc == nil {
		return nil
	}
	return syncFeatures(ctx, fc, features)
}

func syncFeatures(ctx context.Context, fc *container.Features, features []*geojson.Feature) error {
	keep := make(map[string]bool, len(features))
	items := make([]any, 0, len(features))
	for _, f := range features {
		// Features without id get a fresh random one, so they are replaced on
		// every sync. The caller's feature is left untouched.
		cp := *f
		cp.ID = format.FeatureID(f.ID)
		keep[cp.ID.(string)] = true
		items = append(items, &cp)
	}

	var stale []any
	for _, id := range fc.IDs() {
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	if err := fc.RemoveFeatures(ctx, stale...); err != nil {
		return err
	}
	// Added one by one to keep the declared order.
	for _, item := range items {
		if err := fc.AddFeature(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Save stores the features, in the data projection, under key.
func (s *Source) Save(ctx context.Context, store ports.SnapshotStore, key string) error {
	fc := s.Features()
	if fc == nil {
		return fmt.Errorf("source %s: %w", s.ID(), domain.ErrObjectUndefined)
	}
	return store.Save(ctx, key, fc.FeatureCollection())
}

// Restore replaces the features with the snapshot stored under key.
func (s *Source) Restore(ctx context.Context, store ports.SnapshotStore, key string) error {
	snap, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	return s.SetFeatures(ctx, snap.Features)
}

// DecodeFeatures accepts a *geojson.FeatureCollection, a feature list or a raw
// decoded JSON value (map or slice) and returns the features.
func DecodeFeatures(raw any) ([]*geojson.Feature, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case *geojson.FeatureCollection:
		return v.Features, nil
	case []*geojson.Feature:
		return v, nil
	case *geojson.Feature:
		return []*geojson.Feature{v}, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := raw.([]any); ok {
		var list []*geojson.Feature
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return fc.Features, nil
}

// sourceHooks drives the lifecycle of a Source.
type sourceHooks struct {
	*Source
	member
}

func (s sourceHooks) CreateObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	engine, err := s.env.engine("createSource")
	if err != nil {
		return nil, err
	}
	obj, err := s.env.createObject(ctx, n)
	if err != nil {
		return nil, err
	}
	coll, err := n.Instance(container.FeaturesCollection, func() (any, error) {
		return engine.NewCollection(), nil
	})
	if err != nil {
		return nil, err
	}
	obj.Set(PropFeaturesCollection, coll)
	return obj, nil
}

func (s sourceHooks) SubscribeAll(ctx context.Context, n *lifecycle.Node, obj ports.Object) error {
	coll, ok := obj.Get(PropFeaturesCollection).(ports.Collection)
	if !ok {
		return fmt.Errorf("source features collection: %w", errWrongObject(obj.Get(PropFeaturesCollection)))
	}

	parent := projection(n)
	data, _ := s.Projection.Value()
	pair, err := proj.NewPair(parent.View, proj.Resolve(data, parent.Data), parent.Precision)
	if err != nil {
		return err
	}
	gj, err := s.env.geoJSON(pair)
	if err != nil {
		return err
	}

	features := container.NewFeatures(coll, gj,
		container.WithRevision(n.Revision()),
		container.WithEmitter(n.Emit),
		container.WithFrame(n.Frame()),
		container.WithLogger(n.Logger()),
	)
	s.mu.Lock()
	s.pair = &pair
	s.features = features
	input, hasInput := s.input, s.hasInput
	s.mu.Unlock()

	if hasInput {
		return syncFeatures(ctx, features, input)
	}
	return nil
}

func (s sourceHooks) Deinit(ctx context.Context, n *lifecycle.Node) error {
	s.mu.Lock()
	features := s.features
	s.features, s.pair = nil, nil
	s.mu.Unlock()
	if features != nil {
		features.Close()
	}
	return nil
}

func (s sourceHooks) host(n *lifecycle.Node) (SourceHost, error) {
	h, ok := services.Lookup[SourceHost](n.Upstream(), services.SourceContainer)
	if !ok {
		return nil, fmt.Errorf("%s: %w", services.SourceContainer, domain.ErrObjectUndefined)
	}
	return h, nil
}

func (s sourceHooks) Mount(ctx context.Context, n *lifecycle.Node) error {
	h, err := s.host(n)
	if err != nil {
		return err
	}
	h.SetSource(n.Object())
	return nil
}

func (s sourceHooks) Unmount(ctx context.Context, n *lifecycle.Node) error {
	h, err := s.host(n)
	if err != nil {
		return err
	}
	if h.Source() == n.Object() {
		h.SetSource(nil)
	}
	return nil
}

func (s sourceHooks) Services(n *lifecycle.Node) services.Descriptors {
	return services.Descriptors{
		services.Source: func() any {
			if n.Object() == nil {
				return nil
			}
			return s.Source
		},
		services.FeaturesContainer: func() any { return s.Features() },
		services.Projection: func() any {
			if p, ok := s.Pair(); ok {
				return p
			}
			return nil
		},
	}
}
