package container

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"sync"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/debounce"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/format"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PropFeatures is the outward property carrying the GeoJSON features of a source.
const PropFeatures = "features"

// Features holds the features of a vector source. Besides engine features it accepts
// GeoJSON features expressed in the data projection; adding a GeoJSON feature whose
// id is already present patches the existing member in place.
type Features struct {
	*Container[ports.Feature]

	format   *format.GeoJSON
	dataProj *binding.Computed[[]*geojson.Feature]
	viewProj *binding.Computed[[]*geojson.Feature]
	updates  *debounce.Debouncer

	mu   sync.Mutex
	last []byte
}

// NewFeatures wraps coll. gj converts between GeoJSON and engine features.
func NewFeatures(coll ports.Collection, gj *format.GeoJSON, opts ...Option) *Features {
	f := &Features{
		Container: New[ports.Feature](KindFeature, coll, opts...),
		format:    gj,
	}
	f.updates = debounce.New(f.cfg.frame)
	f.dataProj = binding.NewComputed(f.cfg.rev, func() []*geojson.Feature {
		return f.write(f.format)
	})
	f.viewProj = binding.NewComputed(f.cfg.rev, func() []*geojson.Feature {
		return f.write(f.format.InDataProjection(f.format.ViewProjection()))
	})
	f.initialize = f.read
	f.identify = f.idOf
	f.onChange = f.scheduleUpdate
	return f
}

// Format returns the GeoJSON codec of the container.
func (f *Features) Format() *format.GeoJSON { return f.format }

func (f *Features) read(ctx context.Context, item any) (ports.Feature, error) {
	in, ok := asGeoJSON(item)
	if !ok {
		return f.resolve(ctx, item)
	}
	feature, err := f.format.ReadFeature(in)
	if err != nil {
		return nil, fmt.Errorf("read feature: %w", err)
	}
	if existing, ok := f.ByID(feature.ID()); ok {
		if err := f.UpdateFeature(existing, feature); err != nil {
			return nil, err
		}
		return existing, nil
	}
	return feature, nil
}

func (f *Features) idOf(ctx context.Context, item any) (string, error) {
	if in, ok := asGeoJSON(item); ok {
		id := format.FeatureID(in.ID)
		if in.ID == nil || id == "" {
			return "", fmt.Errorf("feature container: %w", domain.ErrInvalidID)
		}
		return id, nil
	}
	return f.Container.idOf(ctx, item)
}

func asGeoJSON(item any) (*geojson.Feature, bool) {
	switch v := item.(type) {
	case *geojson.Feature:
		return v, v != nil
	case geojson.Feature:
		return &v, true
	}
	return nil, false
}

func (f *Features) write(gj *format.GeoJSON) []*geojson.Feature {
	items := f.Items()
	out := make([]*geojson.Feature, 0, len(items))
	for _, item := range items {
		feature, err := gj.WriteFeature(item)
		if err != nil {
			f.cfg.logger.Warn("skipping unwritable feature", "id", item.ID(), "err", err)
			continue
		}
		out = append(out, feature)
	}
	return out
}

// FeaturesDataProj returns the members as GeoJSON in the data projection. The
// result is cached until the next membership or member change.
func (f *Features) FeaturesDataProj() []*geojson.Feature { return f.dataProj.Get() }

// FeaturesViewProj returns the members as GeoJSON in the view projection.
func (f *Features) FeaturesViewProj() []*geojson.Feature { return f.viewProj.Get() }

// FeatureCollection returns the members as a GeoJSON collection in the data projection.
func (f *Features) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = f.FeaturesDataProj()
	return fc
}

func (f *Features) scheduleUpdate() {
	if f.cfg.emit == nil {
		return
	}
	f.updates.Schedule(context.Background(), func(context.Context) error {
		data, err := json.Marshal(f.FeatureCollection())
		if err != nil {
			return err
		}
		f.mu.Lock()
		same := bytes.Equal(data, f.last)
		f.last = data
		f.mu.Unlock()
		if !same {
			f.cfg.emit(domain.UpdateEvent(PropFeatures), f.FeaturesDataProj())
		}
		return nil
	})
}

// UpdateFeature patches dst with the id, properties, geometry and style of src.
// src is an engine feature or a GeoJSON feature in the data projection. Only
// differing parts are written.
func (f *Features) UpdateFeature(dst ports.Feature, src any) error {
	var next ports.Feature
	if in, ok := asGeoJSON(src); ok {
		feature, err := f.format.ReadFeature(in)
		if err != nil {
			return fmt.Errorf("read feature: %w", err)
		}
		next = feature
	} else if feature, ok := src.(ports.Feature); ok && feature != nil {
		next = feature
	} else {
		return fmt.Errorf("update feature: %T: %w", src, domain.ErrWrongType)
	}

	if id := next.ID(); id != "" && id != dst.ID() {
		dst.SetID(id)
	}

	props := next.Properties()
	delete(props, ports.PropID)
	patch := make(map[string]any, len(props))
	for k := range dst.Properties() {
		if k != ports.PropID {
			patch[k] = nil
		}
	}
	maps.Copy(patch, props)
	dst.SetProperties(patch)

	patchGeometry(dst, next.Geometry())

	if !stylesEqual(dst.Style(), next.Style()) {
		dst.SetStyle(next.Style())
	}
	return nil
}

func patchGeometry(dst ports.Feature, next ports.Geometry) {
	cur := dst.Geometry()
	switch {
	case next == nil:
		if cur != nil {
			dst.SetGeometry(nil)
		}
	case cur == nil || cur.Type() != next.Type():
		dst.SetGeometry(next)
	default:
		if c, ok := next.Circle(); ok {
			if old, _ := cur.Circle(); old != c {
				cur.SetCircle(c)
			}
			return
		}
		if !orb.Equal(cur.Shape(), next.Shape()) {
			cur.SetShape(next.Shape())
		}
	}
}

func stylesEqual(a, b []ports.Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		if a[i] == nil || b[i] == nil || !reflect.DeepEqual(a[i].Properties(), b[i].Properties()) {
			return false
		}
	}
	return true
}

// Close cancels a pending update:features message and releases subscriptions.
func (f *Features) Close() {
	f.updates.Cancel()
	f.Container.Close()
}

func (f *Features) AddFeature(ctx context.Context, feature any) error { return f.Add(ctx, feature) }

func (f *Features) AddFeatures(ctx context.Context, features ...any) error {
	return f.AddAll(ctx, features...)
}

func (f *Features) RemoveFeature(ctx context.Context, feature any) error {
	return f.Remove(ctx, feature)
}

func (f *Features) RemoveFeatures(ctx context.Context, features ...any) error {
	return f.RemoveAll(ctx, features...)
}

func (f *Features) ClearFeatures() { f.Clear() }

func (f *Features) FeatureByID(id string) (ports.Feature, bool) { return f.ByID(id) }

func (f *Features) Features() []ports.Feature { return f.Items() }

func (f *Features) FeatureIDs() []string { return f.IDs() }
