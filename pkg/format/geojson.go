// Package format reads and writes engine features as GeoJSON.
//
// Engine geometries live in the view projection; GeoJSON is produced in the data
// projection. Two side channels carry what plain GeoJSON cannot express:
//
//	vl_circle  {"center": [x, y], "radius": r}  center in data projection, radius in view units
//	vl_style   style object or array of style objects
//
// A circle is written as its geodesic polygon approximation plus vl_circle, and read
// back as a circle from vl_circle.
package format

import (
	"fmt"
	"maps"

	"github.com/aretw0/arbor/pkg/geom"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/proj"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Side channel property names.
const (
	CircleProp = "vl_circle"
	StyleProp  = "vl_style"
)

// CircleSpec is the decoded vl_circle payload.
type CircleSpec struct {
	Center []float64 `mapstructure:"center" json:"center"`
	Radius float64   `mapstructure:"radius" json:"radius"`
}

// StyleReader builds an engine style from its serialized form.
type StyleReader func(raw map[string]any) (ports.Object, error)

// StyleWriter serializes an engine style.
type StyleWriter func(style ports.Object) (map[string]any, error)

// GeoJSON converts between engine features and GeoJSON.
type GeoJSON struct {
	factory     ports.Factory
	data        string
	view        string
	precision   int
	circleSides int
	styleReader StyleReader
	styleWriter StyleWriter
}

// Option configures the format.
type Option func(*GeoJSON)

// WithProjections sets the data and view projections (default EPSG:4326 / EPSG:3857).
func WithProjections(data, view string) Option {
	return func(g *GeoJSON) {
		if view != "" {
			g.view = view
		}
		g.data = proj.Resolve(data, g.view)
	}
}

// WithPrecision sets the number of decimals of written coordinates.
func WithPrecision(precision int) Option {
	return func(g *GeoJSON) { g.precision = precision }
}

// WithCircleSides sets the vertex count of written circle polygons.
func WithCircleSides(n int) Option {
	return func(g *GeoJSON) {
		if n >= 3 {
			g.circleSides = n
		}
	}
}

// WithStyleReader overrides how vl_style entries become engine styles.
func WithStyleReader(r StyleReader) Option {
	return func(g *GeoJSON) { g.styleReader = r }
}

// WithStyleWriter overrides how engine styles are serialized into vl_style.
func WithStyleWriter(w StyleWriter) Option {
	return func(g *GeoJSON) { g.styleWriter = w }
}

// New creates a GeoJSON format backed by factory.
func New(factory ports.Factory, opts ...Option) *GeoJSON {
	g := &GeoJSON{
		factory:     factory,
		data:        proj.EPSG4326,
		view:        proj.EPSG3857,
		precision:   geom.DefaultPrecision,
		circleSides: geom.DefaultCircleSides,
	}
	g.styleReader = g.readStyle
	g.styleWriter = writeStyle
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DataProjection returns the projection of produced GeoJSON.
func (g *GeoJSON) DataProjection() string { return g.data }

// ViewProjection returns the projection of engine coordinates.
func (g *GeoJSON) ViewProjection() string { return g.view }

// InDataProjection returns a copy of the format producing GeoJSON in data.
func (g *GeoJSON) InDataProjection(data string) *GeoJSON {
	c := *g
	c.data = proj.Resolve(data, g.view)
	return &c
}

// WriteGeometry returns the GeoJSON shape of geometry in the data projection.
// Circles become their polygon approximation.
func (g *GeoJSON) WriteGeometry(geometry ports.Geometry) (orb.Geometry, error) {
	if geometry == nil {
		return nil, nil
	}
	if c, ok := geometry.Circle(); ok {
		return g.writeCircle(c)
	}
	return proj.TransformGeometry(geometry.Shape(), g.view, g.data, g.precision)
}

func (g *GeoJSON) writeCircle(c geom.Circle) (orb.Geometry, error) {
	view, err := proj.Get(g.view)
	if err != nil {
		return nil, err
	}
	radius := c.GeodesicRadius(view.ToLonLat)
	center := view.ToLonLat(c.Center)
	polygon := geom.CircularPolygon(center, radius, g.circleSides)
	return proj.TransformGeometry(polygon, proj.EPSG4326, g.data, g.precision)
}

// ReadGeometry builds an engine geometry from a data projection shape, or from
// circle when it carries a center and a radius.
func (g *GeoJSON) ReadGeometry(shape orb.Geometry, circle *CircleSpec) (ports.Geometry, error) {
	if circle != nil && len(circle.Center) >= 2 && circle.Radius != 0 {
		c, err := proj.TransformCircle(geom.Circle{
			Center: orb.Point{circle.Center[0], circle.Center[1]},
			Radius: circle.Radius,
		}, g.data, g.view, g.precision)
		if err != nil {
			return nil, err
		}
		return g.factory.NewCircle(c), nil
	}
	if shape == nil {
		return nil, nil
	}
	view, err := proj.TransformGeometry(shape, g.data, g.view, g.precision)
	if err != nil {
		return nil, err
	}
	return g.factory.NewGeometry(view), nil
}

// WriteFeature serializes feature in the data projection.
func (g *GeoJSON) WriteFeature(feature ports.Feature) (*geojson.Feature, error) {
	var shape orb.Geometry
	var circle *CircleSpec

	if geometry := feature.Geometry(); geometry != nil {
		var err error
		if shape, err = g.WriteGeometry(geometry); err != nil {
			return nil, fmt.Errorf("feature %s geometry: %w", feature.ID(), err)
		}
		if c, ok := geometry.Circle(); ok {
			center, err := proj.TransformPoint(c.Center, g.view, g.data, g.precision)
			if err != nil {
				return nil, err
			}
			circle = &CircleSpec{Center: []float64{center[0], center[1]}, Radius: c.Radius}
		}
	}

	out := &geojson.Feature{
		Type:       "Feature",
		Geometry:   shape,
		Properties: geojson.Properties{},
	}
	if id := feature.ID(); id != "" {
		out.ID = id
	}

	props := feature.Properties()
	delete(props, ports.PropID)
	maps.Copy(out.Properties, props)

	if circle != nil {
		out.Properties[CircleProp] = map[string]any{
			"center": circle.Center,
			"radius": circle.Radius,
		}
	}

	if styles := feature.Style(); len(styles) > 0 {
		raw := make([]any, 0, len(styles))
		for _, s := range styles {
			m, err := g.styleWriter(s)
			if err != nil {
				return nil, fmt.Errorf("feature %s style: %w", feature.ID(), err)
			}
			raw = append(raw, m)
		}
		out.Properties[StyleProp] = raw
	}
	return out, nil
}

// ReadFeature builds an engine feature from its GeoJSON form. Features without an
// id get a random one.
func (g *GeoJSON) ReadFeature(in *geojson.Feature) (ports.Feature, error) {
	props := maps.Clone(map[string]any(in.Properties))
	if props == nil {
		props = map[string]any{}
	}

	delete(props, ports.PropID)

	circle, err := decodeCircle(props[CircleProp])
	if err != nil {
		return nil, err
	}
	delete(props, CircleProp)

	var styles []ports.Object
	if raw, ok := props[StyleProp]; ok {
		if styles, err = g.readStyles(raw); err != nil {
			return nil, err
		}
		delete(props, StyleProp)
	}

	geometry, err := g.ReadGeometry(in.Geometry, circle)
	if err != nil {
		return nil, err
	}

	feature := g.factory.NewFeature()
	feature.SetID(FeatureID(in.ID))
	if len(props) > 0 {
		feature.SetProperties(props)
	}
	if geometry != nil {
		feature.SetGeometry(geometry)
	}
	if len(styles) > 0 {
		feature.SetStyle(styles)
	}
	return feature, nil
}

// WriteFeatures serializes features into a collection.
func (g *GeoJSON) WriteFeatures(features []ports.Feature) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		out, err := g.WriteFeature(f)
		if err != nil {
			return nil, err
		}
		fc.Append(out)
	}
	return fc, nil
}

// ReadFeatures builds engine features from a collection.
func (g *GeoJSON) ReadFeatures(fc *geojson.FeatureCollection) ([]ports.Feature, error) {
	out := make([]ports.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		feature, err := g.ReadFeature(f)
		if err != nil {
			return nil, err
		}
		out = append(out, feature)
	}
	return out, nil
}

// Unmarshal reads a FeatureCollection or a single Feature.
func (g *GeoJSON) Unmarshal(data []byte) ([]ports.Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil && fc.Type == "FeatureCollection" {
		return g.ReadFeatures(fc)
	}
	f, ferr := geojson.UnmarshalFeature(data)
	if ferr != nil {
		if err != nil {
			return nil, fmt.Errorf("invalid geojson: %w", err)
		}
		return nil, fmt.Errorf("invalid geojson: %w", ferr)
	}
	feature, err := g.ReadFeature(f)
	if err != nil {
		return nil, err
	}
	return []ports.Feature{feature}, nil
}

// Marshal writes features as a FeatureCollection.
func (g *GeoJSON) Marshal(features []ports.Feature) ([]byte, error) {
	fc, err := g.WriteFeatures(features)
	if err != nil {
		return nil, err
	}
	return fc.MarshalJSON()
}

// FeatureID normalizes a GeoJSON id. Missing ids become random UUIDs.
func FeatureID(id any) string {
	switch v := id.(type) {
	case nil:
		return uuid.NewString()
	case string:
		if v == "" {
			return uuid.NewString()
		}
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func decodeCircle(raw any) (*CircleSpec, error) {
	if raw == nil {
		return nil, nil
	}
	var spec CircleSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &spec,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", CircleProp, err)
	}
	return &spec, nil
}

func (g *GeoJSON) readStyles(raw any) ([]ports.Object, error) {
	var entries []any
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		entries = v
	case []map[string]any:
		for _, m := range v {
			entries = append(entries, m)
		}
	default:
		entries = []any{v}
	}

	styles := make([]ports.Object, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decode %s: unexpected %T", StyleProp, e)
		}
		s, err := g.styleReader(m)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", StyleProp, err)
		}
		styles = append(styles, s)
	}
	return styles, nil
}

// readStyle is the default StyleReader: a style is a plain property bag.
func (g *GeoJSON) readStyle(raw map[string]any) (ports.Object, error) {
	s := g.factory.NewObject()
	s.SetProperties(raw)
	return s, nil
}

func writeStyle(style ports.Object) (map[string]any, error) {
	props := style.Properties()
	delete(props, ports.PropID)
	return props, nil
}
