package component

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/format"
	"github.com/aretw0/arbor/pkg/geom"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/proj"
	"github.com/aretw0/arbor/pkg/services"
)

// Node kinds.
const (
	KindMap         = "map"
	KindLayer       = "layer"
	KindSource      = "source"
	KindFeature     = "feature"
	KindGeometry    = "geometry"
	KindStyle       = "style"
	KindInteraction = "interaction"
	KindOverlay     = "overlay"
)

// ObjectFactory builds the engine object of a node.
type ObjectFactory func(ctx context.Context, n *lifecycle.Node) (ports.Object, error)

// Env supplies engine constructors to components. A nil Env, or one without a
// constructor for a kind, makes creation fail with domain.ErrNotImplemented.
type Env struct {
	// Engine builds generic objects, collections, features and geometries.
	Engine ports.Factory
	// Objects overrides object creation per kind.
	Objects map[string]ObjectFactory
	// GeoJSON configures the codecs of sources.
	GeoJSON []format.Option
	// Precision is the number of decimals kept by coordinate transforms. Zero means
	// geom.DefaultPrecision.
	Precision int
}

func (e *Env) precision() int {
	if e == nil || e.Precision <= 0 {
		return geom.DefaultPrecision
	}
	return e.Precision
}

func (e *Env) engine(method string) (ports.Factory, error) {
	if e == nil || e.Engine == nil {
		return nil, domain.NotImplemented(method)
	}
	return e.Engine, nil
}

func (e *Env) override(kind string) ObjectFactory {
	if e == nil {
		return nil
	}
	return e.Objects[kind]
}

// createObject builds the object of n through the kind override or the engine.
func (e *Env) createObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	if f := e.override(n.Kind()); f != nil {
		return f(ctx, n)
	}
	engine, err := e.engine(createMethod(n.Kind()))
	if err != nil {
		return nil, err
	}
	return engine.NewObject(), nil
}

func (e *Env) geoJSON(pair proj.Pair) (*format.GeoJSON, error) {
	engine, err := e.engine("createFeature")
	if err != nil {
		return nil, err
	}
	opts := append([]format.Option{
		format.WithProjections(pair.Data, pair.View),
		format.WithPrecision(pair.Precision),
	}, e.GeoJSON...)
	return format.New(engine, opts...), nil
}

func createMethod(kind string) string {
	if kind == "" {
		return "createObject"
	}
	return "create" + strings.ToUpper(kind[:1]) + kind[1:]
}

func errWrongObject(v any) error {
	return fmt.Errorf("%T: %w", v, domain.ErrWrongType)
}

// adder is implemented by the containers of package container.
type adder interface {
	Add(ctx context.Context, item any) error
	Remove(ctx context.Context, item any) error
}

// member mounts a node into the nearest ancestor container published under
// capability. Creation waits for that container to appear.
type member struct {
	capability string
}

func (m member) BeforeInit(ctx context.Context, n *lifecycle.Node) error {
	_, err := n.WaitFor(ctx, m.capability)
	return err
}

func (m member) container(n *lifecycle.Node) (adder, error) {
	c, ok := services.Lookup[adder](n.Upstream(), m.capability)
	if !ok {
		return nil, fmt.Errorf("%s: %w", m.capability, domain.ErrObjectUndefined)
	}
	return c, nil
}

func (m member) Mount(ctx context.Context, n *lifecycle.Node) error {
	c, err := m.container(n)
	if err != nil {
		return err
	}
	return c.Add(ctx, n.Object())
}

func (m member) Unmount(ctx context.Context, n *lifecycle.Node) error {
	c, err := m.container(n)
	if err != nil {
		return err
	}
	return c.Remove(ctx, n.Object())
}

// projection returns the projection pair visible to n.
func projection(n *lifecycle.Node) proj.Pair {
	if p, ok := services.Lookup[proj.Pair](n.Upstream(), services.Projection); ok {
		return p
	}
	return proj.MustPair("", "", geom.DefaultPrecision)
}
