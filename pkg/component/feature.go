package component

import (
	"context"
	"fmt"
	"maps"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/services"
)

// PropStyle is the outward property carrying the style list of a feature.
const PropStyle = "style"

// Feature is a vector feature. It mounts into the nearest features container and
// hosts one geometry and a style list.
type Feature struct {
	*lifecycle.Node
	env *Env

	// Properties is the attribute bag of the feature, without its id.
	Properties *binding.Property[map[string]any]
}

// NewFeature creates a feature node.
func NewFeature(env *Env, opts ...lifecycle.Option) *Feature {
	f := &Feature{env: env}
	f.Node = lifecycle.New(KindFeature, featureHooks{f, member{services.FeaturesContainer}}, opts...)
	f.Properties = binding.NewProperty("properties", f.Node,
		binding.WithGetter(func(obj ports.Object) (map[string]any, bool) {
			props := obj.Properties()
			delete(props, ports.PropID)
			return props, true
		}),
		binding.WithSetter(func(obj ports.Object, props map[string]any) {
			patch := make(map[string]any, len(props))
			for k := range obj.Properties() {
				if k != ports.PropID {
					patch[k] = nil
				}
			}
			maps.Copy(patch, props)
			delete(patch, ports.PropID)
			obj.SetProperties(patch)
		}),
		binding.WithEvent[map[string]any](ports.EventPropertyChange),
	)
	f.Bridge().Add(f.Properties)
	return f
}

// Feature returns the engine feature, nil until created.
func (f *Feature) Feature() ports.Feature {
	feature, _ := f.Object().(ports.Feature)
	return feature
}

// featureHooks drives the lifecycle of a Feature.
type featureHooks struct {
	*Feature
	member
}

func (f featureHooks) CreateObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	if create := f.env.override(KindFeature); create != nil {
		obj, err := create(ctx, n)
		if err != nil {
			return nil, err
		}
		if _, ok := obj.(ports.Feature); !ok {
			return nil, fmt.Errorf("feature object: %w", errWrongObject(obj))
		}
		return obj, nil
	}
	engine, err := f.env.engine("createFeature")
	if err != nil {
		return nil, err
	}
	return engine.NewFeature(), nil
}

func (f featureHooks) SubscribeAll(ctx context.Context, n *lifecycle.Node, obj ports.Object) error {
	n.Subscriptions().Add(obj.On(ports.ChangeEvent(PropStyle), func(ports.Event) {
		feature, ok := obj.(ports.Feature)
		if !ok {
			return
		}
		styles := feature.Style()
		out := make([]map[string]any, 0, len(styles))
		for _, s := range styles {
			props := s.Properties()
			delete(props, ports.PropID)
			out = append(out, props)
		}
		n.Emit(domain.UpdateEvent(PropStyle), out)
	}))
	return nil
}

func (f featureHooks) Services(n *lifecycle.Node) services.Descriptors {
	host := func() any { return f.Feature.Feature() }
	return services.Descriptors{
		services.GeometryContainer: host,
		services.StyleContainer:    host,
	}
}
