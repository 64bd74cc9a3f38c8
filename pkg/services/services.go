// Package services implements parent-to-child capability injection.
//
// A node exposes named capabilities (its map, its layers container, itself as a
// layer...) to its descendants. Each node composes its parent's provider with its own
// descriptors, so a lookup resolves to the nearest ancestor exposing the capability.
package services

// Capability names used by the node kinds.
const (
	Map                   = "map"
	View                  = "view"
	LayersContainer       = "layersContainer"
	SourceContainer       = "sourceContainer"
	FeaturesContainer     = "featuresContainer"
	OverlaysContainer     = "overlaysContainer"
	InteractionsContainer = "interactionsContainer"
	GeometryContainer     = "geometryContainer"
	StyleContainer        = "styleContainer"
	Layer                 = "layer"
	Source                = "source"
	Projection            = "projection"
)

// Getter lazily resolves a capability. A nil result means "not available yet".
type Getter func() any

// Descriptors maps capability names to getters.
type Descriptors map[string]Getter

// Provider resolves capabilities.
type Provider interface {
	Get(capability string) (any, bool)
}

// Value returns a getter for a fixed value.
func Value(v any) Getter {
	return func() any { return v }
}

type composite struct {
	parent Provider
	own    Descriptors
}

// Compose returns a provider that resolves from descriptors first (later descriptor
// sets shadow earlier ones) and falls back to parent. A nil parent is the root.
func Compose(parent Provider, descriptors ...Descriptors) Provider {
	own := make(Descriptors)
	for _, d := range descriptors {
		for k, g := range d {
			own[k] = g
		}
	}
	return &composite{parent: parent, own: own}
}

func (c *composite) Get(capability string) (any, bool) {
	if g, ok := c.own[capability]; ok && g != nil {
		if v := g(); !isNil(v) {
			return v, true
		}
	}
	if c.parent == nil {
		return nil, false
	}
	return c.parent.Get(capability)
}

// Lookup resolves a capability and asserts its type.
func Lookup[T any](p Provider, capability string) (T, bool) {
	var zero T
	if p == nil {
		return zero, false
	}
	v, ok := p.Get(capability)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
