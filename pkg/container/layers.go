package container

import (
	"context"

	"github.com/aretw0/arbor/pkg/ports"
)

// Registry suffixes of shared member collections ("<ident>.layers_collection").
const (
	LayersCollection       = "layers_collection"
	FeaturesCollection     = "features_collection"
	OverlaysCollection     = "overlays_collection"
	InteractionsCollection = "interactions_collection"
)

// Member kinds, also used in add<kind>/remove<kind> message names.
const (
	KindLayer       = "layer"
	KindFeature     = "feature"
	KindOverlay     = "overlay"
	KindInteraction = "interaction"
)

// Layers holds the layers of a map or a layer group in mount order.
type Layers struct {
	*Container[ports.Object]
}

// NewLayers wraps coll.
func NewLayers(coll ports.Collection, opts ...Option) *Layers {
	return &Layers{Container: New[ports.Object](KindLayer, coll, opts...)}
}

func (l *Layers) AddLayer(ctx context.Context, layer any) error { return l.Add(ctx, layer) }

func (l *Layers) AddLayers(ctx context.Context, layers ...any) error {
	return l.AddAll(ctx, layers...)
}

func (l *Layers) RemoveLayer(ctx context.Context, layer any) error { return l.Remove(ctx, layer) }

func (l *Layers) RemoveLayers(ctx context.Context, layers ...any) error {
	return l.RemoveAll(ctx, layers...)
}

func (l *Layers) ClearLayers() { l.Clear() }

func (l *Layers) LayerByID(id string) (ports.Object, bool) { return l.ByID(id) }

func (l *Layers) Layers() []ports.Object { return l.Items() }

func (l *Layers) LayerIDs() []string { return l.IDs() }

// Overlays holds map overlays.
type Overlays struct {
	*Container[ports.Object]
}

// NewOverlays wraps coll.
func NewOverlays(coll ports.Collection, opts ...Option) *Overlays {
	return &Overlays{Container: New[ports.Object](KindOverlay, coll, opts...)}
}

func (o *Overlays) AddOverlay(ctx context.Context, overlay any) error { return o.Add(ctx, overlay) }

func (o *Overlays) AddOverlays(ctx context.Context, overlays ...any) error {
	return o.AddAll(ctx, overlays...)
}

func (o *Overlays) RemoveOverlay(ctx context.Context, overlay any) error {
	return o.Remove(ctx, overlay)
}

func (o *Overlays) RemoveOverlays(ctx context.Context, overlays ...any) error {
	return o.RemoveAll(ctx, overlays...)
}

func (o *Overlays) ClearOverlays() { o.Clear() }

func (o *Overlays) OverlayByID(id string) (ports.Object, bool) { return o.ByID(id) }

func (o *Overlays) Overlays() []ports.Object { return o.Items() }

func (o *Overlays) OverlayIDs() []string { return o.IDs() }
