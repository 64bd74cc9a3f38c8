package container_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/container"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/format"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) emit(name string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.names {
		if got == name {
			n++
		}
	}
	return n
}

func object(id string, props map[string]any) *memory.Object {
	obj := memory.NewObject(props)
	obj.SetID(id)
	return obj
}

type resolver struct{ obj ports.Object }

func (r resolver) Resolve(context.Context) (ports.Object, error) { return r.obj, nil }

func TestLayers_MountOrder(t *testing.T) {
	coll := memory.NewCollection(object("x", nil), object("y", nil))
	layers := container.NewLayers(coll)
	defer layers.Close()

	require.NoError(t, layers.AddLayer(context.Background(), resolver{object("a", nil)}))
	assert.Equal(t, []string{"x", "y", "a"}, layers.LayerIDs())
}

func TestContainer_AddIsIdempotentByID(t *testing.T) {
	layers := container.NewLayers(memory.NewCollection())
	ctx := context.Background()

	require.NoError(t, layers.AddLayer(ctx, object("a", nil)))
	require.NoError(t, layers.AddLayer(ctx, object("a", nil)))
	assert.Equal(t, 1, layers.Len())

	require.NoError(t, layers.AddLayers(ctx, object("b", nil), object("b", nil), object("c", nil)))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, layers.LayerIDs())
}

func TestContainer_Assertions(t *testing.T) {
	layers := container.NewLayers(memory.NewCollection())
	ctx := context.Background()

	assert.ErrorIs(t, layers.AddLayer(ctx, "not an object"), domain.ErrWrongType)
	assert.ErrorIs(t, layers.AddLayer(ctx, memory.NewObject(nil)), domain.ErrInvalidID)
	assert.Zero(t, layers.Len())
}

func TestContainer_EventsAndRevision(t *testing.T) {
	rev := &binding.Revision{}
	rec := &recorder{}
	layers := container.NewLayers(memory.NewCollection(),
		container.WithRevision(rev),
		container.WithEmitter(rec.emit),
	)
	ctx := context.Background()
	a := object("a", nil)

	require.NoError(t, layers.AddLayer(ctx, a))
	assert.Equal(t, 1, rec.count("addlayer"))
	afterAdd := rev.Value()
	assert.NotZero(t, afterAdd)

	a.SetProperties(map[string]any{"opacity": 0.5, "visible": false})
	assert.Equal(t, afterAdd+1, rev.Value(), "one engine transaction is one revision")

	byID, ok := layers.LayerByID("a")
	require.True(t, ok)
	assert.Same(t, a, byID)

	require.NoError(t, layers.RemoveLayer(ctx, "a"))
	assert.Equal(t, 1, rec.count("removelayer"))
	afterRemove := rev.Value()

	a.Set("opacity", 1.0)
	assert.Equal(t, afterRemove, rev.Value(), "removed members are no longer observed")
	assert.Zero(t, a.Listeners())
}

func TestContainer_Clear(t *testing.T) {
	rec := &recorder{}
	overlays := container.NewOverlays(memory.NewCollection(), container.WithEmitter(rec.emit))
	ctx := context.Background()

	require.NoError(t, overlays.AddOverlays(ctx, object("o1", nil), object("o2", nil)))
	overlays.ClearOverlays()

	assert.Empty(t, overlays.Overlays())
	assert.Equal(t, 2, rec.count("removeoverlay"))
}

func TestContainer_SharedCollection(t *testing.T) {
	coll := memory.NewCollection()
	first := container.NewLayers(coll)
	second := container.NewLayers(coll)
	ctx := context.Background()

	require.NoError(t, first.AddLayer(ctx, object("a", nil)))
	assert.Equal(t, []string{"a"}, second.LayerIDs())
	require.NoError(t, second.AddLayer(ctx, object("a", nil)))
	assert.Equal(t, 1, coll.Len())
}

func TestContainer_SharedCollectionConcurrentAdd(t *testing.T) {
	ctx := context.Background()
	for range 50 {
		coll := memory.NewCollection()
		first := container.NewLayers(coll)
		second := container.NewLayers(coll)

		var wg sync.WaitGroup
		for _, layers := range []*container.Layers{first, second} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, layers.AddLayer(ctx, object("a", nil)))
			}()
		}
		wg.Wait()

		require.Equal(t, 1, coll.Len())
		first.Close()
		second.Close()
	}
}

func TestInteractions_PriorityOrder(t *testing.T) {
	interactions := container.NewInteractions(memory.NewCollection())
	defer interactions.Close()
	ctx := context.Background()

	a := object("a", map[string]any{"priority": 0})
	b := object("b", map[string]any{"priority": 5})
	c := object("c", nil)

	require.NoError(t, interactions.AddInteraction(ctx, a))
	require.NoError(t, interactions.AddInteraction(ctx, b))
	require.NoError(t, interactions.AddInteraction(ctx, c))
	assert.Equal(t, []string{"b", "a", "c"}, interactions.InteractionIDs())

	a.Set("priority", 10)
	assert.Equal(t, []string{"a", "b", "c"}, interactions.InteractionIDs())

	c.Set("priority", "7")
	assert.Equal(t, []string{"a", "c", "b"}, interactions.InteractionIDs())
}

func newFeatures(opts ...container.Option) *container.Features {
	return container.NewFeatures(memory.NewCollection(), format.New(memory.NewEngine()), opts...)
}

func TestFeatures_GeoJSONAddAndUpdate(t *testing.T) {
	features := newFeatures()
	defer features.Close()
	ctx := context.Background()

	in := geojson.NewFeature(orb.Point{10, 20})
	in.ID = "f1"
	in.Properties["name"] = "a"
	require.NoError(t, features.AddFeature(ctx, in))

	member, ok := features.FeatureByID("f1")
	require.True(t, ok)
	assert.Equal(t, "a", member.Get("name"))

	out := features.FeaturesDataProj()
	require.Len(t, out, 1)
	assert.Equal(t, orb.Point{10, 20}, out[0].Geometry)

	patch := geojson.NewFeature(orb.Point{11, 21})
	patch.ID = "f1"
	patch.Properties["kind"] = "poi"
	require.NoError(t, features.AddFeature(ctx, patch))

	assert.Equal(t, 1, features.Len())
	same, _ := features.FeatureByID("f1")
	assert.Same(t, member, same)
	assert.Nil(t, member.Get("name"))
	assert.Equal(t, "poi", member.Get("kind"))
	assert.Equal(t, orb.Point{11, 21}, features.FeaturesDataProj()[0].Geometry)

	require.NoError(t, features.RemoveFeature(ctx, patch))
	assert.Zero(t, features.Len())
}

func TestFeatures_ViewProjection(t *testing.T) {
	features := newFeatures()
	in := geojson.NewFeature(orb.Point{0, 0})
	in.ID = "origin"
	require.NoError(t, features.AddFeature(context.Background(), in))

	view := features.FeaturesViewProj()
	require.Len(t, view, 1)
	assert.Equal(t, orb.Point{0, 0}, view[0].Geometry)
}

func TestFeatures_UpdateFeaturesMessage(t *testing.T) {
	rec := &recorder{}
	features := newFeatures(container.WithEmitter(rec.emit), container.WithFrame(20*time.Millisecond))
	defer features.Close()
	ctx := context.Background()

	first := geojson.NewFeature(orb.Point{1, 1})
	first.ID = "1"
	second := geojson.NewFeature(orb.Point{2, 2})
	second.ID = "2"
	require.NoError(t, features.AddFeatures(ctx, first, second))

	assert.Eventually(t, func() bool {
		return rec.count(domain.UpdateEvent(container.PropFeatures)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, rec.count("addfeature"))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, rec.count(domain.UpdateEvent(container.PropFeatures)))
}

func TestFeatures_UpdateFeatureRejectsForeignValues(t *testing.T) {
	features := newFeatures()
	err := features.UpdateFeature(memory.NewFeature(), 42)
	assert.ErrorIs(t, err, domain.ErrWrongType)
}
