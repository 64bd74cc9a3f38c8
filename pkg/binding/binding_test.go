package binding_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 10 * time.Millisecond

type emitted struct {
	name  string
	value any
}

type fakeTarget struct {
	mu        sync.Mutex
	obj       ports.Object
	recreates int
	emitted   []emitted
}

func (f *fakeTarget) Object() ports.Object {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.obj
}

func (f *fakeTarget) ScheduleRecreate(context.Context) {
	f.mu.Lock()
	f.recreates++
	f.mu.Unlock()
}

func (f *fakeTarget) Emit(name string, value any) {
	f.mu.Lock()
	f.emitted = append(f.emitted, emitted{name, value})
	f.mu.Unlock()
}

func (f *fakeTarget) messages() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.emitted...)
}

func TestProperty_OutboundDebounced(t *testing.T) {
	ctx := context.Background()
	obj := memory.NewObject(map[string]any{"opacity": 1.0})
	tgt := &fakeTarget{obj: obj}
	p := binding.NewProperty[float64]("opacity", tgt, binding.WithFrame[float64](frame))

	var changes atomic.Int32
	obj.On(ports.ChangeEvent("opacity"), func(ports.Event) { changes.Add(1) })

	p.Set(ctx, 0.2)
	p.Set(ctx, 0.4)
	p.Set(ctx, 0.6)

	assert.Eventually(t, func() bool { return obj.Get("opacity") == 0.6 }, time.Second, time.Millisecond)
	time.Sleep(3 * frame)
	assert.Equal(t, int32(1), changes.Load())
}

func TestProperty_OutboundSkipsEqual(t *testing.T) {
	ctx := context.Background()
	obj := memory.NewObject(map[string]any{"zIndex": 3})
	tgt := &fakeTarget{obj: obj}

	var mu sync.Mutex
	writes := 0
	p := binding.NewProperty("zIndex", tgt,
		binding.WithFrame[int](frame),
		binding.WithSetter(func(o ports.Object, v int) {
			mu.Lock()
			writes++
			mu.Unlock()
			o.Set("zIndex", v)
		}),
	)

	p.Set(ctx, 3)
	time.Sleep(3 * frame)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, writes)
}

func TestProperty_InboundFlipWithinFrame(t *testing.T) {
	ctx := context.Background()
	obj := memory.NewObject(map[string]any{"visible": false})
	tgt := &fakeTarget{obj: obj}
	p := binding.NewProperty[bool]("visible", tgt, binding.WithFrame[bool](frame))
	p.Set(ctx, false)
	defer p.Bind(ctx, obj)()

	obj.Set("visible", true)
	obj.Set("visible", false)
	obj.Set("visible", true)

	assert.Eventually(t, func() bool { return len(tgt.messages()) > 0 }, time.Second, time.Millisecond)
	time.Sleep(3 * frame)
	assert.Equal(t, []emitted{{"update:visible", true}}, tgt.messages())
}

func TestProperty_InboundNoEcho(t *testing.T) {
	ctx := context.Background()
	obj := memory.NewObject(map[string]any{"visible": true})
	tgt := &fakeTarget{obj: obj}
	p := binding.NewProperty[bool]("visible", tgt, binding.WithFrame[bool](frame))
	defer p.Bind(ctx, obj)()

	// the write caused by the declarative input must not come back as update:visible
	p.Set(ctx, false)
	assert.Eventually(t, func() bool { return obj.Get("visible") == false }, time.Second, time.Millisecond)
	time.Sleep(3 * frame)
	assert.Empty(t, tgt.messages())

	// each engine-side departure from the input is reported
	obj.Set("visible", true)
	assert.Eventually(t, func() bool { return len(tgt.messages()) == 1 }, time.Second, time.Millisecond)
	obj.Set("visible", false)
	time.Sleep(3 * frame)
	obj.Set("visible", true)
	assert.Eventually(t, func() bool { return len(tgt.messages()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []emitted{{"update:visible", true}, {"update:visible", true}}, tgt.messages())
}

func TestProperty_InboundReportsEachValue(t *testing.T) {
	ctx := context.Background()
	obj := memory.NewObject(map[string]any{"opacity": 1.0})
	tgt := &fakeTarget{obj: obj}
	p := binding.NewProperty[float64]("opacity", tgt, binding.WithFrame[float64](frame))
	p.Set(ctx, 1.0)
	defer p.Bind(ctx, obj)()

	obj.Set("opacity", 0.5)
	assert.Eventually(t, func() bool { return len(tgt.messages()) == 1 }, time.Second, time.Millisecond)
	obj.Set("opacity", 0.7)
	assert.Eventually(t, func() bool { return len(tgt.messages()) == 2 }, time.Second, time.Millisecond)
	time.Sleep(3 * frame)
	assert.Equal(t, []emitted{{"update:opacity", 0.5}, {"update:opacity", 0.7}}, tgt.messages())
}

func TestProperty_Structural(t *testing.T) {
	ctx := context.Background()
	tgt := &fakeTarget{}
	p := binding.NewProperty("renderMode", tgt, binding.Structural[string]())

	p.Set(ctx, "vector")
	p.Set(ctx, "image")
	assert.Zero(t, tgt.recreates, "no engine object yet")

	tgt.obj = memory.NewObject(nil)
	p.Set(ctx, "image")
	assert.Zero(t, tgt.recreates, "same value")
	p.Set(ctx, "vector")
	assert.Equal(t, 1, tgt.recreates)
}

func TestProperty_StructuralFirstInputAfterCreate(t *testing.T) {
	ctx := context.Background()

	tgt := &fakeTarget{obj: memory.NewObject(nil)}
	p := binding.NewProperty("projection", tgt, binding.Structural[string]())
	p.Set(ctx, "EPSG:4326")
	assert.Equal(t, 1, tgt.recreates)

	tgt = &fakeTarget{obj: memory.NewObject(nil)}
	p = binding.NewProperty("projection", tgt, binding.Structural[string]())
	p.Set(ctx, "")
	assert.Zero(t, tgt.recreates, "zero value is what the object was built with")

	tgt = &fakeTarget{obj: memory.NewObject(map[string]any{"projection": "EPSG:3857"})}
	p = binding.NewProperty("projection", tgt, binding.Structural[string]())
	p.Set(ctx, "EPSG:3857")
	assert.Zero(t, tgt.recreates, "engine already holds it")
}

func TestBridge_ApplyDecodes(t *testing.T) {
	ctx := context.Background()
	tgt := &fakeTarget{}
	b := binding.NewBridge(&binding.Revision{})
	b.Add(
		binding.NewProperty[float64]("opacity", tgt),
		binding.NewProperty[[]float64]("extent", tgt),
	)

	err := b.Apply(ctx, map[string]any{
		"opacity": 1,
		"extent":  []any{0, 1, 2.5, 3},
		"unknown": "ignored",
	})
	require.NoError(t, err)

	snap := b.Snapshot()
	assert.Equal(t, 1.0, snap["opacity"])
	assert.Equal(t, []float64{0, 1, 2.5, 3}, snap["extent"])

	err = b.Apply(ctx, map[string]any{"opacity": "not a number"})
	assert.Error(t, err)

	v, err := binding.Get[float64](b, "opacity")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	_, err = binding.Get[float64](b, "missing")
	assert.Error(t, err)
}

func TestBridge_RevisionCoalescesTx(t *testing.T) {
	rev := &binding.Revision{}
	b := binding.NewBridge(rev)
	obj := memory.NewObject(nil)
	b.Bind(context.Background(), obj)

	obj.SetProperties(map[string]any{"a": 1, "b": 2})
	assert.Equal(t, uint64(1), rev.Value())

	obj.Changed()
	assert.Equal(t, uint64(2), rev.Value())

	b.Unbind()
	obj.Changed()
	assert.Equal(t, uint64(2), rev.Value())
	assert.Zero(t, obj.Listeners())
}

func TestComputed_Lazy(t *testing.T) {
	rev := &binding.Revision{}
	calls := 0
	c := binding.NewComputed(rev, func() int {
		calls++
		return calls
	})

	assert.Equal(t, 1, c.Get())
	assert.Equal(t, 1, c.Get())
	rev.Bump()
	rev.Bump()
	assert.Equal(t, 1, calls, "not recomputed before read")
	assert.Equal(t, 2, c.Get())
	c.Invalidate()
	assert.Equal(t, 3, c.Get())
}
