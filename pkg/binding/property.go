package binding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/debounce"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/rx"
	"github.com/mitchellh/mapstructure"
)

// Target is the node side of a binding.
type Target interface {
	// Object returns the engine object, nil until created.
	Object() ports.Object
	// ScheduleRecreate rebuilds the engine object on the next frame.
	ScheduleRecreate(ctx context.Context)
	// Emit sends an outward message.
	Emit(name string, value any)
}

// Binding is the type-erased view of a Property used by Bridge.
type Binding interface {
	Name() string
	SetAny(ctx context.Context, v any) error
	Input() (any, bool)
	Current() (any, bool)
	Bind(ctx context.Context, obj ports.Object) (unbind func())
	Flush()
	Cancel()
}

// Property synchronizes one declarative property with the engine object.
type Property[T any] struct {
	name   string
	target Target
	frame  time.Duration

	get        func(ports.Object) (T, bool)
	set        func(ports.Object, T)
	eq         func(a, b T) bool
	structural bool
	event      string

	outbound *debounce.Debouncer
	inbound  *debounce.Debouncer

	mu          sync.Mutex
	input       T
	hasInput    bool
	lastEmitted T
	hasEmitted  bool
}

// Option configures a Property.
type Option[T any] func(*Property[T])

// WithGetter reads the engine value. The default reads obj.Get(name).
func WithGetter[T any](get func(ports.Object) (T, bool)) Option[T] {
	return func(p *Property[T]) { p.get = get }
}

// WithSetter writes the engine value. The default calls obj.Set(name, v).
func WithSetter[T any](set func(ports.Object, T)) Option[T] {
	return func(p *Property[T]) { p.set = set }
}

// WithEqual overrides the deep equality check.
func WithEqual[T any](eq func(a, b T) bool) Option[T] {
	return func(p *Property[T]) { p.eq = eq }
}

// WithFrame overrides the debounce window.
func WithFrame[T any](d time.Duration) Option[T] {
	return func(p *Property[T]) { p.frame = d }
}

// WithEvent watches a native event type instead of change:<name>, for values the
// engine does not store as a plain property (geometry coordinates).
func WithEvent[T any](eventType string) Option[T] {
	return func(p *Property[T]) { p.event = eventType }
}

// Structural marks a property the engine cannot change in place: a new input
// recreates the engine object instead.
func Structural[T any]() Option[T] {
	return func(p *Property[T]) { p.structural = true }
}

// NewProperty creates a property bound to target.
func NewProperty[T any](name string, target Target, opts ...Option[T]) *Property[T] {
	p := &Property[T]{
		name:   name,
		target: target,
		frame:  debounce.Frame,
		eq:     func(a, b T) bool { return rx.Equal(a, b) },
	}
	p.get = func(obj ports.Object) (T, bool) {
		v, ok := obj.Get(name).(T)
		return v, ok
	}
	p.set = func(obj ports.Object, v T) { obj.Set(name, v) }
	for _, opt := range opts {
		opt(p)
	}
	p.outbound = debounce.New(p.frame)
	p.inbound = debounce.New(p.frame)
	return p
}

func (p *Property[T]) Name() string { return p.name }

// Set records the declarative input and schedules its propagation.
func (p *Property[T]) Set(ctx context.Context, v T) {
	p.mu.Lock()
	prev, hadInput := p.input, p.hasInput
	p.input, p.hasInput = v, true
	p.mu.Unlock()

	if p.structural {
		obj := p.target.Object()
		if obj == nil {
			return
		}
		if !hadInput {
			// the object was built from the engine default
			var zero T
			prev = zero
			if cur, ok := p.get(obj); ok {
				prev = cur
			}
		}
		if !p.eq(prev, v) {
			p.target.ScheduleRecreate(ctx)
		}
		return
	}

	p.outbound.Schedule(ctx, func(context.Context) error {
		p.push()
		return nil
	})
}

// push writes the latest input to the engine unless it already holds it.
func (p *Property[T]) push() {
	obj := p.target.Object()
	if obj == nil {
		return
	}
	p.mu.Lock()
	v, ok := p.input, p.hasInput
	p.mu.Unlock()
	if !ok {
		return
	}
	if cur, has := p.get(obj); has && p.eq(cur, v) {
		return
	}
	p.set(obj, v)
}

// Flush writes a pending declarative input to the engine object immediately.
// Structural properties are consumed by object creation and are not flushed.
func (p *Property[T]) Flush() {
	if !p.structural {
		p.push()
	}
}

// SetAny decodes v into T and calls Set.
func (p *Property[T]) SetAny(ctx context.Context, v any) error {
	t, err := Decode[T](v)
	if err != nil {
		return fmt.Errorf("property %s: %w", p.name, err)
	}
	p.Set(ctx, t)
	return nil
}

// Input returns the declarative input.
func (p *Property[T]) Input() (any, bool) {
	v, ok := p.Value()
	return v, ok
}

// Value returns the typed declarative input.
func (p *Property[T]) Value() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input, p.hasInput
}

// Current returns the engine value, falling back to the declarative input before
// the engine object exists.
func (p *Property[T]) Current() (any, bool) {
	v, ok := p.CurrentValue()
	return v, ok
}

// CurrentValue is the typed form of Current.
func (p *Property[T]) CurrentValue() (T, bool) {
	if obj := p.target.Object(); obj != nil {
		if v, ok := p.get(obj); ok {
			return v, true
		}
	}
	return p.Value()
}

// Bind watches change:<name> (or the WithEvent type) on obj and returns the unsubscribe function.
func (p *Property[T]) Bind(ctx context.Context, obj ports.Object) func() {
	schedule := func() {
		p.inbound.Schedule(ctx, func(context.Context) error {
			p.pull(obj)
			return nil
		})
	}
	if p.event != "" {
		return rx.FromEvent(obj, p.event)(func(ports.Event) { schedule() })
	}
	return rx.FromChange(obj, true, p.name)(func(rx.Change) { schedule() })
}

// pull emits update:<name> when the engine value differs from both the input and the
// last value reported or seen in sync. Values the engine does not hold are not reported.
func (p *Property[T]) pull(obj ports.Object) {
	v, ok := p.get(obj)
	if !ok {
		return
	}

	p.mu.Lock()
	if p.hasInput && p.eq(v, p.input) {
		// back in sync: the next departure is news again
		p.lastEmitted, p.hasEmitted = v, true
		p.mu.Unlock()
		return
	}
	if p.hasEmitted && p.eq(v, p.lastEmitted) {
		p.mu.Unlock()
		return
	}
	p.lastEmitted, p.hasEmitted = v, true
	p.mu.Unlock()

	p.target.Emit(domain.UpdateEvent(p.name), v)
}

// Cancel drops pending propagations.
func (p *Property[T]) Cancel() {
	p.outbound.Cancel()
	p.inbound.Cancel()
}

// Decode converts v into T, accepting loosely typed declarative values
// (float64 for int, []any for []float64, maps for structs).
func Decode[T any](v any) (T, error) {
	var out T
	if v == nil {
		return out, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(v); err != nil {
		return out, err
	}
	return out, nil
}
