package binding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/rx"
)

// Bridge groups the properties of one node and ties the engine object's change
// events to the node revision.
type Bridge struct {
	rev *Revision

	mu    sync.RWMutex
	props map[string]Binding
	order []string
	subs  rx.Subscriptions
}

// NewBridge creates an empty bridge bumping rev.
func NewBridge(rev *Revision) *Bridge {
	return &Bridge{rev: rev, props: make(map[string]Binding)}
}

// Add registers properties. A later property replaces an earlier one of the same name.
func (b *Bridge) Add(props ...Binding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range props {
		if _, ok := b.props[p.Name()]; !ok {
			b.order = append(b.order, p.Name())
		}
		b.props[p.Name()] = p
	}
}

// Property returns the binding registered under name.
func (b *Bridge) Property(name string) (Binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.props[name]
	return p, ok
}

// Names lists properties in registration order.
func (b *Bridge) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// Apply sets the declarative inputs found in props. Unknown keys are ignored.
func (b *Bridge) Apply(ctx context.Context, props map[string]any) error {
	var errs []error
	for _, name := range b.Names() {
		v, ok := props[name]
		if !ok {
			continue
		}
		p, _ := b.Property(name)
		if err := p.SetAny(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bind subscribes every property and the revision to obj, then writes the inputs
// received before obj existed.
func (b *Bridge) Bind(ctx context.Context, obj ports.Object) {
	bump := func(e ports.Event) { b.rev.Accept(e.Tx) }
	b.subs.Add(obj.On(ports.EventChange, bump))
	b.subs.Add(obj.On(ports.EventPropertyChange, bump))

	b.mu.RLock()
	props := make([]Binding, 0, len(b.order))
	for _, name := range b.order {
		props = append(props, b.props[name])
	}
	b.mu.RUnlock()

	for _, p := range props {
		b.subs.Add(p.Bind(ctx, obj))
	}
	for _, p := range props {
		p.Flush()
	}
}

// Unbind releases the subscriptions of Bind and drops pending propagations.
func (b *Bridge) Unbind() {
	b.subs.Unsubscribe()
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, p := range b.props {
		p.Cancel()
	}
}

// Snapshot returns the current value of every property.
func (b *Bridge) Snapshot() map[string]any {
	out := make(map[string]any)
	for _, name := range b.Names() {
		p, _ := b.Property(name)
		if v, ok := p.Current(); ok {
			out[name] = v
		}
	}
	return out
}

// Get is a typed read of the current value of a property.
func Get[T any](b *Bridge, name string) (T, error) {
	var zero T
	p, ok := b.Property(name)
	if !ok {
		return zero, fmt.Errorf("unknown property %q", name)
	}
	v, ok := p.Current()
	if !ok {
		return zero, nil
	}
	return Decode[T](v)
}
