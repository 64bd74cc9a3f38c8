package lifecycle

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/rx"
)

// await blocks until reached reports true or one of the events is emitted. Error
// events resolve the wait with their error.
func (n *Node) await(ctx context.Context, reached func() bool, success domain.LifecycleEvent, failures ...domain.LifecycleEvent) error {
	names := []string{string(success)}
	for _, f := range failures {
		names = append(names, string(f))
	}

	ch := make(chan rx.Message, 1)
	off := n.bus.Observe(names...)(func(m rx.Message) {
		select {
		case ch <- m:
		default:
		}
	})
	defer off()

	// checked after subscribing so an event fired in between is not lost
	n.mu.RLock()
	ok := reached()
	n.mu.RUnlock()
	if ok {
		return nil
	}

	select {
	case m := <-ch:
		return m.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitCreated returns once the engine object exists, or the create error.
func (n *Node) WaitCreated(ctx context.Context) error {
	return n.await(ctx, func() bool {
		return n.state.In(domain.StateCreated, domain.StateMounting, domain.StateMounted)
	}, domain.EventCreated, domain.EventCreateError)
}

// WaitMounted returns once the node is mounted, or the create or mount error.
func (n *Node) WaitMounted(ctx context.Context) error {
	return n.await(ctx, func() bool {
		return n.state == domain.StateMounted
	}, domain.EventMounted, domain.EventCreateError, domain.EventMountError)
}

// WaitUnmounted returns once the node was unmounted after its last mount.
func (n *Node) WaitUnmounted(ctx context.Context) error {
	return n.await(ctx, func() bool {
		return n.unmounted
	}, domain.EventUnmounted, domain.EventCreateError, domain.EventMountError, domain.EventUnmountError)
}

// WaitDestroyed returns once the engine object was released after its last creation.
func (n *Node) WaitDestroyed(ctx context.Context) error {
	return n.await(ctx, func() bool {
		return n.destroyed
	}, domain.EventDestroyed,
		domain.EventCreateError, domain.EventMountError, domain.EventUnmountError, domain.EventDestroyError)
}

// Resolve waits for the engine object.
func (n *Node) Resolve(ctx context.Context) (ports.Object, error) {
	if err := n.WaitCreated(ctx); err != nil {
		return nil, err
	}
	obj := n.Object()
	if obj == nil {
		return nil, domain.ErrObjectUndefined
	}
	return obj, nil
}
