package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/rx"
)

// claim moves the node from one of the allowed states to next. It returns the state
// found and whether the move happened.
func (n *Node) claim(ctx context.Context, next domain.State, allowed ...domain.State) (domain.State, bool) {
	n.mu.Lock()
	from := n.state
	if !from.In(allowed...) {
		n.mu.Unlock()
		return from, false
	}
	n.state = next
	n.mu.Unlock()

	n.notifyTransition(ctx, from, next)
	return from, true
}

func (n *Node) setState(ctx context.Context, next domain.State) {
	n.mu.Lock()
	from := n.state
	n.state = next
	n.mu.Unlock()

	if from != next {
		n.notifyTransition(ctx, from, next)
	}
}

func (n *Node) notifyTransition(ctx context.Context, from, to domain.State) {
	n.Logger().Debug("transition", "from", from, "to", to)
	if n.hooks.OnTransition != nil {
		n.hooks.OnTransition(ctx, &domain.TransitionEvent{
			Timestamp: time.Now(),
			Node:      n.Info(),
			From:      from,
			To:        to,
		})
	}
}

// emit publishes a lifecycle event locally, on the process-wide bus and to hooks.
func (n *Node) emit(ctx context.Context, ev domain.LifecycleEvent, err error) {
	msg := rx.Message{Name: string(ev), Source: n, Err: err}
	n.bus.Emit(msg)
	n.global.Emit(msg)

	if err != nil {
		n.Logger().Error("lifecycle failure", "event", ev, "err", err)
	} else {
		n.Logger().Debug("lifecycle", "event", ev)
	}
	if n.hooks.OnEvent != nil {
		n.hooks.OnEvent(ctx, &domain.NodeEvent{
			Timestamp: time.Now(),
			Node:      n.Info(),
			Event:     ev,
			Err:       err,
		})
	}
}

func (n *Node) fail(ctx context.Context, ev domain.LifecycleEvent, err error) error {
	lerr := &domain.LifecycleError{Node: n.Info(), Event: ev, Err: err}
	n.emit(ctx, ev, lerr)
	return lerr
}

func (n *Node) discard(op string) {
	n.Logger().Debug(op+" discarded", "state", n.State())
}

// Init creates (or fetches from the registry) the engine object. It only runs from
// Undef; calls in any other state are discarded.
func (n *Node) Init(ctx context.Context) error {
	if _, ok := n.claim(ctx, domain.StateCreating, domain.StateUndef); !ok {
		n.discard("init")
		return nil
	}

	err := n.beforeInit(ctx)
	if err == nil {
		err = n.init(ctx)
	}
	if err != nil {
		if n.Object() != nil {
			// partially initialized: drop what init acquired
			_ = n.deinit(ctx)
		}
		n.setState(ctx, domain.StateUndef)
		return n.fail(ctx, domain.EventCreateError, err)
	}

	n.mu.Lock()
	n.destroyed = false
	n.mu.Unlock()
	n.setState(ctx, domain.StateCreated)
	n.emit(ctx, domain.EventCreated, nil)
	return nil
}

func (n *Node) beforeInit(ctx context.Context) error {
	if bi, ok := n.comp.(BeforeIniter); ok {
		return bi.BeforeInit(ctx, n)
	}
	return nil
}

func (n *Node) init(ctx context.Context) error {
	v, err := n.registry.InstanceFactoryCall(n.Ident(), func() (any, error) {
		obj, err := n.comp.CreateObject(ctx, n)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, domain.ErrObjectUndefined
		}
		if obj.ID() == "" {
			obj.SetID(n.ID())
		}
		return obj, nil
	})
	if err != nil {
		return err
	}
	obj, ok := v.(ports.Object)
	if !ok {
		return fmt.Errorf("registry instance %q: %w", n.Ident(), domain.ErrWrongType)
	}

	obj.Attach(n)
	n.mu.Lock()
	n.obj = obj
	n.held = n.ident != ""
	if id := obj.ID(); id != "" {
		n.id = id
	}
	n.mu.Unlock()
	n.rev.Bump()

	return n.subscribeAll(ctx, obj)
}

func (n *Node) subscribeAll(ctx context.Context, obj ports.Object) error {
	n.bridge.Bind(ctx, obj)
	n.subs.Add(obj.On(ports.ChangeEvent(ports.PropID), func(ports.Event) {
		id := obj.ID()
		n.mu.Lock()
		if id == "" || id == n.id {
			n.mu.Unlock()
			return
		}
		n.id = id
		n.mu.Unlock()
		n.Emit(domain.UpdateEvent(ports.PropID), id)
	}))

	if s, ok := n.comp.(Subscriber); ok {
		return s.SubscribeAll(ctx, n, obj)
	}
	return nil
}

// Deinit releases the engine object: subscriptions, registry holds and the back
// reference. It only runs from Created.
func (n *Node) Deinit(ctx context.Context) error {
	if _, ok := n.claim(ctx, domain.StateUndef, domain.StateCreated); !ok {
		n.discard("deinit")
		return nil
	}

	if err := n.deinit(ctx); err != nil {
		return n.fail(ctx, domain.EventDestroyError, err)
	}

	n.mu.Lock()
	n.destroyed = true
	n.mu.Unlock()
	n.emit(ctx, domain.EventDestroyed, nil)
	return nil
}

func (n *Node) deinit(ctx context.Context) error {
	var errs []error
	if d, ok := n.comp.(Deinitializer); ok {
		errs = append(errs, d.Deinit(ctx, n))
	}

	n.bridge.Unbind()
	n.subs.Unsubscribe()
	n.unsetInstances()

	n.mu.Lock()
	obj := n.obj
	n.obj = nil
	n.mu.Unlock()
	if obj != nil {
		obj.Detach(n)
	}
	n.rev.Bump()

	return errors.Join(errs...)
}

// Mount attaches the engine object to its parent. It only runs from Created.
func (n *Node) Mount(ctx context.Context) error {
	if _, ok := n.claim(ctx, domain.StateMounting, domain.StateCreated); !ok {
		n.discard("mount")
		return nil
	}

	var err error
	if bm, ok := n.comp.(BeforeMounter); ok {
		err = bm.BeforeMount(ctx, n)
	}
	if m, ok := n.comp.(Mounter); ok && err == nil {
		err = m.Mount(ctx, n)
	}
	if err != nil {
		n.setState(ctx, domain.StateCreated)
		return n.fail(ctx, domain.EventMountError, err)
	}

	n.mu.Lock()
	n.unmounted = false
	n.mu.Unlock()
	n.setState(ctx, domain.StateMounted)
	n.emit(ctx, domain.EventMounted, nil)
	return nil
}

// Unmount detaches the engine object from its parent. It only runs from Mounted; on
// failure the node stays Mounted.
func (n *Node) Unmount(ctx context.Context) error {
	n.mu.Lock()
	if n.state != domain.StateMounted || n.unmounting {
		n.mu.Unlock()
		n.discard("unmount")
		return nil
	}
	n.unmounting = true
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.unmounting = false
		n.mu.Unlock()
	}()

	if u, ok := n.comp.(Unmounter); ok {
		if err := u.Unmount(ctx, n); err != nil {
			return n.fail(ctx, domain.EventUnmountError, err)
		}
	}

	n.mu.Lock()
	n.unmounted = true
	n.mu.Unlock()
	n.setState(ctx, domain.StateCreated)
	n.emit(ctx, domain.EventUnmounted, nil)
	return nil
}

// Start creates and mounts the node.
func (n *Node) Start(ctx context.Context) error {
	if err := n.Init(ctx); err != nil {
		return err
	}
	return n.Mount(ctx)
}

// Destroy unmounts and releases the node, whatever stable state it is in.
func (n *Node) Destroy(ctx context.Context) error {
	n.remount.Cancel()
	n.recreate.Cancel()
	n.refresh.Cancel()

	if n.State() == domain.StateMounted {
		if err := n.Unmount(ctx); err != nil {
			return err
		}
	}
	if n.State() == domain.StateCreated {
		return n.Deinit(ctx)
	}
	return nil
}

// Remount unmounts and mounts again. Discarded unless Mounted.
func (n *Node) Remount(ctx context.Context) error {
	if n.State() != domain.StateMounted {
		n.discard("remount")
		return nil
	}
	n.Logger().Debug("remounting")
	if err := n.Unmount(ctx); err != nil {
		return err
	}
	return n.Mount(ctx)
}

// Recreate rebuilds the engine object, restoring the mounted state it had.
// Discarded unless Created, Mounting or Mounted.
func (n *Node) Recreate(ctx context.Context) error {
	state := n.State()
	if !state.In(domain.StateCreated, domain.StateMounting, domain.StateMounted) {
		n.discard("recreate")
		return nil
	}
	n.Logger().Debug("recreating")

	mounted := state.In(domain.StateMounting, domain.StateMounted)
	if state == domain.StateMounting {
		if err := n.WaitMounted(ctx); err != nil {
			return err
		}
	}
	if mounted {
		if err := n.Unmount(ctx); err != nil {
			return err
		}
	}
	if err := n.Deinit(ctx); err != nil {
		return err
	}
	if err := n.Init(ctx); err != nil {
		return err
	}
	if mounted {
		return n.Mount(ctx)
	}
	return nil
}

// Refresh marks the engine object changed, which bumps the revision.
func (n *Node) Refresh(ctx context.Context) error {
	obj, err := n.Resolve(ctx)
	if err != nil {
		return err
	}
	before := n.rev.Value()
	obj.Changed()
	if n.rev.Value() == before {
		n.rev.Bump()
	}
	return nil
}

// ScheduleRemount debounces Remount. Only enqueued while Mounting or Mounted.
func (n *Node) ScheduleRemount(ctx context.Context) {
	if !n.State().In(domain.StateMounting, domain.StateMounted) {
		return
	}
	n.Logger().Debug("remount scheduled")
	n.remount.Schedule(ctx, n.logged("remount", n.Remount))
}

// ScheduleRecreate debounces Recreate. Only enqueued while Creating through Mounted.
func (n *Node) ScheduleRecreate(ctx context.Context) {
	if n.State() == domain.StateUndef {
		return
	}
	n.Logger().Debug("recreate scheduled")
	n.recreate.Schedule(ctx, n.logged("recreate", n.Recreate))
}

// ScheduleRefresh debounces Refresh. Only enqueued once the node left Undef.
func (n *Node) ScheduleRefresh(ctx context.Context) {
	if n.State() == domain.StateUndef {
		return
	}
	n.refresh.Schedule(ctx, n.logged("refresh", n.Refresh))
}

// logged wraps a scheduled operation: its failure already went out as a lifecycle
// event, so it is only logged here.
func (n *Node) logged(op string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			n.Logger().Warn("scheduled "+op+" failed", "err", err)
		}
		return err
	}
}
