package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/debounce"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/rx"
	"github.com/aretw0/arbor/pkg/services"
	"github.com/google/uuid"
)

// FrameTime is the debounce window of scheduled operations.
const FrameTime = debounce.Frame

// DefaultWaitTimeout bounds waits for ancestor capabilities.
const DefaultWaitTimeout = services.DefaultWaitTimeout

// Node is the lifecycle state machine of one declarative node.
type Node struct {
	kind        string
	comp        Component
	parent      *Node
	upstream    services.Provider
	provider    services.Provider
	registry    *registry.Registry
	bus         *rx.Bus
	global      *rx.Bus
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	frame       time.Duration
	waitTimeout time.Duration

	mu         sync.RWMutex
	state      domain.State
	id         string
	ident      string
	obj        ports.Object
	held       bool
	unmounting bool
	unmounted  bool
	destroyed  bool
	satellites []satellite

	rev    binding.Revision
	bridge *binding.Bridge
	subs   rx.Subscriptions

	remount  *debounce.Debouncer
	recreate *debounce.Debouncer
	refresh  *debounce.Debouncer
}

// Option configures a Node.
type Option func(*Node)

// WithID sets the node identifier. The default is a random UUID.
func WithID(id string) Option {
	return func(n *Node) {
		if id != "" {
			n.id = id
		}
	}
}

// WithIdent sets the registry key under which the engine object is shared.
func WithIdent(ident string) Option {
	return func(n *Node) { n.ident = ident }
}

// WithParent places the node under parent: capabilities resolve through it.
func WithParent(parent *Node) Option {
	return func(n *Node) { n.parent = parent }
}

// WithServices sets the upstream provider of a root node.
func WithServices(p services.Provider) Option {
	return func(n *Node) { n.upstream = p }
}

// WithRegistry injects the shared identity registry.
func WithRegistry(r *registry.Registry) Option {
	return func(n *Node) { n.registry = r }
}

// WithBus sets the process-wide bus receiving lifecycle events of every node.
func WithBus(b *rx.Bus) Option {
	return func(n *Node) { n.global = b }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(n *Node) { n.hooks = hooks }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) { n.logger = logger }
}

// WithFrame sets the debounce window of scheduled operations.
func WithFrame(d time.Duration) Option {
	return func(n *Node) {
		if d > 0 {
			n.frame = d
		}
	}
}

// WithWaitTimeout bounds waits for ancestor capabilities.
func WithWaitTimeout(d time.Duration) Option {
	return func(n *Node) {
		if d > 0 {
			n.waitTimeout = d
		}
	}
}

// New creates a node of the given kind in the Undef state.
func New(kind string, comp Component, opts ...Option) *Node {
	n := &Node{
		kind:        kind,
		comp:        comp,
		id:          uuid.NewString(),
		bus:         rx.NewBus(),
		frame:       FrameTime,
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.parent != nil {
		n.upstream = n.parent.Services()
		if n.registry == nil {
			n.registry = n.parent.registry
		}
		if n.global == nil {
			n.global = n.parent.global
		}
		if n.logger == nil {
			n.logger = n.parent.logger
		}
		if n.hooks.OnEvent == nil && n.hooks.OnTransition == nil {
			n.hooks = n.parent.hooks
		}
	}
	if n.upstream == nil {
		n.upstream = services.Compose(nil)
	}
	if n.registry == nil {
		n.registry = registry.NewRegistry()
	}
	if n.global == nil {
		n.global = rx.NewBus()
	}
	if n.logger == nil {
		n.logger = logging.NewNop()
	}
	n.logger = n.logger.With("kind", kind)

	var own services.Descriptors
	if se, ok := comp.(ServiceExposer); ok {
		own = se.Services(n)
	}
	n.provider = services.Compose(n.upstream, own)

	n.bridge = binding.NewBridge(&n.rev)
	n.remount = debounce.New(n.frame)
	n.recreate = debounce.New(n.frame)
	n.refresh = debounce.New(n.frame)
	return n
}

// Kind returns the node kind ("layer", "source"...).
func (n *Node) Kind() string { return n.kind }

// Component returns the component driving the node.
func (n *Node) Component() Component { return n.comp }

// Parent returns the parent node, nil for roots.
func (n *Node) Parent() *Node { return n.parent }

// ID returns the node identifier.
func (n *Node) ID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.id
}

// Ident returns the registry key of the engine object, empty when not shared.
func (n *Node) Ident() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ident
}

// State returns the current lifecycle state.
func (n *Node) State() domain.State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Object returns the engine object, nil unless created.
func (n *Node) Object() ports.Object {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.obj
}

// Info identifies the node in events and errors.
func (n *Node) Info() domain.NodeInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return domain.NodeInfo{Kind: n.kind, ID: n.id, Ident: n.ident}
}

// Revision returns the change counter of the engine object.
func (n *Node) Revision() *binding.Revision { return &n.rev }

// Bridge returns the property bridge of the node.
func (n *Node) Bridge() *binding.Bridge { return n.bridge }

// Subscriptions collects subscriptions released on deinit.
func (n *Node) Subscriptions() *rx.Subscriptions { return &n.subs }

// Registry returns the identity registry.
func (n *Node) Registry() *registry.Registry { return n.registry }

// Bus returns the node-local bus carrying lifecycle and update:<prop> messages.
func (n *Node) Bus() *rx.Bus { return n.bus }

// GlobalBus returns the process-wide bus.
func (n *Node) GlobalBus() *rx.Bus { return n.global }

// Services returns the capabilities visible to descendants of the node.
func (n *Node) Services() services.Provider { return n.provider }

// Upstream returns the capabilities visible to the node itself.
func (n *Node) Upstream() services.Provider { return n.upstream }

// Logger returns the node logger.
func (n *Node) Logger() *slog.Logger {
	return n.logger.With("id", n.ID())
}

// Frame returns the debounce window used by the node.
func (n *Node) Frame() time.Duration { return n.frame }

// Emit sends an outward message on the node bus.
func (n *Node) Emit(name string, value any) {
	n.bus.Emit(rx.Message{Name: name, Source: n, Value: value})
}

// On listens to outward messages of the node.
func (n *Node) On(name string, fn func(rx.Message)) (off func()) {
	return n.bus.On(name, fn)
}

// SetProps applies declarative properties. An "id" entry renames the node.
func (n *Node) SetProps(ctx context.Context, props map[string]any) error {
	if v, ok := props[ports.PropID]; ok {
		id, err := binding.Decode[string](v)
		if err != nil {
			return err
		}
		if err := n.SetID(id); err != nil {
			return err
		}
	}
	return n.bridge.Apply(ctx, props)
}

// IsDescendantOf reports whether other is a strict ancestor of n.
func (n *Node) IsDescendantOf(other *Node) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p == other {
			return true
		}
	}
	return false
}

// Exposes reports whether the node's component publishes capability.
func (n *Node) Exposes(capability string) bool {
	se, ok := n.comp.(ServiceExposer)
	if !ok {
		return false
	}
	_, ok = se.Services(n)[capability]
	return ok
}

// WaitFor waits until an ancestor exposes capability. It gives up early when the
// ancestor that should expose it fails to create.
func (n *Node) WaitFor(ctx context.Context, capability string) (any, error) {
	abort := rx.Map(
		rx.Filter(n.global.Observe(string(domain.EventCreateError)), func(m rx.Message) bool {
			src, ok := m.Source.(*Node)
			return ok && n.IsDescendantOf(src) && src.Exposes(capability)
		}),
		func(m rx.Message) error { return m.Err },
	)
	return services.WaitFor(ctx, n.upstream, capability,
		services.WithTimeout(n.waitTimeout),
		services.WithInterval(n.frame),
		services.WithAbort(abort),
	)
}
