package lifecycle

import (
	"context"

	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/services"
)

// Component supplies the engine object of a node.
type Component interface {
	// CreateObject builds a new engine object. It is not called when the node ident
	// resolves to an instance already held in the registry.
	CreateObject(ctx context.Context, n *Node) (ports.Object, error)
}

// BeforeIniter runs before the engine object is created, typically to wait for an
// ancestor capability.
type BeforeIniter interface {
	BeforeInit(ctx context.Context, n *Node) error
}

// Subscriber registers extra engine subscriptions once the object exists. They
// should be added to n.Subscriptions() so that deinit releases them.
type Subscriber interface {
	SubscribeAll(ctx context.Context, n *Node, obj ports.Object) error
}

// BeforeMounter runs before Mounting.
type BeforeMounter interface {
	BeforeMount(ctx context.Context, n *Node) error
}

// Mounter attaches the engine object to its parent container.
type Mounter interface {
	Mount(ctx context.Context, n *Node) error
}

// Unmounter detaches the engine object from its parent container.
type Unmounter interface {
	Unmount(ctx context.Context, n *Node) error
}

// Deinitializer releases component resources before the engine object is dropped.
type Deinitializer interface {
	Deinit(ctx context.Context, n *Node) error
}

// ServiceExposer publishes capabilities to descendant nodes.
type ServiceExposer interface {
	Services(n *Node) services.Descriptors
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx context.Context, n *Node) (ports.Object, error)

func (f ComponentFunc) CreateObject(ctx context.Context, n *Node) (ports.Object, error) {
	return f(ctx, n)
}
