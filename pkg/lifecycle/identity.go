package lifecycle

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
)

// satellite is a registry instance owned by the node besides its engine object,
// such as the collection backing a container.
type satellite struct {
	suffix string
	value  any
	held   bool
}

// SetID renames the node and its engine object.
func (n *Node) SetID(id string) error {
	if id == "" {
		return fmt.Errorf("set id: %w", domain.ErrInvalidID)
	}
	n.mu.Lock()
	n.id = id
	obj := n.obj
	n.mu.Unlock()

	if obj != nil && obj.ID() != id {
		obj.SetID(id)
	}
	return nil
}

// SetIdent changes the registry key of the engine object and of every satellite
// instance. A new key moves the existing binding so the instance keeps its identity;
// an empty key releases it. When any key is bound to a different instance the change
// is rolled back and the node keeps its previous ident.
func (n *Node) SetIdent(ident string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	prev := n.ident
	if prev == ident {
		return nil
	}

	type keyed struct {
		held  *bool
		value any
		next  string
		prev  string
	}
	var bindings []keyed
	if n.obj != nil {
		bindings = append(bindings, keyed{&n.held, n.obj, ident, prev})
	}
	for i := range n.satellites {
		s := &n.satellites[i]
		bindings = append(bindings, keyed{&s.held, s.value, satelliteKey(ident, s.suffix), satelliteKey(prev, s.suffix)})
	}

	for i, b := range bindings {
		if err := n.rebind(b.next, b.prev, b.value, *b.held); err != nil {
			for _, done := range bindings[:i] {
				n.unbind(done.next, done.prev, *done.held)
			}
			return fmt.Errorf("set ident %q: %w", ident, err)
		}
	}
	for _, b := range bindings {
		*b.held = b.next != ""
	}
	n.ident = ident
	return nil
}

func satelliteKey(ident, suffix string) string {
	if ident == "" {
		return ""
	}
	return registry.MakeIdent(ident, suffix)
}

// rebind applies an ident change to one instance. On error the registry is left as
// it was.
func (n *Node) rebind(next, prev string, value any, held bool) error {
	switch {
	case next == "":
		if held {
			n.registry.UnsetInstance(prev)
		}
		return nil
	case held:
		return n.registry.MoveInstance(next, prev)
	default:
		return n.registry.SetInstance(next, value)
	}
}

// unbind reverts a successful rebind to a non-empty key.
func (n *Node) unbind(next, prev string, held bool) {
	if held {
		_ = n.registry.MoveInstance(prev, next)
		return
	}
	n.registry.UnsetInstance(next)
}

// Instance returns the registry instance "<ident>.<suffix>", building it with
// factory when absent. Without an ident nothing is shared. The instance is released
// on deinit and follows ident changes.
func (n *Node) Instance(suffix string, factory registry.Factory) (any, error) {
	key := satelliteKey(n.Ident(), suffix)
	v, err := n.registry.InstanceFactoryCall(key, factory)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.satellites = append(n.satellites, satellite{suffix: suffix, value: v, held: key != ""})
	n.mu.Unlock()
	return v, nil
}

func (n *Node) unsetInstances() {
	n.mu.Lock()
	ident, held, sats := n.ident, n.held, n.satellites
	n.held, n.satellites = false, nil
	n.mu.Unlock()

	if held {
		n.registry.UnsetInstance(ident)
	}
	for _, s := range sats {
		if s.held {
			n.registry.UnsetInstance(satelliteKey(ident, s.suffix))
		}
	}
}
