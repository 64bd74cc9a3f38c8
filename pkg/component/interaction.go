package component

import (
	"context"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/container"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/services"
)

// Interaction is a map interaction. Interactions with a higher priority come first
// in the map container.
type Interaction struct {
	*lifecycle.Node
	env *Env

	Active   *binding.Property[bool]
	Priority *binding.Property[int]
}

// NewInteraction creates an interaction node.
func NewInteraction(env *Env, opts ...lifecycle.Option) *Interaction {
	i := &Interaction{env: env}
	i.Node = lifecycle.New(KindInteraction, interactionHooks{i, member{services.InteractionsContainer}}, opts...)
	i.Active = binding.NewProperty[bool]("active", i.Node)
	i.Priority = binding.NewProperty[int](container.PropPriority, i.Node)
	i.Bridge().Add(i.Active, i.Priority)
	return i
}

type interactionHooks struct {
	*Interaction
	member
}

func (i interactionHooks) CreateObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	obj, err := i.env.createObject(ctx, n)
	if err != nil {
		return nil, err
	}
	if obj.Get("active") == nil {
		obj.Set("active", true)
	}
	return obj, nil
}
