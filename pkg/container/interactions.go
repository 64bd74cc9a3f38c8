package container

import (
	"cmp"
	"context"
	"slices"

	"github.com/aretw0/arbor/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// PropPriority is the interaction property ordering the container.
const PropPriority = "priority"

// Interactions holds map interactions ordered by descending priority. Members with
// equal priority keep their insertion order.
type Interactions struct {
	*Container[ports.Object]
}

// NewInteractions wraps coll.
func NewInteractions(coll ports.Collection, opts ...Option) *Interactions {
	i := &Interactions{Container: New[ports.Object](KindInteraction, coll, opts...)}
	i.onMember = func(_ ports.Object, e ports.Event) {
		if e.Type == ports.EventPropertyChange && e.Key == PropPriority {
			i.Sort()
		}
	}
	return i
}

// Priority returns the priority of an interaction, 0 when unset or not numeric.
func Priority(obj ports.Object) int {
	var p int
	if err := mapstructure.WeakDecode(obj.Get(PropPriority), &p); err != nil {
		return 0
	}
	return p
}

// Sort restores the priority order. It reports whether members moved.
func (i *Interactions) Sort() bool {
	items := i.Items()
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b ports.Object) int {
		return cmp.Compare(Priority(b), Priority(a))
	})
	if slices.Equal(items, sorted) {
		return false
	}
	i.reorder(sorted)
	return true
}

// Add adds an interaction and restores the priority order.
func (i *Interactions) Add(ctx context.Context, interaction any) error {
	if err := i.Container.Add(ctx, interaction); err != nil {
		return err
	}
	i.Sort()
	return nil
}

// AddAll adds interactions concurrently and restores the priority order.
func (i *Interactions) AddAll(ctx context.Context, interactions ...any) error {
	err := i.Container.AddAll(ctx, interactions...)
	i.Sort()
	return err
}

func (i *Interactions) AddInteraction(ctx context.Context, interaction any) error {
	return i.Add(ctx, interaction)
}

func (i *Interactions) AddInteractions(ctx context.Context, interactions ...any) error {
	return i.AddAll(ctx, interactions...)
}

func (i *Interactions) RemoveInteraction(ctx context.Context, interaction any) error {
	return i.Remove(ctx, interaction)
}

func (i *Interactions) RemoveInteractions(ctx context.Context, interactions ...any) error {
	return i.RemoveAll(ctx, interactions...)
}

func (i *Interactions) ClearInteractions() { i.Clear() }

func (i *Interactions) InteractionByID(id string) (ports.Object, bool) { return i.ByID(id) }

func (i *Interactions) Interactions() []ports.Object { return i.Items() }

func (i *Interactions) InteractionIDs() []string { return i.IDs() }
