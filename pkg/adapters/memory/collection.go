package memory

import (
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/ports"
)

// Collection is an ordered list of engine objects firing add/remove events.
type Collection struct {
	emitter

	mu    sync.RWMutex
	items []ports.Object
}

var _ ports.Collection = (*Collection)(nil)

// NewCollection creates a collection holding items, without firing events.
func NewCollection(items ...ports.Object) *Collection {
	return &Collection{items: slices.Clone(items)}
}

func (c *Collection) Push(item ports.Object) int {
	c.mu.Lock()
	c.items = append(c.items, item)
	n := len(c.items)
	c.mu.Unlock()

	c.dispatch(ports.Event{Type: ports.EventAdd, Element: item, Tx: nextTx()})
	return n
}

func (c *Collection) Remove(item ports.Object) bool {
	c.mu.Lock()
	idx := slices.Index(c.items, item)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.items = slices.Delete(c.items, idx, idx+1)
	c.mu.Unlock()

	c.dispatch(ports.Event{Type: ports.EventRemove, Element: item, Tx: nextTx()})
	return true
}

func (c *Collection) Clear() {
	c.mu.Lock()
	items := c.items
	c.items = nil
	c.mu.Unlock()

	tx := nextTx()
	for _, item := range items {
		c.dispatch(ports.Event{Type: ports.EventRemove, Element: item, Tx: tx})
	}
}

func (c *Collection) Items() []ports.Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
