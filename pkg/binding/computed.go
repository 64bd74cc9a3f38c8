package binding

import "sync"

// Computed is a value derived from engine state, recomputed at most once per revision.
type Computed[T any] struct {
	rev     *Revision
	compute func() T

	mu    sync.Mutex
	at    uint64
	valid bool
	value T
}

// NewComputed creates a lazily evaluated value bound to rev.
func NewComputed[T any](rev *Revision, compute func() T) *Computed[T] {
	return &Computed[T]{rev: rev, compute: compute}
}

// Get returns the cached value, recomputing it when the revision moved.
func (c *Computed[T]) Get() T {
	rev := c.rev.Value()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.at != rev {
		c.value = c.compute()
		c.at, c.valid = rev, true
	}
	return c.value
}

// Invalidate forces a recomputation on the next Get.
func (c *Computed[T]) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
