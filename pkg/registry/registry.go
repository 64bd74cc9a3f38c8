package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"golang.org/x/sync/singleflight"
)

// Factory builds the instance stored under a key.
type Factory func() (any, error)

type entry struct {
	value   any
	holders int
}

// Registry is a process-scoped identity map: it lets several nodes that declare the
// same ident share one engine instance. Each SetInstance adds a holder and each
// UnsetInstance drops one; the binding disappears with its last holder.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	calls   singleflight.Group
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// MakeIdent joins the non-empty parts with ".".
// An empty result means "no identity".
func MakeIdent(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

// SetInstance binds value to key, or adds a holder when value is already bound.
// Binding a different value to an occupied key fails with domain.ErrInstanceConflict.
func (r *Registry) SetInstance(key string, value any) error {
	if key == "" {
		return fmt.Errorf("set instance: %w", domain.ErrInvalidID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setLocked(key, value)
}

func (r *Registry) setLocked(key string, value any) error {
	if e, ok := r.entries[key]; ok {
		if e.value != value {
			return fmt.Errorf("set instance %q: %w", key, domain.ErrInstanceConflict)
		}
		e.holders++
		return nil
	}
	r.entries[key] = &entry{value: value, holders: 1}
	return nil
}

// UnsetInstance drops one holder of key. Unknown keys are ignored.
func (r *Registry) UnsetInstance(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.holders--
	if e.holders <= 0 {
		delete(r.entries, key)
	}
}

// MoveInstance rebinds one holder of oldKey to newKey, keeping the instance identity.
// When other holders remain on oldKey they keep their binding.
func (r *Registry) MoveInstance(newKey, oldKey string) error {
	if newKey == oldKey {
		return nil
	}
	if newKey == "" {
		return fmt.Errorf("move instance: %w", domain.ErrInvalidID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[oldKey]
	if !ok {
		return fmt.Errorf("move instance %q: %w", oldKey, domain.ErrObjectUndefined)
	}
	if err := r.setLocked(newKey, e.value); err != nil {
		return err
	}
	e.holders--
	if e.holders <= 0 {
		delete(r.entries, oldKey)
	}
	return nil
}

// HasInstance reports whether key is bound.
func (r *Registry) HasInstance(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Instance returns the value bound to key.
func (r *Registry) Instance(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Holders returns how many holders key currently has.
func (r *Registry) Holders(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[key]; ok {
		return e.holders
	}
	return 0
}

// Keys lists the bound keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// InstanceFactoryCall returns the instance bound to key, creating it with factory
// when absent, and registers the caller as a holder. Concurrent callers for the same
// key share a single factory invocation. An empty key always calls factory and
// caches nothing.
func (r *Registry) InstanceFactoryCall(key string, factory Factory) (any, error) {
	if key == "" {
		return factory()
	}

	r.mu.Lock()
	if e, ok := r.entries[key]; ok {
		e.holders++
		v := e.value
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	v, err, _ := r.calls.Do(key, func() (any, error) {
		r.mu.RLock()
		e, ok := r.entries[key]
		r.mu.RUnlock()
		if ok {
			return e.value, nil
		}

		v, err := factory()
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if e, ok := r.entries[key]; ok {
			return e.value, nil
		}
		// bound with no holders yet, every caller of this flight adds itself below
		r.entries[key] = &entry{value: v}
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		e.holders++
		return e.value, nil
	}
	r.entries[key] = &entry{value: v, holders: 1}
	return v, nil
}
