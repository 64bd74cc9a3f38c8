package memory

import (
	"maps"
	"reflect"
	"sync"

	"github.com/aretw0/arbor/pkg/ports"
)

// Object is the in-memory engine object: a property bag with change events.
// Safe for concurrent use.
type Object struct {
	emitter

	mu       sync.RWMutex
	props    map[string]any
	revision uint64
	owners   []any
}

var _ ports.Object = (*Object)(nil)

// NewObject creates an object with optional initial properties.
func NewObject(props map[string]any) *Object {
	o := &Object{props: make(map[string]any, len(props))}
	maps.Copy(o.props, props)
	return o
}

func (o *Object) ID() string {
	id, _ := o.Get(ports.PropID).(string)
	return id
}

func (o *Object) SetID(id string) {
	o.Set(ports.PropID, id)
}

func (o *Object) Get(key string) any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.props[key]
}

func (o *Object) Set(key string, value any) {
	o.SetProperties(map[string]any{key: value})
}

// SetProperties applies props and fires change:<key> and propertychange for every
// key whose value actually changed. All events share one transaction id.
func (o *Object) SetProperties(props map[string]any) {
	type change struct {
		key      string
		value    any
		oldValue any
	}
	var changes []change

	o.mu.Lock()
	for k, v := range props {
		old, ok := o.props[k]
		if (ok && reflect.DeepEqual(old, v)) || (!ok && v == nil) {
			continue
		}
		if v == nil {
			delete(o.props, k)
		} else {
			o.props[k] = v
		}
		changes = append(changes, change{k, v, old})
	}
	o.mu.Unlock()

	if len(changes) == 0 {
		return
	}
	tx := nextTx()
	for _, c := range changes {
		o.notify(c.key, c.value, c.oldValue, tx)
	}
}

func (o *Object) notify(key string, value, oldValue any, tx uint64) {
	ev := ports.Event{Type: ports.ChangeEvent(key), Key: key, Value: value, OldValue: oldValue, Tx: tx}
	o.dispatch(ev)
	ev.Type = ports.EventPropertyChange
	o.dispatch(ev)
}

func (o *Object) Properties() map[string]any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return maps.Clone(o.props)
}

func (o *Object) Changed() {
	o.mu.Lock()
	o.revision++
	o.mu.Unlock()
	o.dispatch(ports.Event{Type: ports.EventChange, Tx: nextTx()})
}

// Revision returns how many times Changed was called.
func (o *Object) Revision() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.revision
}

func (o *Object) Attach(owner any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ow := range o.owners {
		if ow == owner {
			return false
		}
	}
	o.owners = append(o.owners, owner)
	return true
}

func (o *Object) Detach(owner any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, ow := range o.owners {
		if ow == owner {
			o.owners = append(o.owners[:i:i], o.owners[i+1:]...)
			return
		}
	}
}

func (o *Object) Owners() []any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]any(nil), o.owners...)
}

// Listeners reports the number of registered handlers.
func (o *Object) Listeners() int {
	return o.listeners()
}
