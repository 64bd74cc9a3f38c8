package rx

import (
	"sync"
)

// Any subscribes to every message of a Bus.
const Any = "*"

// Message is a named notification carried by a Bus.
type Message struct {
	Name   string
	Source any
	Value  any
	Err    error
}

type listener struct {
	id int
	fn func(Message)
}

// Bus is a named-message emitter. Nodes own a local bus for their outward events;
// an application owns a process-wide one that observes every node.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[string][]listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]listener)}
}

// On registers fn for messages named name (or Any) and returns its removal function.
func (b *Bus) On(name string, fn func(Message)) (off func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[name] = append(b.listeners[name], listener{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			ls := b.listeners[name]
			for i, l := range ls {
				if l.id == id {
					b.listeners[name] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
			if len(b.listeners[name]) == 0 {
				delete(b.listeners, name)
			}
		})
	}
}

// Emit delivers m synchronously to the listeners registered at call time.
func (b *Bus) Emit(m Message) {
	b.mu.RLock()
	named := b.listeners[m.Name]
	wildcard := b.listeners[Any]
	targets := make([]listener, 0, len(named)+len(wildcard))
	targets = append(targets, named...)
	if m.Name != Any {
		targets = append(targets, wildcard...)
	}
	b.mu.RUnlock()

	for _, l := range targets {
		l.fn(m)
	}
}

// Observe returns an observable of the messages named by names.
func (b *Bus) Observe(names ...string) Observable[Message] {
	sources := make([]Observable[Message], 0, len(names))
	for _, name := range names {
		sources = append(sources, func(next Observer[Message]) func() {
			return b.On(name, next)
		})
	}
	return Merge(sources...)
}
