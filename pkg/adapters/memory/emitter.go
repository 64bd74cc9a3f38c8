package memory

import (
	"sync"
	"sync/atomic"

	"github.com/aretw0/arbor/pkg/ports"
)

var txSeq atomic.Uint64

// nextTx allocates a transaction id shared by the events of one mutation.
func nextTx() uint64 { return txSeq.Add(1) }

type handlerEntry struct {
	id int
	fn ports.Handler
}

// emitter dispatches native events. Handlers run outside the lock so they may
// mutate the emitting object.
type emitter struct {
	mu       sync.RWMutex
	seq      int
	handlers map[string][]handlerEntry
}

func (e *emitter) On(eventType string, h ports.Handler) func() {
	e.mu.Lock()
	if e.handlers == nil {
		e.handlers = make(map[string][]handlerEntry)
	}
	e.seq++
	id := e.seq
	e.handlers[eventType] = append(e.handlers[eventType], handlerEntry{id: id, fn: h})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.off(eventType, id) })
	}
}

func (e *emitter) off(eventType string, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hs := e.handlers[eventType]
	for i, h := range hs {
		if h.id == id {
			e.handlers[eventType] = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

func (e *emitter) dispatch(ev ports.Event) {
	e.mu.RLock()
	hs := append([]handlerEntry(nil), e.handlers[ev.Type]...)
	e.mu.RUnlock()
	for _, h := range hs {
		h.fn(ev)
	}
}

// listeners reports how many handlers are registered, across all event types.
func (e *emitter) listeners() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, hs := range e.handlers {
		n += len(hs)
	}
	return n
}
