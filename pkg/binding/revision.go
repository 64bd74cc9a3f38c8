package binding

import "sync"

// Revision is a monotonic change counter.
type Revision struct {
	mu     sync.Mutex
	value  uint64
	lastTx uint64
}

// Bump increments the counter and returns the new value.
func (r *Revision) Bump() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value++
	return r.value
}

// Accept bumps the counter for an engine change of transaction tx. Changes that
// share the transaction of the previously accepted one are coalesced. A zero tx is
// always accepted.
func (r *Revision) Accept(tx uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx != 0 && tx == r.lastTx {
		return false
	}
	r.lastTx = tx
	r.value++
	return true
}

// Value returns the current revision.
func (r *Revision) Value() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}
