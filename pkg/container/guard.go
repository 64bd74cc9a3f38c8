package container

import (
	"sync"

	"github.com/aretw0/arbor/pkg/ports"
)

// Containers wrapping the same engine collection share one membership lock, so the
// id check and the push of an Add cannot interleave across wrappers.
var guards = struct {
	sync.Mutex
	byColl map[ports.Collection]*guard
}{byColl: make(map[ports.Collection]*guard)}

type guard struct {
	sync.Mutex
	refs int
}

func acquireGuard(coll ports.Collection) *guard {
	guards.Lock()
	defer guards.Unlock()
	g, ok := guards.byColl[coll]
	if !ok {
		g = &guard{}
		guards.byColl[coll] = g
	}
	g.refs++
	return g
}

func releaseGuard(coll ports.Collection) {
	guards.Lock()
	defer guards.Unlock()
	g, ok := guards.byColl[coll]
	if !ok {
		return
	}
	if g.refs--; g.refs <= 0 {
		delete(guards.byColl, coll)
	}
}
