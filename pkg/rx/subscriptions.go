package rx

import "sync"

// Subscriptions collects unsubscribe functions so that they can be released together.
type Subscriptions struct {
	mu   sync.Mutex
	offs []func()
}

// Add records an unsubscribe function.
func (s *Subscriptions) Add(off func()) {
	if off == nil {
		return
	}
	s.mu.Lock()
	s.offs = append(s.offs, off)
	s.mu.Unlock()
}

// Subscribe subscribes next to src and records the subscription in s.
func Subscribe[T any](s *Subscriptions, src Observable[T], next Observer[T]) {
	s.Add(src(next))
}

// Len returns the number of live subscriptions.
func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offs)
}

// Unsubscribe releases every recorded subscription.
func (s *Subscriptions) Unsubscribe() {
	s.mu.Lock()
	offs := s.offs
	s.offs = nil
	s.mu.Unlock()

	for _, off := range offs {
		off()
	}
}
