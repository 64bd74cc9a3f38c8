package domain

// State is the position of a node in its lifecycle state machine.
type State int

const (
	StateUndef    State = iota // No engine object, initial and terminal state
	StateCreating              // Engine object is being created or fetched
	StateCreated               // Engine object exists, not attached to a parent
	StateMounting              // Engine object is being attached to a parent container
	StateMounted               // Engine object is attached
)

func (s State) String() string {
	switch s {
	case StateUndef:
		return "undef"
	case StateCreating:
		return "creating"
	case StateCreated:
		return "created"
	case StateMounting:
		return "mounting"
	case StateMounted:
		return "mounted"
	default:
		return "unknown"
	}
}

// In reports whether s is one of states.
func (s State) In(states ...State) bool {
	for _, st := range states {
		if s == st {
			return true
		}
	}
	return false
}

// CanTransition reports whether the state machine allows moving from s to next.
// Every state may fall back to StateUndef (error or destroy).
func (s State) CanTransition(next State) bool {
	if next == StateUndef {
		return true
	}
	switch s {
	case StateUndef:
		return next == StateCreating
	case StateCreating:
		return next == StateCreated
	case StateCreated:
		return next == StateMounting
	case StateMounting:
		return next == StateMounted || next == StateCreated
	case StateMounted:
		return next == StateCreated
	}
	return false
}
