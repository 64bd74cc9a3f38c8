package domain

import (
	"context"
	"time"
)

// LifecycleEvent names an outcome of a lifecycle transition.
// The values double as message names on the node-local and process-wide buses.
type LifecycleEvent string

const (
	EventCreated      LifecycleEvent = "created"
	EventCreateError  LifecycleEvent = "createerror"
	EventMounted      LifecycleEvent = "mounted"
	EventMountError   LifecycleEvent = "mounterror"
	EventUnmounted    LifecycleEvent = "unmounted"
	EventUnmountError LifecycleEvent = "unmounterror"
	EventDestroyed    LifecycleEvent = "destroyed"
	EventDestroyError LifecycleEvent = "destroyerror"
)

// IsError reports whether the event signals a failed transition.
func (e LifecycleEvent) IsError() bool {
	switch e {
	case EventCreateError, EventMountError, EventUnmountError, EventDestroyError:
		return true
	}
	return false
}

// UpdateEvent returns the outward notification name for a property ("update:visible").
func UpdateEvent(prop string) string {
	return "update:" + prop
}

// NodeInfo identifies the node an event is about.
type NodeInfo struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Ident string `json:"ident,omitempty"`
}

// TransitionEvent is delivered to LifecycleHooks on every state change.
type TransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Node      NodeInfo  `json:"node"`
	From      State     `json:"from"`
	To        State     `json:"to"`
}

// NodeEvent is delivered to LifecycleHooks when a lifecycle event is emitted.
type NodeEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Node      NodeInfo       `json:"node"`
	Event     LifecycleEvent `json:"event"`
	Err       error          `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnEvent      func(context.Context, *NodeEvent)
}

// ChainHooks combines several hook sets; each callback runs in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range hooks {
				if h.OnTransition != nil {
					h.OnTransition(ctx, e)
				}
			}
		},
		OnEvent: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnEvent != nil {
					h.OnEvent(ctx, e)
				}
			}
		},
	}
}
