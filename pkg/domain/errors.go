package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotImplemented is returned when a node kind has no factory for its engine object.
var ErrNotImplemented = errors.New("not implemented")

// ErrObjectUndefined is returned when a node has no engine object (not created or already destroyed).
var ErrObjectUndefined = errors.New("engine object is undefined")

// ErrWrongType is returned when an object of an unexpected kind is passed to a container.
var ErrWrongType = errors.New("wrong object type")

// ErrInvalidID is returned for empty or malformed identifiers.
var ErrInvalidID = errors.New("invalid identifier")

// ErrInstanceConflict is returned when an identity key is already bound to another instance.
var ErrInstanceConflict = errors.New("identity key bound to a different instance")

// ErrWaitTimeout is returned when an awaited capability never became available.
var ErrWaitTimeout = errors.New("wait timed out")

// ErrInvalidTree is returned when a tree description breaks the nesting rules.
var ErrInvalidTree = errors.New("invalid tree")

// NotImplemented annotates ErrNotImplemented with the missing method name.
func NotImplemented(method string) error {
	return fmt.Errorf("%w method: %s", ErrNotImplemented, method)
}

// WaitError reports a failed wait for an ancestor capability.
type WaitError struct {
	Capability string
	Timeout    time.Duration
	Err        error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("wait for %s injection: %v", e.Capability, e.Err)
}

func (e *WaitError) Unwrap() error {
	return e.Err
}

// LifecycleError carries a transition failure together with the node it happened on.
type LifecycleError struct {
	Node  NodeInfo
	Event LifecycleEvent
	Err   error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s.%s: %s: %v", e.Node.Kind, e.Node.ID, e.Event, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// ErrSnapshotNotFound is returned when no snapshot is stored under a key.
var ErrSnapshotNotFound = errors.New("snapshot not found")
