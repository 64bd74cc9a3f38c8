// Package debounce coalesces bursts of calls into a single trailing execution.
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Frame is the default window: one display frame at 60 Hz.
const Frame = time.Second / 60

// ErrCanceled is delivered to waiters whose pending call was dropped by Cancel.
var ErrCanceled = errors.New("debounced call canceled")

// Func is the work executed once per window.
type Func func(ctx context.Context) error

// Debouncer runs the most recently submitted Func once wait has elapsed without a new
// submission. Every caller whose submission was coalesced into a run receives the
// result of that run.
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	fn      Func
	ctx     context.Context
	waiters []chan error
}

// New creates a debouncer with the given quiet window.
func New(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Do submits fn and blocks until the run it was coalesced into completes, or until
// ctx is done. Cancelling ctx does not cancel the run itself.
func (d *Debouncer) Do(ctx context.Context, fn Func) error {
	ch := d.enqueue(ctx, fn, true)
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule submits fn without waiting for it.
func (d *Debouncer) Schedule(ctx context.Context, fn Func) {
	d.enqueue(ctx, fn, false)
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

// Cancel drops the pending run. Its waiters receive ErrCanceled.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	waiters := d.waiters
	d.fn, d.ctx, d.waiters, d.timer = nil, nil, nil, nil
	d.mu.Unlock()

	for _, w := range waiters {
		w <- ErrCanceled
	}
}

func (d *Debouncer) enqueue(ctx context.Context, fn Func, wait bool) chan error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fn = fn
	d.ctx = context.WithoutCancel(ctx)

	var ch chan error
	if wait {
		ch = make(chan error, 1)
		d.waiters = append(d.waiters, ch)
	}

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
	return ch
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn, ctx, waiters := d.fn, d.ctx, d.waiters
	d.fn, d.ctx, d.waiters, d.timer = nil, nil, nil, nil
	d.mu.Unlock()

	err := fn(ctx)
	for _, w := range waiters {
		w <- err
	}
}
