package services

import (
	"context"
	"reflect"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/rx"
)

// Defaults for WaitFor.
const (
	DefaultWaitTimeout  = time.Second
	DefaultPollInterval = time.Second / 60
)

type waitConfig struct {
	timeout  time.Duration
	interval time.Duration
	abort    rx.Observable[error]
}

// WaitOption configures WaitFor.
type WaitOption func(*waitConfig)

// WithTimeout bounds the wait. Zero or negative means DefaultWaitTimeout.
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithAbort stops the wait with the first non-nil error emitted by abort.
// Nodes use it to give up when the ancestor they wait for failed to create.
func WithAbort(abort rx.Observable[error]) WaitOption {
	return func(c *waitConfig) { c.abort = abort }
}

// WaitFor polls p until capability resolves. Failures are reported as
// *domain.WaitError naming the capability.
func WaitFor(ctx context.Context, p Provider, capability string, opts ...WaitOption) (any, error) {
	cfg := waitConfig{timeout: DefaultWaitTimeout, interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	fail := func(err error) (any, error) {
		return nil, &domain.WaitError{Capability: capability, Timeout: cfg.timeout, Err: err}
	}

	if p == nil {
		return fail(domain.ErrObjectUndefined)
	}
	if v, ok := p.Get(capability); ok {
		return v, nil
	}

	aborted := make(chan error, 1)
	if cfg.abort != nil {
		off := cfg.abort(func(err error) {
			if err == nil {
				return
			}
			select {
			case aborted <- err:
			default:
			}
		})
		defer off()
	}

	timer := time.NewTimer(cfg.timeout)
	defer timer.Stop()
	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if v, ok := p.Get(capability); ok {
				return v, nil
			}
		case err := <-aborted:
			return fail(err)
		case <-timer.C:
			return fail(domain.ErrWaitTimeout)
		case <-ctx.Done():
			return fail(ctx.Err())
		}
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
