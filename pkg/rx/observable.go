package rx

import (
	"context"
	"reflect"
	"sync"

	"github.com/aretw0/arbor/pkg/ports"
)

// Observer receives values.
type Observer[T any] func(T)

// Observable registers an observer and returns its unsubscribe function.
type Observable[T any] func(next Observer[T]) (unsubscribe func())

// Change is a property change read from an engine object.
type Change struct {
	Prop  string
	Value any
	Tx    uint64
}

// FromEvent observes a native event type of src.
func FromEvent(src ports.Observable, eventType string) Observable[ports.Event] {
	return func(next Observer[ports.Event]) func() {
		return src.On(eventType, func(e ports.Event) { next(e) })
	}
}

// FromChange observes change:<prop> of obj for each prop and reads the current value
// on every event. With distinct set, values equal to the previous one of the same prop
// are dropped.
func FromChange(obj ports.Object, distinct bool, props ...string) Observable[Change] {
	sources := make([]Observable[Change], 0, len(props))
	for _, prop := range props {
		src := Map(FromEvent(obj, ports.ChangeEvent(prop)), func(e ports.Event) Change {
			return Change{Prop: prop, Value: obj.Get(prop), Tx: e.Tx}
		})
		if distinct {
			src = Distinct(src, func(a, b Change) bool { return Equal(a.Value, b.Value) })
		}
		sources = append(sources, src)
	}
	return Merge(sources...)
}

// Map transforms every value.
func Map[T, U any](src Observable[T], f func(T) U) Observable[U] {
	return func(next Observer[U]) func() {
		return src(func(v T) { next(f(v)) })
	}
}

// Filter drops values for which keep returns false.
func Filter[T any](src Observable[T], keep func(T) bool) Observable[T] {
	return func(next Observer[T]) func() {
		return src(func(v T) {
			if keep(v) {
				next(v)
			}
		})
	}
}

// Merge interleaves several observables.
func Merge[T any](srcs ...Observable[T]) Observable[T] {
	return func(next Observer[T]) func() {
		offs := make([]func(), 0, len(srcs))
		for _, src := range srcs {
			offs = append(offs, src(next))
		}
		return func() {
			for _, off := range offs {
				off()
			}
		}
	}
}

// Distinct drops a value equal (per eq) to the previously delivered one.
// Every subscription tracks its own previous value.
func Distinct[T any](src Observable[T], eq func(a, b T) bool) Observable[T] {
	return func(next Observer[T]) func() {
		var (
			mu   sync.Mutex
			last T
			seen bool
		)
		return src(func(v T) {
			mu.Lock()
			if seen && eq(last, v) {
				mu.Unlock()
				return
			}
			last, seen = v, true
			mu.Unlock()
			next(v)
		})
	}
}

// SkipWhile drops values until skip returns false once.
func SkipWhile[T any](src Observable[T], skip func(T) bool) Observable[T] {
	return func(next Observer[T]) func() {
		var (
			mu   sync.Mutex
			done bool
		)
		return src(func(v T) {
			mu.Lock()
			if !done && skip(v) {
				mu.Unlock()
				return
			}
			done = true
			mu.Unlock()
			next(v)
		})
	}
}

// First subscribes to src and returns its first value, or the context error.
func First[T any](ctx context.Context, src Observable[T]) (T, error) {
	ch := make(chan T, 1)
	off := src(func(v T) {
		select {
		case ch <- v:
		default:
		}
	})
	defer off()

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Equal is the deep equality used to compare property values.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
