/*
Package rx adapts engine and bus events into small push-based observables.

An Observable is a subscribe function: it registers an Observer and returns the
function that removes it. Operators (Map, Filter, Merge, Distinct, SkipWhile) wrap
observables without buffering, so values are delivered on the emitter's goroutine.
First blocks until the first value or context cancellation and is the building block
for lifecycle checkpoints.
*/
package rx
