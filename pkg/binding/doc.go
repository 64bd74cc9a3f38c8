/*
Package binding keeps declarative property inputs and engine object properties in
eventual two-way sync.

Outbound, a Property debounces writes of the declarative input and skips the write
when the engine already holds an equal value. Inbound, engine change events update
the current value and, after a debounce window, emit update:<prop> only when the value
differs both from the declarative input and from the last emitted value. The explicit
last-emitted cache is what breaks the feedback loop between the two sides.

Every accepted engine change also bumps a Revision; Computed values derived from the
engine object recompute lazily on the first read after a bump.
*/
package binding
