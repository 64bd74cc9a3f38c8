/*
Package lifecycle drives a node of the declarative tree through the engine object
state machine:

	Undef -> Creating -> Created -> Mounting -> Mounted
	  ^                    |  ^                    |
	  +----- destroy ------+  +----- unmount ------+

A Node owns nothing but the orchestration. What the engine object is, where it is
mounted and which extra subscriptions it needs is supplied by a Component and its
optional hook interfaces (BeforeIniter, Mounter, Unmounter...).

Operations whose precondition state does not hold are discarded, never queued.
Every failure restores the previous stable state, is emitted as an <event>error
message on the node bus and the process-wide bus, and is returned to the caller.
*/
package lifecycle
