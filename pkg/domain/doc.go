/*
Package domain contains the core vocabulary shared by every arbor package.

It defines the lifecycle states a node moves through, the lifecycle events emitted on
each transition, the sentinel errors of the engine and the observability hooks. The
package is kept pure and free of I/O so that adapters and components can depend on it
without pulling in the engine itself.

# Key Entities

  - State: position of a node in the create/mount/unmount/destroy state machine.
  - LifecycleEvent: what happened to a node (created, mounterror, ...).
  - LifecycleHooks: callbacks for auditing transitions (logging, metrics).
  - WaitError / LifecycleError: structured failures carried through the engine.
*/
package domain
