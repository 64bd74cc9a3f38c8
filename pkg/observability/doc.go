/*
Package observability provides lifecycle hooks for monitoring arbor node trees.

Metrics exports transition and event counters plus a per-state node gauge to
Prometheus; LogHooks writes the same stream to a structured logger. Both return
domain.LifecycleHooks and can be combined with domain.ChainHooks.
*/
package observability
