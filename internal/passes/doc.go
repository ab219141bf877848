// Package passes implements weft's graph rewrite passes.
//
// A pass is a synchronous, single-threaded transform: it receives one graph it
// has exclusive ownership of, possibly mutates it in place, and reports whether
// anything changed. All per-invocation state is scoped to a single Run call and
// discarded on return, so a pass value can be reused across graphs and repeated
// runs on an already-rewritten graph are no-ops.
//
// The Pipeline sequences passes and re-applies them until a fixpoint or an
// iteration bound is reached.
package passes
