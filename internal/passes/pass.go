package passes

import "weft/internal/ir"

// Result is the outcome of one pass invocation.
//
// Graph is the same object that was passed in, possibly mutated in place;
// Modified reports whether any rewrite happened.
type Result struct {
	Graph    *ir.Graph
	Modified bool
}

// Pass is a synchronous in-place graph transform.
//
// Run must leave the graph structurally valid on success. A returned error is
// an internal-consistency failure (the pass must never emit an invalid graph),
// not a recoverable condition.
type Pass interface {
	Name() string
	Run(g *ir.Graph) (Result, error)
}
