// Package ir defines the deterministic dataflow graph model for weft's rewrite engine.
//
// It is intentionally split into:
//   - Graph structure (Graph, Node, Operand): an ordered node sequence forming a DAG,
//     terminated by exactly one Output node
//   - Mutation primitives (ReplaceAllUsesWith, Erase): the only sanctioned way a
//     rewrite pass changes a graph
//   - Structural checks (Lint, EliminateDeadCode): validation and liveness sweeps
//     run after mutation
//
// The graph identity (Fingerprint) is computed from node structure and canonicalized
// operand encoding, making it invariant to node naming and map iteration order.
//
// Ordering invariant: every node's operands reference only nodes appearing earlier
// in the sequence. Builders preserve this by construction (a node is appended after
// everything it references), and Lint re-proves it after mutation. Because the
// ordering is total, the invariant also rules out cycles.
package ir
