package ir

// RetainFunc reports whether an unused Call node must survive dead-code
// elimination because removing it could change observable behavior. The ops
// layer supplies one that fails closed on unknown or mutating targets.
type RetainFunc func(target string) bool

// EliminateDeadCode removes nodes that have no remaining consumers and are not
// otherwise required to be retained.
//
// Retention rules:
//   - the Output node is always retained
//   - Input nodes are always retained (they are part of the graph's externally
//     visible signature)
//   - Opaque-kind nodes are always retained (unknown semantics)
//   - Call nodes are retained when retain(target) reports true
//
// One reverse program-order sweep reaches a fixpoint: consumers always appear
// after their producers, so by the time a producer is visited every dead
// consumer has already been removed.
//
// Returns the names of removed nodes in removal order.
func (g *Graph) EliminateDeadCode(retain RetainFunc) []string {
	var removed []string
	for i := len(g.nodes) - 1; i >= 0; i-- {
		n := g.nodes[i]
		if len(n.users) > 0 || n == g.output {
			continue
		}
		switch n.kind {
		case KindInput, KindOutput, KindOpaque:
			continue
		case KindCall:
			if retain != nil && retain(n.target) {
				continue
			}
		}
		name := n.name
		if err := g.Erase(n); err != nil {
			// Unreachable: the node was just proven user-free and non-output.
			panic(err)
		}
		removed = append(removed, name)
	}
	return removed
}
