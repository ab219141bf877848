package ir

// Lint proves the graph's structural invariants hold. It is run by rewrite
// passes after mutation; a failure indicates a bug in the rewrite logic, never
// a caller-input problem, so callers treat it as fatal.
//
// Checks:
//   - the graph is terminated by exactly one Output node, in final position
//   - no erased node remains in or is referenced from the sequence
//   - every operand reference resolves to a node of this graph appearing
//     strictly earlier in the sequence (which also rules out cycles)
//   - users sets agree with operand references in both directions
func (g *Graph) Lint() error {
	if g.output == nil {
		return invalidf("graph has no output node")
	}
	outputs := 0
	for _, n := range g.nodes {
		if n.kind == KindOutput {
			outputs++
		}
	}
	if outputs != 1 {
		return invalidf("graph has %d output nodes, want exactly 1", outputs)
	}
	if last := g.nodes[len(g.nodes)-1]; last != g.output {
		return invalidf("output node %q is not in final position", g.output.name)
	}

	for i, n := range g.nodes {
		if n.erased {
			return invalidf("erased node %q still present at position %d", n.name, i)
		}
		if n.pos != i {
			return invalidf("node %q has stale position %d, want %d", n.name, n.pos, i)
		}

		// References must be backward-only, and every reference must be
		// mirrored in the producer's users set.
		var refErr error
		n.eachInput(func(p *Node) {
			if refErr != nil {
				return
			}
			switch {
			case p.graph != g:
				refErr = invalidf("node %q references node %q from another graph", n.name, p.name)
			case p.erased:
				refErr = invalidf("node %q references erased node %q (dangling)", n.name, p.name)
			case p.pos >= n.pos:
				refErr = invalidf("node %q references %q at position %d >= %d (forward reference)", n.name, p.name, p.pos, n.pos)
			default:
				if _, ok := p.users[n]; !ok {
					refErr = invalidf("node %q missing from users of %q", n.name, p.name)
				}
			}
		})
		if refErr != nil {
			return refErr
		}

		// Every recorded user must actually reference this node.
		for u := range n.users {
			found := false
			u.eachInput(func(p *Node) {
				if p == n {
					found = true
				}
			})
			if !found {
				return invalidf("users of %q lists %q, which does not reference it", n.name, u.name)
			}
		}
	}
	return nil
}
