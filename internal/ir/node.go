package ir

import "sort"

// Kind discriminates the node universe the rewrite engine understands.
//
// Kinds other than Call carry no operation semantics: Input and Constant are
// graph leaves, Output is the single terminator, and KindOpaque stands in for
// externally-defined node kinds, which are treated as always unique.
type Kind uint8

const (
	KindInput Kind = iota
	KindConstant
	KindCall
	KindOutput
	KindOpaque
)

// String returns the stable lowercase name used in graph documents and diagnostics.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConstant:
		return "constant"
	case KindCall:
		return "call"
	case KindOutput:
		return "output"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Node is a single dataflow unit.
//
// Name is an external identifier used for addressing nodes in documents, traces
// and diagnostics; it never contributes to structural identity. Target is only
// meaningful for Call nodes and names the invoked operation (qualified, e.g.
// "core::add.Tensor" or "scalar.add").
//
// users is the derived consumer set, maintained by the owning Graph so rewiring
// is O(consumers of one node), not O(graph).
type Node struct {
	graph  *Graph
	kind   Kind
	name   string
	target string
	args   []Operand
	kwargs map[string]Operand

	users  map[*Node]struct{}
	pos    int // index in graph.nodes; maintained on erase
	erased bool
}

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the node's stable diagnostic identifier.
func (n *Node) Name() string { return n.name }

// Target returns the qualified operation name. Empty for non-Call nodes.
func (n *Node) Target() string { return n.target }

// Args returns the positional operands. The slice is owned by the node; callers
// must treat it as read-only.
func (n *Node) Args() []Operand { return n.args }

// Kwargs returns the keyword operands. The map is owned by the node; callers
// must treat it as read-only.
func (n *Node) Kwargs() map[string]Operand { return n.kwargs }

// Users returns the node's consumers in program order.
func (n *Node) Users() []*Node {
	out := make([]*Node, 0, len(n.users))
	for u := range n.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

// NumUsers returns the number of distinct consumers.
func (n *Node) NumUsers() int { return len(n.users) }

// Erased reports whether the node has been removed from its graph.
func (n *Node) Erased() bool { return n.erased }

// Inputs returns the distinct producers referenced by this node's operands,
// including references nested in lists and maps, in positional encounter order
// for args followed by kwargs in sorted key order.
func (n *Node) Inputs() []*Node {
	seen := map[*Node]struct{}{}
	var out []*Node
	collect := func(p *Node) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, a := range n.args {
		walkRefs(a, collect)
	}
	keys := make([]string, 0, len(n.kwargs))
	for k := range n.kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		walkRefs(n.kwargs[k], collect)
	}
	return out
}

// eachInput calls fn once per distinct producer referenced by this node's
// operands.
func (n *Node) eachInput(fn func(*Node)) {
	seen := map[*Node]struct{}{}
	visit := func(p *Node) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		fn(p)
	}
	for _, a := range n.args {
		walkRefs(a, visit)
	}
	for _, a := range n.kwargs {
		walkRefs(a, visit)
	}
}
