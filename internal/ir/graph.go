package ir

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Graph is an ordered, mutable sequence of nodes forming a dataflow DAG,
// terminated by exactly one Output node.
//
// Construction appends: a node can only reference nodes already present, so the
// no-forward-reference invariant (and therefore acyclicity) holds by
// construction. Mutation after construction goes through ReplaceAllUsesWith and
// Erase, which re-check the invariant.
//
// A Graph is not safe for concurrent use. Rewrite passes assume exclusive
// ownership for the duration of one run.
type Graph struct {
	nodes  []*Node
	output *Node
	seq    map[string]int // base name -> next suffix
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{seq: map[string]int{}}
}

// Input appends an input (placeholder) node.
func (g *Graph) Input(name string) *Node {
	return g.addNode(KindInput, g.uniqueName(name), "", nil, nil)
}

// Constant appends a constant node holding value.
func (g *Graph) Constant(name string, value Operand) *Node {
	return g.addNode(KindConstant, g.uniqueName(name), "", []Operand{value}, nil)
}

// Call appends a call node invoking target with the given operands.
// The node name is derived from the target's base name.
func (g *Graph) Call(target string, args []Operand, kwargs map[string]Operand) *Node {
	if target == "" {
		panic(errors.New("ir.Call: empty target"))
	}
	return g.addNode(KindCall, g.uniqueName(baseName(target)), target, args, kwargs)
}

// NamedCall is Call with an explicit node name, used when names come from an
// external document and must survive round-trips.
func (g *Graph) NamedCall(name, target string, args []Operand, kwargs map[string]Operand) *Node {
	if target == "" {
		panic(errors.New("ir.NamedCall: empty target"))
	}
	return g.addNode(KindCall, g.uniqueName(name), target, args, kwargs)
}

// OpaqueNode appends a node of an externally-defined kind. Such nodes carry no
// semantics the rewrite engine understands and are always treated as unique.
func (g *Graph) OpaqueNode(name string, args ...Operand) *Node {
	return g.addNode(KindOpaque, g.uniqueName(name), "", args, nil)
}

// SetOutput terminates the graph with an Output node whose operands name the
// externally visible results. It must be called exactly once, after every
// producer it references has been added.
func (g *Graph) SetOutput(results ...Operand) *Node {
	if g.output != nil {
		panic(errors.New("ir.SetOutput: graph already terminated"))
	}
	n := g.addNode(KindOutput, g.uniqueName("output"), "", results, nil)
	g.output = n
	return n
}

// Output returns the graph's Output node, or nil if the graph is not terminated.
func (g *Graph) Output() *Node { return g.output }

// OutputOperands returns the operands of the Output node: the graph's
// externally visible results. Nil if the graph is not terminated.
func (g *Graph) OutputOperands() []Operand {
	if g.output == nil {
		return nil
	}
	return g.output.args
}

// Nodes returns a snapshot of the nodes in program order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Len returns the number of live nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// ReplaceAllUsesWith rewires every consumer of old to reference canonical
// instead. It refuses rewrites that would break structural invariants: old must
// not be the Output node, and no consumer may end up with a forward reference.
func (g *Graph) ReplaceAllUsesWith(old, canonical *Node) error {
	if old == nil || canonical == nil {
		return invalidf("replace: nil node")
	}
	if old.graph != g || canonical.graph != g {
		return invalidf("replace: node from another graph")
	}
	if old.erased || canonical.erased {
		return invalidf("replace: erased node")
	}
	if old == canonical {
		return nil
	}
	if old.kind == KindOutput {
		return invalidf("replace: %q is the output node", old.name)
	}
	if _, uses := old.users[canonical]; uses {
		return invalidf("replace: %q consumes %q; rewiring would form a cycle", canonical.name, old.name)
	}
	for u := range old.users {
		if u.pos < canonical.pos {
			return invalidf("replace: consumer %q precedes %q; rewiring would forward-reference", u.name, canonical.name)
		}
	}

	for u := range old.users {
		for i, a := range u.args {
			u.args[i] = replaceRefs(a, old, canonical)
		}
		for k, a := range u.kwargs {
			u.kwargs[k] = replaceRefs(a, old, canonical)
		}
		canonical.users[u] = struct{}{}
	}
	old.users = map[*Node]struct{}{}
	return nil
}

// Erase removes a node with no remaining consumers from the graph.
func (g *Graph) Erase(n *Node) error {
	if n == nil || n.graph != g {
		return invalidf("erase: node from another graph")
	}
	if n.erased {
		return invalidf("erase: %q already erased", n.name)
	}
	if n == g.output {
		return invalidf("erase: %q is the output node", n.name)
	}
	if len(n.users) > 0 {
		return invalidf("erase: %q still has %d consumers", n.name, len(n.users))
	}

	n.eachInput(func(p *Node) {
		delete(p.users, n)
	})

	g.nodes = append(g.nodes[:n.pos], g.nodes[n.pos+1:]...)
	for i := n.pos; i < len(g.nodes); i++ {
		g.nodes[i].pos = i
	}
	n.erased = true
	n.users = nil
	return nil
}

func (g *Graph) addNode(kind Kind, name, target string, args []Operand, kwargs map[string]Operand) *Node {
	if g.output != nil {
		panic(errors.Errorf("ir: cannot add %q: graph already terminated", name))
	}
	n := &Node{
		graph:  g,
		kind:   kind,
		name:   name,
		target: target,
		args:   args,
		kwargs: kwargs,
		users:  map[*Node]struct{}{},
		pos:    len(g.nodes),
	}
	n.eachInput(func(p *Node) {
		if p.graph != g {
			panic(errors.Errorf("ir: node %q references node %q from another graph", name, p.name))
		}
		if p.erased {
			panic(errors.Errorf("ir: node %q references erased node %q", name, p.name))
		}
		p.users[n] = struct{}{}
	})
	g.nodes = append(g.nodes, n)
	return n
}

func (g *Graph) uniqueName(base string) string {
	if base == "" {
		base = "node"
	}
	if _, taken := g.seq[base]; !taken {
		g.seq[base] = 1
		return base
	}
	for {
		cand := fmt.Sprintf("%s_%d", base, g.seq[base])
		g.seq[base]++
		if _, taken := g.seq[cand]; !taken {
			g.seq[cand] = 1
			return cand
		}
	}
}

// baseName derives a short node name from a qualified target:
// "core::add.Tensor" -> "add", "scalar.add" -> "add".
func baseName(target string) string {
	s := target
	if i := strings.Index(s, "::"); i >= 0 {
		s = s[i+2:]
	} else if i := strings.Index(s, "."); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "call"
	}
	return s
}
