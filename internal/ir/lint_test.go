package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLint_AcceptsValidGraph(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	c := g.Constant("zero", Int(0))
	a := g.Call("core::add.Tensor", []Operand{Ref{Node: x}, Ref{Node: c}}, map[string]Operand{"alpha": Int(1)})
	g.SetOutput(Ref{Node: a})

	require.NoError(t, g.Lint())
}

func TestLint_RejectsMissingOutput(t *testing.T) {
	g := NewGraph()
	g.Input("x")

	require.ErrorIs(t, g.Lint(), ErrInvalidGraph)
}

func TestLint_RejectsOutputNotLast(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	g.SetOutput(Ref{Node: x})

	// Forge a node appended after the output (bypassing the builder guard).
	rogue := &Node{graph: g, kind: KindCall, name: "rogue", target: "core::relu", users: map[*Node]struct{}{}, pos: len(g.nodes)}
	g.nodes = append(g.nodes, rogue)

	require.ErrorIs(t, g.Lint(), ErrInvalidGraph)
}

func TestLint_RejectsForwardReference(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	b := g.Call("core::relu", []Operand{Ref{Node: a}}, nil)
	g.SetOutput(Ref{Node: b})

	// Forge a forward reference by pointing a at b directly.
	a.args[0] = Ref{Node: b}
	a.eachInput(func(p *Node) { p.users[a] = struct{}{} })

	require.ErrorIs(t, g.Lint(), ErrInvalidGraph)
}

func TestLint_RejectsDanglingReference(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	b := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	g.SetOutput(Ref{Node: a})

	require.NoError(t, g.Erase(b))

	// Forge a dangling reference to the erased node.
	a.args[0] = Ref{Node: b}

	require.ErrorIs(t, g.Lint(), ErrInvalidGraph)
}

func TestLint_RejectsInconsistentUsers(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	g.SetOutput(Ref{Node: a})

	// Forge a users entry with no matching reference.
	a.users[x] = struct{}{}

	require.ErrorIs(t, g.Lint(), ErrInvalidGraph)
}
