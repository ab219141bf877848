package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphConstruction_UsersMaintained(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	b := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	out := g.SetOutput(Ref{Node: a}, Ref{Node: b})

	require.Equal(t, 4, g.Len())
	require.Equal(t, []*Node{a, b}, x.Users())
	require.Equal(t, []*Node{out}, a.Users())
	require.Equal(t, []*Node{a, b}, out.Inputs())
	require.NoError(t, g.Lint())
}

func TestGraphConstruction_NestedRefsTracked(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	y := g.Input("y")
	cat := g.Call("core::cat", []Operand{List{Ref{Node: x}, Ref{Node: y}}, Int(0)}, nil)
	g.SetOutput(Ref{Node: cat})

	require.Equal(t, []*Node{cat}, x.Users())
	require.Equal(t, []*Node{cat}, y.Users())
	require.Equal(t, []*Node{x, y}, cat.Inputs())
	require.NoError(t, g.Lint())
}

func TestGraphConstruction_NamesAreUnique(t *testing.T) {
	g := NewGraph()
	g.Input("x")
	a := g.Call("core::add.Tensor", nil, nil)
	b := g.Call("core::add.Tensor", nil, nil)

	assert.Equal(t, "add", a.Name())
	assert.Equal(t, "add_1", b.Name())
}

func TestReplaceAllUsesWith_RewiresEveryConsumer(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	b := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	c := g.Call("core::add.Tensor", []Operand{Ref{Node: b}, Ref{Node: b}}, map[string]Operand{"alpha": Ref{Node: b}})
	g.SetOutput(Ref{Node: c})

	require.NoError(t, g.ReplaceAllUsesWith(b, a))

	require.Equal(t, 0, b.NumUsers())
	require.Equal(t, []*Node{c}, a.Users())
	require.Equal(t, Ref{Node: a}, c.Args()[0])
	require.Equal(t, Ref{Node: a}, c.Args()[1])
	require.Equal(t, Ref{Node: a}, c.Kwargs()["alpha"])

	require.NoError(t, g.Erase(b))
	require.NoError(t, g.Lint())
}

func TestReplaceAllUsesWith_RefusesOutputNode(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	out := g.SetOutput(Ref{Node: a})

	err := g.ReplaceAllUsesWith(out, a)
	require.ErrorIs(t, err, ErrInvalidGraph)
}

func TestReplaceAllUsesWith_RefusesForwardReference(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	b := g.Call("core::relu", []Operand{Ref{Node: a}}, nil)
	c := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	g.SetOutput(Ref{Node: b}, Ref{Node: c})

	// a's consumer b precedes c; rewiring a into c would make b reference
	// forward.
	err := g.ReplaceAllUsesWith(a, c)
	require.ErrorIs(t, err, ErrInvalidGraph)
}

func TestErase_RefusesLiveOrOutputNodes(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	out := g.SetOutput(Ref{Node: a})

	require.ErrorIs(t, g.Erase(a), ErrInvalidGraph)   // still consumed by out
	require.ErrorIs(t, g.Erase(out), ErrInvalidGraph) // the output node
	require.ErrorIs(t, g.Erase(x), ErrInvalidGraph)   // still consumed by a
}

func TestErase_DetachesFromProducers(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	b := g.Call("core::relu", []Operand{Ref{Node: x}}, nil)
	g.SetOutput(Ref{Node: a})

	require.NoError(t, g.Erase(b))
	require.True(t, b.Erased())
	require.Equal(t, []*Node{a}, x.Users())
	require.Equal(t, 3, g.Len())
	require.NoError(t, g.Lint())

	// Positions must be compacted.
	for i, n := range g.Nodes() {
		require.Equal(t, i, n.pos, "node %s", n.Name())
	}
}

func TestBuilders_PanicOnMisuse(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	g.SetOutput(Ref{Node: x})

	assert.Panics(t, func() { g.Input("y") }, "graph already terminated")
	assert.Panics(t, func() { g.SetOutput() }, "second output")

	other := NewGraph()
	assert.Panics(t, func() { other.Call("core::relu", []Operand{Ref{Node: x}}, nil) }, "foreign reference")
}

func TestFingerprint_IgnoresNamesAndKwargOrder(t *testing.T) {
	build := func(xName, addName string, kw map[string]Operand) *Graph {
		g := NewGraph()
		x := g.Input(xName)
		a := g.NamedCall(addName, "core::add.Tensor", []Operand{Ref{Node: x}, Int(1)}, kw)
		g.SetOutput(Ref{Node: a})
		return g
	}

	g1 := build("x", "a", map[string]Operand{"alpha": Int(1), "beta": Int(2)})
	g2 := build("in0", "sum", map[string]Operand{"beta": Int(2), "alpha": Int(1)})

	f1, err := g1.Fingerprint()
	require.NoError(t, err)
	f2, err := g2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
}

func TestFingerprint_SensitiveToStructure(t *testing.T) {
	build := func(c Int) *Graph {
		g := NewGraph()
		x := g.Input("x")
		a := g.Call("core::add.Tensor", []Operand{Ref{Node: x}, c}, nil)
		g.SetOutput(Ref{Node: a})
		return g
	}

	f1, err := build(1).Fingerprint()
	require.NoError(t, err)
	f2, err := build(2).Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}

func TestFingerprint_OpaqueOperandUnhashable(t *testing.T) {
	g := NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []Operand{Ref{Node: x}, Opaque{Value: struct{ z int }{}}}, nil)
	g.SetOutput(Ref{Node: a})

	_, err := g.Fingerprint()
	require.ErrorIs(t, err, ErrUnhashable)
}
