package passes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weft/internal/ir"
	"weft/internal/ops"
	"weft/internal/passes"
	"weft/internal/trace"
)

func TestDCE_RemovesUnreferencedChain(t *testing.T) {
	g := ir.NewGraph()
	x := g.Input("x")
	live := g.Call("core::relu", []ir.Operand{ir.Ref{Node: x}}, nil)
	dead1 := g.NamedCall("dead1", "core::sigmoid", []ir.Operand{ir.Ref{Node: x}}, nil)
	g.NamedCall("dead2", "core::relu", []ir.Operand{ir.Ref{Node: dead1}}, nil)
	g.SetOutput(ir.Ref{Node: live})

	recorder := trace.NewRecorder()
	pass := passes.NewDCE(ops.NewRegistry(), quietLogger(), recorder)

	res, err := pass.Run(g)
	require.NoError(t, err)
	assert.True(t, res.Modified)

	assert.Equal(t, 0, countCalls(g, "core::sigmoid"))
	assert.Equal(t, 1, countCalls(g, "core::relu"))

	events := recorder.Snapshot()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, trace.EventNodeEliminated, ev.Kind)
		assert.Equal(t, "dce", ev.Pass)
	}
}

func TestDCE_RetainsPossiblyMutatingCalls(t *testing.T) {
	g := ir.NewGraph()
	x := g.Input("x")
	g.Call("core::copy_", []ir.Operand{ir.Ref{Node: x}, ir.Ref{Node: x}}, nil)
	g.Call("core::mystery", []ir.Operand{ir.Ref{Node: x}}, nil)
	live := g.Call("core::relu", []ir.Operand{ir.Ref{Node: x}}, nil)
	g.SetOutput(ir.Ref{Node: live})

	res, err := passes.NewDCE(ops.NewRegistry(), quietLogger(), nil).Run(g)
	require.NoError(t, err)

	// copy_ mutates its argument; mystery has no schema and fails closed.
	assert.False(t, res.Modified)
	assert.Equal(t, 1, countCalls(g, "core::copy_"))
	assert.Equal(t, 1, countCalls(g, "core::mystery"))
}

func TestPipeline_SingleIterationByDefault(t *testing.T) {
	g := ir.NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []ir.Operand{ir.Ref{Node: x}}, nil)
	b := g.Call("core::relu", []ir.Operand{ir.Ref{Node: x}}, nil)
	sum := g.Call("core::add.Tensor", []ir.Operand{ir.Ref{Node: a}, ir.Ref{Node: b}}, nil)
	g.SetOutput(ir.Ref{Node: sum})

	pl := passes.NewPipeline(quietLogger(), newCSE(t))
	out, report, err := pl.Run(g)
	require.NoError(t, err)

	assert.Same(t, g, out)
	assert.True(t, report.Changed)
	assert.Equal(t, 1, report.Iterations)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, "cse", report.Runs[0].Pass)
	assert.True(t, report.Runs[0].Modified)
}

func TestPipeline_FixpointStopsWhenNothingChanges(t *testing.T) {
	g := ir.NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []ir.Operand{ir.Ref{Node: x}}, nil)
	b := g.Call("core::relu", []ir.Operand{ir.Ref{Node: x}}, nil)
	sum := g.Call("core::add.Tensor", []ir.Operand{ir.Ref{Node: a}, ir.Ref{Node: b}}, nil)
	g.SetOutput(ir.Ref{Node: sum})

	registry := ops.NewRegistry()
	pl := passes.NewPipeline(quietLogger(), passes.NewCSE(registry, quietLogger(), nil), passes.NewDCE(registry, quietLogger(), nil))
	pl.Fixpoint = true

	_, report, err := pl.Run(g)
	require.NoError(t, err)

	// Iteration 1 merges the relus; iteration 2 confirms the fixpoint.
	assert.Equal(t, 2, report.Iterations)
	assert.True(t, report.Changed)
	require.Len(t, report.Runs, 4)
	assert.False(t, report.Runs[2].Modified)
	assert.False(t, report.Runs[3].Modified)
}

func TestPipeline_FixpointOnCleanGraphRunsOnce(t *testing.T) {
	g := ir.NewGraph()
	x := g.Input("x")
	a := g.Call("core::relu", []ir.Operand{ir.Ref{Node: x}}, nil)
	g.SetOutput(ir.Ref{Node: a})

	pl := passes.NewPipeline(quietLogger(), newCSE(t))
	pl.Fixpoint = true

	_, report, err := pl.Run(g)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Iterations)
	assert.False(t, report.Changed)
}
