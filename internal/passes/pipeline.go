package passes

import (
	"log/slog"

	"github.com/pkg/errors"

	"weft/internal/ir"
)

// DefaultMaxIterations bounds fixpoint iteration for pipelines that don't
// specify their own limit. Each CSE/DCE application strictly shrinks the graph
// when it modifies anything, so the bound is a safety net, not a tuning knob.
const DefaultMaxIterations = 10

// Pipeline applies an ordered list of passes to a graph, optionally repeating
// the whole sequence until no pass reports a modification.
//
// The pipeline is single-threaded and holds no per-graph state between Run
// calls.
type Pipeline struct {
	passes []Pass
	logger *slog.Logger

	// MaxIterations caps fixpoint repetition. Values < 1 mean
	// DefaultMaxIterations. With Fixpoint false, exactly one iteration runs.
	MaxIterations int

	// Fixpoint re-applies the pass sequence until an iteration changes nothing.
	Fixpoint bool
}

// PassRun records the outcome of one pass application.
type PassRun struct {
	Pass      string
	Iteration int
	Modified  bool
}

// Report summarizes a pipeline invocation.
type Report struct {
	Iterations int
	Changed    bool
	Runs       []PassRun
}

// NewPipeline creates a pipeline. logger may be nil (defaults to slog.Default()).
func NewPipeline(logger *slog.Logger, pass ...Pass) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{passes: pass, logger: logger}
}

// Run applies the pipeline to g, mutating it in place.
//
// On error the graph must be considered unusable: a pass failed its
// post-rewrite validation.
func (pl *Pipeline) Run(g *ir.Graph) (*ir.Graph, Report, error) {
	maxIter := pl.MaxIterations
	if maxIter < 1 {
		maxIter = DefaultMaxIterations
	}
	if !pl.Fixpoint {
		maxIter = 1
	}

	var report Report
	for iter := 1; iter <= maxIter; iter++ {
		report.Iterations = iter
		iterChanged := false

		for _, p := range pl.passes {
			res, err := p.Run(g)
			if err != nil {
				return nil, report, errors.Wrapf(err, "pipeline: pass %q (iteration %d)", p.Name(), iter)
			}
			g = res.Graph
			report.Runs = append(report.Runs, PassRun{Pass: p.Name(), Iteration: iter, Modified: res.Modified})
			pl.logger.Debug("pass applied", "pass", p.Name(), "iteration", iter, "modified", res.Modified)
			if res.Modified {
				iterChanged = true
				report.Changed = true
			}
		}

		if !iterChanged {
			break
		}
	}

	return g, report, nil
}
