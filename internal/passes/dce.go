package passes

import (
	"log/slog"

	"github.com/pkg/errors"

	"weft/internal/ir"
	"weft/internal/ops"
	"weft/internal/trace"
)

// DCE removes nodes with no remaining consumers.
//
// Liveness is implied by reference from the Output node, not by explicit
// marking. Inputs, the Output node, opaque-kind nodes and calls whose target
// may mutate (per the registry, failing closed on unknown targets) are always
// retained.
type DCE struct {
	registry *ops.Registry
	logger   *slog.Logger
	sink     trace.Sink
}

// NewDCE creates the pass. logger may be nil (defaults to slog.Default());
// sink may be nil (no trace is recorded).
func NewDCE(registry *ops.Registry, logger *slog.Logger, sink trace.Sink) *DCE {
	if logger == nil {
		logger = slog.Default()
	}
	return &DCE{registry: registry, logger: logger, sink: sink}
}

// Name returns the pass name used in reports and traces.
func (p *DCE) Name() string { return "dce" }

// Run sweeps the graph in reverse program order and erases dead nodes.
func (p *DCE) Run(g *ir.Graph) (Result, error) {
	if g.Output() == nil {
		return Result{}, errors.New("dce: graph has no output node")
	}

	removed := g.EliminateDeadCode(p.registry.Mutates)
	for _, name := range removed {
		trace.SafeRecord(p.sink, trace.RewriteEvent{
			Kind: trace.EventNodeEliminated,
			Pass: p.Name(),
			Node: name,
		})
	}
	if len(removed) == 0 {
		return Result{Graph: g, Modified: false}, nil
	}

	if err := g.Lint(); err != nil {
		return Result{}, errors.Wrap(err, "dce: graph failed validation after sweep")
	}
	p.logger.Debug("dce pass complete", "eliminated", len(removed))
	return Result{Graph: g, Modified: true}, nil
}
