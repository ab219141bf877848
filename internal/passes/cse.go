package passes

import (
	"log/slog"

	"github.com/pkg/errors"

	"weft/internal/ir"
	"weft/internal/ops"
	"weft/internal/trace"
)

// CSE is common subexpression elimination using structural hashing (global
// value numbering).
//
// It deduplicates call nodes with identical computation structure, rewiring
// consumers of a redundant node to the previously computed result. Two nodes
// are equivalent if they invoke the same target and their operands are
// structurally equivalent; equivalence of referenced producers is compared by
// integer value number, so chains like item(select(select(x, 0, a), 0, b))
// collapse without special cases and each check is proportional to a node's
// direct operand count, not its subgraph size.
//
// Safety is decided from the operation registry's schema metadata: an
// operation is eligible only if it comes from the trusted namespace, declares
// no written (mutably aliased) arguments, and is not on the non-determinism
// denylist. Scalar primitives are always eligible. Anything unknown fails
// closed.
//
// A CSE value carries no per-graph state and may be reused across graphs;
// every Run allocates fresh caches.
type CSE struct {
	registry *ops.Registry
	logger   *slog.Logger
	sink     trace.Sink
}

// NewCSE creates the pass. logger may be nil (defaults to slog.Default());
// sink may be nil (no trace is recorded).
func NewCSE(registry *ops.Registry, logger *slog.Logger, sink trace.Sink) *CSE {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSE{registry: registry, logger: logger, sink: sink}
}

// Name returns the pass name used in reports and traces.
func (p *CSE) Name() string { return "cse" }

// cseRun holds the caches for one invocation. They are discarded when Run
// returns; a node's value number never changes within an invocation.
type cseRun struct {
	pass *CSE

	// outRefs holds the nodes the Output node directly references. They may
	// serve as canonical representatives but are never merged into another
	// node: the graph's result list addresses them by identity.
	outRefs map[*ir.Node]struct{}

	vn    map[*ir.Node]int      // node -> value number (memo)
	safe  map[string]bool       // target -> safety classification
	sigs  map[ir.Signature]int  // canonical signature -> value number
	canon map[int]*ir.Node      // value number -> canonical node
	next  int
}

// Run walks the graph once in program order, merging every node whose value
// number already has a canonical owner, then runs dead-code elimination and
// structural validation. The graph is mutated in place.
func (p *CSE) Run(g *ir.Graph) (Result, error) {
	out := g.Output()
	if out == nil {
		return Result{}, errors.New("cse: graph has no output node")
	}

	r := &cseRun{
		pass:    p,
		outRefs: map[*ir.Node]struct{}{},
		vn:      map[*ir.Node]int{},
		safe:    map[string]bool{},
		sigs:    map[ir.Signature]int{},
		canon:   map[int]*ir.Node{},
	}
	for _, n := range out.Inputs() {
		r.outRefs[n] = struct{}{}
	}

	modified := false
	merged := 0
	for _, n := range g.Nodes() {
		vn := r.valueNumber(n)
		canonical, seen := r.canon[vn]
		if !seen {
			r.canon[vn] = n
			continue
		}
		if canonical == n {
			continue
		}
		if r.isOutputRef(n) {
			// The graph's result list addresses this node by identity: it may
			// own a value number other duplicates merge into, but it is never
			// itself removed or replaced.
			continue
		}
		if err := g.ReplaceAllUsesWith(n, canonical); err != nil {
			return Result{}, errors.Wrapf(err, "cse: rewiring %q into %q", n.Name(), canonical.Name())
		}
		if err := g.Erase(n); err != nil {
			return Result{}, errors.Wrapf(err, "cse: erasing %q", n.Name())
		}
		trace.SafeRecord(p.sink, trace.RewriteEvent{
			Kind: trace.EventNodeMerged,
			Pass: p.Name(),
			Node: n.Name(),
			Into: canonical.Name(),
		})
		p.logger.Debug("merged duplicate node",
			"node", n.Name(), "into", canonical.Name(), "target", n.Target())
		modified = true
		merged++
	}

	if modified {
		removed := g.EliminateDeadCode(p.registry.Mutates)
		for _, name := range removed {
			trace.SafeRecord(p.sink, trace.RewriteEvent{
				Kind: trace.EventNodeEliminated,
				Pass: p.Name(),
				Node: name,
			})
		}
		if err := g.Lint(); err != nil {
			// A lint failure here is a bug in the rewrite logic; the pass must
			// never emit an invalid graph.
			return Result{}, errors.Wrap(err, "cse: graph failed validation after rewrite")
		}
		p.logger.Debug("cse pass complete", "merged", merged, "eliminated", len(removed))
	}

	return Result{Graph: g, Modified: modified}, nil
}

// valueNumber assigns an integer value number to a node.
//
// Two nodes with the same value number are structurally equivalent and can be
// deduplicated. Nodes that must stay unique (non-calls, unsafe targets, nodes
// with operands that have no canonical encoding) receive a fresh number that
// matches nothing else. Output-referenced nodes are numbered normally so they
// can anchor an equivalence class; the driver refuses to merge them away.
func (r *cseRun) valueNumber(n *ir.Node) int {
	if vn, ok := r.vn[n]; ok {
		return vn
	}

	var vn int
	switch {
	case n.Kind() != ir.KindCall:
		vn = r.fresh()
	case !r.isSafe(n.Target()):
		vn = r.fresh()
	default:
		sig, err := ir.EncodeSignature(n.Target(), n.Args(), n.Kwargs(), r.resolveRef)
		if err != nil {
			// Fail open toward "not deduplicated": a node with an
			// unclassifiable operand stays unique rather than aborting the
			// pass or risking an unsound merge.
			r.pass.logger.Debug("node excluded from value numbering",
				"node", n.Name(), "target", n.Target(), "reason", err)
			vn = r.fresh()
		} else if prev, ok := r.sigs[sig]; ok {
			vn = prev
		} else {
			vn = r.fresh()
			r.sigs[sig] = vn
		}
	}

	r.vn[n] = vn
	return vn
}

func (r *cseRun) resolveRef(n *ir.Node) int { return r.valueNumber(n) }

func (r *cseRun) isOutputRef(n *ir.Node) bool {
	_, ok := r.outRefs[n]
	return ok
}

func (r *cseRun) fresh() int {
	vn := r.next
	r.next++
	return vn
}

// isSafe is the cached safety classification for one target.
func (r *cseRun) isSafe(target string) bool {
	if v, ok := r.safe[target]; ok {
		return v
	}
	v := r.classify(target)
	r.safe[target] = v
	return v
}

// classify decides whether a target is eligible for deduplication.
//
// Eligible iff all of:
//   - schema-less scalar primitives: always eligible (pure by construction), or
//   - the schema exists, lives in the trusted namespace (extension namespaces
//     may mis-annotate mutation, so they fail closed), is not on the
//     non-determinism denylist, and declares no written arguments.
func (r *cseRun) classify(target string) bool {
	if ops.IsScalarPrimitive(target) {
		return true
	}
	schema, ok := r.pass.registry.Lookup(target)
	if !ok {
		return false
	}
	if ops.Namespace(target) != ops.TrustedNamespace {
		return false
	}
	if ops.Denylisted(target) {
		return false
	}
	return !schema.Mutates()
}
