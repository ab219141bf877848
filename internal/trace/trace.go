package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// RewriteTrace is the canonical, deterministic record of what rewrite passes
// did to one graph.
//
// Invariants:
//   - Must capture the pre-rewrite GraphHash and an ordered list of events.
//   - Must contain logical rewrite decisions, not runtime-dependent details.
//   - Must not include timestamps, pointers, or any runtime-dependent values.
//
// Note: GraphHash is a string to avoid coupling this package to a specific
// graph implementation. It should be populated with the graph's deterministic
// structural fingerprint.
//
// Canonical representation:
//   - Events are sorted via Canonicalize() using a fully-specified ordering.
//   - JSON serialization uses a custom marshaler to fix field order and omit
//     absent optional fields.
//
// The trace is observational only and must never affect rewriting; consumers
// should treat a RewriteTrace as immutable once Canonicalize() is called.
// Byte-for-byte stability of the canonical encoding is required.
type RewriteTrace struct {
	GraphHash string
	Events    []RewriteEvent
}

// RewriteEventKind is the stable, canonical discriminator for RewriteEvent.
//
// The string values are part of the trace's canonical bytes; do not rename.
type RewriteEventKind string

const (
	// EventNodeMerged records a duplicate node being rewired into its
	// canonical representative and erased.
	EventNodeMerged RewriteEventKind = "NodeMerged"

	// EventNodeEliminated records a node removed by dead-code elimination.
	EventNodeEliminated RewriteEventKind = "NodeEliminated"
)

// RewriteEvent is a single logical rewrite decision.
//
// Determinism constraints:
//   - No timestamps.
//   - No error strings / stack traces.
//   - No fields derived from pointer identity or map iteration.
type RewriteEvent struct {
	Kind RewriteEventKind

	// Pass names the pass that made the decision (e.g. "cse", "dce").
	Pass string

	// Node identifies the node the event refers to. Always required.
	Node string

	// Into records the canonical node a duplicate was merged into.
	// Required for NodeMerged, absent otherwise.
	Into string
}

// Validate checks basic invariants and returns a descriptive error.
func (t *RewriteTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.GraphHash == "" {
		return errors.New("graphHash is required")
	}
	for i := range t.Events {
		e := t.Events[i]
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.Node == "" {
			return fmt.Errorf("events[%d].node is required", i)
		}
		switch e.Kind {
		case EventNodeMerged:
			if e.Into == "" {
				return fmt.Errorf("events[%d].into is required for kind %q", i, e.Kind)
			}
		case EventNodeEliminated:
			if e.Into != "" {
				return fmt.Errorf("events[%d].into must be empty for kind %q", i, e.Kind)
			}
		}
	}
	return nil
}

// Canonicalize sorts the trace into its canonical form.
//
// Ordering guarantee: the order is independent of the sequence in which events
// were recorded. This implementation produces a total order over events with
// (Pass, Kind, Node, Into) as the key.
func (t *RewriteTrace) Canonicalize() {
	sort.SliceStable(t.Events, func(i, j int) bool {
		a, b := t.Events[i], t.Events[j]
		if a.Pass != b.Pass {
			return a.Pass < b.Pass
		}
		if a.Kind != b.Kind {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		return a.Into < b.Into
	})
}

func kindOrder(k RewriteEventKind) int {
	switch k {
	case EventNodeMerged:
		return 10
	case EventNodeEliminated:
		return 20
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
// It canonicalizes a copy of the trace to avoid mutating the caller's slices.
func (t RewriteTrace) CanonicalJSON() ([]byte, error) {
	copyTrace := RewriteTrace{GraphHash: t.GraphHash}
	copyTrace.Events = make([]RewriteEvent, len(t.Events))
	copy(copyTrace.Events, t.Events)
	copyTrace.Canonicalize()
	if err := copyTrace.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&copyTrace)
}

// Hash returns the deterministic trace hash (sha256 hex) of the canonical JSON bytes.
func (t RewriteTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON ensures canonical field ordering.
//
// Canonicalization is the responsibility of CanonicalJSON(); MarshalJSON does
// not sort to avoid surprising mutation, but its field ordering is
// deterministic regardless.
func (t RewriteTrace) MarshalJSON() ([]byte, error) {
	if t.GraphHash == "" {
		return nil, errors.New("graphHash is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"graphHash\":")
	gh, _ := json.Marshal(t.GraphHash)
	buf.Write(gh)
	buf.WriteByte(',')

	buf.WriteString("\"events\":[")
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON ensures canonical field ordering and omission of empty optional fields.
func (e RewriteEvent) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	if e.Node == "" {
		return nil, errors.New("node is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"kind\":")
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	if e.Pass != "" {
		buf.WriteString(",\"pass\":")
		pb, _ := json.Marshal(e.Pass)
		buf.Write(pb)
	}

	buf.WriteString(",\"node\":")
	nb, _ := json.Marshal(e.Node)
	buf.Write(nb)

	if e.Into != "" {
		buf.WriteString(",\"into\":")
		ib, _ := json.Marshal(e.Into)
		buf.Write(ib)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
