package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the graph's deterministic structural identity.
//
// The fingerprint covers node kinds, targets and canonically encoded operands
// in program order, with node references encoded as producer positions. Node
// names are excluded: two graphs that differ only in naming or in map
// iteration order fingerprint identically.
//
// Hash function: sha256 over the canonical bytes, hex-encoded, matching the
// identity scheme used for rewrite traces.
//
// Returns an error wrapping ErrUnhashable if the graph contains an Opaque
// operand, which has no canonical encoding.
func (g *Graph) Fingerprint() (string, error) {
	h := sha256.New()
	byPos := func(n *Node) int { return n.pos }

	for _, n := range g.nodes {
		var buf bytes.Buffer
		buf.WriteByte(byte(n.kind))
		sig, err := EncodeSignature(n.target, n.args, n.kwargs, byPos)
		if err != nil {
			return "", err
		}
		buf.WriteString(string(sig))
		writeField(h, buf.Bytes())
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum), nil
}
