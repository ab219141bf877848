package ir

// Operand is the closed set of value shapes a Node may consume.
//
// The set is sealed (unexported marker method): the signature encoder and the
// graph document codec can therefore be total over it. Anything a builder cannot
// express in one of these shapes must be wrapped in Opaque, which degrades the
// consuming node to "always unique" during value numbering rather than failing
// the whole pass.
type Operand interface {
	isOperand()
}

// Null is the absent value.
type Null struct{}

// Int is a literal integer operand.
type Int int64

// Float is a literal floating-point operand.
type Float float64

// Bool is a literal boolean operand.
type Bool bool

// Str is a literal string operand.
type Str string

// Ref is a reference to another node's result.
type Ref struct {
	Node *Node
}

// List is an ordered collection of operands.
type List []Operand

// Map is a keyed collection of operands. Canonical encodings sort by key, so
// iteration order never leaks into identity.
type Map map[string]Operand

// DType is a data-type tag (e.g. "f32"). Identity is its stable string form.
type DType string

// Device is a device tag (e.g. "cpu").
type Device string

// Layout is a memory-layout tag (e.g. "strided").
type Layout string

// MemFormat is a memory-format tag (e.g. "contiguous").
type MemFormat string

// Opaque carries a value the builder could not classify into any other shape.
// It is representable in a graph but has no canonical encoding.
type Opaque struct {
	Value any
}

func (Null) isOperand()      {}
func (Int) isOperand()       {}
func (Float) isOperand()     {}
func (Bool) isOperand()      {}
func (Str) isOperand()       {}
func (Ref) isOperand()       {}
func (List) isOperand()      {}
func (Map) isOperand()       {}
func (DType) isOperand()     {}
func (Device) isOperand()    {}
func (Layout) isOperand()    {}
func (MemFormat) isOperand() {}
func (Opaque) isOperand()    {}

// walkRefs calls fn for every node reference inside op, including references
// nested in lists and maps.
func walkRefs(op Operand, fn func(*Node)) {
	switch v := op.(type) {
	case Ref:
		if v.Node != nil {
			fn(v.Node)
		}
	case List:
		for _, e := range v {
			walkRefs(e, fn)
		}
	case Map:
		for _, e := range v {
			walkRefs(e, fn)
		}
	}
}

// replaceRefs returns op with every reference to old rewritten to point at new.
// Containers are rebuilt rather than mutated so shared operand values stay inert.
func replaceRefs(op Operand, old, new *Node) Operand {
	switch v := op.(type) {
	case Ref:
		if v.Node == old {
			return Ref{Node: new}
		}
		return v
	case List:
		out := make(List, len(v))
		for i, e := range v {
			out[i] = replaceRefs(e, old, new)
		}
		return out
	case Map:
		out := make(Map, len(v))
		for k, e := range v {
			out[k] = replaceRefs(e, old, new)
		}
		return out
	default:
		return op
	}
}
