// Package graphio converts between YAML graph documents and the in-memory IR.
//
// The document format is deliberately explicit: every operand is a one-key
// mapping naming its shape ({node: x}, {int: 3}, {dtype: f32}, ...), so a
// document is unambiguous about whether "3" is an integer, a string, or a
// reference. Nodes are listed in program order and may only reference nodes
// that appear earlier, mirroring the IR's ordering invariant.
//
// Example:
//
//	nodes:
//	  - name: x
//	    kind: input
//	  - name: a
//	    kind: call
//	    target: core::add.Tensor
//	    args: [{node: x}, {int: 0}]
//	output: [{node: a}]
package graphio

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"weft/internal/ir"
)

// ErrDocument reports a malformed graph document.
var ErrDocument = errors.New("invalid graph document")

func docErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDocument, fmt.Sprintf(format, args...))
}

type document struct {
	Nodes  []nodeDoc   `yaml:"nodes"`
	Output []yaml.Node `yaml:"output"`
}

type nodeDoc struct {
	Name   string               `yaml:"name"`
	Kind   string               `yaml:"kind"`
	Target string               `yaml:"target,omitempty"`
	// Value is a yaml.Node value, not a pointer: yaml.v3 only captures the
	// raw node when decoding into a non-pointer yaml.Node field.
	Value  yaml.Node            `yaml:"value,omitempty"`
	Args   []yaml.Node          `yaml:"args,omitempty"`
	Kwargs map[string]yaml.Node `yaml:"kwargs,omitempty"`
}

// Decode parses a YAML graph document into an ir.Graph.
//
// All errors wrap ErrDocument; the graph built so far is discarded on failure.
func Decode(data []byte) (*ir.Graph, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, docErrf("yaml: %v", err)
	}
	if len(doc.Nodes) == 0 {
		return nil, docErrf("no nodes")
	}
	if len(doc.Output) == 0 {
		return nil, docErrf("no output")
	}

	g := ir.NewGraph()
	byName := make(map[string]*ir.Node, len(doc.Nodes))

	for i, nd := range doc.Nodes {
		if nd.Name == "" {
			return nil, docErrf("nodes[%d]: name is required", i)
		}
		if _, dup := byName[nd.Name]; dup {
			return nil, docErrf("nodes[%d]: duplicate node name %q", i, nd.Name)
		}

		var node *ir.Node
		switch nd.Kind {
		case "input":
			if nd.Target != "" || !nd.Value.IsZero() || len(nd.Args) > 0 || len(nd.Kwargs) > 0 {
				return nil, docErrf("node %q: input takes no target, value or operands", nd.Name)
			}
			node = g.Input(nd.Name)

		case "constant":
			if nd.Value.IsZero() {
				return nil, docErrf("node %q: constant requires a value", nd.Name)
			}
			v, err := decodeOperand(&nd.Value, byName)
			if err != nil {
				return nil, docErrf("node %q: value: %v", nd.Name, err)
			}
			if _, isRef := v.(ir.Ref); isRef {
				return nil, docErrf("node %q: constant value cannot be a node reference", nd.Name)
			}
			node = g.Constant(nd.Name, v)

		case "call":
			if nd.Target == "" {
				return nil, docErrf("node %q: call requires a target", nd.Name)
			}
			args, kwargs, err := decodeOperands(nd.Args, nd.Kwargs, byName)
			if err != nil {
				return nil, docErrf("node %q: %v", nd.Name, err)
			}
			node = g.NamedCall(nd.Name, nd.Target, args, kwargs)

		case "opaque":
			args, _, err := decodeOperands(nd.Args, nil, byName)
			if err != nil {
				return nil, docErrf("node %q: %v", nd.Name, err)
			}
			node = g.OpaqueNode(nd.Name, args...)

		case "output":
			return nil, docErrf("node %q: the output node is declared via the top-level output list", nd.Name)

		default:
			return nil, docErrf("node %q: unknown kind %q", nd.Name, nd.Kind)
		}

		byName[nd.Name] = node
	}

	results := make([]ir.Operand, 0, len(doc.Output))
	for i := range doc.Output {
		op, err := decodeOperand(&doc.Output[i], byName)
		if err != nil {
			return nil, docErrf("output[%d]: %v", i, err)
		}
		results = append(results, op)
	}
	g.SetOutput(results...)

	if err := g.Lint(); err != nil {
		return nil, docErrf("decoded graph invalid: %v", err)
	}
	return g, nil
}

func decodeOperands(args []yaml.Node, kwargs map[string]yaml.Node, byName map[string]*ir.Node) ([]ir.Operand, map[string]ir.Operand, error) {
	var outArgs []ir.Operand
	for i := range args {
		op, err := decodeOperand(&args[i], byName)
		if err != nil {
			return nil, nil, fmt.Errorf("args[%d]: %v", i, err)
		}
		outArgs = append(outArgs, op)
	}
	var outKwargs map[string]ir.Operand
	if len(kwargs) > 0 {
		outKwargs = make(map[string]ir.Operand, len(kwargs))
		for k := range kwargs {
			n := kwargs[k]
			op, err := decodeOperand(&n, byName)
			if err != nil {
				return nil, nil, fmt.Errorf("kwargs[%s]: %v", k, err)
			}
			outKwargs[k] = op
		}
	}
	return outArgs, outKwargs, nil
}

func decodeOperand(n *yaml.Node, byName map[string]*ir.Node) (ir.Operand, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return ir.Null{}, nil
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, fmt.Errorf("operand must be null or a one-key mapping naming its shape")
	}
	key := n.Content[0].Value
	val := n.Content[1]

	switch key {
	case "node":
		ref, ok := byName[val.Value]
		if !ok {
			// Unknown name also covers forward references: byName only holds
			// nodes already decoded.
			return nil, fmt.Errorf("reference to unknown node %q", val.Value)
		}
		return ir.Ref{Node: ref}, nil
	case "int":
		var v int64
		if err := val.Decode(&v); err != nil {
			return nil, fmt.Errorf("int: %v", err)
		}
		return ir.Int(v), nil
	case "float":
		var v float64
		if err := val.Decode(&v); err != nil {
			return nil, fmt.Errorf("float: %v", err)
		}
		return ir.Float(v), nil
	case "bool":
		var v bool
		if err := val.Decode(&v); err != nil {
			return nil, fmt.Errorf("bool: %v", err)
		}
		return ir.Bool(v), nil
	case "str":
		return ir.Str(val.Value), nil
	case "dtype":
		return ir.DType(val.Value), nil
	case "device":
		return ir.Device(val.Value), nil
	case "layout":
		return ir.Layout(val.Value), nil
	case "memformat":
		return ir.MemFormat(val.Value), nil
	case "list":
		if val.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("list: expected a sequence")
		}
		out := make(ir.List, 0, len(val.Content))
		for _, e := range val.Content {
			op, err := decodeOperand(e, byName)
			if err != nil {
				return nil, fmt.Errorf("list: %v", err)
			}
			out = append(out, op)
		}
		return out, nil
	case "map":
		if val.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("map: expected a mapping")
		}
		out := make(ir.Map, len(val.Content)/2)
		for i := 0; i+1 < len(val.Content); i += 2 {
			k := val.Content[i].Value
			if _, dup := out[k]; dup {
				return nil, fmt.Errorf("map: duplicate key %q", k)
			}
			op, err := decodeOperand(val.Content[i+1], byName)
			if err != nil {
				return nil, fmt.Errorf("map[%s]: %v", k, err)
			}
			out[k] = op
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown operand shape %q", key)
	}
}
