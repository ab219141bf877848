package graphio

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"weft/internal/ir"
)

// Encode serializes a graph to its YAML document form.
//
// The output is deterministic: nodes appear in program order and kwargs and
// map operands are emitted in sorted key order. Decode(Encode(g)) yields a
// graph with the same structural fingerprint.
//
// Opaque operands have no document form and produce an error.
func Encode(g *ir.Graph) ([]byte, error) {
	out := g.Output()
	if out == nil {
		return nil, docErrf("graph has no output node")
	}

	nodesSeq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, n := range g.Nodes() {
		if n.Kind() == ir.KindOutput {
			continue
		}
		nd, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		nodesSeq.Content = append(nodesSeq.Content, nd)
	}

	outputSeq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, op := range g.OutputOperands() {
		enc, err := encodeOperand(op)
		if err != nil {
			return nil, docErrf("output: %v", err)
		}
		outputSeq.Content = append(outputSeq.Content, enc)
	}

	doc := &yaml.Node{Kind: yaml.MappingNode}
	doc.Content = append(doc.Content, scalar("nodes"), nodesSeq, scalar("output"), outputSeq)
	return yaml.Marshal(doc)
}

func encodeNode(n *ir.Node) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	put := func(k string, v *yaml.Node) {
		m.Content = append(m.Content, scalar(k), v)
	}
	put("name", scalar(n.Name()))
	put("kind", scalar(n.Kind().String()))

	switch n.Kind() {
	case ir.KindInput:
		// Name and kind only.
	case ir.KindConstant:
		args := n.Args()
		if len(args) != 1 {
			return nil, docErrf("constant %q holds %d values, want 1", n.Name(), len(args))
		}
		v, err := encodeOperand(args[0])
		if err != nil {
			return nil, docErrf("node %q: value: %v", n.Name(), err)
		}
		put("value", v)
	case ir.KindCall, ir.KindOpaque:
		if n.Kind() == ir.KindCall {
			put("target", scalar(n.Target()))
		}
		if args := n.Args(); len(args) > 0 {
			seq := &yaml.Node{Kind: yaml.SequenceNode}
			for _, a := range args {
				enc, err := encodeOperand(a)
				if err != nil {
					return nil, docErrf("node %q: %v", n.Name(), err)
				}
				seq.Content = append(seq.Content, enc)
			}
			put("args", seq)
		}
		if kwargs := n.Kwargs(); len(kwargs) > 0 {
			keys := make([]string, 0, len(kwargs))
			for k := range kwargs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			km := &yaml.Node{Kind: yaml.MappingNode}
			for _, k := range keys {
				enc, err := encodeOperand(kwargs[k])
				if err != nil {
					return nil, docErrf("node %q: kwargs[%s]: %v", n.Name(), k, err)
				}
				km.Content = append(km.Content, scalar(k), enc)
			}
			put("kwargs", km)
		}
	default:
		return nil, docErrf("node %q: kind %q has no document form", n.Name(), n.Kind())
	}
	return m, nil
}

func encodeOperand(op ir.Operand) (*yaml.Node, error) {
	switch v := op.(type) {
	case ir.Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case ir.Ref:
		return oneKey("node", scalar(v.Node.Name())), nil
	case ir.Int:
		return oneKey("int", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(v), 10)}), nil
	case ir.Float:
		return oneKey("float", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(float64(v), 'g', -1, 64)}), nil
	case ir.Bool:
		return oneKey("bool", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(v))}), nil
	case ir.Str:
		return oneKey("str", scalar(string(v))), nil
	case ir.DType:
		return oneKey("dtype", scalar(string(v))), nil
	case ir.Device:
		return oneKey("device", scalar(string(v))), nil
	case ir.Layout:
		return oneKey("layout", scalar(string(v))), nil
	case ir.MemFormat:
		return oneKey("memformat", scalar(string(v))), nil
	case ir.List:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range v {
			enc, err := encodeOperand(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, enc)
		}
		return oneKey("list", seq), nil
	case ir.Map:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			enc, err := encodeOperand(v[k])
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, scalar(k), enc)
		}
		return oneKey("map", m), nil
	case ir.Opaque:
		return nil, fmt.Errorf("opaque operand %T has no document form", v.Value)
	default:
		return nil, fmt.Errorf("unsupported operand %T", op)
	}
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func oneKey(key string, val *yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar(key), val}}
}
