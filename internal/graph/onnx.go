package graph

import (
	"fmt"

	"github.com/samcharles93/arbor/internal/onnx"
)

// FromONNX converts a decoded ONNX model into a Graph.
func FromONNX(m *onnx.ModelProto) (*Graph, error) {
	if m == nil || m.Graph == nil {
		return nil, fmt.Errorf("onnx model has no graph")
	}
	src := m.Graph
	g := &Graph{
		Name:               src.Name,
		SparseInitializers: src.SparseInitializers,
	}

	for _, n := range src.Nodes {
		node := Node{
			Name:    n.Name,
			OpType:  n.OpType,
			Inputs:  append([]string(nil), n.Inputs...),
			Outputs: append([]string(nil), n.Outputs...),
			Attrs:   make(map[string]Attr, len(n.Attributes)),
		}
		for _, a := range n.Attributes {
			node.Attrs[a.Name] = convertAttr(a)
		}
		g.Nodes = append(g.Nodes, node)
	}

	g.Inputs = convertValues(src.Inputs)
	g.ValueInfos = convertValues(src.ValueInfo)
	g.Outputs = convertValues(src.Outputs)

	for i := range src.Initializers {
		t := &src.Initializers[i]
		data, err := t.Float32s()
		if err != nil {
			return nil, fmt.Errorf("initializer %q: %w", t.Name, err)
		}
		g.Initializers = append(g.Initializers, Initializer{Name: t.Name, Shape: t.Shape(), Data: data})
	}
	return g, nil
}

func convertValues(vs []onnx.ValueInfoProto) []Value {
	out := make([]Value, 0, len(vs))
	for i := range vs {
		out = append(out, Value{Name: vs[i].Name, Shape: vs[i].Shape()})
	}
	return out
}

func convertAttr(a onnx.AttributeProto) Attr {
	typ := a.Type
	if typ == 0 {
		// Older producers leave the type unset.
		switch {
		case len(a.Ints) > 0:
			typ = onnx.AttrTypeInts
		case len(a.Floats) > 0:
			typ = onnx.AttrTypeFloats
		case a.S != nil:
			typ = onnx.AttrTypeString
		case a.F != 0:
			typ = onnx.AttrTypeFloat
		default:
			typ = onnx.AttrTypeInt
		}
	}
	switch typ {
	case onnx.AttrTypeInts:
		return Attr{Kind: AttrInts, Ints: append([]int64(nil), a.Ints...)}
	case onnx.AttrTypeFloats:
		return Attr{Kind: AttrFloats, Floats: append([]float32(nil), a.Floats...)}
	case onnx.AttrTypeString:
		return Attr{Kind: AttrString, String: string(a.S)}
	case onnx.AttrTypeFloat:
		return Attr{Kind: AttrFloat, Float: a.F}
	default:
		return Attr{Kind: AttrInt, Int: a.I}
	}
}

// Load parses and converts the ONNX model at path.
func Load(path string) (*Graph, error) {
	m, err := onnx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return FromONNX(m)
}
