package onnx

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Encode serializes m with the same field subset Parse understands.
// Repeated numeric fields are written packed.
func Encode(m *ModelProto) []byte {
	var e encoder
	e.varintField(1, uint64(m.IRVersion))
	e.stringField(2, m.ProducerName)
	if m.Graph != nil {
		e.message(7, func(g *encoder) { g.graph(m.Graph) })
	}
	for _, op := range m.OpsetImport {
		e.message(8, func(o *encoder) {
			o.stringField(1, op.Domain)
			o.varintField(2, uint64(op.Version))
		})
	}
	return e.buf
}

type encoder struct {
	buf []byte
}

func (e *encoder) tag(field protowire.Number, typ protowire.Type) {
	e.buf = protowire.AppendTag(e.buf, field, typ)
}

func (e *encoder) varintField(field protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.tag(field, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

func (e *encoder) bytesField(field protowire.Number, b []byte) {
	e.tag(field, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, b)
}

func (e *encoder) stringField(field protowire.Number, s string) {
	if s == "" {
		return
	}
	e.tag(field, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, s)
}

func (e *encoder) message(field protowire.Number, fn func(*encoder)) {
	var sub encoder
	fn(&sub)
	e.bytesField(field, sub.buf)
}

func (e *encoder) packedVarints(field protowire.Number, vs []int64) {
	if len(vs) == 0 {
		return
	}
	var b []byte
	for _, v := range vs {
		b = protowire.AppendVarint(b, uint64(v))
	}
	e.bytesField(field, b)
}

func (e *encoder) packedFloats(field protowire.Number, fs []float32) {
	if len(fs) == 0 {
		return
	}
	b := make([]byte, 0, 4*len(fs))
	for _, f := range fs {
		b = protowire.AppendFixed32(b, math.Float32bits(f))
	}
	e.bytesField(field, b)
}

func (e *encoder) graph(g *GraphProto) {
	for i := range g.Nodes {
		e.message(1, func(n *encoder) { n.node(&g.Nodes[i]) })
	}
	e.stringField(2, g.Name)
	for i := range g.Initializers {
		e.message(5, func(t *encoder) { t.tensor(&g.Initializers[i]) })
	}
	lists := []struct {
		field protowire.Number
		vals  []ValueInfoProto
	}{{11, g.Inputs}, {12, g.Outputs}, {13, g.ValueInfo}}
	for _, l := range lists {
		for i := range l.vals {
			e.message(l.field, func(v *encoder) { v.valueInfo(&l.vals[i]) })
		}
	}
	for range g.SparseInitializers {
		e.bytesField(15, nil)
	}
}

func (e *encoder) node(n *NodeProto) {
	for _, in := range n.Inputs {
		e.tag(1, protowire.BytesType)
		e.buf = protowire.AppendString(e.buf, in)
	}
	for _, out := range n.Outputs {
		e.tag(2, protowire.BytesType)
		e.buf = protowire.AppendString(e.buf, out)
	}
	e.stringField(3, n.Name)
	e.stringField(4, n.OpType)
	for i := range n.Attributes {
		e.message(5, func(a *encoder) { a.attribute(&n.Attributes[i]) })
	}
	e.stringField(7, n.Domain)
}

func (e *encoder) attribute(a *AttributeProto) {
	e.stringField(1, a.Name)
	if a.F != 0 {
		e.tag(2, protowire.Fixed32Type)
		e.buf = protowire.AppendFixed32(e.buf, math.Float32bits(a.F))
	}
	e.varintField(3, uint64(a.I))
	if a.S != nil {
		e.bytesField(4, a.S)
	}
	e.packedFloats(6, a.Floats)
	e.packedVarints(7, a.Ints)
	for _, s := range a.Strings {
		e.bytesField(8, s)
	}
	e.varintField(20, uint64(a.Type))
}

func (e *encoder) tensor(t *TensorProto) {
	e.packedVarints(1, t.Dims)
	e.varintField(2, uint64(t.DataType))
	e.packedFloats(4, t.FloatData)
	if len(t.Int32Data) > 0 {
		vs := make([]int64, len(t.Int32Data))
		for i, v := range t.Int32Data {
			vs[i] = int64(v)
		}
		e.packedVarints(5, vs)
	}
	e.packedVarints(7, t.Int64Data)
	e.stringField(8, t.Name)
	if t.RawData != nil {
		e.bytesField(9, t.RawData)
	}
	if len(t.DoubleData) > 0 {
		b := make([]byte, 0, 8*len(t.DoubleData))
		for _, d := range t.DoubleData {
			b = protowire.AppendFixed64(b, math.Float64bits(d))
		}
		e.bytesField(10, b)
	}
}

func (e *encoder) valueInfo(v *ValueInfoProto) {
	e.stringField(1, v.Name)
	e.message(2, func(typ *encoder) {
		typ.message(1, func(tt *encoder) {
			tt.varintField(1, uint64(v.ElemType))
			if !v.HasShape {
				return
			}
			tt.message(2, func(shape *encoder) {
				for _, d := range v.Dims {
					shape.message(1, func(dim *encoder) {
						dim.varintField(1, uint64(d.DimValue))
						dim.stringField(2, d.DimParam)
					})
				}
			})
		})
	})
}
