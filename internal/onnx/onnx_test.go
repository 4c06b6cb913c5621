package onnx

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// protoBuilder hand-assembles wire bytes, independent of Encode.
type protoBuilder struct {
	buf []byte
}

func (b *protoBuilder) varint(field protowire.Number, v uint64) *protoBuilder {
	b.buf = protowire.AppendTag(b.buf, field, protowire.VarintType)
	b.buf = protowire.AppendVarint(b.buf, v)
	return b
}

func (b *protoBuilder) bytes(field protowire.Number, p []byte) *protoBuilder {
	b.buf = protowire.AppendTag(b.buf, field, protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, p)
	return b
}

func (b *protoBuilder) str(field protowire.Number, s string) *protoBuilder {
	return b.bytes(field, []byte(s))
}

func (b *protoBuilder) float(field protowire.Number, f float32) *protoBuilder {
	b.buf = protowire.AppendTag(b.buf, field, protowire.Fixed32Type)
	b.buf = protowire.AppendFixed32(b.buf, math.Float32bits(f))
	return b
}

func (b *protoBuilder) msg(field protowire.Number, sub *protoBuilder) *protoBuilder {
	return b.bytes(field, sub.buf)
}

func TestParseUnpackedFields(t *testing.T) {
	t.Parallel()

	tensor := (&protoBuilder{}).
		varint(1, 2).varint(1, 3). // unpacked dims
		varint(2, uint64(DataTypeFloat)).
		float(4, 1.5).float(4, -2).
		str(8, "w")
	attr := (&protoBuilder{}).str(1, "group").varint(3, 1).varint(20, uint64(AttrTypeInt))
	node := (&protoBuilder{}).
		str(1, "x").str(1, "w").str(2, "y").
		str(3, "conv0").str(4, "Conv").
		msg(5, attr).
		varint(99, 7) // unknown field is skipped
	dim := (&protoBuilder{}).varint(1, 28)
	shape := (&protoBuilder{}).msg(1, dim).msg(1, (&protoBuilder{}).str(2, "N"))
	tensorType := (&protoBuilder{}).varint(1, uint64(DataTypeFloat)).msg(2, shape)
	typ := (&protoBuilder{}).msg(1, tensorType)
	input := (&protoBuilder{}).str(1, "x").msg(2, typ)
	graph := (&protoBuilder{}).
		msg(1, node).str(2, "g").msg(5, tensor).msg(11, input).
		msg(15, (&protoBuilder{}).str(1, "ignored"))
	model := (&protoBuilder{}).varint(1, 8).str(2, "test").msg(7, graph)

	m, err := Parse(model.buf)
	require.NoError(t, err)
	assert.Equal(t, int64(8), m.IRVersion)
	assert.Equal(t, "test", m.ProducerName)

	g := m.Graph
	require.NotNil(t, g)
	assert.Equal(t, "g", g.Name)
	assert.Equal(t, 1, g.SparseInitializers)

	require.Len(t, g.Nodes, 1)
	n := g.Nodes[0]
	assert.Equal(t, "Conv", n.OpType)
	assert.Equal(t, []string{"x", "w"}, n.Inputs)
	require.Len(t, n.Attributes, 1)
	assert.Equal(t, int64(1), n.Attributes[0].I)

	require.Len(t, g.Initializers, 1)
	assert.Equal(t, []int{2, 3}, g.Initializers[0].Shape())
	assert.Equal(t, []float32{1.5, -2}, g.Initializers[0].FloatData)

	require.Len(t, g.Inputs, 1)
	assert.Equal(t, []int{28, 0}, g.Inputs[0].Shape())
	assert.Equal(t, "N", g.Inputs[0].Dims[1].DimParam)
}

func TestParseRejectsTruncated(t *testing.T) {
	t.Parallel()

	model := (&protoBuilder{}).msg(7, (&protoBuilder{}).str(2, "graph"))
	_, err := Parse(model.buf[:len(model.buf)-2])
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Parse(nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseRejectsWrongWireType(t *testing.T) {
	t.Parallel()

	// A graph name sent as a varint.
	model := (&protoBuilder{}).msg(7, (&protoBuilder{}).varint(2, 5))
	_, err := Parse(model.buf)
	require.ErrorIs(t, err, ErrMalformed)

	// An unknown fixed64 field is skipped.
	graph := protowire.AppendTag(nil, 40, protowire.Fixed64Type)
	graph = protowire.AppendFixed64(graph, 1)
	model = (&protoBuilder{}).msg(7, (&protoBuilder{buf: graph}).str(2, "g"))
	m, err := Parse(model.buf)
	require.NoError(t, err)
	assert.Equal(t, "g", m.Graph.Name)
}

func TestEncodePacksRepeatedFields(t *testing.T) {
	t.Parallel()

	packed := (&protoBuilder{}).
		bytes(1, protowire.AppendVarint(protowire.AppendVarint(nil, 2), 3)).
		varint(2, uint64(DataTypeFloat))
	got := (&encoder{})
	got.tensor(&TensorProto{Dims: []int64{2, 3}, DataType: DataTypeFloat})
	assert.Equal(t, packed.buf, got.buf)
}

func sampleModel() *ModelProto {
	return &ModelProto{
		IRVersion:    8,
		ProducerName: "arbor",
		OpsetImport:  []OperatorSetID{{Version: 13}},
		Graph: &GraphProto{
			Name: "conv",
			Nodes: []NodeProto{{
				Name:    "conv0",
				OpType:  "Conv",
				Inputs:  []string{"x", "w"},
				Outputs: []string{"y"},
				Attributes: []AttributeProto{
					IntsAttr("pads", 1, 1, 1, 1),
					IntsAttr("strides", 1, 1),
					StringAttr("auto_pad", "NOTSET"),
				},
			}},
			Initializers: []TensorProto{
				FloatTensor("w", []int{1, 1, 3, 3}, []float32{1, -1, 2, 0, 3, -4, 5, 6, -7}),
				{Name: "b", Dims: []int64{2}, DataType: DataTypeInt8, RawData: []byte{0xFF, 0x05}},
			},
			Inputs:    []ValueInfoProto{FloatValue("x", []int{1, 1, 5, 5})},
			Outputs:   []ValueInfoProto{FloatValue("y", []int{1, 1, 5, 5})},
			ValueInfo: []ValueInfoProto{FloatValue("t", []int{1, 1, 5, 5})},
		},
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	in := sampleModel()
	out, err := Parse(Encode(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	b, err := out.Graph.Initializers[1].Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, 5}, b)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, WriteFile(path, sampleModel()))

	m, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleModel(), m)

	empty := filepath.Join(t.TempDir(), "empty.onnx")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ParseFile(empty)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestFloat32sConversions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		t    TensorProto
		want []float32
	}{
		{"int32", TensorProto{Int32Data: []int32{-3, 4}}, []float32{-3, 4}},
		{"int64", TensorProto{Int64Data: []int64{7}}, []float32{7}},
		{"raw float", TensorProto{DataType: DataTypeFloat, RawData: binary.LittleEndian.AppendUint32(nil, math.Float32bits(2.5))}, []float32{2.5}},
		{"raw uint8", TensorProto{DataType: DataTypeUint8, RawData: []byte{200}}, []float32{200}},
		{"empty", TensorProto{DataType: DataTypeFloat}, nil},
	}
	for _, tc := range tests {
		got, err := tc.t.Float32s()
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}

	_, err := (&TensorProto{DataType: DataTypeFloat, RawData: []byte{1, 2, 3}}).Float32s()
	require.Error(t, err)
}

func TestConvChain(t *testing.T) {
	t.Parallel()

	m, err := ConvChain(ChainSpec{Size: 5, Channels: 2, Kernel: 3, Layers: 3})
	require.NoError(t, err)
	g := m.Graph
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, []string{"x", "w0"}, g.Nodes[0].Inputs)
	assert.Equal(t, []string{"h0", "w1"}, g.Nodes[1].Inputs)
	assert.Equal(t, []string{"y"}, g.Nodes[2].Outputs)
	assert.Equal(t, []int{1, 2, 3, 3}, g.Initializers[0].Shape())
	assert.Equal(t, []int{1, 1, 3, 3}, g.Initializers[1].Shape())
	assert.Len(t, g.ValueInfo, 2)
	for _, w := range g.Initializers {
		for _, v := range w.FloatData {
			assert.Contains(t, []float32{-1, 0, 1}, v)
		}
	}

	out, err := Parse(Encode(m))
	require.NoError(t, err)
	assert.Equal(t, m, out)

	_, err = ConvChain(ChainSpec{Size: 4, Channels: 1, Kernel: 2, Layers: 1})
	require.Error(t, err)
	_, err = ConvChain(ChainSpec{Size: 4, Channels: 1, Kernel: 3})
	require.Error(t, err)
}
