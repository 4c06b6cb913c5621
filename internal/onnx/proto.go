// Package onnx reads and writes the subset of the ONNX protobuf schema the
// compiler ingests: the model's graph with its nodes, attributes, value
// infos and initializer tensors. The structs are plain Go values decoded
// field by field with protowire, so no generated ONNX bindings are needed.
package onnx

// Field numbers follow onnx.proto3.

// ModelProto is the top-level ONNX container.
type ModelProto struct {
	IRVersion    int64
	ProducerName string
	OpsetImport  []OperatorSetID
	Graph        *GraphProto
}

type OperatorSetID struct {
	Domain  string
	Version int64
}

type GraphProto struct {
	Name         string
	Nodes        []NodeProto
	Initializers []TensorProto
	Inputs       []ValueInfoProto
	Outputs      []ValueInfoProto
	ValueInfo    []ValueInfoProto

	// SparseInitializers is only counted; their payload is never decoded.
	SparseInitializers int
}

type NodeProto struct {
	Name       string
	OpType     string
	Domain     string
	Inputs     []string
	Outputs    []string
	Attributes []AttributeProto
}

// Attribute types (AttributeProto.AttributeType).
const (
	AttrTypeFloat   int32 = 1
	AttrTypeInt     int32 = 2
	AttrTypeString  int32 = 3
	AttrTypeTensor  int32 = 4
	AttrTypeFloats  int32 = 6
	AttrTypeInts    int32 = 7
	AttrTypeStrings int32 = 8
)

type AttributeProto struct {
	Name    string
	Type    int32
	F       float32
	I       int64
	S       []byte
	Floats  []float32
	Ints    []int64
	Strings [][]byte
}

// Tensor element types (TensorProto.DataType).
const (
	DataTypeFloat  int32 = 1
	DataTypeUint8  int32 = 2
	DataTypeInt8   int32 = 3
	DataTypeInt32  int32 = 6
	DataTypeInt64  int32 = 7
	DataTypeDouble int32 = 11
)

type TensorProto struct {
	Name       string
	Dims       []int64
	DataType   int32
	FloatData  []float32
	Int32Data  []int32
	Int64Data  []int64
	DoubleData []float64
	RawData    []byte
}

// ValueInfoProto carries a tensor type. Only tensor types are decoded; an
// unknown dimension is recorded as DimParam with DimValue zero.
type ValueInfoProto struct {
	Name     string
	ElemType int32
	Dims     []Dimension
	HasShape bool
}

type Dimension struct {
	DimValue int64
	DimParam string
}
