package onnx

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Float32s returns the tensor's elements as float32, whichever field holds
// them. A tensor with no payload returns nil.
func (t *TensorProto) Float32s() ([]float32, error) {
	switch {
	case len(t.FloatData) > 0:
		return append([]float32(nil), t.FloatData...), nil
	case len(t.Int32Data) > 0:
		out := make([]float32, len(t.Int32Data))
		for i, v := range t.Int32Data {
			out[i] = float32(v)
		}
		return out, nil
	case len(t.Int64Data) > 0:
		out := make([]float32, len(t.Int64Data))
		for i, v := range t.Int64Data {
			out[i] = float32(v)
		}
		return out, nil
	case len(t.DoubleData) > 0:
		out := make([]float32, len(t.DoubleData))
		for i, v := range t.DoubleData {
			out[i] = float32(v)
		}
		return out, nil
	case len(t.RawData) > 0:
		return t.rawFloat32s()
	}
	return nil, nil
}

func (t *TensorProto) rawFloat32s() ([]float32, error) {
	raw := t.RawData
	var size int
	switch t.DataType {
	case DataTypeFloat, DataTypeInt32:
		size = 4
	case DataTypeInt64, DataTypeDouble:
		size = 8
	case DataTypeInt8, DataTypeUint8:
		size = 1
	default:
		return nil, fmt.Errorf("tensor %q: unsupported raw data type %d", t.Name, t.DataType)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("tensor %q: raw data length %d is not a multiple of %d", t.Name, len(raw), size)
	}

	out := make([]float32, len(raw)/size)
	for i := range out {
		b := raw[i*size:]
		switch t.DataType {
		case DataTypeFloat:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case DataTypeInt32:
			out[i] = float32(int32(binary.LittleEndian.Uint32(b)))
		case DataTypeInt64:
			out[i] = float32(int64(binary.LittleEndian.Uint64(b)))
		case DataTypeDouble:
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		case DataTypeInt8:
			out[i] = float32(int8(b[0]))
		case DataTypeUint8:
			out[i] = float32(b[0])
		}
	}
	return out, nil
}

// Shape converts dims to ints.
func (t *TensorProto) Shape() []int {
	shape := make([]int, len(t.Dims))
	for i, d := range t.Dims {
		shape[i] = int(d)
	}
	return shape
}

// Shape returns the declared dimensions; symbolic ones come back as zero.
func (v *ValueInfoProto) Shape() []int {
	shape := make([]int, len(v.Dims))
	for i, d := range v.Dims {
		shape[i] = int(d.DimValue)
	}
	return shape
}

// FloatTensor builds a float initializer tensor.
func FloatTensor(name string, shape []int, data []float32) TensorProto {
	dims := make([]int64, len(shape))
	for i, d := range shape {
		dims[i] = int64(d)
	}
	return TensorProto{Name: name, Dims: dims, DataType: DataTypeFloat, FloatData: data}
}

// FloatValue builds a float tensor value info with a fixed shape.
func FloatValue(name string, shape []int) ValueInfoProto {
	dims := make([]Dimension, len(shape))
	for i, d := range shape {
		dims[i] = Dimension{DimValue: int64(d)}
	}
	return ValueInfoProto{Name: name, ElemType: DataTypeFloat, Dims: dims, HasShape: true}
}

// IntsAttr builds an integer-list attribute.
func IntsAttr(name string, ints ...int64) AttributeProto {
	return AttributeProto{Name: name, Type: AttrTypeInts, Ints: ints}
}

// IntAttr builds an integer attribute.
func IntAttr(name string, v int64) AttributeProto {
	return AttributeProto{Name: name, Type: AttrTypeInt, I: v}
}

// StringAttr builds a string attribute.
func StringAttr(name, s string) AttributeProto {
	return AttributeProto{Name: name, Type: AttrTypeString, S: []byte(s)}
}
