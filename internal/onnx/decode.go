package onnx

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for bytes that are not a valid protobuf message.
var ErrMalformed = errors.New("malformed onnx protobuf")

// Parse decodes an ONNX model. The result does not alias data.
func Parse(data []byte) (*ModelProto, error) {
	m := &ModelProto{}
	if err := decodeModel(data, m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if m.Graph == nil {
		return nil, fmt.Errorf("parse model: %w: no graph", ErrMalformed)
	}
	return m, nil
}

// field is one decoded tag and its still-encoded value.
type field struct {
	num protowire.Number
	typ protowire.Type
	val []byte
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}

// walk calls fn for every field of the message in b. Unknown fields are
// simply not handled by fn.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return malformed(m)
		}
		if err := fn(field{num: num, typ: typ, val: b[:m]}); err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		b = b[m:]
	}
	return nil
}

func (f field) want(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: wire type %d, want %d", ErrMalformed, f.typ, typ)
	}
	return nil
}

func (f field) varint() (uint64, error) {
	if err := f.want(protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(f.val)
	if n < 0 {
		return 0, malformed(n)
	}
	return v, nil
}

func (f field) int64() (int64, error) {
	v, err := f.varint()
	return int64(v), err
}

func (f field) int32() (int32, error) {
	v, err := f.varint()
	return int32(v), err
}

// view returns the payload of a length-delimited field, aliasing the input.
func (f field) view() ([]byte, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return nil, err
	}
	v, n := protowire.ConsumeBytes(f.val)
	if n < 0 {
		return nil, malformed(n)
	}
	return v, nil
}

// bytes copies the payload so decoded values never alias the input, which
// may be a memory mapping.
func (f field) bytes() ([]byte, error) {
	v, err := f.view()
	if err != nil {
		return nil, err
	}
	return append([]byte{}, v...), nil
}

func (f field) str() (string, error) {
	v, err := f.view()
	return string(v), err
}

func (f field) float32() (float32, error) {
	if err := f.want(protowire.Fixed32Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed32(f.val)
	if n < 0 {
		return 0, malformed(n)
	}
	return math.Float32frombits(v), nil
}

// varints handles both the packed and unpacked encodings of a repeated
// varint field.
func (f field) varints(add func(uint64)) error {
	if f.typ == protowire.VarintType {
		v, err := f.varint()
		if err == nil {
			add(v)
		}
		return err
	}
	b, err := f.view()
	if err != nil {
		return err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return malformed(n)
		}
		add(v)
		b = b[n:]
	}
	return nil
}

func (f field) float32s(dst *[]float32) error {
	if f.typ == protowire.Fixed32Type {
		v, err := f.float32()
		if err == nil {
			*dst = append(*dst, v)
		}
		return err
	}
	b, err := f.view()
	if err != nil {
		return err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return fmt.Errorf("packed float32: %w", malformed(n))
		}
		*dst = append(*dst, math.Float32frombits(v))
		b = b[n:]
	}
	return nil
}

func (f field) float64s(dst *[]float64) error {
	if f.typ == protowire.Fixed64Type {
		v, n := protowire.ConsumeFixed64(f.val)
		if n < 0 {
			return malformed(n)
		}
		*dst = append(*dst, math.Float64frombits(v))
		return nil
	}
	b, err := f.view()
	if err != nil {
		return err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return fmt.Errorf("packed float64: %w", malformed(n))
		}
		*dst = append(*dst, math.Float64frombits(v))
		b = b[n:]
	}
	return nil
}

// sub decodes an embedded message with dec.
func sub[T any](f field, dst *T, dec func([]byte, *T) error) error {
	b, err := f.view()
	if err != nil {
		return err
	}
	return dec(b, dst)
}

func decodeModel(b []byte, m *ModelProto) (err error) {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.IRVersion, err = f.int64()
		case 2:
			m.ProducerName, err = f.str()
		case 7:
			m.Graph = &GraphProto{}
			err = sub(f, m.Graph, decodeGraph)
		case 8:
			var op OperatorSetID
			if err = sub(f, &op, decodeOpset); err == nil {
				m.OpsetImport = append(m.OpsetImport, op)
			}
		}
		return err
	})
}

func decodeOpset(b []byte, m *OperatorSetID) (err error) {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Domain, err = f.str()
		case 2:
			m.Version, err = f.int64()
		}
		return err
	})
}

func decodeGraph(b []byte, m *GraphProto) (err error) {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			var n NodeProto
			if err = sub(f, &n, decodeNode); err == nil {
				m.Nodes = append(m.Nodes, n)
			}
		case 2:
			m.Name, err = f.str()
		case 5:
			var t TensorProto
			if err = sub(f, &t, decodeTensor); err == nil {
				m.Initializers = append(m.Initializers, t)
			}
		case 11, 12, 13:
			var vi ValueInfoProto
			if err = sub(f, &vi, decodeValueInfo); err != nil {
				return err
			}
			switch f.num {
			case 11:
				m.Inputs = append(m.Inputs, vi)
			case 12:
				m.Outputs = append(m.Outputs, vi)
			default:
				m.ValueInfo = append(m.ValueInfo, vi)
			}
		case 15:
			m.SparseInitializers++
		}
		return err
	})
}

func decodeNode(b []byte, m *NodeProto) (err error) {
	return walk(b, func(f field) error {
		var s string
		switch f.num {
		case 1:
			if s, err = f.str(); err == nil {
				m.Inputs = append(m.Inputs, s)
			}
		case 2:
			if s, err = f.str(); err == nil {
				m.Outputs = append(m.Outputs, s)
			}
		case 3:
			m.Name, err = f.str()
		case 4:
			m.OpType, err = f.str()
		case 5:
			var a AttributeProto
			if err = sub(f, &a, decodeAttribute); err == nil {
				m.Attributes = append(m.Attributes, a)
			}
		case 7:
			m.Domain, err = f.str()
		}
		return err
	})
}

func decodeAttribute(b []byte, m *AttributeProto) (err error) {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Name, err = f.str()
		case 2:
			m.F, err = f.float32()
		case 3:
			m.I, err = f.int64()
		case 4:
			m.S, err = f.bytes()
		case 6:
			err = f.float32s(&m.Floats)
		case 7:
			err = f.varints(func(v uint64) { m.Ints = append(m.Ints, int64(v)) })
		case 8:
			var s []byte
			if s, err = f.bytes(); err == nil {
				m.Strings = append(m.Strings, s)
			}
		case 20:
			m.Type, err = f.int32()
		}
		return err
	})
}

func decodeTensor(b []byte, m *TensorProto) (err error) {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			err = f.varints(func(v uint64) { m.Dims = append(m.Dims, int64(v)) })
		case 2:
			m.DataType, err = f.int32()
		case 4:
			err = f.float32s(&m.FloatData)
		case 5:
			err = f.varints(func(v uint64) { m.Int32Data = append(m.Int32Data, int32(v)) })
		case 7:
			err = f.varints(func(v uint64) { m.Int64Data = append(m.Int64Data, int64(v)) })
		case 8:
			m.Name, err = f.str()
		case 9:
			m.RawData, err = f.bytes()
		case 10:
			err = f.float64s(&m.DoubleData)
		}
		return err
	})
}

// decodeValueInfo flattens ValueInfoProto.type.tensor_type into m.
func decodeValueInfo(b []byte, m *ValueInfoProto) (err error) {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Name, err = f.str()
		case 2:
			err = sub(f, m, func(b []byte, m *ValueInfoProto) error {
				return walk(b, func(f field) error {
					if f.num != 1 {
						return nil
					}
					return sub(f, m, decodeTensorType)
				})
			})
		}
		return err
	})
}

func decodeTensorType(b []byte, m *ValueInfoProto) (err error) {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.ElemType, err = f.int32()
		case 2:
			m.HasShape = true
			err = sub(f, m, func(b []byte, m *ValueInfoProto) error {
				return walk(b, func(f field) error {
					if f.num != 1 {
						return nil
					}
					var d Dimension
					if err := sub(f, &d, decodeDimension); err != nil {
						return err
					}
					m.Dims = append(m.Dims, d)
					return nil
				})
			})
		}
		return err
	})
}

func decodeDimension(b []byte, m *Dimension) (err error) {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.DimValue, err = f.int64()
		case 2:
			m.DimParam, err = f.str()
		}
		return err
	})
}
