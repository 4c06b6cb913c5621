package arf

import (
	"fmt"
	"math"
)

// TensorEntry records where one tensor lives in feature memory.
type TensorEntry struct {
	Name   string   `json:"name"`
	Offset uint64   `json:"offset"`
	Shape  []uint32 `json:"shape"`
}

// Elements is the product of the entry's shape.
func (e TensorEntry) Elements() uint64 {
	n := uint64(1)
	for _, d := range e.Shape {
		n *= uint64(d)
	}
	return n
}

// EncodeTensorIndex serialises entries as
//
//	u32 count
//	per entry: u16 name length, name, u64 offset, u32 rank, rank x u32 dims
//
// all little-endian.
func EncodeTensorIndex(entries []TensorEntry) ([]byte, error) {
	out := le.AppendUint32(nil, uint32(len(entries)))
	for _, e := range entries {
		if len(e.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("arf: tensor name of %d bytes is too long", len(e.Name))
		}
		out = le.AppendUint16(out, uint16(len(e.Name)))
		out = append(out, e.Name...)
		out = le.AppendUint64(out, e.Offset)
		out = le.AppendUint32(out, uint32(len(e.Shape)))
		for _, d := range e.Shape {
			out = le.AppendUint32(out, d)
		}
	}
	return out, nil
}

// DecodeTensorIndex is the inverse of EncodeTensorIndex.
func DecodeTensorIndex(b []byte) ([]TensorEntry, error) {
	r := indexReader{b: b}
	count := r.u32()
	if r.err != nil {
		return nil, r.err
	}
	// Each entry takes at least 14 bytes.
	if uint64(count)*14 > uint64(len(b)) {
		return nil, fmt.Errorf("%w: tensor index claims %d entries", ErrCorruptFile, count)
	}
	entries := make([]TensorEntry, 0, count)
	for range count {
		var e TensorEntry
		e.Name = string(r.bytes(int(r.u16())))
		e.Offset = r.u64()
		rank := r.u32()
		if r.err == nil && uint64(rank)*4 > uint64(len(r.b)-r.pos) {
			return nil, fmt.Errorf("%w: tensor %q rank %d", ErrCorruptFile, e.Name, rank)
		}
		e.Shape = make([]uint32, rank)
		for i := range e.Shape {
			e.Shape[i] = r.u32()
		}
		if r.err != nil {
			return nil, r.err
		}
		entries = append(entries, e)
	}
	if r.pos != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes in tensor index", ErrCorruptFile, len(b)-r.pos)
	}
	return entries, nil
}

type indexReader struct {
	b   []byte
	pos int
	err error
}

func (r *indexReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.b) {
		r.err = fmt.Errorf("%w: tensor index truncated at byte %d", ErrCorruptFile, r.pos)
		return nil
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *indexReader) u16() uint16 {
	if b := r.bytes(2); b != nil {
		return le.Uint16(b)
	}
	return 0
}

func (r *indexReader) u32() uint32 {
	if b := r.bytes(4); b != nil {
		return le.Uint32(b)
	}
	return 0
}

func (r *indexReader) u64() uint64 {
	if b := r.bytes(8); b != nil {
		return le.Uint64(b)
	}
	return 0
}
