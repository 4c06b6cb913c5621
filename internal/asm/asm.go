// Package asm encodes an instruction list into the accelerator's program
// image: an instruction region followed by a configuration region, each a
// fixed number of 32-bit words.
package asm

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/isa"
)

// Image is an assembled program of exactly params.ImageBytes() bytes.
type Image struct {
	params      isa.Params
	data        []byte
	instrBytes  int
	configBytes int
}

// Bytes returns the whole image, both regions zero padded.
func (im *Image) Bytes() []byte {
	return im.data
}

// Words returns the image as little-endian 32-bit words.
func (im *Image) Words() []uint32 {
	words := make([]uint32, len(im.data)/isa.WordBytes)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(im.data[i*isa.WordBytes:])
	}
	return words
}

// InstructionBytes is the used part of the instruction region, including
// the closing reset.
func (im *Image) InstructionBytes() int { return im.instrBytes }

// ConfigurationBytes is the used part of the configuration region.
func (im *Image) ConfigurationBytes() int { return im.configBytes }

func (im *Image) Params() isa.Params { return im.params }

// FromBytes wraps a previously assembled image.
func FromBytes(p isa.Params, data []byte) (*Image, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(data) != p.ImageBytes() {
		return nil, errs.ParamMismatch("image", "%d bytes, parameters describe %d", len(data), p.ImageBytes())
	}
	return &Image{params: p, data: append([]byte(nil), data...)}, nil
}

type assembler struct {
	p      isa.Params
	instr  []byte
	config []byte
}

// Assemble validates p, encodes every instruction and appends the closing
// reset. Overflowing either region is a capacity failure.
func Assemble(p isa.Params, prog []isa.Instruction) (*Image, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	a := &assembler{p: p}
	for i, in := range prog {
		if err := in.Check(p); err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, in, err)
		}
		if err := a.encode(in); err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, in, err)
		}
	}
	a.instr = append(a.instr, byte(isa.OpReset))

	instrCap := p.InstrWords * isa.WordBytes
	configCap := p.ConfigWords * isa.WordBytes
	if len(a.instr) > instrCap {
		return nil, errs.Capacity("instruction region", "%d bytes, capacity %d", len(a.instr), instrCap)
	}
	if len(a.config) > configCap {
		return nil, errs.Capacity("configuration region", "%d bytes, capacity %d", len(a.config), configCap)
	}

	data := make([]byte, p.ImageBytes())
	copy(data, a.instr)
	copy(data[instrCap:], a.config)
	return &Image{params: p, data: data, instrBytes: len(a.instr), configBytes: len(a.config)}, nil
}

func (a *assembler) encode(in isa.Instruction) error {
	switch v := in.(type) {
	case isa.ConfigureStates:
		return a.configure(v.Opcode(), v.States)
	case isa.ConfigureWeights:
		payload := make([]byte, a.weightPad(), a.weightPad()+len(v.Weights))
		for _, w := range v.Weights {
			u, err := isa.ToUnsigned(w, a.p.InputWidth)
			if err != nil {
				return err
			}
			payload = append(payload, byte(u))
		}
		return a.configure(v.Opcode(), payload)
	case isa.ConfigureCollectors:
		return a.configure(v.Opcode(), v.Nodes)
	case isa.LoadFeatures:
		a.transfer(v.Opcode(), v.Port, v.Count, v.Addr)
	case isa.StoreFeatures:
		a.transfer(v.Opcode(), v.Port, v.Count, v.Addr)
	case isa.Run:
		a.instr = append(a.instr, byte(v.Opcode()), byte(v.Length), byte(v.Pace))
	case isa.Debug:
		a.instr = append(a.instr, byte(v.Opcode()))
	case isa.Reset:
		return fmt.Errorf("reset is appended by the assembler")
	default:
		return fmt.Errorf("unsupported instruction %T", in)
	}
	return nil
}

// weightPad is the number of zero bytes before the first weight, which
// aligns the multiplier leaves to the end of a configuration line.
func (a *assembler) weightPad() int {
	return a.p.NumAdders % isa.WordBytes
}

// configure appends payload to the configuration region, padded to a whole
// line, and emits an instruction pointing at its word address.
func (a *assembler) configure(op isa.Opcode, payload []byte) error {
	addr := a.p.InstrWords + len(a.config)/isa.WordBytes
	if addr >= a.p.MaxAddress() {
		return errs.Capacity("configuration region", "word address %d is not encodable", addr)
	}
	a.config = append(a.config, payload...)
	if rem := len(a.config) % isa.WordBytes; rem != 0 {
		a.config = append(a.config, make([]byte, isa.WordBytes-rem)...)
	}
	a.instr = append(a.instr, byte(op))
	a.instr = putUint(a.instr, addr, a.p.AddressBytes)
	return nil
}

func (a *assembler) transfer(op isa.Opcode, port, count, addr int) {
	a.instr = append(a.instr, byte(op), byte(port))
	a.instr = binary.LittleEndian.AppendUint16(a.instr, uint16(count))
	a.instr = putUint(a.instr, addr, a.p.AddressBytes)
}

// putUint appends the low n bytes of v, little-endian.
func putUint(b []byte, v, n int) []byte {
	for i := range n {
		b = append(b, byte(v>>(8*i)))
	}
	return b
}

func getUint(b []byte) int {
	v := 0
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | int(b[i])
	}
	return v
}
