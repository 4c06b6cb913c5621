package asm

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/arbor/internal/isa"
)

// Disassemble decodes the instruction region of im up to and including the
// closing reset, resolving configuration payloads.
func Disassemble(im *Image) ([]isa.Instruction, error) {
	p := im.params
	d := disassembler{p: p, data: im.data}
	limit := p.InstrWords * isa.WordBytes

	var prog []isa.Instruction
	for pos := 0; pos < limit; {
		op := isa.Opcode(im.data[pos])
		n, ok := op.OperandBytes(p)
		if !ok {
			return nil, fmt.Errorf("byte %d: %s cannot be disassembled", pos, op)
		}
		if pos+1+n > limit {
			return nil, fmt.Errorf("byte %d: %s operands run past the instruction region", pos, op)
		}
		in, err := d.decode(op, im.data[pos+1:pos+1+n])
		if err != nil {
			return nil, fmt.Errorf("byte %d: %w", pos, err)
		}
		prog = append(prog, in)
		if op == isa.OpReset {
			return prog, nil
		}
		pos += 1 + n
	}
	return nil, fmt.Errorf("instruction region has no closing reset")
}

type disassembler struct {
	p    isa.Params
	data []byte
}

func (d disassembler) decode(op isa.Opcode, args []byte) (isa.Instruction, error) {
	switch op {
	case isa.OpReset:
		return isa.Reset{}, nil
	case isa.OpDebug:
		return isa.Debug{}, nil
	case isa.OpRun:
		return isa.Run{Length: int(args[0]), Pace: int(args[1])}, nil
	case isa.OpLoadFeatures, isa.OpStoreFeatures:
		port := int(args[0])
		count := int(binary.LittleEndian.Uint16(args[1:3]))
		addr := getUint(args[3:])
		if op == isa.OpLoadFeatures {
			return isa.LoadFeatures{Port: port, Count: count, Addr: addr}, nil
		}
		return isa.StoreFeatures{Port: port, Count: count, Addr: addr}, nil
	case isa.OpConfigureStates:
		payload, err := d.payload(getUint(args), d.p.NumNodes)
		if err != nil {
			return nil, err
		}
		return isa.ConfigureStates{States: payload}, nil
	case isa.OpConfigureCollectors:
		payload, err := d.payload(getUint(args), d.p.NumPorts)
		if err != nil {
			return nil, err
		}
		return isa.ConfigureCollectors{Nodes: payload}, nil
	case isa.OpConfigureWeights:
		pad := d.p.NumAdders % isa.WordBytes
		payload, err := d.payload(getUint(args), pad+d.p.NumMults)
		if err != nil {
			return nil, err
		}
		weights := make([]int, d.p.NumMults)
		for i, u := range payload[pad:] {
			if weights[i], err = isa.ToSigned(int(u), d.p.InputWidth); err != nil {
				return nil, err
			}
		}
		return isa.ConfigureWeights{Weights: weights}, nil
	}
	return nil, fmt.Errorf("%s cannot be disassembled", op)
}

// payload reads n bytes at word address addr of the configuration region.
func (d disassembler) payload(addr, n int) ([]byte, error) {
	start := addr * isa.WordBytes
	lo := d.p.InstrWords * isa.WordBytes
	if start < lo || start+n > len(d.data) {
		return nil, fmt.Errorf("payload at word %d (%d bytes) is outside the configuration region", addr, n)
	}
	return append([]byte(nil), d.data[start:start+n]...), nil
}
