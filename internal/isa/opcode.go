package isa

import "fmt"

// Opcode is the first byte of every instruction.
type Opcode uint8

const (
	OpUndefined Opcode = iota
	OpReset
	OpConfigureStates
	OpConfigureWeights
	OpConfigureCollectors
	OpConfigureRelus
	OpLoadFeatures
	OpStoreFeatures
	OpRun
	OpDebug
)

var opcodeNames = [...]string{
	OpUndefined:           "undefined",
	OpReset:               "reset",
	OpConfigureStates:     "configure_states",
	OpConfigureWeights:    "configure_weights",
	OpConfigureCollectors: "configure_collectors",
	OpConfigureRelus:      "configure_relus",
	OpLoadFeatures:        "load_features",
	OpStoreFeatures:       "store_features",
	OpRun:                 "run",
	OpDebug:               "debug",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("opcode(%d)", uint8(o))
}

// OperandBytes is the number of bytes following the opcode byte. It returns
// false for opcodes that never appear in an assembled instruction stream.
func (o Opcode) OperandBytes(p Params) (int, bool) {
	switch o {
	case OpReset, OpDebug:
		return 0, true
	case OpConfigureStates, OpConfigureWeights, OpConfigureCollectors:
		return p.AddressBytes, true
	case OpLoadFeatures, OpStoreFeatures:
		// port, 16-bit count, address
		return 3 + p.AddressBytes, true
	case OpRun:
		return 2, true
	default:
		return 0, false
	}
}
