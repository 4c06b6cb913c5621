// Package isa describes the tree accelerator's instruction set: the fixed
// parameter set a program is built for, opcodes, instructions, node states
// and the two's-complement weight encoding.
package isa

import "github.com/samcharles93/arbor/internal/errs"

// WordBytes is the size of one memory word in both program regions.
const WordBytes = 4

// Params is the immutable description of the target accelerator. It is
// passed by value to code generation and the assembler.
type Params struct {
	AddressBytes int `yaml:"address_bytes" json:"address_bytes"`
	NumNodes     int `yaml:"num_nodes" json:"num_nodes"`
	NumAdders    int `yaml:"num_adders" json:"num_adders"`
	NumMults     int `yaml:"num_mults" json:"num_mults"`
	InputWidth   int `yaml:"input_width" json:"input_width"`
	NumPorts     int `yaml:"num_ports" json:"num_ports"`
	InstrWords   int `yaml:"instr_words" json:"instr_words"`
	ConfigWords  int `yaml:"config_words" json:"config_words"`
}

// Reference returns the parameters of the only accelerator build the
// assembler supports: a depth-6 tree with 16 ports and 8-bit inputs.
func Reference() Params {
	return Params{
		AddressBytes: 3,
		NumNodes:     63,
		NumAdders:    31,
		NumMults:     32,
		InputWidth:   8,
		NumPorts:     16,
		InstrWords:   128,
		ConfigWords:  128,
	}
}

// Validate checks p against the supported build. Any difference is an
// assembly parameter mismatch.
func (p Params) Validate() error {
	ref := Reference()
	switch {
	case p.AddressBytes != ref.AddressBytes:
		return errs.ParamMismatch("address_bytes", "got %d, only %d-byte addresses are supported", p.AddressBytes, ref.AddressBytes)
	case p.NumNodes != ref.NumNodes:
		return errs.ParamMismatch("num_nodes", "got %d, only trees of %d nodes are supported", p.NumNodes, ref.NumNodes)
	case p.NumAdders+p.NumMults != p.NumNodes:
		return errs.ParamMismatch("num_adders", "%d adders + %d multipliers != %d nodes", p.NumAdders, p.NumMults, p.NumNodes)
	case p.NumMults != p.NumAdders+1:
		return errs.ParamMismatch("num_mults", "%d multipliers cannot be the leaves of %d adders", p.NumMults, p.NumAdders)
	case p.InputWidth != ref.InputWidth:
		return errs.ParamMismatch("input_width", "got %d, only %d-bit inputs are supported", p.InputWidth, ref.InputWidth)
	case p.NumPorts != ref.NumPorts:
		return errs.ParamMismatch("num_ports", "got %d, only %d ports are supported", p.NumPorts, ref.NumPorts)
	case p.InstrWords <= 0:
		return errs.ParamMismatch("instr_words", "capacity must be positive, got %d", p.InstrWords)
	case p.ConfigWords <= 0:
		return errs.ParamMismatch("config_words", "capacity must be positive, got %d", p.ConfigWords)
	}
	return nil
}

// ImageBytes is the fixed size of an assembled image.
func (p Params) ImageBytes() int {
	return WordBytes * (p.InstrWords + p.ConfigWords)
}

// MaxAddress is one past the largest encodable address.
func (p Params) MaxAddress() int {
	return 1 << (8 * p.AddressBytes)
}

// WeightRange is the signed interval representable at InputWidth bits.
func (p Params) WeightRange() (lo, hi int) {
	return -(1 << (p.InputWidth - 1)), 1<<(p.InputWidth-1) - 1
}
