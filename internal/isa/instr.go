package isa

import (
	"fmt"

	"github.com/samcharles93/arbor/internal/errs"
)

// Instruction is one entry of an opcode-level program. Implementations are
// the types in this file.
type Instruction interface {
	Opcode() Opcode
	// Check validates operands against the accelerator parameters.
	Check(p Params) error
	String() string
	isInstruction()
}

// ConfigureStates sets every node's state: adders first, then multipliers.
type ConfigureStates struct {
	States []uint8
}

// ConfigureWeights loads one signed weight per multiplier.
type ConfigureWeights struct {
	Weights []int
}

// ConfigureCollectors selects, per port, the node whose output the port
// collects.
type ConfigureCollectors struct {
	Nodes []uint8
}

// LoadFeatures streams Count elements starting at feature address Addr into
// port buffer Port.
type LoadFeatures struct {
	Port  int
	Count int
	Addr  int
}

// StoreFeatures writes Count elements from port buffer Port back to feature
// address Addr.
type StoreFeatures struct {
	Port  int
	Count int
	Addr  int
}

// Run clocks the tree Length times, advancing the input window by Pace
// elements per output.
type Run struct {
	Length int
	Pace   int
}

// Debug dumps accelerator state.
type Debug struct{}

// Reset ends the instruction stream. The assembler appends it; it only
// appears in programs recovered by the disassembler.
type Reset struct{}

func (ConfigureStates) isInstruction()     {}
func (ConfigureWeights) isInstruction()    {}
func (ConfigureCollectors) isInstruction() {}
func (LoadFeatures) isInstruction()        {}
func (StoreFeatures) isInstruction()       {}
func (Run) isInstruction()                 {}
func (Debug) isInstruction()               {}
func (Reset) isInstruction()               {}

func (ConfigureStates) Opcode() Opcode     { return OpConfigureStates }
func (ConfigureWeights) Opcode() Opcode    { return OpConfigureWeights }
func (ConfigureCollectors) Opcode() Opcode { return OpConfigureCollectors }
func (LoadFeatures) Opcode() Opcode        { return OpLoadFeatures }
func (StoreFeatures) Opcode() Opcode       { return OpStoreFeatures }
func (Run) Opcode() Opcode                 { return OpRun }
func (Debug) Opcode() Opcode               { return OpDebug }
func (Reset) Opcode() Opcode               { return OpReset }

func (c ConfigureStates) Check(p Params) error {
	if len(c.States) != p.NumNodes {
		return errs.ParamMismatch("configure_states", "%d states for %d nodes", len(c.States), p.NumNodes)
	}
	tree := p.Tree()
	for id, s := range c.States {
		if tree.IsAdder(id) && !AdderState(s).Valid() {
			return errs.Capacity("configure_states", "adder %d has invalid state %d", id, s)
		}
		if tree.IsMult(id) && !Inject(s).Valid() {
			return errs.Capacity("configure_states", "multiplier %d has invalid inject flag %d", id, s)
		}
	}
	return nil
}

func (c ConfigureWeights) Check(p Params) error {
	if len(c.Weights) != p.NumMults {
		return errs.ParamMismatch("configure_weights", "%d weights for %d multipliers", len(c.Weights), p.NumMults)
	}
	for _, w := range c.Weights {
		if _, err := ToUnsigned(w, p.InputWidth); err != nil {
			return err
		}
	}
	return nil
}

func (c ConfigureCollectors) Check(p Params) error {
	if len(c.Nodes) != p.NumPorts {
		return errs.ParamMismatch("configure_collectors", "%d selectors for %d ports", len(c.Nodes), p.NumPorts)
	}
	for port, n := range c.Nodes {
		if int(n) >= p.NumNodes {
			return errs.Capacity("configure_collectors", "port %d collects from node %d of %d", port, n, p.NumNodes)
		}
	}
	return nil
}

func (l LoadFeatures) Check(p Params) error {
	return checkTransfer("load_features", l.Port, l.Count, l.Addr, p)
}

func (s StoreFeatures) Check(p Params) error {
	return checkTransfer("store_features", s.Port, s.Count, s.Addr, p)
}

func checkTransfer(name string, port, count, addr int, p Params) error {
	switch {
	case port < 0 || port >= p.NumPorts:
		return errs.Capacity(name, "port %d outside [0, %d)", port, p.NumPorts)
	case count <= 0 || count > 0xFFFF:
		return errs.Capacity(name, "count %d outside [1, %d]", count, 0xFFFF)
	case addr < 0 || addr+count > p.MaxAddress():
		return errs.Capacity(name, "address range [%d, %d) exceeds %d-byte addressing", addr, addr+count, p.AddressBytes)
	}
	return nil
}

func (r Run) Check(Params) error {
	if r.Length <= 0 || r.Length > 0xFF {
		return errs.Capacity("run", "length %d outside [1, 255]", r.Length)
	}
	if r.Pace <= 0 || r.Pace > 0xFF {
		return errs.Capacity("run", "pace %d outside [1, 255]", r.Pace)
	}
	return nil
}

func (Debug) Check(Params) error { return nil }
func (Reset) Check(Params) error { return nil }

func (c ConfigureStates) String() string     { return fmt.Sprintf("configure_states %v", c.States) }
func (c ConfigureWeights) String() string    { return fmt.Sprintf("configure_weights %v", c.Weights) }
func (c ConfigureCollectors) String() string { return fmt.Sprintf("configure_collectors %v", c.Nodes) }
func (l LoadFeatures) String() string {
	return fmt.Sprintf("load_features port=%d count=%d addr=%#06x", l.Port, l.Count, l.Addr)
}
func (s StoreFeatures) String() string {
	return fmt.Sprintf("store_features port=%d count=%d addr=%#06x", s.Port, s.Count, s.Addr)
}
func (r Run) String() string { return fmt.Sprintf("run length=%d pace=%d", r.Length, r.Pace) }
func (Debug) String() string { return "debug" }
func (Reset) String() string { return "reset" }
