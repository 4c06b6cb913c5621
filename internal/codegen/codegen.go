// Package codegen turns solved ops into an opcode-level program for the
// reduction tree. Feature addresses are tensor offsets plus flat indices, so
// the tensor table must be baked first.
package codegen

import (
	"fmt"
	"math"
	"slices"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/ir"
	"github.com/samcharles93/arbor/internal/isa"
	"github.com/samcharles93/arbor/internal/logger"
)

// Options tune code generation.
type Options struct {
	// Debug emits a Debug instruction after every Run.
	Debug bool
}

// Generator tracks what the accelerator is currently configured with, so
// configuration instructions are only emitted when something changes.
type Generator struct {
	params isa.Params
	tree   isa.Tree
	zero   *ir.Tensor
	opts   Options
	log    logger.Logger

	weights    []int
	states     []uint8
	collectors []uint8
	prog       []isa.Instruction
}

// New returns a generator that reads pad zeros from zero, the reserved
// all-zero tensor.
func New(p isa.Params, zero *ir.Tensor, opts Options, log logger.Logger) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if zero == nil {
		return nil, fmt.Errorf("codegen: no zero block")
	}
	return &Generator{
		params: p,
		tree:   p.Tree(),
		zero:   zero,
		opts:   opts,
		log:    logger.Stage(log, "codegen"),
	}, nil
}

// Generate is New followed by Emit of every op.
func Generate(p isa.Params, zero *ir.Tensor, ops []ir.Op, opts Options, log logger.Logger) ([]isa.Instruction, error) {
	g, err := New(p, zero, opts, log)
	if err != nil {
		return nil, err
	}
	for i, op := range ops {
		if err := g.Emit(op); err != nil {
			return nil, fmt.Errorf("codegen op %d: %w", i, err)
		}
	}
	g.log.Info("generated program", "ops", len(ops), "instructions", len(g.prog))
	return g.Program(), nil
}

// Program returns the instructions emitted so far.
func (g *Generator) Program() []isa.Instruction {
	return slices.Clone(g.prog)
}

// Emit appends the instructions for one solved op.
func (g *Generator) Emit(op ir.Op) error {
	switch o := op.(type) {
	case ir.Conv2:
		return g.conv(o)
	case ir.Add:
		return g.add(o)
	default:
		return fmt.Errorf("codegen: unknown op %T", op)
	}
}

func (g *Generator) push(in isa.Instruction) error {
	if err := in.Check(g.params); err != nil {
		return err
	}
	g.log.Debug("emit", "instr", in.String())
	g.prog = append(g.prog, in)
	return nil
}

// configure emits whichever of weights, states and collectors differ from
// the current configuration.
func (g *Generator) configure(weights []int, states, collectors []uint8) error {
	if !slices.Equal(g.weights, weights) {
		if err := g.push(isa.ConfigureWeights{Weights: weights}); err != nil {
			return err
		}
		g.weights = weights
	}
	if !slices.Equal(g.states, states) {
		if err := g.push(isa.ConfigureStates{States: states}); err != nil {
			return err
		}
		g.states = states
	}
	if !slices.Equal(g.collectors, collectors) {
		if err := g.push(isa.ConfigureCollectors{Nodes: collectors}); err != nil {
			return err
		}
		g.collectors = collectors
	}
	return nil
}

// rootCollectors has every port collect from the tree's root.
func (g *Generator) rootCollectors() []uint8 {
	nodes := make([]uint8, g.params.NumPorts)
	for i := range nodes {
		nodes[i] = isa.RootNode
	}
	return nodes
}

func (g *Generator) conv(c ir.Conv2) error {
	if err := c.Check(); err != nil {
		return err
	}
	k := c.Weights()
	if k > g.params.NumMults {
		return errs.Capacity(c.String(), "filter has %d weights, tree has %d multipliers", k, g.params.NumMults)
	}
	if 2*c.KernelRows() > g.params.NumPorts {
		return errs.Capacity(c.String(), "%d kernel rows need %d ports, tree has %d", c.KernelRows(), 2*c.KernelRows(), g.params.NumPorts)
	}
	weights := make([]int, g.params.NumMults)
	for i, v := range c.W.Values() {
		w, err := g.integral(c.String(), v)
		if err != nil {
			return err
		}
		weights[i] = w
	}
	if err := g.configure(weights, g.tree.States(isa.UpSum, k), g.rootCollectors()); err != nil {
		return err
	}

	// Each output row streams its kernel rows through the even ports and is
	// collected from port 1.
	for o := range c.Res.Rows() {
		for j := range c.KernelRows() {
			if err := g.loadPaddedRow(c, 2*j, o+j); err != nil {
				return err
			}
		}
		if err := g.run(c.OutCols(), c.KernelCols()); err != nil {
			return err
		}
		if err := g.push(isa.StoreFeatures{Port: 1, Count: c.Res.Cols(), Addr: address(c.Res, o)}); err != nil {
			return err
		}
	}
	return nil
}

// loadPaddedRow streams row r of the zero-padded input into port.
func (g *Generator) loadPaddedRow(c ir.Conv2, port, r int) error {
	x := r - c.Upper
	if x < 0 || x >= c.X.Rows() {
		return g.push(isa.LoadFeatures{Port: port, Count: c.Width(), Addr: g.zero.Offset})
	}
	if err := g.loadZeros(port, c.Left); err != nil {
		return err
	}
	if err := g.load(port, c.X, x, c.X.Cols()); err != nil {
		return err
	}
	return g.loadZeros(port, c.Right)
}

func (g *Generator) add(a ir.Add) error {
	if err := a.Check(); err != nil {
		return err
	}
	weights := make([]int, g.params.NumMults)
	weights[0], weights[1] = 1, 1
	if err := g.configure(weights, g.tree.States(isa.UpSum, 2), g.rootCollectors()); err != nil {
		return err
	}
	width := a.A.Cols()
	for r := range a.A.Rows() {
		if err := g.load(2*r, a.A, r, width); err != nil {
			return err
		}
		if err := g.load(2*r+1, a.B, r, width); err != nil {
			return err
		}
		if err := g.run(width, 1); err != nil {
			return err
		}
		if err := g.push(isa.StoreFeatures{Port: 2 * r, Count: width, Addr: address(a.C, r)}); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) load(port int, v ir.View, row, count int) error {
	if count == 0 {
		return nil
	}
	return g.push(isa.LoadFeatures{Port: port, Count: count, Addr: address(v, row)})
}

func (g *Generator) loadZeros(port, count int) error {
	if count == 0 {
		return nil
	}
	return g.push(isa.LoadFeatures{Port: port, Count: count, Addr: g.zero.Offset})
}

func (g *Generator) run(length, pace int) error {
	if err := g.push(isa.Run{Length: length, Pace: pace}); err != nil {
		return err
	}
	if g.opts.Debug {
		return g.push(isa.Debug{})
	}
	return nil
}

// address is the feature-memory address of the first element of row r.
func address(v ir.View, r int) int {
	return v.Tensor.Offset + v.RowIndex(r)
}

// integral converts a filter value to an integer weight that fits the
// signed input width.
func (g *Generator) integral(subject string, v float32) (int, error) {
	f := float64(v)
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errs.Capacity(subject, "weight %v is not an integer", v)
	}
	lo, hi := g.params.WeightRange()
	if f < float64(lo) || f > float64(hi) {
		return 0, errs.Capacity(subject, "weight %v outside [%d, %d]", v, lo, hi)
	}
	return int(f), nil
}
