// Package solver splits Conv2 and Add ops until each one fits the
// accelerator's buffer length, port count and multiplier count.
package solver

import (
	"fmt"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/ir"
	"github.com/samcharles93/arbor/internal/logger"
)

// Limits are the hardware bounds every solved op must respect.
type Limits struct {
	BufferLength int `yaml:"buffer_length" json:"buffer_length"`
	Ports        int `yaml:"ports" json:"ports"`
	Mults        int `yaml:"mults" json:"mults"`
}

// Validate rejects limits no op could ever satisfy.
func (l Limits) Validate() error {
	switch {
	case l.BufferLength <= 0:
		return fmt.Errorf("buffer length %d must be positive", l.BufferLength)
	case l.Ports < 2:
		return fmt.Errorf("ports %d: at least one input/output pair is required", l.Ports)
	case l.Mults <= 0:
		return fmt.Errorf("mults %d must be positive", l.Mults)
	}
	return nil
}

// Half is the number of input rows one op may stream; each row occupies a
// port and its output occupies the neighbouring one.
func (l Limits) Half() int {
	return l.Ports / 2
}

type Solver struct {
	limits Limits
	log    logger.Logger
}

func New(limits Limits, log logger.Logger) (*Solver, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Solver{limits: limits, log: logger.Stage(log, "solve")}, nil
}

func (s *Solver) Limits() Limits {
	return s.limits
}

// Solve rewrites ops in order. The input slice and its ops are not modified.
func (s *Solver) Solve(ops []ir.Op) ([]ir.Op, error) {
	out := make([]ir.Op, 0, len(ops))
	for i, op := range ops {
		solved, err := s.SolveOp(op)
		if err != nil {
			return nil, fmt.Errorf("solve op %d: %w", i, err)
		}
		out = append(out, solved...)
	}
	s.log.Info("solved ops", "before", len(ops), "after", len(out),
		"buffer_length", s.limits.BufferLength, "ports", s.limits.Ports, "mults", s.limits.Mults)
	return out, nil
}

// SolveOp splits a single op. An op already inside the limits comes back
// as a one-element list holding the same value.
func (s *Solver) SolveOp(op ir.Op) ([]ir.Op, error) {
	var (
		out []ir.Op
		err error
	)
	switch o := op.(type) {
	case ir.Conv2:
		out, err = s.solveConv(o)
	case ir.Add:
		out, err = s.solveAdd(o)
	default:
		return nil, fmt.Errorf("solve: unknown op %T", op)
	}
	if err != nil {
		return nil, err
	}
	if len(out) > 1 {
		s.log.Debug("split", "op", op.String(), "into", len(out))
	}
	for _, o := range out {
		if err := s.Verify(o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Verify checks that op is well formed and within every limit.
func (s *Solver) Verify(op ir.Op) error {
	l := s.limits
	switch o := op.(type) {
	case ir.Conv2:
		if err := o.Check(); err != nil {
			return err
		}
		if o.Width() > l.BufferLength {
			return errs.Capacity(o.String(), "padded width %d exceeds buffer length %d", o.Width(), l.BufferLength)
		}
		if 2*o.Depth() > l.Ports {
			return errs.Capacity(o.String(), "padded depth %d needs %d ports, have %d", o.Depth(), 2*o.Depth(), l.Ports)
		}
		if o.Weights() > l.Mults {
			return errs.Capacity(o.String(), "filter has %d weights, only %d multipliers", o.Weights(), l.Mults)
		}
	case ir.Add:
		if err := o.Check(); err != nil {
			return err
		}
		if o.A.Cols() > l.BufferLength {
			return errs.Capacity(o.String(), "row length %d exceeds buffer length %d", o.A.Cols(), l.BufferLength)
		}
		if 2*o.A.Rows() > l.Ports {
			return errs.Capacity(o.String(), "%d rows need %d ports, have %d", o.A.Rows(), 2*o.A.Rows(), l.Ports)
		}
		if !o.A.Planar() {
			return errs.Capacity(o.String(), "operands span more than one plane")
		}
	default:
		return fmt.Errorf("verify: unknown op %T", op)
	}
	return nil
}
