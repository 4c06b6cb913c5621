package solver

import (
	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/ir"
)

func (s *Solver) solveConv(c ir.Conv2) ([]ir.Op, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	cols, err := s.splitWidth(c)
	if err != nil {
		return nil, err
	}
	var out []ir.Op
	for _, op := range cols {
		rows, err := s.splitDepth(op)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, r)
		}
	}
	return out, nil
}

// splitWidth halves the output columns until every piece's padded input
// width fits one buffer. Pieces come back left to right.
func (s *Solver) splitWidth(c ir.Conv2) ([]ir.Conv2, error) {
	var out []ir.Conv2
	stack := []ir.Conv2{c}
	for len(stack) > 0 {
		op := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if op.Width() <= s.limits.BufferLength {
			out = append(out, op)
			continue
		}
		n := op.OutCols()
		if n <= 1 {
			return nil, errs.Capacity(op.String(), "filter width %d with padding exceeds buffer length %d", op.Width(), s.limits.BufferLength)
		}
		left, err := colWindow(op, 0, n/2)
		if err != nil {
			return nil, err
		}
		right, err := colWindow(op, n/2, n)
		if err != nil {
			return nil, err
		}
		s.log.Debug("width split", "op", op.String(), "width", op.Width(), "left", left.Width(), "right", right.Width())
		stack = append(stack, right, left)
	}
	return out, nil
}

// colWindow is the sub-op producing output columns [a, b). Output column j
// reads padded input columns [j, j+k); the part of that window outside X
// becomes the piece's own left or right pad.
func colWindow(c ir.Conv2, a, b int) (ir.Conv2, error) {
	w := c.X.Cols()
	lo := a - c.Left
	hi := b - 1 + c.KernelCols() - c.Left
	x, err := c.X.NarrowCols(max(lo, 0), min(hi, w))
	if err != nil {
		return ir.Conv2{}, err
	}
	res, err := c.Res.NarrowCols(a, b)
	if err != nil {
		return ir.Conv2{}, err
	}
	op := c
	op.X, op.Res = x, res
	op.Left = max(0, -lo)
	op.Right = max(0, hi-w)
	return op, nil
}

// splitDepth cuts a conv whose padded depth needs more than the available
// ports. Output rows whose window touches vertical padding are emitted on
// their own; interior rows are grouped as tightly as the ports allow.
func (s *Solver) splitDepth(c ir.Conv2) ([]ir.Conv2, error) {
	if 2*c.Depth() <= s.limits.Ports {
		return []ir.Conv2{c}, nil
	}
	half := s.limits.Half()
	k := c.KernelRows()
	if k > half {
		return nil, errs.Capacity(c.String(), "filter height %d exceeds %d usable ports", k, half)
	}

	d, top := c.X.Rows(), c.Upper
	interior := func(o int) bool { return o >= top && o+k <= top+d }
	maxRows := half - k + 1

	var out []ir.Conv2
	n := c.OutRows()
	for o := 0; o < n; {
		end := o + 1
		if interior(o) {
			for end < n && end-o < maxRows && interior(end) {
				end++
			}
		}
		op, err := rowWindow(c, o, end)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
		o = end
	}
	s.log.Debug("depth split", "op", c.String(), "depth", c.Depth(), "pieces", len(out))
	return out, nil
}

// rowWindow is the sub-op producing output rows [a, b), the vertical
// counterpart of colWindow.
func rowWindow(c ir.Conv2, a, b int) (ir.Conv2, error) {
	d := c.X.Rows()
	lo := a - c.Upper
	hi := b - 1 + c.KernelRows() - c.Upper
	x, err := c.X.NarrowRows(max(lo, 0), min(hi, d))
	if err != nil {
		return ir.Conv2{}, err
	}
	res, err := c.Res.NarrowRows(a, b)
	if err != nil {
		return ir.Conv2{}, err
	}
	op := c
	op.X, op.Res = x, res
	op.Upper = max(0, -lo)
	op.Bottom = max(0, hi-d)
	return op, nil
}
