package solver

import (
	"fmt"

	"github.com/samcharles93/arbor/internal/ir"
)

func (s *Solver) solveAdd(a ir.Add) ([]ir.Op, error) {
	if err := a.Check(); err != nil {
		return nil, err
	}
	if len(a.A.Ranges) == 0 {
		return nil, fmt.Errorf("%s: scalar views cannot be streamed", a)
	}

	last := len(a.A.Ranges) - 1
	pieces, err := chunkAdd([]ir.Add{a}, last, s.limits.BufferLength)
	if err != nil {
		return nil, err
	}
	if last > 0 {
		if pieces, err = chunkAdd(pieces, last-1, s.limits.Half()); err != nil {
			return nil, err
		}
	}

	out := make([]ir.Op, len(pieces))
	for i, p := range pieces {
		out[i] = p
	}
	return out, nil
}

// chunkAdd cuts every add along axis into runs of at most size elements.
// Adds that already fit are passed through untouched.
func chunkAdd(adds []ir.Add, axis, size int) ([]ir.Add, error) {
	var out []ir.Add
	for _, a := range adds {
		n := a.A.Ranges[axis].Len()
		if n <= size {
			out = append(out, a)
			continue
		}
		for start := 0; start < n; start += size {
			stop := min(start+size, n)
			var (
				p   ir.Add
				err error
			)
			if p.A, err = a.A.Narrow(axis, start, stop); err != nil {
				return nil, err
			}
			if p.B, err = a.B.Narrow(axis, start, stop); err != nil {
				return nil, err
			}
			if p.C, err = a.C.Narrow(axis, start, stop); err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}
