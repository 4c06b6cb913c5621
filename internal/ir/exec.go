package ir

import "fmt"

// Exec applies op to the tensors its views point at.
func Exec(op Op) error {
	switch o := op.(type) {
	case Conv2:
		return execConv2(o)
	case Add:
		return execAdd(o)
	default:
		return fmt.Errorf("exec: unknown op %T", op)
	}
}

// Run executes ops in order, stopping at the first failure.
func Run(ops []Op) error {
	for i, op := range ops {
		if err := Exec(op); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	return nil
}

func execConv2(c Conv2) error {
	if err := c.Check(); err != nil {
		return err
	}
	rows, cols := c.X.Rows(), c.X.Cols()
	kr, kc := c.KernelRows(), c.KernelCols()
	out := make([]float32, 0, c.Res.Len())
	for i := 0; i < c.OutRows(); i++ {
		for j := 0; j < c.OutCols(); j++ {
			var sum float32
			for a := 0; a < kr; a++ {
				r := i + a - c.Upper
				if r < 0 || r >= rows {
					continue
				}
				for b := 0; b < kc; b++ {
					col := j + b - c.Left
					if col < 0 || col >= cols {
						continue
					}
					sum += c.X.At(r, col) * c.W.At(a, b)
				}
			}
			out = append(out, sum)
		}
	}
	return c.Res.Store(out)
}

func execAdd(a Add) error {
	if err := a.Check(); err != nil {
		return err
	}
	xs, ys := a.A.Values(), a.B.Values()
	for i := range xs {
		xs[i] += ys[i]
	}
	return a.C.Store(xs)
}
