package ir

import "fmt"

// Op is one micro-op over views. The set of ops is closed: Conv2 and Add are
// the only implementations, and consumers switch over them exhaustively.
type Op interface {
	Kind() string
	String() string
	isOp()
}

// Conv2 convolves the plane X with the filter plane W into Res. The pads are
// virtual zero rows and columns around X; they are independent so a split op
// can keep padding on some sides only.
type Conv2 struct {
	X, W, Res                   View
	Left, Upper, Right, Bottom int
}

// Add writes A + B elementwise into C. C may alias A or B.
type Add struct {
	A, B, C View
}

func (Conv2) isOp() {}
func (Add) isOp()   {}

func (Conv2) Kind() string { return "conv2" }
func (Add) Kind() string   { return "add" }

// Width is the padded input width streamed through one buffer.
func (c Conv2) Width() int {
	return c.X.Cols() + c.Left + c.Right
}

// Depth is the padded input depth in rows.
func (c Conv2) Depth() int {
	return c.X.Rows() + c.Upper + c.Bottom
}

// KernelRows and KernelCols are the filter's spatial extent.
func (c Conv2) KernelRows() int { return c.W.Rows() }
func (c Conv2) KernelCols() int { return c.W.Cols() }

// OutRows and OutCols are the output extent implied by the padded input.
func (c Conv2) OutRows() int { return c.Depth() - c.KernelRows() + 1 }
func (c Conv2) OutCols() int { return c.Width() - c.KernelCols() + 1 }

// Weights is the filter's element count.
func (c Conv2) Weights() int {
	return c.KernelRows() * c.KernelCols()
}

// Check verifies that every view is planar and that Res has the output shape
// implied by X, W and the pads.
func (c Conv2) Check() error {
	views := []struct {
		name string
		v    View
	}{{"x", c.X}, {"w", c.W}, {"res", c.Res}}
	for _, nv := range views {
		if nv.v.Tensor == nil {
			return fmt.Errorf("conv2: %s view is empty", nv.name)
		}
		if len(nv.v.Ranges) < 2 || !nv.v.Planar() {
			return fmt.Errorf("%s: %s view is not a single plane", c, nv.name)
		}
	}
	if c.Left < 0 || c.Upper < 0 || c.Right < 0 || c.Bottom < 0 {
		return fmt.Errorf("%s: negative padding", c)
	}
	if c.OutRows() != c.Res.Rows() || c.OutCols() != c.Res.Cols() {
		return fmt.Errorf("%s: output is %dx%d, input implies %dx%d", c, c.Res.Rows(), c.Res.Cols(), c.OutRows(), c.OutCols())
	}
	return nil
}

func (c Conv2) String() string {
	return fmt.Sprintf("Conv2(x=%s w=%s res=%s pad=l%d,u%d,r%d,b%d)", c.X, c.W, c.Res, c.Left, c.Upper, c.Right, c.Bottom)
}

// Check verifies that A, B and C agree in shape.
func (a Add) Check() error {
	sa, sb, sc := a.A.Shape(), a.B.Shape(), a.C.Shape()
	if !sameShape(sa, sb) || !sameShape(sa, sc) {
		return fmt.Errorf("%s: shapes %v + %v -> %v disagree", a, sa, sb, sc)
	}
	return nil
}

func (a Add) String() string {
	return fmt.Sprintf("Add(a=%s b=%s c=%s)", a.A, a.B, a.C)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Root marks the graph's external input.
type Root struct {
	View
}

// Result marks the graph's external output.
type Result struct {
	View
}

// Equal reports whether two ops have the same kind, views and pads.
func Equal(a, b Op) bool {
	switch x := a.(type) {
	case Conv2:
		y, ok := b.(Conv2)
		return ok && x.X.Equal(y.X) && x.W.Equal(y.W) && x.Res.Equal(y.Res) &&
			x.Left == y.Left && x.Upper == y.Upper && x.Right == y.Right && x.Bottom == y.Bottom
	case Add:
		y, ok := b.(Add)
		return ok && x.A.Equal(y.A) && x.B.Equal(y.B) && x.C.Equal(y.C)
	default:
		panic(fmt.Sprintf("ir: unknown op %T", a))
	}
}
