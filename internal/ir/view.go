package ir

import (
	"fmt"
	"strings"
)

// Range is a half-open [Start, Stop) interval along one axis.
type Range struct {
	Start, Stop int
}

// Span is shorthand for Range{start, stop}.
func Span(start, stop int) Range {
	return Range{Start: start, Stop: stop}
}

func (r Range) Len() int {
	return r.Stop - r.Start
}

// View is a sub-region of a tensor, one range per axis. Views never copy;
// reads and writes go straight to the tensor's buffer.
type View struct {
	Tensor *Tensor
	Ranges []Range
}

// NewView validates that every range lies inside the tensor.
func NewView(t *Tensor, ranges ...Range) (View, error) {
	if t == nil {
		return View{}, fmt.Errorf("view: nil tensor")
	}
	if len(ranges) != len(t.Shape) {
		return View{}, fmt.Errorf("view of %s: %d ranges for rank %d", t.Name, len(ranges), len(t.Shape))
	}
	for axis, r := range ranges {
		if r.Start < 0 || r.Start > r.Stop || r.Stop > t.Shape[axis] {
			return View{}, fmt.Errorf("view of %s: axis %d range [%d:%d] outside [0:%d]", t.Name, axis, r.Start, r.Stop, t.Shape[axis])
		}
	}
	return View{Tensor: t, Ranges: append([]Range(nil), ranges...)}, nil
}

// Full returns a view covering the whole tensor.
func Full(t *Tensor) View {
	ranges := make([]Range, len(t.Shape))
	for i, d := range t.Shape {
		ranges[i] = Range{0, d}
	}
	return View{Tensor: t, Ranges: ranges}
}

// Narrow restricts one axis to [start, stop) relative to the view's own
// start on that axis.
func (v View) Narrow(axis, start, stop int) (View, error) {
	if axis < 0 || axis >= len(v.Ranges) {
		return View{}, fmt.Errorf("view %s: axis %d out of range", v, axis)
	}
	ranges := append([]Range(nil), v.Ranges...)
	base := ranges[axis].Start
	ranges[axis] = Range{base + start, base + stop}
	if start < 0 || stop < start || ranges[axis].Stop > v.Ranges[axis].Stop {
		return View{}, fmt.Errorf("view %s: narrow axis %d to [%d:%d] exceeds length %d", v, axis, start, stop, v.Ranges[axis].Len())
	}
	return View{Tensor: v.Tensor, Ranges: ranges}, nil
}

// NarrowRows narrows the second-to-last axis.
func (v View) NarrowRows(start, stop int) (View, error) {
	return v.Narrow(len(v.Ranges)-2, start, stop)
}

// NarrowCols narrows the last axis.
func (v View) NarrowCols(start, stop int) (View, error) {
	return v.Narrow(len(v.Ranges)-1, start, stop)
}

func (v View) Shape() []int {
	shape := make([]int, len(v.Ranges))
	for i, r := range v.Ranges {
		shape[i] = r.Len()
	}
	return shape
}

func (v View) Len() int {
	n := 1
	for _, r := range v.Ranges {
		n *= r.Len()
	}
	return n
}

// Rows is the extent of the second-to-last axis.
func (v View) Rows() int {
	if len(v.Ranges) < 2 {
		return 1
	}
	return v.Ranges[len(v.Ranges)-2].Len()
}

// Cols is the extent of the last axis.
func (v View) Cols() int {
	return v.Ranges[len(v.Ranges)-1].Len()
}

// Planar reports whether every axis but the last two has extent one, so the
// view is a single 2-D plane.
func (v View) Planar() bool {
	for i := 0; i < len(v.Ranges)-2; i++ {
		if v.Ranges[i].Len() != 1 {
			return false
		}
	}
	return true
}

// Index returns the tensor's flat index of the view-relative position pos.
func (v View) Index(pos ...int) int {
	strides := v.Tensor.Strides()
	idx := 0
	for i, r := range v.Ranges {
		idx += (r.Start + pos[i]) * strides[i]
	}
	return idx
}

// planeIndex is Index for (row, col) of a planar view.
func (v View) planeIndex(r, c int) int {
	strides := v.Tensor.Strides()
	n := len(v.Ranges)
	idx := 0
	for i := 0; i < n-2; i++ {
		idx += v.Ranges[i].Start * strides[i]
	}
	if n >= 2 {
		idx += (v.Ranges[n-2].Start + r) * strides[n-2]
	}
	return idx + v.Ranges[n-1].Start + c
}

// RowIndex is the flat index of the first element of plane row r.
func (v View) RowIndex(r int) int {
	return v.planeIndex(r, 0)
}

// At reads plane element (r, c).
func (v View) At(r, c int) float32 {
	return v.Tensor.Data[v.planeIndex(r, c)]
}

// Set writes plane element (r, c).
func (v View) Set(r, c int, val float32) {
	v.Tensor.Data[v.planeIndex(r, c)] = val
}

// Values gathers the view in row-major order.
func (v View) Values() []float32 {
	out := make([]float32, 0, v.Len())
	v.each(func(idx int) {
		out = append(out, v.Tensor.Data[idx])
	})
	return out
}

// Store scatters vals, in row-major order, into the view.
func (v View) Store(vals []float32) error {
	if len(vals) != v.Len() {
		return fmt.Errorf("store into %s: %d values for %d elements", v, len(vals), v.Len())
	}
	i := 0
	v.each(func(idx int) {
		v.Tensor.Data[idx] = vals[i]
		i++
	})
	return nil
}

func (v View) each(fn func(idx int)) {
	if v.Len() == 0 {
		return
	}
	strides := v.Tensor.Strides()
	pos := make([]int, len(v.Ranges))
	for i, r := range v.Ranges {
		pos[i] = r.Start
	}
	for {
		idx := 0
		for i, p := range pos {
			idx += p * strides[i]
		}
		fn(idx)

		axis := len(pos) - 1
		for axis >= 0 {
			pos[axis]++
			if pos[axis] < v.Ranges[axis].Stop {
				break
			}
			pos[axis] = v.Ranges[axis].Start
			axis--
		}
		if axis < 0 {
			return
		}
	}
}

// Equal reports whether both views cover the same region of the same tensor.
func (v View) Equal(o View) bool {
	if v.Tensor != o.Tensor || len(v.Ranges) != len(o.Ranges) {
		return false
	}
	for i := range v.Ranges {
		if v.Ranges[i] != o.Ranges[i] {
			return false
		}
	}
	return true
}

func (v View) String() string {
	if v.Tensor == nil {
		return "<nil>"
	}
	parts := make([]string, len(v.Ranges))
	for i, r := range v.Ranges {
		parts[i] = fmt.Sprintf("%d:%d", r.Start, r.Stop)
	}
	return v.Tensor.Name + "[" + strings.Join(parts, ",") + "]"
}
