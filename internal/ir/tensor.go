// Package ir holds the compiler's intermediate representation: named tensors,
// non-owning views over them, and the Conv2/Add micro-ops the solver rewrites.
package ir

import (
	"fmt"
	"strings"

	"github.com/samcharles93/arbor/internal/errs"
)

// Tensor is a named, flat float32 buffer with a row-major shape. Offset is
// the element offset in accelerator feature memory, assigned when the
// tensor table is baked.
type Tensor struct {
	Name   string
	Shape  []int
	Data   []float32
	Offset int
}

// NewTensor allocates a zero-filled tensor. Every dimension must be positive.
func NewTensor(name string, shape []int) (*Tensor, error) {
	n, err := numElements(name, shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		Name:  name,
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, n),
	}, nil
}

// FromData wraps data in a tensor. A nil data slice yields zeros; otherwise
// its length must match the shape.
func FromData(name string, shape []int, data []float32) (*Tensor, error) {
	t, err := NewTensor(name, shape)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return t, nil
	}
	if len(data) != len(t.Data) {
		return nil, errs.Unsupported(name, "data has %d elements, shape %v needs %d", len(data), shape, len(t.Data))
	}
	copy(t.Data, data)
	return t, nil
}

func numElements(name string, shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errs.Unsupported(name, "tensor has no dimensions")
	}
	n := 1
	for i, d := range shape {
		if d <= 0 {
			return 0, errs.Unsupported(name, "dimension %d has size %d", i, d)
		}
		n *= d
	}
	return n, nil
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Strides returns row-major element strides.
func (t *Tensor) Strides() []int {
	strides := make([]int, len(t.Shape))
	s := 1
	for i := len(t.Shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= t.Shape[i]
	}
	return strides
}

func (t *Tensor) String() string {
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s[%s]@%d", t.Name, strings.Join(dims, "x"), t.Offset)
}
