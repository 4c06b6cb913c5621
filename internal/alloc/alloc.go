// Package alloc owns the compiler's tensor table: every named tensor the
// graph declares, the scratch tensors lowering adds, and their placement in
// accelerator feature memory.
package alloc

import (
	"fmt"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/graph"
	"github.com/samcharles93/arbor/internal/ir"
	"github.com/samcharles93/arbor/internal/logger"
)

// ZeroName names the reserved all-zero block placed at offset 0.
const ZeroName = "__zero__"

// Table maps tensor names to tensors, keeping first-seen order.
type Table struct {
	order  []*ir.Tensor
	byName map[string]int
	zero   *ir.Tensor
	log    logger.Logger
}

// Build creates a zero-filled tensor for every declared input, value info,
// output and initializer. A name declared in several categories keeps its
// first-seen position, but its tensor is replaced by each later category in
// the order input, value info, output, initializer. Initializers carry
// their data.
func Build(g *graph.Graph, log logger.Logger) (*Table, error) {
	t := &Table{
		byName: make(map[string]int),
		log:    logger.Stage(log, "alloc"),
	}

	for _, list := range [][]graph.Value{g.Inputs, g.ValueInfos, g.Outputs} {
		for _, v := range list {
			tensor, err := ir.NewTensor(v.Name, v.Shape)
			if err != nil {
				return nil, err
			}
			if err := t.put(tensor); err != nil {
				return nil, err
			}
		}
	}
	for _, init := range g.Initializers {
		tensor, err := ir.FromData(init.Name, init.Shape, init.Data)
		if err != nil {
			return nil, err
		}
		if err := t.put(tensor); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) put(tensor *ir.Tensor) error {
	if tensor.Name == ZeroName {
		return errs.Unsupported(tensor.Name, "name is reserved for the zero block")
	}
	if i, ok := t.byName[tensor.Name]; ok {
		t.log.Debug("tensor redeclared", "name", tensor.Name, "shape", tensor.Shape)
		t.order[i] = tensor
		return nil
	}
	t.byName[tensor.Name] = len(t.order)
	t.order = append(t.order, tensor)
	t.log.Debug("tensor", "name", tensor.Name, "shape", tensor.Shape)
	return nil
}

// Get returns the tensor with the given name.
func (t *Table) Get(name string) (*ir.Tensor, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.order[i], true
}

// Add appends a zero-filled scratch tensor. Names must be unique.
func (t *Table) Add(name string, shape []int) (*ir.Tensor, error) {
	if _, ok := t.byName[name]; ok {
		return nil, fmt.Errorf("alloc: tensor %q already exists", name)
	}
	if t.zero != nil {
		return nil, fmt.Errorf("alloc: cannot add %q after offsets are baked", name)
	}
	tensor, err := ir.NewTensor(name, shape)
	if err != nil {
		return nil, err
	}
	if err := t.put(tensor); err != nil {
		return nil, err
	}
	return tensor, nil
}

// BakeOffsets places the zero block, shaped [ports, bufferLength], at
// offset 0, then every other tensor at the running element count in
// first-seen order. It may only run once.
func (t *Table) BakeOffsets(ports, bufferLength int) error {
	if t.zero != nil {
		return fmt.Errorf("alloc: offsets already baked")
	}
	zero, err := ir.NewTensor(ZeroName, []int{ports, bufferLength})
	if err != nil {
		return err
	}
	t.zero = zero

	offset := zero.Len()
	for _, tensor := range t.order {
		tensor.Offset = offset
		offset += tensor.Len()
		t.log.Debug("placed", "name", tensor.Name, "offset", tensor.Offset, "elements", tensor.Len())
	}
	t.log.Info("offsets baked", "tensors", len(t.order)+1, "elements", offset)
	return nil
}

// Baked reports whether BakeOffsets has run.
func (t *Table) Baked() bool {
	return t.zero != nil
}

// Zero returns the zero block, or nil before baking.
func (t *Table) Zero() *ir.Tensor {
	return t.zero
}

// Tensors returns every tensor in placement order, the zero block first
// once baked.
func (t *Table) Tensors() []*ir.Tensor {
	out := make([]*ir.Tensor, 0, len(t.order)+1)
	if t.zero != nil {
		out = append(out, t.zero)
	}
	return append(out, t.order...)
}

// Elements is the total feature memory footprint in elements.
func (t *Table) Elements() int {
	n := 0
	for _, tensor := range t.Tensors() {
		n += tensor.Len()
	}
	return n
}
