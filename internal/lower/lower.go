// Package lower turns scheduled graph nodes into Conv2/Add micro-ops over
// views of the tensor table.
package lower

import (
	"fmt"

	"github.com/samcharles93/arbor/internal/alloc"
	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/graph"
	"github.com/samcharles93/arbor/internal/ir"
	"github.com/samcharles93/arbor/internal/logger"
)

// Program is the lowered form of a graph.
type Program struct {
	Root   ir.Root
	Result ir.Result
	Ops    []ir.Op
}

// Lower validates every node against the supported convolution subset and
// emits its ops. Nothing is returned if any node is rejected. Scratch
// tensors for channel accumulation are added to tab.
func Lower(g *graph.Graph, nodes []graph.Node, tab *alloc.Table, log logger.Logger) (*Program, error) {
	log = logger.Stage(log, "lower")

	if len(g.Outputs) != 1 {
		return nil, errs.Unsupported("graph", "%d outputs, exactly one is supported", len(g.Outputs))
	}
	if g.SparseInitializers != 0 {
		return nil, errs.Unsupported("graph", "%d sparse initializers are not supported", g.SparseInitializers)
	}

	convs := make([]conv, 0, len(nodes))
	for _, n := range nodes {
		c, err := validate(n, tab, log)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}

	prog := &Program{}
	var err error
	if prog.Root, err = root(g, tab); err != nil {
		return nil, err
	}
	out, ok := tab.Get(g.Outputs[0].Name)
	if !ok {
		return nil, errs.Unsupported(g.Outputs[0].Name, "graph output has no tensor")
	}
	prog.Result = ir.Result{View: ir.Full(out)}

	for _, c := range convs {
		ops, err := c.emit(tab)
		if err != nil {
			return nil, fmt.Errorf("lower %s: %w", c.node.Label(), err)
		}
		log.Debug("lowered", "node", c.node.Label(), "ops", len(ops), "channels", c.x.Shape[1], "filters", c.w.Shape[0], "pad", c.pad)
		prog.Ops = append(prog.Ops, ops...)
	}
	log.Info("lowered graph", "nodes", len(nodes), "ops", len(prog.Ops))
	return prog, nil
}

// root is the first graph input that is neither an initializer nor a
// declared intermediate value.
func root(g *graph.Graph, tab *alloc.Table) (ir.Root, error) {
	for _, in := range g.Inputs {
		if g.IsInitializer(in.Name) || g.IsValueInfo(in.Name) {
			continue
		}
		t, ok := tab.Get(in.Name)
		if !ok {
			break
		}
		return ir.Root{View: ir.Full(t)}, nil
	}
	return ir.Root{}, errs.Unsupported("graph", "no external input that is not an initializer or intermediate value")
}
