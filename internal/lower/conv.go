package lower

import (
	"slices"

	"github.com/samcharles93/arbor/internal/alloc"
	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/graph"
	"github.com/samcharles93/arbor/internal/ir"
	"github.com/samcharles93/arbor/internal/logger"
)

// conv is a validated Conv node.
type conv struct {
	node      graph.Node
	x, w, out *ir.Tensor
	pad       int
}

func validate(n graph.Node, tab *alloc.Table, log logger.Logger) (conv, error) {
	name := n.Label()
	if n.OpType != "Conv" {
		return conv{}, errs.Unsupported(name, "operator %s is not supported", n.OpType)
	}
	if len(n.Inputs) < 2 {
		return conv{}, errs.Unsupported(name, "convolution needs an input and a filter, got %d inputs", len(n.Inputs))
	}
	for _, extra := range n.Inputs[2:] {
		if extra != "" {
			return conv{}, errs.Unsupported(name, "bias input %q is not supported", extra)
		}
	}
	if len(n.Outputs) != 1 {
		return conv{}, errs.Unsupported(name, "%d outputs, want 1", len(n.Outputs))
	}

	c := conv{node: n}
	for _, ref := range []struct {
		dst  **ir.Tensor
		name string
	}{{&c.x, n.Inputs[0]}, {&c.w, n.Inputs[1]}, {&c.out, n.Outputs[0]}} {
		t, ok := tab.Get(ref.name)
		if !ok {
			return conv{}, errs.Unsupported(name, "tensor %q has no declared shape", ref.name)
		}
		if len(t.Shape) != 4 {
			return conv{}, errs.Unsupported(name, "tensor %q is %d-D, want 4-D", ref.name, len(t.Shape))
		}
		*ref.dst = t
	}

	xs, ws, ys := c.x.Shape, c.w.Shape, c.out.Shape
	switch {
	case xs[0] != 1:
		return conv{}, errs.Unsupported(name, "batch size %d, only 1 is supported", xs[0])
	case xs[2] != xs[3]:
		return conv{}, errs.Unsupported(name, "input is %dx%d, only square inputs are supported", xs[2], xs[3])
	case ws[2] != ws[3]:
		return conv{}, errs.Unsupported(name, "filter is %dx%d, only square filters are supported", ws[2], ws[3])
	case ws[1] != xs[1]:
		return conv{}, errs.Unsupported(name, "filter has %d input channels, input has %d", ws[1], xs[1])
	case ys[0] != 1 || ys[1] != ws[0]:
		return conv{}, errs.Unsupported(name, "output shape %v does not match %d filters", ys, ws[0])
	}

	if mode, ok := n.Str("auto_pad"); ok && mode != "NOTSET" {
		return conv{}, errs.Unsupported(name, "auto_pad %s was not resolved to explicit pads", mode)
	}
	pad, err := uniformPad(n)
	if err != nil {
		return conv{}, err
	}
	if pad >= ws[2] {
		return conv{}, errs.Unsupported(name, "pad %d is not smaller than filter size %d", pad, ws[2])
	}
	c.pad = pad

	if strides, ok := n.Ints("strides"); ok && !allOnes(strides) {
		return conv{}, errs.Unsupported(name, "strides %v, only [1,1] is supported", strides)
	}
	if group, ok := n.Int("group"); ok && group != 1 {
		return conv{}, errs.Unsupported(name, "group %d, only 1 is supported", group)
	}
	if dil, ok := n.Ints("dilations"); !ok {
		log.Warn("dilation not specified, assuming [1,1]", "node", name)
	} else if !allOnes(dil) {
		return conv{}, errs.Unsupported(name, "dilations %v, only [1,1] is supported", dil)
	}

	want := xs[2] + 2*pad - ws[2] + 1
	if ys[2] != want || ys[3] != want {
		return conv{}, errs.Unsupported(name, "declared output %dx%d, convolution produces %dx%d", ys[2], ys[3], want, want)
	}
	return c, nil
}

func uniformPad(n graph.Node) (int, error) {
	pads, ok := n.Ints("pads")
	if !ok {
		return 0, nil
	}
	if len(pads) != 4 {
		return 0, errs.Unsupported(n.Label(), "pads %v, want 4 values", pads)
	}
	for _, p := range pads[1:] {
		if p != pads[0] {
			return 0, errs.Unsupported(n.Label(), "pads %v are not uniform", pads)
		}
	}
	if pads[0] < 0 {
		return 0, errs.Unsupported(n.Label(), "negative pad %d", pads[0])
	}
	return int(pads[0]), nil
}

func allOnes(vs []int64) bool {
	return len(vs) == 2 && !slices.ContainsFunc(vs, func(v int64) bool { return v != 1 })
}

// emit produces one Conv2 per (output, input channel). Channel 0 writes the
// output plane directly; every later channel convolves into a scratch plane
// which an Add then folds into the output.
func (c conv) emit(tab *alloc.Table) ([]ir.Op, error) {
	cout, cin := c.w.Shape[0], c.w.Shape[1]
	h, k, ho := c.x.Shape[2], c.w.Shape[2], c.out.Shape[2]

	var scratch ir.View
	if cin > 1 {
		t, err := tab.Add(c.out.Name+".partial", []int{1, 1, ho, ho})
		if err != nil {
			return nil, err
		}
		scratch = ir.Full(t)
	}

	ops := make([]ir.Op, 0, cout*(2*cin-1))
	for o := range cout {
		res, err := ir.NewView(c.out, ir.Span(0, 1), ir.Span(o, o+1), ir.Span(0, ho), ir.Span(0, ho))
		if err != nil {
			return nil, err
		}
		for ch := range cin {
			x, err := ir.NewView(c.x, ir.Span(0, 1), ir.Span(ch, ch+1), ir.Span(0, h), ir.Span(0, h))
			if err != nil {
				return nil, err
			}
			w, err := ir.NewView(c.w, ir.Span(o, o+1), ir.Span(ch, ch+1), ir.Span(0, k), ir.Span(0, k))
			if err != nil {
				return nil, err
			}
			op := ir.Conv2{X: x, W: w, Left: c.pad, Upper: c.pad, Right: c.pad, Bottom: c.pad}
			if ch == 0 {
				op.Res = res
				ops = append(ops, op)
				continue
			}
			op.Res = scratch
			ops = append(ops, op, ir.Add{A: res, B: scratch, C: res})
		}
	}
	return ops, nil
}
