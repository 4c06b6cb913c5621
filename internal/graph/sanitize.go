package graph

import (
	"maps"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/logger"
)

// Sanitize rewrites implicit convolution padding into explicit pads and
// returns a new graph; g is not modified. Everything else about validity is
// left to lowering.
func Sanitize(g *Graph, log logger.Logger) (*Graph, error) {
	log = logger.Stage(log, "sanitize")

	out := *g
	out.Nodes = make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.Attrs = maps.Clone(n.Attrs)
		if n.OpType == "Conv" {
			if err := explicitPads(g, &n, log); err != nil {
				return nil, err
			}
		}
		out.Nodes[i] = n
	}
	return &out, nil
}

func explicitPads(g *Graph, n *Node, log logger.Logger) error {
	mode, ok := n.Str("auto_pad")
	if !ok {
		return nil
	}
	delete(n.Attrs, "auto_pad")

	switch mode {
	case "NOTSET", "":
		return nil
	case "SAME_UPPER":
	default:
		return errs.Unsupported(n.Label(), "auto_pad %s, only SAME_UPPER is supported", mode)
	}

	if len(n.Inputs) < 2 {
		return errs.Unsupported(n.Label(), "convolution without a filter input")
	}
	dims, ok := g.Shape(n.Inputs[1])
	if !ok || len(dims) < 2 {
		return errs.Unsupported(n.Label(), "filter %q has no known shape", n.Inputs[1])
	}
	kh, kw := dims[len(dims)-2], dims[len(dims)-1]
	if kh != kw {
		return errs.Unsupported(n.Label(), "filter is %dx%d, only square filters are supported", kh, kw)
	}
	if kh%2 == 0 {
		return errs.Unsupported(n.Label(), "SAME_UPPER with even filter size %d needs asymmetric padding", kh)
	}

	pad := int64((kh - 1) / 2)
	n.Attrs["pads"] = Attr{Kind: AttrInts, Ints: []int64{pad, pad, pad, pad}}
	log.Debug("explicit pads from auto_pad", "node", n.Label(), "pad", pad)
	return nil
}
