package onnx

import "fmt"

// ChainSpec describes a stack of same-padded square convolutions.
type ChainSpec struct {
	Size     int
	Channels int
	Kernel   int
	Layers   int
	Seed     int
}

// ConvChain builds a model of spec.Layers convolutions. The first layer
// reads spec.Channels channels; every layer produces one channel of the
// same spatial size. Weights are drawn from {-1, 0, 1}.
func ConvChain(spec ChainSpec) (*ModelProto, error) {
	switch {
	case spec.Size <= 0, spec.Channels <= 0, spec.Layers <= 0:
		return nil, fmt.Errorf("conv chain: size, channels and layers must be positive")
	case spec.Kernel <= 0 || spec.Kernel%2 == 0:
		return nil, fmt.Errorf("conv chain: kernel %d must be odd", spec.Kernel)
	}
	pad := int64(spec.Kernel / 2)
	g := &GraphProto{
		Name:   fmt.Sprintf("conv-chain-%dx%d", spec.Size, spec.Size),
		Inputs: []ValueInfoProto{FloatValue("x", []int{1, spec.Channels, spec.Size, spec.Size})},
	}
	in, ch := "x", spec.Channels
	for l := range spec.Layers {
		out := fmt.Sprintf("h%d", l)
		if l == spec.Layers-1 {
			out = "y"
		}
		w := fmt.Sprintf("w%d", l)
		shape := []int{1, ch, spec.Kernel, spec.Kernel}
		data := make([]float32, ch*spec.Kernel*spec.Kernel)
		for i := range data {
			data[i] = float32((i+l+spec.Seed)%3 - 1)
		}
		g.Initializers = append(g.Initializers, FloatTensor(w, shape, data))
		g.Nodes = append(g.Nodes, NodeProto{
			Name:    fmt.Sprintf("conv%d", l),
			OpType:  "Conv",
			Inputs:  []string{in, w},
			Outputs: []string{out},
			Attributes: []AttributeProto{
				IntsAttr("kernel_shape", int64(spec.Kernel), int64(spec.Kernel)),
				IntsAttr("pads", pad, pad, pad, pad),
				IntsAttr("strides", 1, 1),
				IntsAttr("dilations", 1, 1),
				IntAttr("group", 1),
			},
		})
		if out != "y" {
			g.ValueInfo = append(g.ValueInfo, FloatValue(out, []int{1, 1, spec.Size, spec.Size}))
		}
		in, ch = out, 1
	}
	g.Outputs = []ValueInfoProto{FloatValue("y", []int{1, 1, spec.Size, spec.Size})}
	return &ModelProto{
		IRVersion:    8,
		ProducerName: "arbor",
		OpsetImport:  []OperatorSetID{{Version: 13}},
		Graph:        g,
	}, nil
}
