package graph

import (
	"path/filepath"
	"testing"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/logger"
	"github.com/samcharles93/arbor/internal/onnx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convGraph(k int, attrs map[string]Attr) *Graph {
	return &Graph{
		Nodes: []Node{{
			Name:    "conv0",
			OpType:  "Conv",
			Inputs:  []string{"x", "w"},
			Outputs: []string{"y"},
			Attrs:   attrs,
		}},
		Inputs:       []Value{{Name: "x", Shape: []int{1, 1, 8, 8}}},
		Outputs:      []Value{{Name: "y", Shape: []int{1, 1, 8, 8}}},
		Initializers: []Initializer{{Name: "w", Shape: []int{1, 1, k, k}}},
	}
}

func TestSanitizeSameUpper(t *testing.T) {
	t.Parallel()

	g := convGraph(5, map[string]Attr{"auto_pad": {Kind: AttrString, String: "SAME_UPPER"}})
	out, err := Sanitize(g, logger.Discard())
	require.NoError(t, err)

	pads, ok := out.Nodes[0].Ints("pads")
	require.True(t, ok)
	assert.Equal(t, []int64{2, 2, 2, 2}, pads)
	assert.False(t, out.Nodes[0].Has("auto_pad"))

	// The input graph is untouched.
	assert.True(t, g.Nodes[0].Has("auto_pad"))
	assert.False(t, g.Nodes[0].Has("pads"))
}

func TestSanitizeRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		k    int
		mode string
	}{
		{"even kernel", 4, "SAME_UPPER"},
		{"same lower", 3, "SAME_LOWER"},
		{"valid", 3, "VALID"},
	}
	for _, tc := range tests {
		g := convGraph(tc.k, map[string]Attr{"auto_pad": {Kind: AttrString, String: tc.mode}})
		_, err := Sanitize(g, nil)
		require.ErrorIs(t, err, errs.ErrUnsupportedGraphFeature, tc.name)
	}
}

func TestSanitizeLeavesExplicitPads(t *testing.T) {
	t.Parallel()

	pads := Attr{Kind: AttrInts, Ints: []int64{1, 1, 1, 1}}
	g := convGraph(3, map[string]Attr{"pads": pads, "auto_pad": {Kind: AttrString, String: "NOTSET"}})
	out, err := Sanitize(g, logger.Discard())
	require.NoError(t, err)
	got, _ := out.Nodes[0].Ints("pads")
	assert.Equal(t, []int64{1, 1, 1, 1}, got)
	assert.False(t, out.Nodes[0].Has("auto_pad"))
}

func TestShapePrecedence(t *testing.T) {
	t.Parallel()

	g := &Graph{
		Inputs:       []Value{{Name: "a", Shape: []int{1}}},
		ValueInfos:   []Value{{Name: "a", Shape: []int{2}}},
		Outputs:      []Value{{Name: "b", Shape: []int{3}}},
		Initializers: []Initializer{{Name: "b", Shape: []int{4}}},
	}
	s, ok := g.Shape("a")
	require.True(t, ok)
	assert.Equal(t, []int{2}, s)
	s, _ = g.Shape("b")
	assert.Equal(t, []int{4}, s)
	_, ok = g.Shape("c")
	assert.False(t, ok)

	assert.True(t, g.IsValueInfo("a"))
	assert.True(t, g.IsInitializer("b"))
	assert.False(t, g.IsInitializer("a"))
}

func TestLoadFromONNX(t *testing.T) {
	t.Parallel()

	m := &onnx.ModelProto{
		IRVersion: 8,
		Graph: &onnx.GraphProto{
			Name: "g",
			Nodes: []onnx.NodeProto{{
				OpType:  "Conv",
				Inputs:  []string{"x", "w"},
				Outputs: []string{"y"},
				Attributes: []onnx.AttributeProto{
					onnx.IntsAttr("pads", 1, 1, 1, 1),
					onnx.IntAttr("group", 1),
					onnx.StringAttr("auto_pad", "NOTSET"),
				},
			}},
			Initializers: []onnx.TensorProto{onnx.FloatTensor("w", []int{1, 1, 3, 3}, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})},
			Inputs:       []onnx.ValueInfoProto{onnx.FloatValue("x", []int{1, 1, 4, 4})},
			Outputs:      []onnx.ValueInfoProto{onnx.FloatValue("y", []int{1, 1, 4, 4})},
		},
	}
	path := filepath.Join(t.TempDir(), "m.onnx")
	require.NoError(t, onnx.WriteFile(path, m))

	g, err := Load(path)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)

	n := g.Nodes[0]
	assert.Equal(t, "Conv(y)", n.Label())
	pads, ok := n.Ints("pads")
	require.True(t, ok)
	assert.Equal(t, []int64{1, 1, 1, 1}, pads)
	group, ok := n.Int("group")
	require.True(t, ok)
	assert.Equal(t, int64(1), group)
	mode, ok := n.Str("auto_pad")
	require.True(t, ok)
	assert.Equal(t, "NOTSET", mode)

	w, ok := g.Initializer("w")
	require.True(t, ok)
	assert.Equal(t, []int{1, 1, 3, 3}, w.Shape)
	assert.Len(t, w.Data, 9)
	assert.Equal(t, []int{1, 1, 4, 4}, g.Inputs[0].Shape)
}
