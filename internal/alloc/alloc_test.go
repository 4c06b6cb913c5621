package alloc

import (
	"testing"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/graph"
	"github.com/samcharles93/arbor/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() *graph.Graph {
	return &graph.Graph{
		Inputs:       []graph.Value{{Name: "x", Shape: []int{1, 1, 4, 4}}},
		ValueInfos:   []graph.Value{{Name: "h", Shape: []int{1, 2, 4, 4}}},
		Outputs:      []graph.Value{{Name: "y", Shape: []int{1, 1, 4, 4}}},
		Initializers: []graph.Initializer{{Name: "w", Shape: []int{2, 1, 3, 3}}},
	}
}

func TestBuildZeroFillsAndKeepsOrder(t *testing.T) {
	t.Parallel()

	tab, err := Build(sampleGraph(), logger.Discard())
	require.NoError(t, err)

	names := []string{}
	for _, tensor := range tab.Tensors() {
		names = append(names, tensor.Name)
	}
	assert.Equal(t, []string{"x", "h", "y", "w"}, names)

	w, ok := tab.Get("w")
	require.True(t, ok)
	assert.Len(t, w.Data, 18)
	for _, v := range w.Data {
		require.Zero(t, v)
	}
	_, ok = tab.Get("missing")
	assert.False(t, ok)
}

func TestBuildPrecedenceInitializerWins(t *testing.T) {
	t.Parallel()

	g := &graph.Graph{
		Inputs:       []graph.Value{{Name: "a", Shape: []int{2}}, {Name: "b", Shape: []int{1}}},
		ValueInfos:   []graph.Value{{Name: "a", Shape: []int{3}}},
		Outputs:      []graph.Value{{Name: "a", Shape: []int{4}}},
		Initializers: []graph.Initializer{{Name: "a", Shape: []int{2}, Data: []float32{7, 8}}},
	}
	tab, err := Build(g, nil)
	require.NoError(t, err)

	a, ok := tab.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{7, 8}, a.Data)
	assert.Equal(t, "a", tab.Tensors()[0].Name)
	assert.Len(t, tab.Tensors(), 2)
}

func TestBuildRejectsBadShapes(t *testing.T) {
	t.Parallel()

	g := sampleGraph()
	g.ValueInfos[0].Shape = []int{1, 0, 4, 4}
	_, err := Build(g, nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedGraphFeature)

	g = sampleGraph()
	g.Initializers[0].Data = []float32{1, 2}
	_, err = Build(g, nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedGraphFeature)

	g = sampleGraph()
	g.Inputs[0].Name = ZeroName
	_, err = Build(g, nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedGraphFeature)
}

func TestBakeOffsetsAccumulates(t *testing.T) {
	t.Parallel()

	tab, err := Build(sampleGraph(), logger.Discard())
	require.NoError(t, err)
	scratch, err := tab.Add("scratch", []int{1, 1, 4, 4})
	require.NoError(t, err)
	_, err = tab.Add("scratch", []int{1})
	require.Error(t, err)

	require.NoError(t, tab.BakeOffsets(16, 8))
	require.True(t, tab.Baked())

	tensors := tab.Tensors()
	require.Equal(t, ZeroName, tensors[0].Name)
	assert.Equal(t, []int{16, 8}, tab.Zero().Shape)
	assert.Equal(t, 0, tensors[0].Offset)

	want := []int{0, 128, 128 + 16, 128 + 16 + 32, 128 + 16 + 32 + 16, 128 + 16 + 32 + 16 + 18}
	for i, tensor := range tensors {
		assert.Equal(t, want[i], tensor.Offset, tensor.Name)
	}
	assert.Equal(t, want[5], scratch.Offset)
	assert.Equal(t, want[5]+16, tab.Elements())

	// Offsets are strictly increasing and non-overlapping.
	for i := 1; i < len(tensors); i++ {
		prev := tensors[i-1]
		require.Equal(t, prev.Offset+prev.Len(), tensors[i].Offset)
	}

	require.Error(t, tab.BakeOffsets(16, 8))
	_, err = tab.Add("late", []int{1})
	require.Error(t, err)
}
