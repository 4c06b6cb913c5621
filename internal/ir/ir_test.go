package ir

import (
	"testing"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(name string, shape ...int) *Tensor {
	t, err := NewTensor(name, shape)
	if err != nil {
		panic(err)
	}
	for i := range t.Data {
		t.Data[i] = float32(i%7 - 3)
	}
	return t
}

func TestNewTensorRejectsNonPositiveDims(t *testing.T) {
	t.Parallel()

	_, err := NewTensor("x", []int{1, 0, 3})
	require.ErrorIs(t, err, errs.ErrUnsupportedGraphFeature)

	_, err = NewTensor("x", []int{2, -1})
	require.ErrorIs(t, err, errs.ErrUnsupportedGraphFeature)

	_, err = FromData("w", []int{2, 2}, []float32{1, 2, 3})
	require.ErrorIs(t, err, errs.ErrUnsupportedGraphFeature)
}

func TestTensorStrides(t *testing.T) {
	t.Parallel()
	x := seq("x", 2, 3, 4)
	assert.Equal(t, []int{12, 4, 1}, x.Strides())
	assert.Equal(t, 24, x.Len())
}

func TestNewViewValidatesRanges(t *testing.T) {
	t.Parallel()
	x := seq("x", 1, 4, 5)

	_, err := NewView(x, Range{0, 1}, Range{0, 4}, Range{0, 6})
	require.Error(t, err)
	_, err = NewView(x, Range{0, 1}, Range{3, 2}, Range{0, 5})
	require.Error(t, err)
	_, err = NewView(x, Range{0, 1}, Range{0, 4})
	require.Error(t, err)

	v, err := NewView(x, Range{0, 1}, Range{1, 3}, Range{2, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v.Shape())
	assert.Equal(t, 2, v.Rows())
	assert.Equal(t, 3, v.Cols())
	assert.True(t, v.Planar())
}

func TestViewNarrowIsRelative(t *testing.T) {
	t.Parallel()
	x := seq("x", 1, 1, 6, 8)
	v, err := Full(x).NarrowCols(2, 7)
	require.NoError(t, err)
	w, err := v.NarrowCols(1, 3)
	require.NoError(t, err)
	assert.Equal(t, Range{3, 5}, w.Ranges[3])

	_, err = v.NarrowCols(0, 6)
	require.Error(t, err)

	r, err := w.NarrowRows(4, 6)
	require.NoError(t, err)
	assert.Equal(t, 4*8+3, r.RowIndex(0))
	assert.Equal(t, x.Data[5*8+4], r.At(1, 1))
}

func TestViewGatherScatter(t *testing.T) {
	t.Parallel()
	x, err := NewTensor("x", []int{3, 4})
	require.NoError(t, err)
	v, err := NewView(x, Range{1, 3}, Range{1, 3})
	require.NoError(t, err)

	require.NoError(t, v.Store([]float32{1, 2, 3, 4}))
	assert.Equal(t, []float32{1, 2, 3, 4}, v.Values())
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 1, 2, 0, 0, 3, 4, 0}, x.Data)
	require.Error(t, v.Store([]float32{1}))
	assert.Equal(t, 2*4+2, v.Index(1, 1))
}

func TestConv2MatchesReference(t *testing.T) {
	t.Parallel()
	x := seq("x", 1, 1, 6, 6)
	w := seq("w", 1, 1, 3, 3)
	res, err := NewTensor("y", []int{1, 1, 6, 6})
	require.NoError(t, err)

	op := Conv2{X: Full(x), W: Full(w), Res: Full(res), Left: 1, Upper: 1, Right: 1, Bottom: 1}
	require.NoError(t, op.Check())
	assert.Equal(t, 8, op.Width())
	assert.Equal(t, 8, op.Depth())
	assert.Equal(t, 9, op.Weights())
	require.NoError(t, Exec(op))

	ref, err := Conv2D(x, w, 1)
	require.NoError(t, err)
	assert.Equal(t, ref.Data, res.Data)
}

func TestConv2CheckRejectsWrongOutput(t *testing.T) {
	t.Parallel()
	x := seq("x", 1, 1, 6, 6)
	w := seq("w", 1, 1, 3, 3)
	res, err := NewTensor("y", []int{1, 1, 6, 6})
	require.NoError(t, err)

	op := Conv2{X: Full(x), W: Full(w), Res: Full(res)}
	require.Error(t, op.Check())
	require.Error(t, Exec(op))
}

func TestAddAccumulatesInPlace(t *testing.T) {
	t.Parallel()
	a := seq("a", 1, 1, 2, 3)
	b := seq("b", 1, 1, 2, 3)
	want := make([]float32, len(a.Data))
	for i := range want {
		want[i] = a.Data[i] + b.Data[i]
	}
	require.NoError(t, Run([]Op{Add{A: Full(a), B: Full(b), C: Full(a)}}))
	assert.Equal(t, want, a.Data)

	c := seq("c", 1, 1, 3, 2)
	require.Error(t, Add{A: Full(a), B: Full(b), C: Full(c)}.Check())
}

func TestReferenceSumsChannels(t *testing.T) {
	t.Parallel()
	x := seq("x", 1, 2, 4, 4)
	w := seq("w", 3, 2, 3, 3)
	out, err := Conv2D(x, w, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2, 2}, out.Shape)

	// Output (o=1, i=0, j=1) by hand.
	var want float32
	for c := 0; c < 2; c++ {
		var part float32
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				part += x.Data[(c*4+a)*4+1+b] * w.Data[((1*2+c)*3+a)*3+b]
			}
		}
		want += part
	}
	assert.Equal(t, want, out.Data[(1*2+0)*2+1])

	_, err = Conv2D(x, seq("w", 1, 3, 3, 3), 0)
	require.Error(t, err)
}

func TestOpEqual(t *testing.T) {
	t.Parallel()
	x := seq("x", 1, 1, 4, 4)
	w := seq("w", 1, 1, 3, 3)
	y := seq("y", 1, 1, 2, 2)
	a := Conv2{X: Full(x), W: Full(w), Res: Full(y)}
	b := a
	assert.True(t, Equal(a, b))
	b.Left = 1
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(a, Add{A: Full(y), B: Full(y), C: Full(y)}))
	assert.Equal(t, "conv2", a.Kind())
}
