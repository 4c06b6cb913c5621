package isa

import (
	"testing"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceValidates(t *testing.T) {
	t.Parallel()
	p := Reference()
	require.NoError(t, p.Validate())
	assert.Equal(t, 1024, p.ImageBytes())
	assert.Equal(t, 1<<24, p.MaxAddress())
	lo, hi := p.WeightRange()
	assert.Equal(t, -128, lo)
	assert.Equal(t, 127, hi)
}

func TestValidateRejectsMismatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Params)
		subject string
	}{
		{"address", func(p *Params) { p.AddressBytes = 4 }, "address_bytes"},
		{"nodes", func(p *Params) { p.NumNodes = 127 }, "num_nodes"},
		{"split", func(p *Params) { p.NumAdders = 30 }, "num_adders"},
		{"width", func(p *Params) { p.InputWidth = 16 }, "input_width"},
		{"ports", func(p *Params) { p.NumPorts = 4 }, "num_ports"},
		{"instr", func(p *Params) { p.InstrWords = 0 }, "instr_words"},
		{"config", func(p *Params) { p.ConfigWords = -1 }, "config_words"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := Reference()
			tc.mutate(&p)
			err := p.Validate()
			require.ErrorIs(t, err, errs.ErrAssemblyParameterMismatch)
			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tc.subject, e.Subject)
		})
	}
}

func TestSignTransforms(t *testing.T) {
	t.Parallel()

	for v := -128; v <= 127; v++ {
		u, err := ToUnsigned(v, 8)
		require.NoError(t, err)
		require.True(t, u >= 0 && u <= 255)
		back, err := ToSigned(u, 8)
		require.NoError(t, err)
		require.Equal(t, v, back)
	}

	u, err := ToUnsigned(-128, 8)
	require.NoError(t, err)
	assert.Equal(t, 0x80, u)
	u, err = ToUnsigned(127, 8)
	require.NoError(t, err)
	assert.Equal(t, 0x7F, u)
	u, err = ToUnsigned(-1, 8)
	require.NoError(t, err)
	assert.Equal(t, 0xFF, u)

	_, err = ToUnsigned(128, 8)
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
	_, err = ToUnsigned(-129, 8)
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
	_, err = ToSigned(256, 8)
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
}

func TestOpcodeTable(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Opcode(0), OpUndefined)
	assert.Equal(t, Opcode(5), OpConfigureRelus)
	assert.Equal(t, Opcode(9), OpDebug)
	assert.Equal(t, "store_features", OpStoreFeatures.String())
	assert.Equal(t, "opcode(42)", Opcode(42).String())

	p := Reference()
	n, ok := OpLoadFeatures.OperandBytes(p)
	assert.True(t, ok)
	assert.Equal(t, 6, n)
	n, ok = OpConfigureWeights.OperandBytes(p)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	_, ok = OpConfigureRelus.OperandBytes(p)
	assert.False(t, ok)
}

func TestTreeSkeleton(t *testing.T) {
	t.Parallel()
	tree := Reference().Tree()
	assert.Equal(t, 63, tree.Nodes())
	assert.Equal(t, 5, tree.Depth())
	assert.True(t, tree.IsAdder(RootNode))
	assert.True(t, tree.IsAdder(30))
	assert.True(t, tree.IsMult(31))
	assert.Equal(t, 62, tree.Mult(31))

	l, r, ok := tree.Children(30)
	require.True(t, ok)
	assert.Equal(t, 61, l)
	assert.Equal(t, 62, r)
	_, _, ok = tree.Children(31)
	assert.False(t, ok)

	parent, ok := tree.Parent(62)
	require.True(t, ok)
	assert.Equal(t, 30, parent)
	_, ok = tree.Parent(RootNode)
	assert.False(t, ok)

	states := tree.States(UpSum, 2)
	require.Len(t, states, 63)
	assert.Equal(t, uint8(InjectOn), states[31])
	assert.Equal(t, uint8(InjectOn), states[32])
	assert.Equal(t, uint8(InjectOff), states[33])
	require.NoError(t, ConfigureStates{States: states}.Check(Reference()))
}

func TestInstructionChecks(t *testing.T) {
	t.Parallel()
	p := Reference()

	require.NoError(t, LoadFeatures{Port: 15, Count: 10, Addr: 100}.Check(p))
	require.ErrorIs(t, LoadFeatures{Port: 16, Count: 10}.Check(p), errs.ErrCapacityExceeded)
	require.ErrorIs(t, StoreFeatures{Port: 0, Count: 1 << 16}.Check(p), errs.ErrCapacityExceeded)
	require.ErrorIs(t, StoreFeatures{Port: 0, Count: 4, Addr: 1<<24 - 2}.Check(p), errs.ErrCapacityExceeded)
	require.ErrorIs(t, Run{Length: 256, Pace: 1}.Check(p), errs.ErrCapacityExceeded)
	require.ErrorIs(t, Run{Length: 1, Pace: 0}.Check(p), errs.ErrCapacityExceeded)

	weights := make([]int, p.NumMults)
	weights[0] = 128
	require.ErrorIs(t, ConfigureWeights{Weights: weights}.Check(p), errs.ErrCapacityExceeded)
	require.ErrorIs(t, ConfigureWeights{Weights: weights[:3]}.Check(p), errs.ErrAssemblyParameterMismatch)

	sel := make([]uint8, p.NumPorts)
	sel[3] = 63
	require.ErrorIs(t, ConfigureCollectors{Nodes: sel}.Check(p), errs.ErrCapacityExceeded)

	states := p.Tree().States(UpSum, 0)
	states[0] = 9
	require.ErrorIs(t, ConfigureStates{States: states}.Check(p), errs.ErrCapacityExceeded)
}
