package asm

import (
	"testing"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/isa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weights(vals ...int) isa.ConfigureWeights {
	w := make([]int, isa.Reference().NumMults)
	copy(w, vals)
	return isa.ConfigureWeights{Weights: w}
}

func TestWeightEncoding(t *testing.T) {
	t.Parallel()

	p := isa.Reference()
	im, err := Assemble(p, []isa.Instruction{weights(-128, 127, -1)})
	require.NoError(t, err)

	data := im.Bytes()
	// configure_weights pointing at the first configuration word, then reset.
	assert.Equal(t, []byte{byte(isa.OpConfigureWeights), 128, 0, 0, byte(isa.OpReset)}, data[:5])
	cfg := data[p.InstrWords*isa.WordBytes:]
	assert.Equal(t, []byte{0, 0, 0, 0x80, 0x7F, 0xFF, 0}, cfg[:7])
	assert.Equal(t, 36, im.ConfigurationBytes())

	_, err = Assemble(p, []isa.Instruction{weights(128)})
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
}

func TestImageIsFixedSize(t *testing.T) {
	t.Parallel()

	im, err := Assemble(isa.Reference(), nil)
	require.NoError(t, err)
	require.Len(t, im.Bytes(), 1024)
	words := im.Words()
	require.Len(t, words, 256)
	assert.Equal(t, uint32(isa.OpReset), words[0])
	for _, w := range words[1:] {
		require.Zero(t, w)
	}
	assert.Equal(t, 1, im.InstructionBytes())
}

func TestLayout(t *testing.T) {
	t.Parallel()

	p := isa.Reference()
	prog := []isa.Instruction{
		isa.ConfigureStates{States: p.Tree().States(isa.UpSum, 9)},
		weights(1, 2, 3),
		isa.ConfigureCollectors{Nodes: make([]uint8, 16)},
		isa.LoadFeatures{Port: 2, Count: 300, Addr: 0x012345},
		isa.Run{Length: 6, Pace: 3},
		isa.Debug{},
		isa.StoreFeatures{Port: 15, Count: 6, Addr: 7},
	}
	im, err := Assemble(p, prog)
	require.NoError(t, err)

	want := []byte{
		byte(isa.OpConfigureStates), 128, 0, 0,
		byte(isa.OpConfigureWeights), 144, 0, 0,
		byte(isa.OpConfigureCollectors), 153, 0, 0,
		byte(isa.OpLoadFeatures), 2, 0x2C, 0x01, 0x45, 0x23, 0x01,
		byte(isa.OpRun), 6, 3,
		byte(isa.OpDebug),
		byte(isa.OpStoreFeatures), 15, 6, 0, 7, 0, 0,
		byte(isa.OpReset),
	}
	assert.Equal(t, want, im.Bytes()[:len(want)])
	assert.Equal(t, len(want), im.InstructionBytes())
	// 16 + 9 + 4 words.
	assert.Equal(t, 29*isa.WordBytes, im.ConfigurationBytes())

	got, err := Disassemble(im)
	require.NoError(t, err)
	assert.Equal(t, append(prog, isa.Reset{}), got)
}

func TestRegionOverflow(t *testing.T) {
	t.Parallel()

	p := isa.Reference()

	debugs := make([]isa.Instruction, p.InstrWords*isa.WordBytes)
	for i := range debugs {
		debugs[i] = isa.Debug{}
	}
	_, err := Assemble(p, debugs)
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)

	// One fewer leaves room for the reset.
	_, err = Assemble(p, debugs[1:])
	require.NoError(t, err)

	states := make([]isa.Instruction, 9)
	for i := range states {
		states[i] = isa.ConfigureStates{States: make([]uint8, p.NumNodes)}
	}
	_, err = Assemble(p, states)
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
}

func TestRejects(t *testing.T) {
	t.Parallel()

	p := isa.Reference()
	bad := p
	bad.NumNodes = 64
	_, err := Assemble(bad, nil)
	require.ErrorIs(t, err, errs.ErrAssemblyParameterMismatch)

	_, err = Assemble(p, []isa.Instruction{isa.Reset{}})
	require.Error(t, err)

	_, err = Assemble(p, []isa.Instruction{isa.Run{Length: 256, Pace: 1}})
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)

	_, err = FromBytes(p, make([]byte, 10))
	require.ErrorIs(t, err, errs.ErrAssemblyParameterMismatch)

	blank, err := FromBytes(p, make([]byte, p.ImageBytes()))
	require.NoError(t, err)
	_, err = Disassemble(blank)
	require.Error(t, err)
}
