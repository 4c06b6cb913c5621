package arf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.arf")
	f, err := os.Create(path)
	require.NoError(t, err)

	w, err := NewWriter(f)
	require.NoError(t, err)
	require.NoError(t, w.WriteSection(SectionManifest, 1, []byte(`{"tool":"arbor"}`)))
	require.NoError(t, w.WriteSection(SectionProgram, 1, []byte{1, 2, 3}))
	require.NoError(t, w.WriteSection(SectionFeatures, 1, nil))
	require.Error(t, w.WriteSection(SectionProgram, 1, []byte{4}))
	require.NoError(t, w.AddFlags(FlagDebugProgram))
	require.NoError(t, w.Finalise())
	require.Error(t, w.Finalise())
	require.NoError(t, f.Close())
	return path
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	path := writeSample(t)
	af, err := Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, af.Close()) }()

	assert.Equal(t, headerSize, int(af.Header.HeaderSize))
	assert.Equal(t, FlagDebugProgram, af.Header.Flags)
	require.Len(t, af.Sections, 3)
	// The directory is sorted by type.
	assert.Equal(t, uint32(SectionProgram), af.Sections[0].Type)
	assert.Equal(t, uint32(SectionManifest), af.Sections[2].Type)
	for _, s := range af.Sections {
		assert.Zero(t, s.Offset%arfAlign)
	}

	assert.Equal(t, []byte{1, 2, 3}, af.Payload(SectionProgram))
	assert.Equal(t, `{"tool":"arbor"}`, string(af.Payload(SectionManifest)))
	assert.Empty(t, af.Payload(SectionFeatures))
	assert.Nil(t, af.Payload(SectionTensorIndex))
}

func TestOpenReaderAt(t *testing.T) {
	t.Parallel()

	path := writeSample(t)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	require.NoError(t, err)

	af, err := OpenReaderAt(f, st.Size())
	require.NoError(t, err)
	assert.False(t, af.mmapped)
	assert.Equal(t, []byte{1, 2, 3}, af.Payload(SectionProgram))
	require.NoError(t, af.Close())
}

func TestCorruptFiles(t *testing.T) {
	t.Parallel()

	good, err := os.ReadFile(writeSample(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
		want   error
	}{
		{"magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrInvalidMagic},
		{"major", func(b []byte) []byte { le.PutUint16(b[4:], 9); return b }, ErrUnsupportedMajor},
		{"truncated", func(b []byte) []byte { return b[:len(b)-1] }, ErrCorruptFile},
		{"directory offset", func(b []byte) []byte { le.PutUint64(b[16:], 8); return b }, ErrCorruptFile},
		{"section bounds", func(b []byte) []byte {
			dir := le.Uint64(b[16:])
			le.PutUint64(b[dir+16:], 1<<20)
			return b
		}, ErrCorruptFile},
		{"misaligned section", func(b []byte) []byte {
			dir := le.Uint64(b[16:])
			le.PutUint64(b[dir+8:], 41)
			return b
		}, ErrCorruptFile},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := tc.mutate(append([]byte(nil), good...))
			_, err := parseFileData(b, false)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestHeaderEncodingLittleEndian(t *testing.T) {
	t.Parallel()

	h := Header{
		Magic:            [4]byte{'A', 'R', 'F', 0},
		Major:            0x1122,
		Minor:            0x3344,
		HeaderSize:       headerSize,
		SectionCount:     7,
		SectionDirOffset: 0x0102030405060708,
		FileSize:         0x1112131415161718,
		Flags:            0x2122232425262728,
	}
	var raw [headerSize]byte
	require.True(t, encodeHeader(raw[:], h))
	assert.Equal(t, []byte{0x22, 0x11}, raw[4:6])
	assert.Equal(t, byte(0x08), raw[16])
	assert.Equal(t, byte(0x01), raw[23])
	got, ok := decodeHeader(raw[:])
	require.True(t, ok)
	assert.Equal(t, h, got)

	s := Section{Type: 0x11223344, Version: 2, Offset: 0x0102030405060708, Size: 9}
	var sraw [sectionSize]byte
	require.True(t, encodeSection(sraw[:], s))
	assert.Equal(t, byte(0x44), sraw[0])
	gotS, ok := decodeSection(sraw[:])
	require.True(t, ok)
	assert.Equal(t, s, gotS)
}

func TestTensorIndex(t *testing.T) {
	t.Parallel()

	entries := []TensorEntry{
		{Name: "__zero__", Offset: 0, Shape: []uint32{16, 128}},
		{Name: "x", Offset: 2048, Shape: []uint32{1, 2, 4, 4}},
		{Name: "", Offset: 3000, Shape: []uint32{}},
	}
	b, err := EncodeTensorIndex(entries)
	require.NoError(t, err)
	got, err := DecodeTensorIndex(b)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	assert.Equal(t, uint64(2048), got[0].Elements())

	_, err = DecodeTensorIndex(b[:len(b)-2])
	require.ErrorIs(t, err, ErrCorruptFile)
	_, err = DecodeTensorIndex(append(b, 0))
	require.ErrorIs(t, err, ErrCorruptFile)
	_, err = DecodeTensorIndex([]byte{0xFF, 0xFF, 0xFF, 0x7F})
	require.ErrorIs(t, err, ErrCorruptFile)
}

func TestManifest(t *testing.T) {
	t.Parallel()

	m := NewManifest("arbor", "dev")
	m.Graph = "conv"
	m.Stats = []byte(`{"nodes":1}`)
	assert.Len(t, m.BuildID, 36)

	b, err := EncodeManifest(m)
	require.NoError(t, err)
	got, err := DecodeManifest(b)
	require.NoError(t, err)
	assert.Equal(t, m.BuildID, got.BuildID)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
	assert.JSONEq(t, `{"nodes":1}`, string(got.Stats))
	assert.NotEqual(t, m.BuildID, NewManifest("arbor", "dev").BuildID)
}
