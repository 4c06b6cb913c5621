// Package arf implements the Arbor Result File format.
//
// ARF is a single-file, memory-mappable container for a compiled accelerator
// program: the assembled image, where every tensor lives in feature memory,
// the initial feature memory contents and a JSON manifest describing the
// build.
package arf

import (
	"errors"
	"fmt"
)

// ARF global constants must never change.
const (
	// MagicARF is the file magic, encoded as "ARF\0".
	MagicARF = "ARF\x00"

	// CurrentMajor changes only with a breaking format change.
	CurrentMajor uint16 = 1

	// CurrentMinor changes when optional sections or fields are added.
	CurrentMinor uint16 = 0

	// FlagDebugProgram marks images compiled with debug instructions.
	FlagDebugProgram uint64 = 1 << 0
)

const (
	headerSize  = 40
	sectionSize = 24
	arfAlign    = 8
)

type SectionType uint32

const (
	SectionProgram     SectionType = 0x0001
	SectionTensorIndex SectionType = 0x0002
	SectionFeatures    SectionType = 0x0003
	SectionManifest    SectionType = 0x0004
)

func (t SectionType) String() string {
	switch t {
	case SectionProgram:
		return "program"
	case SectionTensorIndex:
		return "tensor_index"
	case SectionFeatures:
		return "features"
	case SectionManifest:
		return "manifest"
	}
	return fmt.Sprintf("section(%#x)", uint32(t))
}

type Header struct {
	Magic            [4]byte
	Major            uint16
	Minor            uint16
	HeaderSize       uint32
	SectionCount     uint32
	SectionDirOffset uint64
	FileSize         uint64
	Flags            uint64
}

func (h *Header) Valid() bool {
	return string(h.Magic[:]) == MagicARF && h.HeaderSize >= headerSize && h.SectionCount > 0
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

type Section struct {
	Type    uint32
	Version uint32
	Offset  uint64
	Size    uint64
}

func (s *Section) End() uint64 {
	return s.Offset + s.Size
}

var (
	ErrInvalidMagic     = errors.New("invalid ARF magic")
	ErrUnsupportedMajor = errors.New("unsupported ARF major version")
	ErrCorruptFile      = errors.New("corrupt ARF file")
)
