package arf

import (
	"encoding/binary"
	"os"
)

var le = binary.LittleEndian

func encodeHeader(b []byte, h Header) bool {
	if len(b) < headerSize {
		return false
	}
	copy(b[0:4], h.Magic[:])
	le.PutUint16(b[4:], h.Major)
	le.PutUint16(b[6:], h.Minor)
	le.PutUint32(b[8:], h.HeaderSize)
	le.PutUint32(b[12:], h.SectionCount)
	le.PutUint64(b[16:], h.SectionDirOffset)
	le.PutUint64(b[24:], h.FileSize)
	le.PutUint64(b[32:], h.Flags)
	return true
}

func decodeHeader(b []byte) (Header, bool) {
	var h Header
	if len(b) < headerSize {
		return h, false
	}
	copy(h.Magic[:], b[0:4])
	h.Major = le.Uint16(b[4:])
	h.Minor = le.Uint16(b[6:])
	h.HeaderSize = le.Uint32(b[8:])
	h.SectionCount = le.Uint32(b[12:])
	h.SectionDirOffset = le.Uint64(b[16:])
	h.FileSize = le.Uint64(b[24:])
	h.Flags = le.Uint64(b[32:])
	return h, true
}

func encodeSection(b []byte, s Section) bool {
	if len(b) < sectionSize {
		return false
	}
	le.PutUint32(b[0:], s.Type)
	le.PutUint32(b[4:], s.Version)
	le.PutUint64(b[8:], s.Offset)
	le.PutUint64(b[16:], s.Size)
	return true
}

func decodeSection(b []byte) (Section, bool) {
	if len(b) < sectionSize {
		return Section{}, false
	}
	return Section{
		Type:    le.Uint32(b[0:]),
		Version: le.Uint32(b[4:]),
		Offset:  le.Uint64(b[8:]),
		Size:    le.Uint64(b[16:]),
	}, true
}

func rangesOverlap(a0, a1, b0, b1 uint64) bool {
	// half-open ranges [a0,a1) and [b0,b1)
	return a0 < b1 && b0 < a1
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
