package onnx

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ParseFile decodes the model at path. The file is memory-mapped read-only
// while decoding; if mapping fails it is read into memory instead.
func ParseFile(path string) (*ModelProto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size == 0 {
		return nil, fmt.Errorf("%s: %w: empty file", path, ErrMalformed)
	}
	if size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%s: file too large", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return Parse(data)
	}
	defer func() { _ = unix.Munmap(data) }()

	// Parse copies every retained payload, so nothing outlives the mapping.
	return Parse(data)
}

// WriteFile encodes m and writes it to path.
func WriteFile(path string, m *ModelProto) error {
	return os.WriteFile(path, Encode(m), 0o644)
}
