package compiler

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/arbor/internal/asm"
	"github.com/samcharles93/arbor/pkg/arf"
)

const sectionVersion = 1

// Manifest builds the ARF manifest for a, stamped with a fresh build id.
func (a *Artifact) Manifest(version, source string) (arf.Manifest, error) {
	m := arf.NewManifest("arbor", version)
	m.Graph = a.Graph.Name
	m.Source = source
	m.Root = a.Root.Tensor.Name
	m.Result = a.Result.Tensor.Name
	var err error
	if m.Config, err = json.Marshal(a.Config); err != nil {
		return m, err
	}
	if m.Stats, err = json.Marshal(a.Stats); err != nil {
		return m, err
	}
	return m, nil
}

// TensorIndex lists every tensor's feature-memory placement.
func (a *Artifact) TensorIndex() []arf.TensorEntry {
	tensors := a.Table.Tensors()
	out := make([]arf.TensorEntry, len(tensors))
	for i, t := range tensors {
		shape := make([]uint32, len(t.Shape))
		for j, d := range t.Shape {
			shape[j] = uint32(d)
		}
		out[i] = arf.TensorEntry{Name: t.Name, Offset: uint64(t.Offset), Shape: shape}
	}
	return out
}

// WriteFile stores the artifact as an ARF container and returns its
// manifest.
func (a *Artifact) WriteFile(path, version, source string) (arf.Manifest, error) {
	m, err := a.Manifest(version, source)
	if err != nil {
		return m, err
	}
	manifest, err := arf.EncodeManifest(m)
	if err != nil {
		return m, err
	}
	index, err := arf.EncodeTensorIndex(a.TensorIndex())
	if err != nil {
		return m, err
	}
	features, err := a.FeatureMemory()
	if err != nil {
		return m, err
	}

	f, err := os.Create(path)
	if err != nil {
		return m, err
	}
	w, err := arf.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return m, err
	}
	sections := []struct {
		typ  arf.SectionType
		data []byte
	}{
		{arf.SectionProgram, a.Image.Bytes()},
		{arf.SectionTensorIndex, index},
		{arf.SectionFeatures, features},
		{arf.SectionManifest, manifest},
	}
	for _, s := range sections {
		if err := w.WriteSection(s.typ, sectionVersion, s.data); err != nil {
			_ = f.Close()
			return m, fmt.Errorf("write %s: %w", s.typ, err)
		}
	}
	if a.Config.Debug {
		if err := w.AddFlags(arf.FlagDebugProgram); err != nil {
			_ = f.Close()
			return m, err
		}
	}
	if err := w.Finalise(); err != nil {
		_ = f.Close()
		return m, err
	}
	return m, f.Close()
}

// Contents is a decoded ARF container.
type Contents struct {
	Manifest arf.Manifest
	Config   Config
	Tensors  []arf.TensorEntry
	Image    *asm.Image
	Features []byte
	Flags    uint64
}

// ReadFile opens an ARF container written by WriteFile. Payloads are copied
// out so the mapping is released before returning.
func ReadFile(path string) (*Contents, error) {
	af, err := arf.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = af.Close() }()

	c := &Contents{Flags: af.Header.Flags}
	raw := af.Payload(arf.SectionManifest)
	if raw == nil {
		return nil, errors.New("arf: missing manifest section")
	}
	if c.Manifest, err = arf.DecodeManifest(append([]byte(nil), raw...)); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	c.Config = DefaultConfig()
	if len(c.Manifest.Config) > 0 {
		if err := json.Unmarshal(c.Manifest.Config, &c.Config); err != nil {
			return nil, fmt.Errorf("manifest config: %w", err)
		}
	}
	if c.Tensors, err = arf.DecodeTensorIndex(af.Payload(arf.SectionTensorIndex)); err != nil {
		return nil, err
	}
	program := af.Payload(arf.SectionProgram)
	if program == nil {
		return nil, errors.New("arf: missing program section")
	}
	if c.Image, err = asm.FromBytes(c.Config.ISA, program); err != nil {
		return nil, err
	}
	c.Features = append([]byte(nil), af.Payload(arf.SectionFeatures)...)
	return c, nil
}
