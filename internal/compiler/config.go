package compiler

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/isa"
	"github.com/samcharles93/arbor/internal/solver"
)

// Config holds the construction parameters of one compilation.
type Config struct {
	BufferLength int `yaml:"buffer_length" json:"buffer_length"`
	Ports        int `yaml:"ports" json:"ports"`
	Mults        int `yaml:"mults" json:"mults"`
	// WordSize is carried for parity with existing toolchains; no pass
	// reads it.
	WordSize int        `yaml:"word_size" json:"word_size"`
	ISA      isa.Params `yaml:"isa" json:"isa"`
	Debug    bool       `yaml:"debug" json:"debug"`
}

func DefaultConfig() Config {
	return Config{
		BufferLength: 128,
		Ports:        16,
		Mults:        64,
		WordSize:     2,
		ISA:          isa.Reference(),
	}
}

// Limits are the solver bounds. Mults is capped at the tree's multiplier
// count, so a filter the tree cannot hold fails while solving rather than
// in code generation.
func (c Config) Limits() solver.Limits {
	mults := c.Mults
	if c.ISA.NumMults > 0 {
		mults = min(mults, c.ISA.NumMults)
	}
	return solver.Limits{BufferLength: c.BufferLength, Ports: c.Ports, Mults: mults}
}

// Validate rejects non-positive limits and more solver ports than the tree
// has. The remaining ISA parameters are checked by the assembler, which
// reports them as a parameter mismatch.
func (c Config) Validate() error {
	if c.WordSize <= 0 {
		return fmt.Errorf("word size %d must be positive", c.WordSize)
	}
	if c.ISA.NumPorts > 0 && c.Ports > c.ISA.NumPorts {
		return errs.ParamMismatch("ports", "solver uses %d ports, tree has %d", c.Ports, c.ISA.NumPorts)
	}
	return c.Limits().Validate()
}

// LoadConfig reads a YAML config file over the defaults. A missing file is
// not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
