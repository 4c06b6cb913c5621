// Package compiler runs the full pipeline from a graph to an assembled
// program image.
package compiler

import (
	"fmt"
	"time"

	"github.com/samcharles93/arbor/internal/alloc"
	"github.com/samcharles93/arbor/internal/asm"
	"github.com/samcharles93/arbor/internal/codegen"
	"github.com/samcharles93/arbor/internal/graph"
	"github.com/samcharles93/arbor/internal/ir"
	"github.com/samcharles93/arbor/internal/isa"
	"github.com/samcharles93/arbor/internal/logger"
	"github.com/samcharles93/arbor/internal/lower"
	"github.com/samcharles93/arbor/internal/schedule"
	"github.com/samcharles93/arbor/internal/solver"
)

// Artifact is everything one compilation produced. Tensors in Table are
// shared with the ops, so simulating writes into them.
type Artifact struct {
	Config       Config
	Graph        *graph.Graph
	Schedule     []graph.Node
	Table        *alloc.Table
	Root         ir.Root
	Result       ir.Result
	Lowered      []ir.Op
	Solved       []ir.Op
	Instructions []isa.Instruction
	Image        *asm.Image
	Stats        Stats
}

// Stats summarises a compilation.
type Stats struct {
	Nodes              int           `json:"nodes"`
	LoweredOps         int           `json:"lowered_ops"`
	SolvedOps          int           `json:"solved_ops"`
	Conv2              int           `json:"conv2"`
	Add                int           `json:"add"`
	Instructions       int           `json:"instructions"`
	InstructionBytes   int           `json:"instruction_bytes"`
	ConfigurationBytes int           `json:"configuration_bytes"`
	Tensors            int           `json:"tensors"`
	FeatureElements    int           `json:"feature_elements"`
	Elapsed            time.Duration `json:"elapsed_ns"`
}

// Compile runs sanitize, allocation, scheduling, lowering, solving, offset
// baking, code generation and assembly. Any failure aborts the whole
// compilation.
func Compile(g *graph.Graph, cfg Config, log logger.Logger) (*Artifact, error) {
	if log == nil {
		log = logger.Discard()
	}
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.ISA.Validate(); err != nil {
		return nil, err
	}

	g, err := graph.Sanitize(g, log)
	if err != nil {
		return nil, fmt.Errorf("sanitize: %w", err)
	}
	tab, err := alloc.Build(g, log)
	if err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}
	nodes, err := schedule.Schedule(g, log)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	prog, err := lower.Lower(g, nodes, tab, log)
	if err != nil {
		return nil, fmt.Errorf("lower: %w", err)
	}

	s, err := solver.New(cfg.Limits(), log)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	solved, err := s.Solve(prog.Ops)
	if err != nil {
		return nil, err
	}

	if err := tab.BakeOffsets(cfg.Ports, cfg.BufferLength); err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}
	instrs, err := codegen.Generate(cfg.ISA, tab.Zero(), solved, codegen.Options{Debug: cfg.Debug}, log)
	if err != nil {
		return nil, err
	}
	image, err := asm.Assemble(cfg.ISA, instrs)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	art := &Artifact{
		Config:       cfg,
		Graph:        g,
		Schedule:     nodes,
		Table:        tab,
		Root:         prog.Root,
		Result:       prog.Result,
		Lowered:      prog.Ops,
		Solved:       solved,
		Instructions: instrs,
		Image:        image,
	}
	art.Stats = art.stats(time.Since(start))
	log.Info("compiled",
		"nodes", art.Stats.Nodes,
		"lowered_ops", art.Stats.LoweredOps,
		"solved_ops", art.Stats.SolvedOps,
		"instructions", art.Stats.Instructions,
		"instr_bytes", art.Stats.InstructionBytes,
		"config_bytes", art.Stats.ConfigurationBytes,
		"elapsed", art.Stats.Elapsed,
	)
	return art, nil
}

func (a *Artifact) stats(elapsed time.Duration) Stats {
	st := Stats{
		Nodes:              len(a.Schedule),
		LoweredOps:         len(a.Lowered),
		SolvedOps:          len(a.Solved),
		Instructions:       len(a.Instructions),
		InstructionBytes:   a.Image.InstructionBytes(),
		ConfigurationBytes: a.Image.ConfigurationBytes(),
		Tensors:            len(a.Table.Tensors()),
		FeatureElements:    a.Table.Elements(),
		Elapsed:            elapsed,
	}
	for _, op := range a.Solved {
		switch op.(type) {
		case ir.Conv2:
			st.Conv2++
		case ir.Add:
			st.Add++
		}
	}
	return st
}
