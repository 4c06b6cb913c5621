package compiler

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/ir"
	"github.com/samcharles93/arbor/internal/isa"
)

// SetInput copies vals, in row-major order, into the root tensor.
func (a *Artifact) SetInput(vals []float32) error {
	return a.Root.Store(vals)
}

// RandomInput fills the root tensor with small integers drawn from seed.
func (a *Artifact) RandomInput(seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	vals := make([]float32, a.Root.Len())
	for i := range vals {
		vals[i] = float32(rng.IntN(9) - 4)
	}
	_ = a.Root.Store(vals)
}

// Simulate executes ops against the artifact's tensors and returns the
// resulting output values. Every tensor other than the root input and the
// initializers is zeroed first, so results never carry over between runs.
func (a *Artifact) Simulate(ops []ir.Op) ([]float32, error) {
	a.resetWorkspace()
	if err := ir.Run(ops); err != nil {
		return nil, err
	}
	return a.Result.Values(), nil
}

func (a *Artifact) resetWorkspace() {
	for _, t := range a.Table.Tensors() {
		if t == a.Root.Tensor || a.Graph.IsInitializer(t.Name) {
			continue
		}
		clear(t.Data)
	}
}

// Reference evaluates the scheduled nodes directly from the current root
// data, without lowering.
func (a *Artifact) Reference() ([]float32, error) {
	vals := map[string]*ir.Tensor{a.Root.Tensor.Name: a.Root.Tensor}
	lookup := func(name string) (*ir.Tensor, error) {
		if t, ok := vals[name]; ok {
			return t, nil
		}
		if t, ok := a.Table.Get(name); ok {
			return t, nil
		}
		return nil, fmt.Errorf("reference: no tensor %q", name)
	}
	for _, n := range a.Schedule {
		x, err := lookup(n.Inputs[0])
		if err != nil {
			return nil, err
		}
		w, err := lookup(n.Inputs[1])
		if err != nil {
			return nil, err
		}
		pad := 0
		if pads, ok := n.Ints("pads"); ok && len(pads) > 0 {
			pad = int(pads[0])
		}
		out, err := ir.Conv2D(x, w, pad)
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", n.Label(), err)
		}
		vals[n.Outputs[0]] = out
	}
	res, ok := vals[a.Result.Tensor.Name]
	if !ok {
		return nil, fmt.Errorf("reference: output %q is never produced", a.Result.Tensor.Name)
	}
	return res.Data, nil
}

// Report compares the lowered and solved op lists with the reference.
type Report struct {
	Seed           uint64  `json:"seed"`
	Elements       int     `json:"elements"`
	LoweredMatches bool    `json:"lowered_matches"`
	SolvedMatches  bool    `json:"solved_matches"`
	MaxAbsDiff     float64 `json:"max_abs_diff"`
}

func (r Report) OK() bool {
	return r.LoweredMatches && r.SolvedMatches
}

// Check runs both op lists on random input drawn from seed and compares
// each against the reference convolution.
func (a *Artifact) Check(seed uint64) (Report, error) {
	a.RandomInput(seed)
	ref, err := a.Reference()
	if err != nil {
		return Report{}, err
	}
	ref = append([]float32(nil), ref...)

	lowered, err := a.Simulate(a.Lowered)
	if err != nil {
		return Report{}, fmt.Errorf("simulate lowered ops: %w", err)
	}
	solved, err := a.Simulate(a.Solved)
	if err != nil {
		return Report{}, fmt.Errorf("simulate solved ops: %w", err)
	}

	r := Report{Seed: seed, Elements: len(ref)}
	var dl, ds float64
	r.LoweredMatches, dl = compare(ref, lowered)
	r.SolvedMatches, ds = compare(ref, solved)
	r.MaxAbsDiff = max(dl, ds)
	return r, nil
}

func compare(want, got []float32) (bool, float64) {
	if len(want) != len(got) {
		return false, math.Inf(1)
	}
	same := true
	worst := 0.0
	for i := range want {
		if want[i] != got[i] {
			same = false
		}
		worst = max(worst, math.Abs(float64(want[i])-float64(got[i])))
	}
	return same, worst
}

// Dump writes every lowered op, solved op and instruction.
func (a *Artifact) Dump(w io.Writer) error {
	sections := []struct {
		title string
		items []fmt.Stringer
	}{
		{"lowered ops", stringers(a.Lowered)},
		{"solved ops", stringers(a.Solved)},
		{"instructions", stringers(a.Instructions)},
	}
	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "# %s (%d)\n", s.title, len(s.items)); err != nil {
			return err
		}
		for i, item := range s.items {
			if _, err := fmt.Fprintf(w, "%5d  %s\n", i, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func stringers[T fmt.Stringer](xs []T) []fmt.Stringer {
	out := make([]fmt.Stringer, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// FeatureMemory is the initial feature memory image: one two's-complement
// byte per element, tensors at their baked offsets.
func (a *Artifact) FeatureMemory() ([]byte, error) {
	mem := make([]byte, a.Table.Elements())
	lo, hi := a.Config.ISA.WeightRange()
	for _, t := range a.Table.Tensors() {
		for i, v := range t.Data {
			f := float64(v)
			if f != math.Trunc(f) || f < float64(lo) || f > float64(hi) {
				return nil, errs.Capacity(t.Name, "element %d value %v is not a %d-bit integer", i, v, a.Config.ISA.InputWidth)
			}
			u, err := isa.ToUnsigned(int(f), a.Config.ISA.InputWidth)
			if err != nil {
				return nil, err
			}
			mem[t.Offset+i] = byte(u)
		}
	}
	return mem, nil
}
