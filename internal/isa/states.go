package isa

import "fmt"

// AdderState selects what an adder node sends up the tree and what it
// forwards sideways to its neighbour.
//
//	state  up      forward
//	0      L+R     0
//	1      0       L+R
//	2      L+R+F   0
//	3      L       R
//	4      R       L
type AdderState uint8

const (
	UpSum              AdderState = 0
	ForwardSum         AdderState = 1
	UpSumWithForward   AdderState = 2
	UpLeftForwardRight AdderState = 3
	UpRightForwardLeft AdderState = 4
)

func (s AdderState) Valid() bool {
	return s <= UpRightForwardLeft
}

func (s AdderState) String() string {
	switch s {
	case UpSum:
		return "up=L+R"
	case ForwardSum:
		return "fwd=L+R"
	case UpSumWithForward:
		return "up=L+R+F"
	case UpLeftForwardRight:
		return "up=L,fwd=R"
	case UpRightForwardLeft:
		return "up=R,fwd=L"
	}
	return fmt.Sprintf("adder(%d)", uint8(s))
}

// Inject enables a multiplier leaf's feature input.
type Inject uint8

const (
	InjectOff Inject = 0
	InjectOn  Inject = 1
)

func (i Inject) Valid() bool {
	return i <= InjectOn
}

// Tree is the complete binary reduction tree. Node 0 is the root, node i has
// children 2i+1 and 2i+2, adders occupy the low ids and multipliers the
// leaves.
type Tree struct {
	Adders int
	Mults  int
}

func (p Params) Tree() Tree {
	return Tree{Adders: p.NumAdders, Mults: p.NumMults}
}

const RootNode = 0

func (t Tree) Nodes() int {
	return t.Adders + t.Mults
}

func (t Tree) IsAdder(id int) bool {
	return id >= 0 && id < t.Adders
}

func (t Tree) IsMult(id int) bool {
	return id >= t.Adders && id < t.Nodes()
}

// Mult returns the node id of multiplier i.
func (t Tree) Mult(i int) int {
	return t.Adders + i
}

func (t Tree) Children(id int) (left, right int, ok bool) {
	if !t.IsAdder(id) {
		return 0, 0, false
	}
	return 2*id + 1, 2*id + 2, true
}

func (t Tree) Parent(id int) (int, bool) {
	if id <= 0 || id >= t.Nodes() {
		return 0, false
	}
	return (id - 1) / 2, true
}

// Depth is the number of adder levels between the root and the leaves.
func (t Tree) Depth() int {
	d := 0
	for n := t.Mults; n > 1; n /= 2 {
		d++
	}
	return d
}

// States builds a full state vector: every adder gets adder, the first
// injected multipliers are switched on and the rest off.
func (t Tree) States(adder AdderState, injected int) []uint8 {
	states := make([]uint8, t.Nodes())
	for id := range states {
		switch {
		case t.IsAdder(id):
			states[id] = uint8(adder)
		case id-t.Adders < injected:
			states[id] = uint8(InjectOn)
		default:
			states[id] = uint8(InjectOff)
		}
	}
	return states
}
