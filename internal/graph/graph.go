// Package graph is the compiler's view of an input model: declaration-ordered
// nodes with attributes, plus declared inputs, intermediate value infos,
// outputs and initializers.
package graph

// Graph is a sanitized computation graph. Slices keep declaration order.
type Graph struct {
	Name         string
	Nodes        []Node
	Inputs       []Value
	ValueInfos   []Value
	Outputs      []Value
	Initializers []Initializer

	// SparseInitializers counts sparse initializers in the source model.
	// The compiler supports none; the count is kept so lowering can
	// reject them by name.
	SparseInitializers int
}

// Node is one operator application.
type Node struct {
	Name    string
	OpType  string
	Inputs  []string
	Outputs []string
	Attrs   map[string]Attr
}

// Value declares a named tensor and its shape.
type Value struct {
	Name  string
	Shape []int
}

// Initializer is a constant tensor. Nil Data means all zeros.
type Initializer struct {
	Name  string
	Shape []int
	Data  []float32
}

// AttrKind is the payload kind of an attribute.
type AttrKind int

const (
	AttrInt AttrKind = iota + 1
	AttrFloat
	AttrString
	AttrInts
	AttrFloats
)

// Attr is a node attribute. Only the field matching Kind is meaningful.
type Attr struct {
	Kind   AttrKind
	Int    int64
	Float  float32
	String string
	Ints   []int64
	Floats []float32
}

// Ints returns the named integer-list attribute.
func (n Node) Ints(name string) ([]int64, bool) {
	a, ok := n.Attrs[name]
	if !ok || a.Kind != AttrInts {
		return nil, false
	}
	return a.Ints, true
}

// Int returns the named integer attribute.
func (n Node) Int(name string) (int64, bool) {
	a, ok := n.Attrs[name]
	if !ok || a.Kind != AttrInt {
		return 0, false
	}
	return a.Int, true
}

// Str returns the named string attribute.
func (n Node) Str(name string) (string, bool) {
	a, ok := n.Attrs[name]
	if !ok || a.Kind != AttrString {
		return "", false
	}
	return a.String, true
}

// Has reports whether the attribute is present at all.
func (n Node) Has(name string) bool {
	_, ok := n.Attrs[name]
	return ok
}

// Label names the node for diagnostics, falling back to its first output.
func (n Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	if len(n.Outputs) > 0 {
		return n.OpType + "(" + n.Outputs[0] + ")"
	}
	return n.OpType
}

// Initializer returns the initializer with the given name.
func (g *Graph) Initializer(name string) (Initializer, bool) {
	for _, init := range g.Initializers {
		if init.Name == name {
			return init, true
		}
	}
	return Initializer{}, false
}

// IsInitializer reports whether name is declared as an initializer.
func (g *Graph) IsInitializer(name string) bool {
	_, ok := g.Initializer(name)
	return ok
}

// IsValueInfo reports whether name is declared as an intermediate value.
func (g *Graph) IsValueInfo(name string) bool {
	for _, v := range g.ValueInfos {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Shape looks a name up across every declaration, latest category first.
func (g *Graph) Shape(name string) ([]int, bool) {
	if init, ok := g.Initializer(name); ok {
		return init.Shape, true
	}
	for _, list := range [][]Value{g.Outputs, g.ValueInfos, g.Inputs} {
		for _, v := range list {
			if v.Name == name {
				return v.Shape, true
			}
		}
	}
	return nil, false
}
