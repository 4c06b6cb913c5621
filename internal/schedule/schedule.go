// Package schedule orders graph nodes so every node runs after the nodes
// producing its inputs.
package schedule

import (
	"fmt"
	"strings"

	"github.com/samcharles93/arbor/internal/errs"
	"github.com/samcharles93/arbor/internal/graph"
	"github.com/samcharles93/arbor/internal/logger"
)

// Schedule returns g's nodes in dependency order. Graph inputs and
// initializers start out available; each round takes the earliest declared
// node whose inputs are all available, makes its outputs available and
// starts the scan again. Empty input names denote omitted optional inputs
// and are always available.
func Schedule(g *graph.Graph, log logger.Logger) ([]graph.Node, error) {
	log = logger.Stage(log, "schedule")

	ready := make(map[string]bool, len(g.Inputs)+len(g.Initializers))
	for _, v := range g.Inputs {
		ready[v.Name] = true
	}
	for _, init := range g.Initializers {
		ready[init.Name] = true
	}

	pending := append([]graph.Node(nil), g.Nodes...)
	order := make([]graph.Node, 0, len(pending))
	for len(pending) > 0 {
		i := firstReady(pending, ready)
		if i < 0 {
			return nil, deadlock(pending, ready)
		}
		n := pending[i]
		pending = append(pending[:i], pending[i+1:]...)
		for _, out := range n.Outputs {
			ready[out] = true
		}
		order = append(order, n)
		log.Debug("scheduled", "node", n.Label(), "position", len(order)-1)
	}
	return order, nil
}

func firstReady(pending []graph.Node, ready map[string]bool) int {
	for i, n := range pending {
		if satisfied(n, ready) {
			return i
		}
	}
	return -1
}

func satisfied(n graph.Node, ready map[string]bool) bool {
	for _, in := range n.Inputs {
		if in != "" && !ready[in] {
			return false
		}
	}
	return true
}

func deadlock(pending []graph.Node, ready map[string]bool) error {
	var blocked []string
	for _, n := range pending {
		var missing []string
		for _, in := range n.Inputs {
			if in != "" && !ready[in] {
				missing = append(missing, in)
			}
		}
		blocked = append(blocked, fmt.Sprintf("%s waits on [%s]", n.Label(), strings.Join(missing, ", ")))
	}
	subject := pending[0].Label()
	return errs.Deadlock(subject, "%d node(s) can never run: %s", len(pending), strings.Join(blocked, "; "))
}
