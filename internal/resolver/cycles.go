package resolver

// DFS colors for cycle detection.
const (
	white = iota // unvisited
	grey         // on the current recursion stack
	black        // fully explored
)

// detectCycles proves the graph acyclic or returns a *CycleError carrying the
// full ordered cycle. Every unvisited node is used as a traversal root, so
// cycles unreachable from the first node are still found.
func (g *refGraph) detectCycles() error {
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(n *node) error
	visit = func(n *node) error {
		state[n.key] = grey
		stack = append(stack, n.key)

		for _, dep := range n.deps {
			dn, ok := g.nodes[dep]
			if !ok {
				// References to plain leaves (or to nothing at all) carry no
				// further edges. Missing paths are reported at render time.
				continue
			}
			switch state[dep] {
			case grey:
				// The dep is on our own stack: the cycle is the stack from
				// its first occurrence back to itself.
				start := 0
				for i, key := range stack {
					if key == dep {
						start = i
						break
					}
				}
				cycle := make([]string, 0, len(stack)-start+1)
				cycle = append(cycle, stack[start:]...)
				cycle = append(cycle, dep)
				return &CycleError{Cycle: cycle}
			case white:
				if err := visit(dn); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[n.key] = black
		return nil
	}

	for _, n := range g.order {
		if state[n.key] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkDepth bounds the longest dependency chain, measured in nodes, via
// memoized longest-path over the DAG. Must run after detectCycles.
func (g *refGraph) checkDepth(max int) error {
	memo := make(map[string]int, len(g.nodes))

	var chain func(n *node) int
	chain = func(n *node) int {
		if d, ok := memo[n.key]; ok {
			return d
		}
		longest := 0
		for _, dep := range n.deps {
			if dn, ok := g.nodes[dep]; ok {
				if d := chain(dn); d > longest {
					longest = d
				}
			}
		}
		memo[n.key] = longest + 1
		return longest + 1
	}

	for _, n := range g.order {
		if d := chain(n); d > max {
			return &DepthError{Path: n.key, Depth: d, Max: max}
		}
	}
	return nil
}
