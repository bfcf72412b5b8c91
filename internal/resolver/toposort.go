package resolver

// toposort produces a total order in which every dependency of a node
// precedes the node itself, using Kahn's algorithm. Ties among
// simultaneously ready nodes are broken by tree-walk discovery order, so the
// resolution order (and any diagnostics derived from it) is reproducible
// across runs on the same input. The graph must already be proven acyclic.
func (g *refGraph) toposort() []*node {
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]*node, len(g.nodes))

	for _, n := range g.order {
		for _, dep := range n.deps {
			if _, ok := g.nodes[dep]; ok {
				indegree[n.key]++
				dependents[dep] = append(dependents[dep], n)
			}
		}
	}

	var ready []*node
	for _, n := range g.order {
		if indegree[n.key] == 0 {
			ready = append(ready, n)
		}
	}

	out := make([]*node, 0, len(g.order))
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			if ready[i].order < ready[best].order {
				best = i
			}
		}
		n := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		out = append(out, n)

		for _, m := range dependents[n.key] {
			indegree[m.key]--
			if indegree[m.key] == 0 {
				ready = append(ready, m)
			}
		}
	}
	return out
}
