package resolver

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/customizer/internal/ctxlog"
	"github.com/vk/customizer/internal/values"
)

// node is one string leaf containing at least one reference expression.
// Leaves without expressions never become nodes; they are already resolved.
type node struct {
	path values.Path
	key  string
	raw  string

	exprs []Expression
	// deps are the referenced dotted paths in first-appearance order, deduped.
	// Whether a referenced path actually exists is deliberately not checked
	// here; existence is validated at render time, which keeps reference
	// order independent of declaration order.
	deps []string

	// order is the position at which the tree walk discovered this node. It
	// breaks ties during topological sorting so resolution order is
	// reproducible.
	order int

	resolved bool
	value    cty.Value
}

// refGraph maps dotted leaf paths to their dependency nodes.
type refGraph struct {
	nodes map[string]*node
	order []*node
}

// buildGraph walks the whole tree, scanning every string leaf and registering
// a node per leaf that contains expressions.
func buildGraph(ctx context.Context, tree cty.Value, d Delimiters, reg *Registry) (*refGraph, error) {
	logger := ctxlog.FromContext(ctx)
	g := &refGraph{nodes: make(map[string]*node)}

	err := values.Walk(tree, func(p values.Path, v cty.Value) error {
		if v.IsNull() || v.Type() != cty.String {
			return nil
		}
		raw := v.AsString()
		exprs, err := scanString(raw, d, reg, p.String())
		if err != nil {
			return err
		}
		if len(exprs) == 0 {
			return nil
		}

		n := &node{
			path:  append(values.Path(nil), p...),
			key:   p.String(),
			raw:   raw,
			exprs: exprs,
			order: len(g.order),
		}
		seen := make(map[string]bool)
		for _, e := range exprs {
			dep := e.Ref.String()
			if !seen[dep] {
				seen[dep] = true
				n.deps = append(n.deps, dep)
			}
		}

		g.nodes[n.key] = n
		g.order = append(g.order, n)
		logger.Debug("reference graph node registered", "path", n.key, "deps", n.deps)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("reference graph built", "nodes", len(g.order))
	return g, nil
}
