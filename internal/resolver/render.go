package resolver

import (
	"errors"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/customizer/internal/values"
)

// renderNode evaluates one node's expressions against the current tree, which
// exposes already-resolved values for every node rendered before this one.
func renderNode(n *node, tree cty.Value, reg *Registry) (cty.Value, error) {
	if len(n.exprs) == 1 && n.exprs[0].Pure {
		e := n.exprs[0]
		ref, err := lookupRef(tree, e, n.key)
		if err != nil {
			return cty.NilVal, err
		}
		// Pure reference: the filtered value substitutes verbatim. Integers
		// stay integers, booleans stay booleans, lists stay lists.
		return applyFilters(ref, e, reg, n.key)
	}

	var b strings.Builder
	pos := 0
	for _, e := range n.exprs {
		b.WriteString(n.raw[pos:e.Start])

		ref, err := lookupRef(tree, e, n.key)
		if err != nil {
			return cty.NilVal, err
		}
		fv, err := applyFilters(ref, e, reg, n.key)
		if err != nil {
			return cty.NilVal, err
		}
		s, err := values.Stringify(fv)
		if err != nil {
			if errors.Is(err, values.ErrNotStringifiable) {
				return cty.NilVal, &NotStringifiableError{Path: n.key, Ref: e.Ref.String()}
			}
			return cty.NilVal, &SyntaxError{Path: n.key, Expr: e.Raw, Detail: err.Error()}
		}
		b.WriteString(s)
		pos = e.End
	}
	b.WriteString(n.raw[pos:])
	return cty.StringVal(b.String()), nil
}

func lookupRef(tree cty.Value, e Expression, at string) (cty.Value, error) {
	ref, ok := values.Lookup(tree, e.Ref)
	if !ok {
		return cty.NilVal, &NotFoundError{Ref: e.Ref.String(), At: at}
	}
	return ref, nil
}

func applyFilters(v cty.Value, e Expression, reg *Registry, at string) (cty.Value, error) {
	for _, call := range e.Filters {
		spec, ok := reg.lookup(call.Name)
		if !ok {
			return cty.NilVal, &SyntaxError{Path: at, Expr: e.Raw, Detail: "unknown filter " + call.Name}
		}
		out, err := spec.fn(v, call.Args)
		if err != nil {
			return cty.NilVal, &SyntaxError{Path: at, Expr: e.Raw, Detail: "filter " + call.Name + ": " + err.Error()}
		}
		v = out
	}
	return v, nil
}
