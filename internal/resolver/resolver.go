package resolver

import (
	"context"
	"errors"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/customizer/internal/ctxlog"
	"github.com/vk/customizer/internal/values"
)

// DefaultMaxDepth bounds the longest dependency chain unless overridden.
const DefaultMaxDepth = 10

// Options configures a Resolver. The zero value gets the documented defaults.
type Options struct {
	// MaxDepth is the longest allowed dependency chain, in nodes.
	// Defaults to DefaultMaxDepth.
	MaxDepth int
	// Delimiters is the expression marker pair. Defaults to {{ }}.
	Delimiters Delimiters
	// Disabled turns Resolve into an identity transform, for documents
	// authored before self-references existed.
	Disabled bool
	// Filters overrides the built-in filter registry when non-nil.
	Filters *Registry
}

// Trace records resolution diagnostics for the verbose surface: the edge
// list per node, the final topological order, and the number of passes.
type Trace struct {
	Edges  map[string][]string
	Order  []string
	Passes int
}

// Resolver computes self-references in a configuration tree. It holds no
// state between runs; each Resolve call builds a fresh graph.
type Resolver struct {
	opts Options
	reg  *Registry
}

// New returns a Resolver with defaults applied for any zero-valued option.
func New(opts Options) *Resolver {
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Delimiters.Open == "" || opts.Delimiters.Close == "" {
		opts.Delimiters = DefaultDelimiters
	}
	reg := opts.Filters
	if reg == nil {
		reg = NewRegistry()
	}
	return &Resolver{opts: opts, reg: reg}
}

// Resolve returns a tree identical in shape to the input with every
// expression-bearing leaf replaced by its resolved value. Any error aborts
// the whole run; no partial tree is ever returned. The sequence is strict:
// graph build, cycle check, depth check, topological sort, sequential render.
func (r *Resolver) Resolve(ctx context.Context, tree cty.Value) (cty.Value, *Trace, error) {
	logger := ctxlog.FromContext(ctx)

	if r.opts.Disabled {
		logger.Debug("reference resolution disabled; passing tree through")
		return tree, &Trace{}, nil
	}
	if tree == cty.NilVal || tree.IsNull() {
		return tree, &Trace{}, nil
	}

	graph, err := buildGraph(ctx, tree, r.opts.Delimiters, r.reg)
	if err != nil {
		return cty.NilVal, nil, err
	}

	trace := &Trace{Edges: make(map[string][]string, len(graph.order))}
	for _, n := range graph.order {
		trace.Edges[n.key] = n.deps
	}

	if len(graph.order) == 0 {
		// Nothing references anything; the input is already fully resolved.
		return tree, trace, nil
	}

	if err := graph.detectCycles(); err != nil {
		return cty.NilVal, nil, err
	}
	if err := graph.checkDepth(r.opts.MaxDepth); err != nil {
		return cty.NilVal, nil, err
	}

	order := graph.toposort()
	trace.Order = make([]string, len(order))
	for i, n := range order {
		trace.Order[i] = n.key
	}
	logger.Debug("resolution order computed", "order", trace.Order)

	cur := tree
	for _, n := range order {
		v, err := renderNode(n, cur, r.reg)
		if err != nil {
			return cty.NilVal, nil, err
		}
		cur, err = values.Set(cur, n.path, v)
		if err != nil {
			return cty.NilVal, nil, err
		}
		n.resolved = true
		n.value = v
		logger.Debug("leaf resolved", "path", n.key)
	}
	trace.Passes = 1

	logger.Debug("resolution complete", "nodes", len(order))
	return cur, trace, nil
}

// EvalExpression evaluates one bare expression (no delimiters), e.g.
// "values.project.name | quote", against scope and renders the result as
// text. It is used for comment-marker rendering, where the output always
// lands in a source line.
func (r *Resolver) EvalExpression(expr string, scope cty.Value) (string, error) {
	parsed, err := parseExpression(expr, r.reg)
	if err != nil {
		return "", &SyntaxError{Expr: expr, Detail: err.Error()}
	}
	ref, err := lookupRef(scope, parsed, "")
	if err != nil {
		return "", err
	}
	fv, err := applyFilters(ref, parsed, r.reg, "")
	if err != nil {
		return "", err
	}
	s, err := values.Stringify(fv)
	if err != nil {
		if errors.Is(err, values.ErrNotStringifiable) {
			return "", &NotStringifiableError{Ref: parsed.Ref.String()}
		}
		return "", &SyntaxError{Expr: expr, Detail: err.Error()}
	}
	return s, nil
}

// RenderString interpolates every delimited expression in s against scope and
// returns the composed string. Text without expressions passes through
// unchanged.
func (r *Resolver) RenderString(s string, scope cty.Value) (string, error) {
	exprs, err := scanString(s, r.opts.Delimiters, r.reg, "")
	if err != nil {
		return "", err
	}
	if len(exprs) == 0 {
		return s, nil
	}
	// Force interpolation semantics even for a pure expression; the result
	// is destined for file text.
	for i := range exprs {
		exprs[i].Pure = false
	}
	n := &node{raw: s, exprs: exprs}
	v, err := renderNode(n, scope, r.reg)
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}
