package resolver

import (
	"fmt"
	"strings"

	"github.com/vk/customizer/internal/values"
)

// Delimiters is the open/close marker pair wrapping reference expressions.
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters is the conventional {{ }} pair.
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

// Namespace is the only root scope expressions may reference.
const Namespace = "values."

// Expression is one reference found inside a string leaf.
type Expression struct {
	// Raw is the expression text including delimiters.
	Raw string
	// Ref is the referenced path, with the values. prefix stripped.
	Ref values.Path
	// Filters is the pipeline applied left to right to the referenced value.
	Filters []FilterCall
	// Start and End are the byte offsets of Raw within the leaf string.
	Start int
	End   int
	// Pure means the expression is the entire (trimmed) leaf content, so the
	// referenced value substitutes verbatim with its type preserved.
	Pure bool
}

// FilterCall is one parsed segment of a filter pipeline.
type FilterCall struct {
	Name string
	Args []string
}

// scanString lexes one string leaf into its ordered expressions. It performs
// no evaluation, but filter names and arities are checked against the
// registry so unknown filters fail before rendering. at is the leaf's dotted
// path, used only for error context.
func scanString(s string, d Delimiters, reg *Registry, at string) ([]Expression, error) {
	var exprs []Expression
	pos := 0
	for pos < len(s) {
		rel := strings.Index(s[pos:], d.Open)
		closeRel := strings.Index(s[pos:], d.Close)
		if rel == -1 {
			if closeRel != -1 {
				return nil, &SyntaxError{Path: at, Expr: s, Detail: fmt.Sprintf("unmatched closing delimiter %q", d.Close)}
			}
			break
		}
		if closeRel != -1 && closeRel < rel {
			return nil, &SyntaxError{Path: at, Expr: s, Detail: fmt.Sprintf("unmatched closing delimiter %q", d.Close)}
		}

		start := pos + rel
		bodyStart := start + len(d.Open)
		closeIdx := strings.Index(s[bodyStart:], d.Close)
		if closeIdx == -1 {
			return nil, &SyntaxError{Path: at, Expr: s[start:], Detail: fmt.Sprintf("unterminated expression: missing %q", d.Close)}
		}
		end := bodyStart + closeIdx + len(d.Close)
		raw := s[start:end]

		expr, err := parseExpression(s[bodyStart:bodyStart+closeIdx], reg)
		if err != nil {
			return nil, &SyntaxError{Path: at, Expr: raw, Detail: err.Error()}
		}
		expr.Raw = raw
		expr.Start = start
		expr.End = end
		exprs = append(exprs, expr)
		pos = end
	}

	// A leaf is pure when its single expression, and nothing else, makes up
	// the whole trimmed string. Multiple expressions are interpolated by
	// definition.
	if len(exprs) == 1 && strings.TrimSpace(s) == exprs[0].Raw {
		exprs[0].Pure = true
	}
	return exprs, nil
}

// parseExpression parses the text between delimiters: a namespaced dotted
// path followed by zero or more |filter(args) segments.
func parseExpression(body string, reg *Registry) (Expression, error) {
	segments := splitPipeline(body)

	refText := strings.TrimSpace(segments[0])
	if !strings.HasPrefix(refText, Namespace) {
		return Expression{}, fmt.Errorf("reference must start with %q", Namespace)
	}
	ref, err := values.ParsePath(strings.TrimSpace(strings.TrimPrefix(refText, Namespace)))
	if err != nil {
		return Expression{}, err
	}

	expr := Expression{Ref: ref}
	for _, seg := range segments[1:] {
		call, err := parseFilterCall(strings.TrimSpace(seg))
		if err != nil {
			return Expression{}, err
		}
		if err := reg.validate(call); err != nil {
			return Expression{}, err
		}
		expr.Filters = append(expr.Filters, call)
	}
	return expr, nil
}

// splitPipeline splits on | outside of quoted strings.
func splitPipeline(body string) []string {
	var segments []string
	var quote byte
	last := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '|':
			segments = append(segments, body[last:i])
			last = i + 1
		}
	}
	return append(segments, body[last:])
}

// parseFilterCall parses `name` or `name(arg, ...)`. Arguments are quoted
// strings or bare tokens; quoted arguments may contain commas and pipes.
func parseFilterCall(seg string) (FilterCall, error) {
	if seg == "" {
		return FilterCall{}, fmt.Errorf("empty filter segment")
	}

	open := strings.IndexByte(seg, '(')
	if open == -1 {
		if !isIdentifier(seg) {
			return FilterCall{}, fmt.Errorf("invalid filter name %q", seg)
		}
		return FilterCall{Name: seg}, nil
	}

	name := strings.TrimSpace(seg[:open])
	if !isIdentifier(name) {
		return FilterCall{}, fmt.Errorf("invalid filter name %q", name)
	}
	if !strings.HasSuffix(seg, ")") {
		return FilterCall{}, fmt.Errorf("filter %q: missing closing parenthesis", name)
	}

	args, err := splitArgs(seg[open+1 : len(seg)-1])
	if err != nil {
		return FilterCall{}, fmt.Errorf("filter %q: %w", name, err)
	}
	return FilterCall{Name: name, Args: args}, nil
}

// splitArgs splits a comma-separated argument list, unquoting string
// literals.
func splitArgs(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	var args []string
	var quote byte
	last := 0
	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			args = append(args, list[last:i])
			last = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string literal in arguments")
	}
	args = append(args, list[last:])

	for i, a := range args {
		a = strings.TrimSpace(a)
		if len(a) >= 2 && (a[0] == '\'' || a[0] == '"') && a[len(a)-1] == a[0] {
			a = a[1 : len(a)-1]
		}
		args[i] = a
	}
	return args, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
