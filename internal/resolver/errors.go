package resolver

import (
	"fmt"
	"strings"
)

// SyntaxError reports a malformed expression: unterminated or unmatched
// delimiters, an unknown filter name, or bad filter arguments.
type SyntaxError struct {
	// Path is the dotted location of the leaf containing the expression.
	Path string
	// Expr is the raw expression text, including delimiters when known.
	Expr string
	// Detail describes what is wrong with the expression.
	Detail string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("invalid template syntax in %q: %s", e.Path, e.Detail)
	if e.Expr != "" {
		msg += fmt.Sprintf(" (expression %q)", e.Expr)
	}
	return msg
}

// CycleError reports a circular reference chain. Cycle holds the ordered
// dotted paths forming the loop, with the starting path repeated at the end.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Cycle, " -> ")
}

// NotFoundError reports an expression referencing a path that does not exist
// in the document.
type NotFoundError struct {
	// Ref is the missing dotted path, without the values. namespace prefix.
	Ref string
	// At is the leaf whose expression made the reference.
	At string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("reference %q not found (referenced from %q)", "values."+e.Ref, e.At)
}

// DepthError reports a dependency chain longer than the configured maximum.
// The graph may be perfectly acyclic and still trip this bound.
type DepthError struct {
	Path  string
	Depth int
	Max   int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("maximum reference depth (%d) exceeded resolving %q: chain length %d", e.Max, e.Path, e.Depth)
}

// NotStringifiableError reports an interpolated expression that resolved to a
// list or map, which has no canonical text form.
type NotStringifiableError struct {
	Path string
	Ref  string
}

func (e *NotStringifiableError) Error() string {
	return fmt.Sprintf("cannot interpolate %q into a string in %q: lists and maps have no string form", "values."+e.Ref, e.Path)
}
