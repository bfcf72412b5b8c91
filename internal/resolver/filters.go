package resolver

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vk/customizer/internal/values"
)

// FilterFunc transforms a value inside an expression pipeline. It must be a
// pure function of its inputs.
type FilterFunc func(v cty.Value, args []string) (cty.Value, error)

type filterSpec struct {
	fn    FilterFunc
	arity int
}

// Registry maps filter names to their implementations. Filter names and
// argument counts are validated while scanning, so an unknown filter fails
// before any rendering starts.
type Registry struct {
	filters map[string]filterSpec
}

// NewRegistry returns a registry holding the built-in filters: lower, upper,
// title, trim, replace(old, new) and quote.
func NewRegistry() *Registry {
	r := &Registry{filters: make(map[string]filterSpec)}

	r.Register("lower", 0, stringFilter(strings.ToLower))
	r.Register("upper", 0, stringFilter(strings.ToUpper))
	r.Register("trim", 0, stringFilter(strings.TrimSpace))
	r.Register("title", 0, stringFilter(func(s string) string {
		return cases.Title(language.Und).String(s)
	}))
	r.Register("replace", 2, func(v cty.Value, args []string) (cty.Value, error) {
		s, err := values.Stringify(v)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(strings.ReplaceAll(s, args[0], args[1])), nil
	})
	r.Register("quote", 0, stringFilter(func(s string) string {
		return `"` + s + `"`
	}))

	return r
}

// Register adds or replaces a filter. arity is the exact number of arguments
// the filter takes.
func (r *Registry) Register(name string, arity int, fn FilterFunc) {
	r.filters[name] = filterSpec{fn: fn, arity: arity}
}

func (r *Registry) lookup(name string) (filterSpec, bool) {
	spec, ok := r.filters[name]
	return spec, ok
}

// validate checks a filter call's name and argument count without running it.
func (r *Registry) validate(call FilterCall) error {
	spec, ok := r.lookup(call.Name)
	if !ok {
		return fmt.Errorf("unknown filter %q", call.Name)
	}
	if len(call.Args) != spec.arity {
		return fmt.Errorf("filter %q takes %d argument(s), got %d", call.Name, spec.arity, len(call.Args))
	}
	return nil
}

func stringFilter(fn func(string) string) FilterFunc {
	return func(v cty.Value, _ []string) (cty.Value, error) {
		s, err := values.Stringify(v)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(fn(s)), nil
	}
}
