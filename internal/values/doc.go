// Package values is the configuration value layer. A parameter document is
// held as a cty.Value tree (objects and tuples for YAML/JSON maps and lists,
// cty primitives for scalars), and every leaf is addressed by a dotted Path.
//
// The tree walk is deterministic: object and map keys are visited in sorted
// order, tuple and list elements by index. Everything downstream that needs a
// reproducible ordering (dependency discovery, topological tie-breaking)
// leans on this.
package values
