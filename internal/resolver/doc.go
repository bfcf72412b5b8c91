// Package resolver computes self-references inside a configuration value
// tree. String leaves may embed expressions like
//
//	{{ values.project.name | lower }}
//
// referencing other values in the same document. Resolution builds the
// implicit dependency graph across all leaves, proves it acyclic, bounds the
// longest dependency chain, orders nodes topologically, and renders each
// expression against the partially resolved tree.
//
// A pure expression (the entire leaf, nothing else) takes the referenced
// value verbatim, preserving its type. Any expression mixed with literal
// text renders to a string. A run either resolves the whole tree or fails
// with a typed error; no partial result is ever returned.
package resolver
