// Package builder implements the condition-tree editor core.
//
// A Builder owns one editing session: it materializes serialized nodes into a
// presentation arena (Tree), applies structural edits to that arena in place,
// and collects it back into serialized nodes on demand. Every catalog lookup
// goes through the *catalog.Catalog handed to New; the package keeps no global
// state.
//
// A Builder is not safe for concurrent use. Each edit runs to completion,
// including the materialization of any subtree it inserts, before returning.
package builder

import (
	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/types"
)

// Builder is one editing session over a presentation tree.
type Builder struct {
	m              *materializer
	tree           *Tree
	errorIndicator string
}

// New materializes nodes against cat and returns the session.
// Empty nodes start the session with a single default rule.
func New(cat *catalog.Catalog, nodes []types.Node, opts ...Option) *Builder {
	o := buildOptions(opts)
	m := &materializer{catalog: cat, dates: o.dates, tokens: o.tokens}
	return &Builder{
		m:              m,
		tree:           m.materialize(nodes),
		errorIndicator: o.errorIndicator,
	}
}

// Tree returns the live presentation tree.
func (b *Builder) Tree() *Tree {
	return b.tree
}

// Catalog returns the catalog the session resolves against.
func (b *Builder) Catalog() *catalog.Catalog {
	return b.m.catalog
}

// ErrorIndicator returns the host error data passed at creation, unchanged.
func (b *Builder) ErrorIndicator() string {
	return b.errorIndicator
}

// Collect serializes the current tree.
func (b *Builder) Collect() Result {
	return Collect(b.tree)
}

// Reset discards the current tree and materializes nodes in its place.
func (b *Builder) Reset(nodes []types.Node) {
	b.tree = b.m.materialize(nodes)
}
