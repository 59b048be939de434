// Package cst holds the concrete syntax trees produced by the parser.
//
// A tree is built from immutable Subtrees that carry sizes rather than
// offsets, so a new version of a document can share every subtree an edit
// did not touch with the previous version. Node is the positioned view used
// to navigate a tree; Cursor walks it without allocating parent chains.
//
// Children tile their parent exactly: whitespace and comments are leaves
// like any token, and the leaves of a tree cover its source with no gaps.
package cst

import (
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
)

// Stats describes the work a parse did.
type Stats struct {
	TokensScanned int `json:"tokens_scanned"`
	TokensReused  int `json:"tokens_reused"`
	NodesReused   int `json:"nodes_reused"`
	BytesReused   int `json:"bytes_reused"`
	Recoveries    int `json:"recoveries"`
	MaxVersions   int `json:"max_versions"`
}

// Tree is one version of a parsed document. It is immutable.
type Tree struct {
	root    *Subtree
	version int
	length  int
	table   *grammar.Table
	stats   Stats
}

// NewTree assembles a tree. The parser is the only intended caller.
func NewTree(table *grammar.Table, root *Subtree, version int, stats Stats) *Tree {
	return &Tree{root: root, version: version, length: root.size, table: table, stats: stats}
}

// Root returns the root node.
func (t *Tree) Root() Node { return Node{t: t.root, tree: t} }

// Version returns the tree version: 1 for a fresh parse, one more than the
// previous tree for each reparse.
func (t *Tree) Version() int { return t.version }

// Len returns the length of the source the tree was parsed from.
func (t *Tree) Len() int { return t.length }

// Table returns the grammar the tree was parsed with.
func (t *Tree) Table() *grammar.Table { return t.table }

// Stats returns the parse statistics.
func (t *Tree) Stats() Stats { return t.stats }

// HasError reports whether the tree contains error or missing nodes.
func (t *Tree) HasError() bool { return t.root.HasError() }

// NodeAt returns the smallest node containing offset. At the end of the
// source that is the last node ending there, or a zero-width node placed
// there. Offsets past the end return the root.
func (t *Tree) NodeAt(offset int) Node {
	c := t.Walk()
	c.Seek(offset)
	return c.Node()
}

// NamedNodeAt returns the smallest named node containing offset.
func (t *Tree) NamedNodeAt(offset int) Node {
	n := t.NodeAt(offset)
	for !n.IsNamed() {
		p, ok := n.Parent()
		if !ok {
			break
		}
		n = p
	}
	return n
}

// Walk returns a cursor positioned at the root.
func (t *Tree) Walk() *Cursor { return NewCursor(t.Root()) }
