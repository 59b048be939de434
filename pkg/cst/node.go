package cst

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// Node is a subtree placed at an absolute position within a tree. Nodes are
// cheap values; the zero Node is a null node.
type Node struct {
	t      *Subtree
	start  token.Position
	parent *Node
	index  int
	tree   *Tree
}

// IsNull reports whether n refers to no node.
func (n Node) IsNull() bool { return n.t == nil }

// Subtree returns the shared subtree behind n.
func (n Node) Subtree() *Subtree { return n.t }

// Tree returns the tree n belongs to.
func (n Node) Tree() *Tree { return n.tree }

// Kind returns the grammar symbol of n.
func (n Node) Kind() token.Kind { return n.t.kind }

// Type returns the symbol name, such as "select" or "(".
func (n Node) Type() string { return n.tree.table.Name(n.t.kind) }

// ID returns the identity of the underlying subtree. Two nodes with the same
// ID in different tree versions share that subtree.
func (n Node) ID() uint64 { return n.t.id }

// Byte and point bounds.

func (n Node) StartByte() int          { return n.start.Offset }
func (n Node) EndByte() int            { return n.start.Offset + n.t.size }
func (n Node) StartPoint() token.Point { return n.start.Point }
func (n Node) EndPoint() token.Point   { return n.start.Point.Add(n.t.extent) }

// StartPosition returns the position of n's first byte.
func (n Node) StartPosition() token.Position { return n.start }

// EndPosition returns the position just past n.
func (n Node) EndPosition() token.Position { return n.start.Move(n.t.size, n.t.extent) }

// Range returns the span n covers.
func (n Node) Range() token.Span { return token.Span{Start: n.start, End: n.EndPosition()} }

func (n Node) IsNamed() bool   { return n.t.IsNamed() }
func (n Node) IsExtra() bool   { return n.t.IsExtra() }
func (n Node) IsError() bool   { return n.t.IsError() }
func (n Node) IsMissing() bool { return n.t.IsMissing() }
func (n Node) HasError() bool  { return n.t.HasError() }

// Parent returns the node containing n.
func (n Node) Parent() (Node, bool) {
	if n.parent == nil {
		return Node{}, false
	}
	return *n.parent, true
}

// ChildCount returns the number of children.
func (n Node) ChildCount() int { return len(n.t.children) }

// Child returns the i-th child. It returns a null node when i is out of
// range.
func (n Node) Child(i int) Node {
	if i < 0 || i >= len(n.t.children) {
		return Node{}
	}
	return n.child(i, n.childStart(i))
}

func (n Node) childStart(i int) token.Position {
	rel := n.t.starts[i]
	return n.start.Move(rel.Offset, rel.Point)
}

func (n Node) child(i int, pos token.Position) Node {
	p := n
	return Node{t: n.t.children[i], start: pos, parent: &p, index: i, tree: n.tree}
}

// Children returns all children in order.
func (n Node) Children() []Node {
	out := make([]Node, 0, len(n.t.children))
	pos := n.start
	p := n
	for i, c := range n.t.children {
		out = append(out, Node{t: c, start: pos, parent: &p, index: i, tree: n.tree})
		pos = pos.Move(c.size, c.extent)
	}
	return out
}

// NamedChildren returns the named children in order.
func (n Node) NamedChildren() []Node {
	var out []Node
	for _, c := range n.Children() {
		if c.IsNamed() {
			out = append(out, c)
		}
	}
	return out
}

// NamedChildCount returns the number of named children.
func (n Node) NamedChildCount() int {
	count := 0
	for _, c := range n.t.children {
		if c.IsNamed() {
			count++
		}
	}
	return count
}

// NamedChild returns the i-th named child, or a null node.
func (n Node) NamedChild(i int) Node {
	named := n.NamedChildren()
	if i < 0 || i >= len(named) {
		return Node{}
	}
	return named[i]
}

// ChildByType returns the first child with the given symbol name.
func (n Node) ChildByType(name string) (Node, bool) {
	for _, c := range n.Children() {
		if c.Type() == name {
			return c, true
		}
	}
	return Node{}, false
}

// NextSibling returns the node after n in its parent.
func (n Node) NextSibling() (Node, bool) {
	if n.parent == nil || n.index+1 >= len(n.parent.t.children) {
		return Node{}, false
	}
	return n.parent.child(n.index+1, n.EndPosition()), true
}

// PrevSibling returns the node before n in its parent.
func (n Node) PrevSibling() (Node, bool) {
	if n.parent == nil || n.index == 0 {
		return Node{}, false
	}
	return n.parent.Child(n.index - 1), true
}

// Text returns the source bytes n covers.
func (n Node) Text(src []byte) string {
	end := min(n.EndByte(), len(src))
	if n.start.Offset >= end {
		return ""
	}
	return string(src[n.start.Offset:end])
}

// String returns an s-expression of the named nodes under n, with missing
// tokens shown as (MISSING name).
func (n Node) String() string {
	if n.IsNull() {
		return "<null>"
	}
	var sb strings.Builder
	n.writeSExpr(&sb)
	return sb.String()
}

func (n Node) writeSExpr(sb *strings.Builder) {
	if n.IsMissing() {
		sb.WriteString("(MISSING ")
		if n.IsNamed() {
			sb.WriteString(n.Type())
		} else {
			sb.WriteString(strconv.Quote(n.Type()))
		}
		sb.WriteByte(')')
		return
	}
	sb.WriteByte('(')
	sb.WriteString(n.Type())
	for _, c := range n.Children() {
		if !c.IsNamed() && !c.IsMissing() {
			continue
		}
		sb.WriteByte(' ')
		c.writeSExpr(sb)
	}
	sb.WriteByte(')')
}
