package cst

import "sort"

// Cursor walks a tree from a starting node. Moving down and back up costs
// no allocation beyond the node stack.
type Cursor struct {
	stack []Node
}

// NewCursor returns a cursor at n. The cursor never moves above n.
func NewCursor(n Node) *Cursor {
	return &Cursor{stack: []Node{n}}
}

// Node returns the current node.
func (c *Cursor) Node() Node { return c.stack[len(c.stack)-1] }

// Depth returns how far the cursor is below its starting node.
func (c *Cursor) Depth() int { return len(c.stack) - 1 }

// GotoFirstChild moves to the first child of the current node.
func (c *Cursor) GotoFirstChild() bool {
	n := c.Node()
	if n.ChildCount() == 0 {
		return false
	}
	c.stack = append(c.stack, n.child(0, n.start))
	return true
}

// GotoNextSibling moves to the next sibling of the current node.
func (c *Cursor) GotoNextSibling() bool {
	if len(c.stack) < 2 {
		return false
	}
	next, ok := c.Node().NextSibling()
	if !ok {
		return false
	}
	c.stack[len(c.stack)-1] = next
	return true
}

// GotoParent moves to the parent of the current node.
func (c *Cursor) GotoParent() bool {
	if len(c.stack) < 2 {
		return false
	}
	c.stack = c.stack[:len(c.stack)-1]
	return true
}

// Seek moves down from the current node to the smallest descendant whose
// byte range contains offset, and returns its depth. A zero-width node
// starting at offset contains it, and so does a node ending at the end of
// the source when offset is that end. Each level is a binary search over
// the children.
func (c *Cursor) Seek(offset int) int {
	atEnd := false
	if t := c.stack[0].tree; t != nil {
		atEnd = offset == t.Len()
	}
	for {
		n := c.Node()
		i, ok := n.childAt(offset, atEnd)
		if !ok {
			return c.Depth()
		}
		c.stack = append(c.stack, n.child(i, n.childStart(i)))
	}
}

// childAt picks the child of n holding offset: the one whose half-open
// range contains it, else a zero-width child at offset, else at the end of
// the source the last child ending there.
func (n Node) childAt(offset int, atEnd bool) (int, bool) {
	children := n.t.children
	if len(children) == 0 || offset < n.StartByte() || offset > n.EndByte() {
		return 0, false
	}
	rel := offset - n.start.Offset
	end := func(i int) int { return n.t.starts[i].Offset + children[i].size }

	i := sort.Search(len(children), func(i int) bool { return end(i) > rel })
	if i < len(children) && n.t.starts[i].Offset <= rel {
		return i, true
	}
	for j := sort.Search(len(children), func(j int) bool { return end(j) >= rel }); j < len(children) && end(j) == rel; j++ {
		if children[j].size == 0 {
			return j, true
		}
	}
	if atEnd && rel == n.t.size && i == len(children) {
		return len(children) - 1, true
	}
	return 0, false
}
