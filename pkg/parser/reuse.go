package parser

import (
	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/edit"
)

// reuseCursor walks the previous tree in step with the new parse. Offsets
// asked for never decrease, so the walk only moves forward.
type reuseCursor struct {
	set   edit.Set
	stack []reuseFrame
	last  int
}

// reuseFrame is an old subtree being walked. pos is the old offset of
// children[next].
type reuseFrame struct {
	tree  *cst.Subtree
	start int
	next  int
	pos   int
}

func newReuseCursor(root *cst.Subtree, set edit.Set) *reuseCursor {
	c := &reuseCursor{set: set}
	c.reset(root)
	return c
}

func (c *reuseCursor) reset(root *cst.Subtree) {
	c.stack = append(c.stack[:0], reuseFrame{tree: root})
	c.last = -1
}

// chainAt returns the undamaged old subtrees that start at newOffset,
// outermost first. Each one is the first child of the one before it.
func (c *reuseCursor) chainAt(newOffset int) []*cst.Subtree {
	old, ok := c.set.ToOld(newOffset)
	if !ok {
		return nil
	}
	if old < c.last {
		c.reset(c.stack[0].tree)
	}
	c.last = old

	root := c.stack[0]
	if old >= root.tree.Size() {
		return nil
	}
	for len(c.stack) > 1 {
		f := c.stack[len(c.stack)-1]
		if f.start+f.tree.Size() > old {
			break
		}
		c.stack = c.stack[:len(c.stack)-1]
	}

	for {
		f := &c.stack[len(c.stack)-1]
		children := f.tree.Children()
		for f.next < len(children) && f.pos+children[f.next].Size() <= old {
			f.pos += children[f.next].Size()
			f.next++
		}
		if f.next == len(children) {
			return nil
		}
		child := children[f.next]
		if f.pos == old {
			return c.chain(child, old)
		}
		if child.IsLeaf() {
			return nil
		}
		c.stack = append(c.stack, reuseFrame{tree: child, start: f.pos, pos: f.pos})
	}
}

func (c *reuseCursor) chain(s *cst.Subtree, at int) []*cst.Subtree {
	var out []*cst.Subtree
	for {
		if !c.set.Touches(at, at+s.Size()+s.Lookahead()) {
			out = append(out, s)
		}
		if s.IsLeaf() {
			return out
		}
		s = s.Children()[0]
	}
}

// reusableLeaf returns the innermost subtree of chain when it can stand in
// for a freshly scanned token.
func reusableLeaf(chain []*cst.Subtree) *cst.Subtree {
	if len(chain) == 0 {
		return nil
	}
	leaf := chain[len(chain)-1]
	if !leaf.IsLeaf() || leaf.IsError() || leaf.IsMissing() || leaf.Size() == 0 {
		return nil
	}
	return leaf
}
