package cst

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the node just visited.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Leaves returns the leaves under n in source order.
func Leaves(n Node) []Node {
	var out []Node
	Walk(n, func(c Node) bool {
		if c.ChildCount() == 0 {
			out = append(out, c)
			return false
		}
		return true
	})
	return out
}

// Equal reports whether a and b have the same shape: the same kinds, byte
// ranges and error and missing flags at every node.
func Equal(a, b Node) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() == b.IsNull()
	}
	if a.t == b.t && a.start == b.start {
		return true
	}
	if a.t.kind != b.t.kind || a.StartByte() != b.StartByte() || a.EndByte() != b.EndByte() ||
		a.IsError() != b.IsError() || a.IsMissing() != b.IsMissing() ||
		a.ChildCount() != b.ChildCount() {
		return false
	}
	ac, bc := a.Children(), b.Children()
	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

// TreesEqual reports whether two trees have the same shape.
func TreesEqual(a, b *Tree) bool {
	return a.Len() == b.Len() && Equal(a.Root(), b.Root())
}
