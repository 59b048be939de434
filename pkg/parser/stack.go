package parser

import (
	"sort"

	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// stackNode is one entry of a persistent parse stack. Versions share their
// common prefix, so forking a version costs one pointer.
type stackNode struct {
	state grammar.StateID
	tree  *cst.Subtree // nil for the bottom entry
	extra bool
	prev  *stackNode
	end   token.Position // position just past tree
	cost  int            // error cost of every subtree on the stack
	dyn   int            // dynamic precedence of every reduction so far
}

func bottom() *stackNode {
	return &stackNode{state: 0}
}

func (n *stackNode) push(state grammar.StateID, tree *cst.Subtree, extra bool, end token.Position) *stackNode {
	return &stackNode{
		state: state,
		tree:  tree,
		extra: extra,
		prev:  n,
		end:   end,
		cost:  n.cost + tree.ErrorCost(),
		dyn:   n.dyn,
	}
}

// states returns the states of the non-extra entries, bottom first.
func (n *stackNode) states() []grammar.StateID {
	var out []grammar.StateID
	for cur := n; cur != nil; cur = cur.prev {
		if !cur.extra {
			out = append(out, cur.state)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// entries returns the trees above the bottom entry, bottom first.
func (n *stackNode) entries() []*stackNode {
	var out []*stackNode
	for cur := n; cur != nil && cur.prev != nil; cur = cur.prev {
		out = append(out, cur)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// sameStates reports whether two stacks hold the same state sequence once
// extras are ignored. Forked stacks usually share a prefix, so the walk
// stops at the first common entry.
func sameStates(a, b *stackNode) bool {
	for {
		for a != nil && a.extra {
			a = a.prev
		}
		for b != nil && b.extra {
			b = b.prev
		}
		if a == b {
			return true
		}
		if a == nil || b == nil || a.state != b.state {
			return false
		}
		a, b = a.prev, b.prev
	}
}

// better reports whether a is preferred over b: fewer errors first, then
// higher dynamic precedence.
func better(a, b *stackNode) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.dyn > b.dyn
}

// best returns the preferred version, the earliest one on ties.
func best(vs []*stackNode) *stackNode {
	var out *stackNode
	for _, v := range vs {
		if out == nil || better(v, out) {
			out = v
		}
	}
	return out
}

// condense merges versions with identical state sequences, keeping the
// preferred one in the position of the first, and caps the number of
// versions at limit.
func condense(vs []*stackNode, limit int) []*stackNode {
	out := make([]*stackNode, 0, len(vs))
next:
	for _, v := range vs {
		for i, o := range out {
			if o.state == v.state && sameStates(o, v) {
				if better(v, o) {
					out[i] = v
				}
				continue next
			}
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return better(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
