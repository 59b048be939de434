package parser

import (
	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// reductionLimit bounds the actions processed for one lookahead.
const reductionLimit = 1 << 14

// step processes the current lookahead on every version. It returns the
// root once the input is accepted.
func (r *run) step() *cst.Subtree {
	kind := r.la.tok.Kind
	if kind != token.KindEnd && r.t.IsExtra(kind) {
		r.shiftExtra()
		return nil
	}
	if r.tryReuse() || r.err != nil {
		return nil
	}

	// Each version is driven to its shifts before the next one starts, so
	// the results keep the order of the versions they came from.
	var shifted, accepted, failed []*stackNode
	workLimit := 4 * r.p.cfg.MaxVersions
	forked := len(r.versions) > 1
	budget := reductionLimit
	for _, origin := range r.versions {
		work := []*stackNode{origin}
		for len(work) > 0 && budget > 0 {
			budget--
			v := work[0]
			work = work[1:]
			acts := r.t.Actions(v.state, kind)
			if len(acts) == 0 {
				failed = append(failed, v)
				continue
			}
			if len(acts) > 1 {
				forked = true
			}
			fragile := forked || len(work) > 0
			for _, a := range acts {
				switch a.Kind {
				case grammar.ActionShift:
					shifted = append(shifted, r.shift(v, grammar.StateID(a.Target)))
				case grammar.ActionReduce:
					if nv := r.reduce(v, a.Target, fragile); nv != nil {
						work = append(work, nv)
					}
				case grammar.ActionAccept:
					accepted = append(accepted, v)
				}
			}
			if len(work) > workLimit {
				work = work[:workLimit]
			}
		}
	}
	if r.err != nil {
		return nil
	}

	if kind == token.KindEnd && len(accepted) > 0 {
		return r.finish(best(accepted))
	}
	if len(shifted) == 0 {
		if len(failed) == 0 {
			failed = r.versions
		}
		return r.recover(best(failed))
	}
	r.versions = condense(shifted, r.p.cfg.MaxVersions)
	if len(r.versions) > r.stats.MaxVersions {
		r.stats.MaxVersions = len(r.versions)
	}
	r.advance()
	return nil
}

// shiftExtra pushes the lookahead onto every version without a state
// change.
func (r *run) shiftExtra() {
	leaf := r.leaf(r.versions[0].state)
	for i, v := range r.versions {
		r.versions[i] = v.push(v.state, leaf, true, r.la.tok.End)
	}
	r.advance()
}

func (r *run) shift(v *stackNode, target grammar.StateID) *stackNode {
	return v.push(target, r.leaf(v.state), false, r.la.tok.End)
}

// reduce applies production i to v. Trailing extras stay above the new
// node; extras between the popped entries become its children.
func (r *run) reduce(v *stackNode, i int, fragile bool) *stackNode {
	p := r.t.Production(i)

	top := v
	var trailing []*stackNode
	reach := r.la.tok.ScanEnd
	for top.extra {
		trailing = append(trailing, top)
		reach = max(reach, top.end.Offset+top.tree.Lookahead())
		top = top.prev
	}
	end := top.end

	cur := top
	var popped []*cst.Subtree
	for count := 0; count < len(p.RHS); {
		if cur.prev == nil {
			return nil
		}
		if !cur.extra {
			count++
		}
		popped = append(popped, cur.tree)
		cur = cur.prev
	}

	children := make([]*cst.Subtree, 0, len(popped))
	for j := len(popped) - 1; j >= 0; j-- {
		c := popped[j]
		if r.t.IsHidden(c.Kind()) {
			children = append(children, c.Children()...)
			continue
		}
		children = append(children, c)
	}

	var node *cst.Subtree
	if r.t.IsHidden(p.LHS) && len(children) == 1 {
		node = children[0]
	} else {
		node = cst.NewNode(r.t, cst.NodeSpec{
			Kind:      p.LHS,
			Children:  children,
			State:     cur.state,
			Lookahead: reach - end.Offset,
			Dynamic:   p.Dynamic,
			Fragile:   fragile,
		})
	}

	g, ok := r.t.Goto(cur.state, p.LHS)
	if !ok {
		return nil
	}
	nv := cur.push(g, node, false, end)
	nv.dyn = v.dyn + p.Dynamic
	for j := len(trailing) - 1; j >= 0; j-- {
		nv = nv.push(g, trailing[j].tree, true, trailing[j].end)
	}

	if r.t.IsSync(p.LHS) && r.err == nil {
		r.err = r.ctx.Err()
	}
	return nv
}

// finish builds the root from an accepted version. Extras before or after
// the start rule's node join its children.
func (r *run) finish(v *stackNode) *cst.Subtree {
	entries := v.entries()
	if len(entries) == 1 && !entries[0].extra {
		return entries[0].tree
	}
	start := r.t.Start()
	var children []*cst.Subtree
	for _, e := range entries {
		if !e.extra && e.tree.Kind() == start {
			children = append(children, e.tree.Children()...)
			continue
		}
		children = append(children, e.tree)
	}
	return cst.NewNode(r.t, cst.NodeSpec{Kind: start, Children: children})
}

// tryReuse pushes an unchanged subtree of the previous tree that starts at
// the lookahead, when the parser is in the state it was built in. The
// reductions the lookahead forces on a lone version are applied first, so
// a subtree following a completed one can still be matched.
func (r *run) tryReuse() bool {
	if r.reuse == nil || len(r.versions) != 1 || !hasNode(r.chain) {
		return false
	}
	v := r.versions[0]
	ready := false
	for n := 0; n < reductionLimit && !ready; n++ {
		acts := r.t.Actions(v.state, r.la.tok.Kind)
		if len(acts) != 1 {
			return false
		}
		switch acts[0].Kind {
		case grammar.ActionShift:
			ready = true
		case grammar.ActionReduce:
			nv := r.reduce(v, acts[0].Target, false)
			if nv == nil || r.err != nil {
				return false
			}
			v = nv
			r.versions[0] = v
		default:
			return false
		}
	}
	if !ready {
		return false
	}

	for _, c := range r.chain {
		if c.IsLeaf() || c.HasError() || c.IsFragile() || c.Size() == 0 || c.ParseState() != v.state {
			continue
		}
		g, ok := r.t.Goto(v.state, c.Kind())
		if !ok {
			continue
		}
		end := r.la.tok.Start.Move(c.Size(), c.Extent())
		nv := v.push(g, c, false, end)
		nv.dyn += c.Dynamic()
		r.versions[0] = nv
		r.stats.NodesReused++
		r.stats.BytesReused += c.Size()
		r.scan(end)
		return true
	}
	return false
}

func hasNode(chain []*cst.Subtree) bool {
	for _, c := range chain {
		if !c.IsLeaf() {
			return true
		}
	}
	return false
}
