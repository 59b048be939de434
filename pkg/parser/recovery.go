package parser

import (
	"log/slog"

	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// maxSimulationDepth bounds the reductions explored when checking whether a
// token can be shifted.
const maxSimulationDepth = 64

type recoveryKey struct {
	offset int
	state  grammar.StateID
	set    bool
}

// piece is a subtree collected during recovery with the position after it.
type piece struct {
	tree *cst.Subtree
	end  token.Position
}

// skipped accumulates tokens dropped by recovery. Extras after the last
// dropped token are held back so they can stay outside the ERROR node.
type skipped struct {
	pieces  []piece
	pending []piece
}

func (s *skipped) take(p piece) {
	s.pieces = append(s.pieces, s.pending...)
	s.pending = s.pending[:0]
	s.pieces = append(s.pieces, p)
}

func (s *skipped) takeExtra(p piece) {
	s.pending = append(s.pending, p)
}

// recover resumes the parse after no version could handle the lookahead.
// It returns a root only when nothing could be salvaged before the end of
// input.
func (r *run) recover(v *stackNode) *cst.Subtree {
	r.stats.Recoveries++
	key := recoveryKey{offset: r.la.tok.Start.Offset, state: v.state, set: true}
	repeat := key == r.lastRecovery
	r.lastRecovery = key

	if repeat && r.la.tok.Kind == token.KindEnd {
		return r.abandon(v, &skipped{})
	}
	if !repeat {
		if nv, k, ok := r.insert(v); ok {
			r.log("insert", slog.String("missing", r.t.Name(k)))
			r.versions = []*stackNode{nv}
			return nil
		}
	}

	var s skipped
	if nv, ok := r.skip(v, &s); ok {
		r.log("skip", slog.Int("tokens", len(s.pieces)))
		r.versions = []*stackNode{nv}
		return nil
	}
	return r.escalate(v, &s)
}

func (r *run) log(strategy string, attrs ...any) {
	args := append([]any{
		slog.String("strategy", strategy),
		slog.Int("offset", r.la.tok.Start.Offset),
		slog.String("lookahead", r.t.Name(r.la.tok.Kind)),
	}, attrs...)
	r.p.logger.Debug("syntax error recovered", args...)
}

// insert tries each insertable token in order and keeps the first one that
// lets the lookahead be shifted afterwards.
func (r *run) insert(v *stackNode) (*stackNode, token.Kind, bool) {
	for _, k := range r.t.Insertable() {
		if !r.viable(v, k) {
			continue
		}
		nv := r.force(v, k)
		if nv != nil && r.viable(nv, r.la.tok.Kind) {
			return nv, k, true
		}
	}
	return nil, 0, false
}

// insertable reports whether some insertion would recover at the current
// lookahead.
func (r *run) insertable(v *stackNode) bool {
	_, _, ok := r.insert(v)
	return ok
}

// force reduces v as needed and shifts a missing k.
func (r *run) force(v *stackNode, k token.Kind) *stackNode {
	for range reductionLimit {
		var next *stackNode
		for _, a := range r.t.Actions(v.state, k) {
			switch a.Kind {
			case grammar.ActionShift:
				return v.push(grammar.StateID(a.Target), cst.NewMissing(r.t, k, v.state), false, v.end)
			case grammar.ActionReduce:
				if nv := r.reduce(v, a.Target, true); nv != nil && r.viable(nv, k) {
					next = nv
				}
			}
			if next != nil {
				break
			}
		}
		if next == nil {
			return nil
		}
		v = next
	}
	return nil
}

// skip drops up to SkipWindow tokens into an ERROR node, stopping as soon
// as the next token can be shifted or recovered by insertion.
func (r *run) skip(v *stackNode, s *skipped) (*stackNode, bool) {
	for n := 0; n < r.p.cfg.SkipWindow && r.la.tok.Kind != token.KindEnd; n++ {
		s.take(piece{r.leaf(v.state), r.la.tok.End})
		r.advance()
		r.collectExtras(v.state, s)
		if r.viable(v, r.la.tok.Kind) || r.insertable(v) {
			return r.pushSkipped(v, s), true
		}
	}
	return nil, false
}

func (r *run) collectExtras(state grammar.StateID, s *skipped) {
	for r.la.tok.Kind != token.KindEnd && r.t.IsExtra(r.la.tok.Kind) {
		s.takeExtra(piece{r.leaf(state), r.la.tok.End})
		r.advance()
	}
}

// escalate pops to the nearest state that can resume after a synchronizing
// rule, wraps what it popped and skipped in an ERROR node, and skips on
// until a token fits. At the end of input with nothing fitting it pops
// further, down to the bottom of the stack.
func (r *run) escalate(v *stackNode, s *skipped) *cst.Subtree {
	base := v
	var popped []piece
	for {
		for !r.t.CanRecover(base.state) && base.prev != nil {
			popped = append(popped, piece{base.tree, base.end})
			base = base.prev
		}
		for r.la.tok.Kind != token.KindEnd && !r.viable(base, r.la.tok.Kind) {
			if r.t.IsExtra(r.la.tok.Kind) {
				s.takeExtra(piece{r.leaf(base.state), r.la.tok.End})
			} else {
				s.take(piece{r.leaf(base.state), r.la.tok.End})
			}
			r.advance()
		}
		if r.viable(base, r.la.tok.Kind) {
			break
		}
		if base.prev == nil {
			return r.abandon(v, s)
		}
		popped = append(popped, piece{base.tree, base.end})
		base = base.prev
	}

	all := make([]piece, 0, len(popped)+len(s.pieces))
	for j := len(popped) - 1; j >= 0; j-- {
		all = append(all, popped[j])
	}
	s.pieces = append(all, s.pieces...)
	r.log("pop", slog.Int("popped", len(popped)), slog.Int("tokens", len(s.pieces)-len(popped)))
	r.versions = []*stackNode{r.pushSkipped(base, s)}
	return nil
}

// abandon wraps everything on the stack and everything skipped in one
// ERROR node under the root.
func (r *run) abandon(v *stackNode, s *skipped) *cst.Subtree {
	var trees []*cst.Subtree
	for _, e := range v.entries() {
		trees = append(trees, e.tree)
	}
	for _, p := range s.pieces {
		trees = append(trees, p.tree)
	}
	for _, p := range s.pending {
		trees = append(trees, p.tree)
	}
	r.log("abandon", slog.Int("subtrees", len(trees)))
	errNode := cst.NewError(trees, 0, 0)
	return cst.NewNode(r.t, cst.NodeSpec{Kind: r.t.Start(), Children: []*cst.Subtree{errNode}, Fragile: true})
}

// pushSkipped pushes the skipped pieces as one ERROR extra followed by the
// held-back extras. A lone unrecognized-byte leaf is pushed as it is.
func (r *run) pushSkipped(v *stackNode, s *skipped) *stackNode {
	top := v
	switch {
	case len(s.pieces) == 1 && s.pieces[0].tree.IsLeaf() && s.pieces[0].tree.IsError():
		top = top.push(top.state, s.pieces[0].tree, true, s.pieces[0].end)
	case len(s.pieces) > 0:
		trees := make([]*cst.Subtree, len(s.pieces))
		for i, p := range s.pieces {
			trees[i] = p.tree
		}
		last := s.pieces[len(s.pieces)-1].end
		errNode := cst.NewError(trees, v.state, r.la.tok.ScanEnd-last.Offset)
		top = top.push(top.state, errNode, true, last)
	}
	for _, p := range s.pending {
		top = top.push(top.state, p.tree, true, p.end)
	}
	return top
}

// viable reports whether k can be shifted or accepted from v, possibly
// after reductions.
func (r *run) viable(v *stackNode, k token.Kind) bool {
	return r.canShift(v.states(), k, 0)
}

func (r *run) canShift(states []grammar.StateID, k token.Kind, depth int) bool {
	top := states[len(states)-1]
	for _, a := range r.t.Actions(top, k) {
		switch a.Kind {
		case grammar.ActionShift, grammar.ActionAccept:
			return true
		case grammar.ActionReduce:
			if depth >= maxSimulationDepth {
				continue
			}
			p := r.t.Production(a.Target)
			if len(p.RHS) >= len(states) {
				continue
			}
			rest := states[:len(states)-len(p.RHS)]
			g, ok := r.t.Goto(rest[len(rest)-1], p.LHS)
			if !ok {
				continue
			}
			next := make([]grammar.StateID, len(rest)+1)
			copy(next, rest)
			next[len(rest)] = g
			if r.canShift(next, k, depth+1) {
				return true
			}
		}
	}
	return false
}
