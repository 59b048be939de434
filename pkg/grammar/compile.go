package grammar

import (
	"math/bits"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// item is an LR(0) item: a production and a dot position.
type item struct {
	prod int
	dot  int
}

// bitset is a set of terminals. One extra bit past the last terminal stands
// for the propagation marker used while computing LALR lookaheads.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

// union adds o to b and reports whether b changed.
func (b bitset) union(o bitset) bool {
	changed := false
	for i := range b {
		n := b[i] | o[i]
		if n != b[i] {
			b[i] = n
			changed = true
		}
	}
	return changed
}

func (b bitset) clone() bitset { return append(bitset(nil), b...) }

func (b bitset) each(fn func(int)) {
	for w, word := range b {
		for word != 0 {
			i := bits.TrailingZeros64(word)
			fn(w*64 + i)
			word &^= 1 << uint(i)
		}
	}
}

type lr0State struct {
	kernel []item
	trans  map[token.Kind]int
}

type automaton struct {
	t        *Table
	nTerm    int
	byLHS    [][]int // productions per nonterminal, indexed by kind - nTerm
	nullable []bool
	first    []bitset
	states   []*lr0State
	index    map[string]int
}

// buildAutomaton fills the state tables of t.
func buildAutomaton(t *Table, termPrec []int) {
	a := &automaton{t: t, index: make(map[string]int)}
	for _, s := range t.symbols {
		if s.Terminal {
			a.nTerm++
		}
	}
	a.byLHS = make([][]int, len(t.symbols)-a.nTerm)
	for i, p := range t.productions {
		a.byLHS[int(p.LHS)-a.nTerm] = append(a.byLHS[int(p.LHS)-a.nTerm], i)
	}
	a.computeFirst()
	a.buildLR0()
	la := a.lookaheads()
	a.fillTables(la, termPrec)
}

func (a *automaton) isTerm(k token.Kind) bool { return int(k) < a.nTerm }

func (a *automaton) computeFirst() {
	n := len(a.t.symbols)
	a.nullable = make([]bool, n)
	a.first = make([]bitset, n)
	for i := 0; i < n; i++ {
		a.first[i] = newBitset(a.nTerm + 1)
		if i < a.nTerm {
			a.first[i].set(i)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, p := range a.t.productions {
			all := true
			for _, r := range p.RHS {
				if a.first[p.LHS].union(a.first[r]) {
					changed = true
				}
				if !a.nullable[r] {
					all = false
					break
				}
			}
			if all && !a.nullable[p.LHS] {
				a.nullable[p.LHS] = true
				changed = true
			}
		}
	}
}

// firstOf returns FIRST of the symbols after position dot in prod and
// whether that suffix is nullable.
func (a *automaton) firstOf(prod, from int) (bitset, bool) {
	out := newBitset(a.nTerm + 1)
	rhs := a.t.productions[prod].RHS
	for i := from; i < len(rhs); i++ {
		out.union(a.first[rhs[i]])
		if !a.nullable[rhs[i]] {
			return out, false
		}
	}
	return out, true
}

func kernelKey(k []item) string {
	var sb strings.Builder
	for _, it := range k {
		sb.WriteString(strconv.Itoa(it.prod))
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(it.dot))
		sb.WriteByte(' ')
	}
	return sb.String()
}

// closure0 returns the LR(0) closure of a kernel: the kernel followed by the
// initial items of every nonterminal reachable after a dot.
func (a *automaton) closure0(kernel []item) []item {
	out := append([]item(nil), kernel...)
	added := make([]bool, len(a.byLHS))
	for i := 0; i < len(out); i++ {
		it := out[i]
		rhs := a.t.productions[it.prod].RHS
		if it.dot >= len(rhs) || a.isTerm(rhs[it.dot]) {
			continue
		}
		nt := int(rhs[it.dot]) - a.nTerm
		if added[nt] {
			continue
		}
		added[nt] = true
		for _, p := range a.byLHS[nt] {
			out = append(out, item{prod: p})
		}
	}
	return out
}

func (a *automaton) addState(kernel []item) int {
	sort.Slice(kernel, func(i, j int) bool {
		if kernel[i].prod != kernel[j].prod {
			return kernel[i].prod < kernel[j].prod
		}
		return kernel[i].dot < kernel[j].dot
	})
	key := kernelKey(kernel)
	if i, ok := a.index[key]; ok {
		return i
	}
	i := len(a.states)
	a.states = append(a.states, &lr0State{kernel: kernel, trans: make(map[token.Kind]int)})
	a.index[key] = i
	return i
}

func (a *automaton) buildLR0() {
	a.addState([]item{{prod: 0, dot: 0}})
	for s := 0; s < len(a.states); s++ {
		st := a.states[s]
		groups := make(map[token.Kind][]item)
		var order []token.Kind
		for _, it := range a.closure0(st.kernel) {
			rhs := a.t.productions[it.prod].RHS
			if it.dot >= len(rhs) {
				continue
			}
			x := rhs[it.dot]
			if _, ok := groups[x]; !ok {
				order = append(order, x)
			}
			groups[x] = append(groups[x], item{prod: it.prod, dot: it.dot + 1})
		}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
		for _, x := range order {
			st.trans[x] = a.addState(groups[x])
		}
	}
}

// closure1 computes the LR(1) closure of items with lookahead sets.
func (a *automaton) closure1(kernel []item, las []bitset) ([]item, []bitset) {
	items := append([]item(nil), kernel...)
	sets := make([]bitset, len(las))
	for i := range las {
		sets[i] = las[i].clone()
	}
	pos := make(map[item]int, len(items))
	for i, it := range items {
		pos[it] = i
	}
	work := make([]int, len(items))
	for i := range work {
		work[i] = i
	}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		it := items[i]
		rhs := a.t.productions[it.prod].RHS
		if it.dot >= len(rhs) || a.isTerm(rhs[it.dot]) {
			continue
		}
		follow, nullable := a.firstOf(it.prod, it.dot+1)
		if nullable {
			follow.union(sets[i])
		}
		for _, p := range a.byLHS[int(rhs[it.dot])-a.nTerm] {
			ni := item{prod: p}
			j, ok := pos[ni]
			if !ok {
				j = len(items)
				pos[ni] = j
				items = append(items, ni)
				sets = append(sets, newBitset(a.nTerm+1))
			}
			if sets[j].union(follow) || !ok {
				work = append(work, j)
			}
		}
	}
	return items, sets
}

type laRef struct{ state, kernel int }

// lookaheads computes LALR(1) lookahead sets for every kernel item by
// spontaneous generation and propagation.
func (a *automaton) lookaheads() [][]bitset {
	la := make([][]bitset, len(a.states))
	kpos := make([]map[item]int, len(a.states))
	for s, st := range a.states {
		la[s] = make([]bitset, len(st.kernel))
		kpos[s] = make(map[item]int, len(st.kernel))
		for i, it := range st.kernel {
			la[s][i] = newBitset(a.nTerm + 1)
			kpos[s][it] = i
		}
	}
	la[0][0].set(int(token.KindEnd))

	marker := a.nTerm
	propagate := make(map[laRef][]laRef)
	for s, st := range a.states {
		for k, kit := range st.kernel {
			probe := newBitset(a.nTerm + 1)
			probe.set(marker)
			items, sets := a.closure1([]item{kit}, []bitset{probe})
			for i, it := range items {
				rhs := a.t.productions[it.prod].RHS
				if it.dot >= len(rhs) {
					continue
				}
				target := st.trans[rhs[it.dot]]
				dst := laRef{state: target, kernel: kpos[target][item{prod: it.prod, dot: it.dot + 1}]}
				spont := sets[i].clone()
				if spont.has(marker) {
					spont[marker/64] &^= 1 << (uint(marker) % 64)
					src := laRef{state: s, kernel: k}
					propagate[src] = append(propagate[src], dst)
				}
				la[dst.state][dst.kernel].union(spont)
			}
		}
	}

	srcs := make([]laRef, 0, len(propagate))
	for src := range propagate {
		srcs = append(srcs, src)
	}
	sort.Slice(srcs, func(i, j int) bool {
		if srcs[i].state != srcs[j].state {
			return srcs[i].state < srcs[j].state
		}
		return srcs[i].kernel < srcs[j].kernel
	})
	for changed := true; changed; {
		changed = false
		for _, src := range srcs {
			for _, dst := range propagate[src] {
				if la[dst.state][dst.kernel].union(la[src.state][src.kernel]) {
					changed = true
				}
			}
		}
	}
	return la
}

// fillTables turns the automaton into action and goto tables, resolving
// conflicts by precedence where declared.
func (a *automaton) fillTables(la [][]bitset, termPrec []int) {
	t := a.t
	nStates := len(a.states)
	nNonterm := len(t.symbols) - a.nTerm
	t.numStates = nStates
	t.numTerminals = a.nTerm
	t.actions = make([][]Action, nStates*a.nTerm)
	t.gotos = make([]StateID, nStates*nNonterm)
	for i := range t.gotos {
		t.gotos[i] = NoState
	}

	for s, st := range a.states {
		for x, target := range st.trans {
			if a.isTerm(x) {
				continue
			}
			t.gotos[s*nNonterm+int(x)-a.nTerm] = StateID(target)
		}

		reduces := make([][]int, a.nTerm)
		items, sets := a.closure1(st.kernel, la[s])
		for i, it := range items {
			if it.dot < len(t.productions[it.prod].RHS) {
				continue
			}
			sets[i].each(func(term int) {
				if term < a.nTerm {
					reduces[term] = append(reduces[term], it.prod)
				}
			})
		}

		for term := 0; term < a.nTerm; term++ {
			shift, hasShift := st.trans[token.Kind(term)]
			rs := reduces[term]
			if !hasShift && len(rs) == 0 {
				continue
			}
			sort.Ints(rs)
			rs = dedupe(rs)
			t.actions[s*a.nTerm+term] = resolveCell(t, term, shift, hasShift, rs, termPrec)
		}
	}
}

func dedupe(xs []int) []int {
	out := xs[:0]
	for i, x := range xs {
		if i == 0 || x != xs[i-1] {
			out = append(out, x)
		}
	}
	return out
}

// resolveCell applies precedence and associativity to one action cell.
// What remains is returned shift first, then reduces by production index.
func resolveCell(t *Table, term, shift int, hasShift bool, rs []int, termPrec []int) []Action {
	keepShift := hasShift
	tp := termPrec[term]
	var kept []int
	for _, r := range rs {
		pp := t.productions[r].Prec
		if !hasShift || tp == 0 || pp == 0 {
			kept = append(kept, r)
			continue
		}
		switch {
		case pp > tp:
			keepShift = false
			kept = append(kept, r)
		case pp < tp:
		default:
			switch t.levels[pp-1].Assoc {
			case AssocLeft:
				keepShift = false
				kept = append(kept, r)
			case AssocRight:
			case AssocNonassoc:
				keepShift = false
			default:
				kept = append(kept, r)
			}
		}
	}

	if len(kept) > 1 {
		best, all := 0, true
		for _, r := range kept {
			p := t.productions[r].Prec
			if p == 0 {
				all = false
				break
			}
			if p > best {
				best = p
			}
		}
		if all {
			var top []int
			for _, r := range kept {
				if t.productions[r].Prec == best {
					top = append(top, r)
				}
			}
			kept = top
		}
	}

	var cell []Action
	if keepShift {
		cell = append(cell, Shift(StateID(shift)))
	}
	for _, r := range kept {
		if r == 0 {
			cell = append(cell, Accept())
			continue
		}
		cell = append(cell, Reduce(r))
	}
	return cell
}
