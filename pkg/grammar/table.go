// Package grammar holds the static description a parse runs against: the
// symbol set, token definitions, productions, precedence declarations and the
// LALR(1) state machine derived from them.
//
// A Table is immutable once built or loaded. It is meant to be created once
// per process and passed explicitly to every parser that needs it; no method
// mutates it, so concurrent parses may share one Table without locking.
//
// Tables come from two places:
//
//   - Builder.Compile, which derives the automaton from a rule set declared
//     in Go (see pkg/dialects for the SQL rule set), and
//   - Decode/LoadFile, which read a versioned YAML artifact written by Encode.
//
// Static conflicts are resolved with yacc-style precedence and associativity.
// Cells that stay ambiguous keep every action, in shift-first then
// production order, and are listed in Conflicts; the parser explores them
// with bounded parallel stacks.
package grammar

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// FormatVersion is the artifact format this package reads and writes.
const FormatVersion = 1

// Reserved symbol names.
const (
	EndName    = "end"
	ErrorName  = "ERROR"
	acceptName = "$accept"
)

// Table is a compiled grammar.
type Table struct {
	version     int
	language    string
	start       token.Kind
	symbols     []SymbolInfo
	byName      map[string]token.Kind
	tokens      []TokenDef
	productions []Production
	levels      []Level
	sync        []token.Kind
	insertable  []token.Kind

	numTerminals int
	numStates    int
	actions      [][]Action // numStates * numTerminals
	gotos        []StateID  // numStates * numNonterminals

	conflicts   []Conflict
	recoverable []bool
	syncSet     []bool
}

// Version returns the artifact format version of the table.
func (t *Table) Version() int { return t.version }

// Language returns the language tag.
func (t *Table) Language() string { return t.language }

// Start returns the root nonterminal.
func (t *Table) Start() token.Kind { return t.start }

// NumSymbols returns the number of symbols, terminals first.
func (t *Table) NumSymbols() int { return len(t.symbols) }

// NumTerminals returns the number of terminal symbols.
func (t *Table) NumTerminals() int { return t.numTerminals }

// NumStates returns the number of parse states.
func (t *Table) NumStates() int { return t.numStates }

// NumProductions returns the number of productions.
func (t *Table) NumProductions() int { return len(t.productions) }

// Symbol returns the description of k.
func (t *Table) Symbol(k token.Kind) SymbolInfo {
	if int(k) >= len(t.symbols) {
		return SymbolInfo{Name: "?"}
	}
	return t.symbols[k]
}

// Name returns the name of k.
func (t *Table) Name(k token.Kind) string { return t.Symbol(k).Name }

// Display returns k as a user would write it: keywords in upper case,
// punctuation quoted and other symbols by name.
func (t *Table) Display(k token.Kind) string {
	info := t.Symbol(k)
	if word, ok := strings.CutPrefix(info.Name, keywordPrefix); ok && info.Terminal {
		return strings.ToUpper(word)
	}
	if !info.Named {
		return strconv.Quote(info.Name)
	}
	return info.Name
}

// IsKeyword reports whether k was declared with Builder.Keywords.
func (t *Table) IsKeyword(k token.Kind) bool {
	info := t.Symbol(k)
	return info.Terminal && strings.HasPrefix(info.Name, keywordPrefix)
}

// Lookup returns the symbol with the given name.
func (t *Table) Lookup(name string) (token.Kind, bool) {
	k, ok := t.byName[name]
	return k, ok
}

// IsTerminal reports whether k is a terminal.
func (t *Table) IsTerminal(k token.Kind) bool { return int(k) < t.numTerminals }

// IsExtra reports whether k is an extra terminal.
func (t *Table) IsExtra(k token.Kind) bool { return t.Symbol(k).Extra }

// IsHidden reports whether k is a hidden nonterminal.
func (t *Table) IsHidden(k token.Kind) bool { return t.Symbol(k).Hidden }

// IsSync reports whether k is a synchronizing nonterminal.
func (t *Table) IsSync(k token.Kind) bool {
	return int(k) < len(t.syncSet) && t.syncSet[k]
}

// Tokens returns token definitions in declaration order.
func (t *Table) Tokens() []TokenDef { return t.tokens }

// Production returns production i.
func (t *Table) Production(i int) Production { return t.productions[i] }

// Levels returns the declared precedence levels, loosest first.
func (t *Table) Levels() []Level { return t.levels }

// Sync returns the synchronizing nonterminals.
func (t *Table) Sync() []token.Kind { return t.sync }

// Insertable returns the terminals error recovery may synthesize, in the
// order they are tried.
func (t *Table) Insertable() []token.Kind { return t.insertable }

// Conflicts returns the cells that hold more than one action.
func (t *Table) Conflicts() []Conflict { return t.conflicts }

// Actions returns the actions for terminal k in state s. The returned slice
// must not be modified.
func (t *Table) Actions(s StateID, k token.Kind) []Action {
	if int(s) >= t.numStates || int(k) >= t.numTerminals {
		return nil
	}
	return t.actions[int(s)*t.numTerminals+int(k)]
}

// Goto returns the state reached from s over nonterminal k.
func (t *Table) Goto(s StateID, k token.Kind) (StateID, bool) {
	n := int(k) - t.numTerminals
	nn := len(t.symbols) - t.numTerminals
	if n < 0 || n >= nn || int(s) >= t.numStates {
		return NoState, false
	}
	g := t.gotos[int(s)*nn+n]
	return g, g != NoState
}

// CanRecover reports whether state s can resume after a synchronizing
// nonterminal. The initial state always can.
func (t *Table) CanRecover(s StateID) bool {
	return int(s) < len(t.recoverable) && t.recoverable[s]
}

// Expected returns the terminals that have an action in state s.
func (t *Table) Expected(s StateID) []token.Kind {
	var out []token.Kind
	for k := 0; k < t.numTerminals; k++ {
		if len(t.Actions(s, token.Kind(k))) > 0 {
			out = append(out, token.Kind(k))
		}
	}
	return out
}

// init validates a populated table and derives lookup structures.
func (t *Table) init() error {
	if len(t.symbols) < 3 {
		return malformed("table declares %d symbols", len(t.symbols))
	}
	if t.symbols[token.KindEnd].Name != EndName || !t.symbols[token.KindEnd].Terminal {
		return malformed("symbol 0 must be the %q terminal", EndName)
	}
	if t.symbols[token.KindError].Name != ErrorName || !t.symbols[token.KindError].Terminal {
		return malformed("symbol 1 must be the %q terminal", ErrorName)
	}

	t.byName = make(map[string]token.Kind, len(t.symbols))
	t.numTerminals = 0
	for i, s := range t.symbols {
		if s.Name == "" {
			return malformed("symbol %d has no name", i)
		}
		if _, dup := t.byName[s.Name]; dup {
			return malformed("duplicate symbol %q", s.Name)
		}
		t.byName[s.Name] = token.Kind(i)
		if s.Terminal {
			if t.numTerminals != i {
				return malformed("terminal %q declared after nonterminals", s.Name)
			}
			t.numTerminals++
		}
	}
	numNonterminals := len(t.symbols) - t.numTerminals
	if numNonterminals == 0 {
		return malformed("table declares no nonterminals")
	}
	if t.IsTerminal(t.start) || int(t.start) >= len(t.symbols) {
		return malformed("start symbol %d is not a nonterminal", t.start)
	}

	for i, d := range t.tokens {
		if !t.IsTerminal(d.Symbol) || d.Symbol <= token.KindError {
			return malformed("token %d refers to %d, which is not a token symbol", i, d.Symbol)
		}
		if err := d.Pattern.validate(); err != nil {
			return malformed("token %s: %v", t.Name(d.Symbol), err)
		}
	}

	if len(t.productions) == 0 {
		return malformed("table declares no productions")
	}
	for i, p := range t.productions {
		if int(p.LHS) >= len(t.symbols) || t.IsTerminal(p.LHS) {
			return malformed("production %d has terminal or unknown left side %d", i, p.LHS)
		}
		for _, r := range p.RHS {
			if int(r) >= len(t.symbols) {
				return malformed("production %d refers to unknown symbol %d", i, r)
			}
		}
		if p.Prec < 0 || p.Prec > len(t.levels) {
			return malformed("production %d has precedence %d outside declared levels", i, p.Prec)
		}
	}
	if p0 := t.productions[0]; len(p0.RHS) != 1 || p0.RHS[0] != t.start {
		return malformed("production 0 must derive the start symbol")
	}

	if t.numStates == 0 || len(t.actions) != t.numStates*t.numTerminals || len(t.gotos) != t.numStates*numNonterminals {
		return malformed("state table has inconsistent dimensions")
	}
	t.conflicts = t.conflicts[:0]
	for i, cell := range t.actions {
		state, sym := i/t.numTerminals, token.Kind(i%t.numTerminals)
		for _, a := range cell {
			switch a.Kind {
			case ActionShift:
				if a.Target < 0 || a.Target >= t.numStates {
					return malformed("state %d shifts %s to unknown state %d", state, t.Name(sym), a.Target)
				}
			case ActionReduce:
				if a.Target < 1 || a.Target >= len(t.productions) {
					return malformed("state %d reduces unknown production %d", state, a.Target)
				}
			case ActionAccept:
				if sym != token.KindEnd {
					return malformed("state %d accepts on %s", state, t.Name(sym))
				}
			default:
				return malformed("state %d has an action of unknown kind %d", state, a.Kind)
			}
		}
		if len(cell) > 1 {
			t.conflicts = append(t.conflicts, Conflict{State: StateID(state), Symbol: sym, Actions: cell})
		}
	}
	for i, g := range t.gotos {
		if g != NoState && int(g) >= t.numStates {
			return malformed("state %d has a goto to unknown state %d", i/numNonterminals, g)
		}
	}

	t.syncSet = make([]bool, len(t.symbols))
	for _, s := range t.sync {
		if int(s) >= len(t.symbols) || t.IsTerminal(s) {
			return malformed("sync symbol %d is not a nonterminal", s)
		}
		t.syncSet[s] = true
	}
	for _, s := range t.insertable {
		if !t.IsTerminal(s) || s <= token.KindError {
			return malformed("insertable symbol %d is not a token", s)
		}
	}

	t.recoverable = make([]bool, t.numStates)
	t.recoverable[0] = true
	for s := 0; s < t.numStates; s++ {
		for _, k := range t.sync {
			if _, ok := t.Goto(StateID(s), k); ok {
				t.recoverable[s] = true
				break
			}
		}
	}
	return nil
}
