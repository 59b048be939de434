package grammar

import (
	"fmt"
	"math"
	"strconv"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// StateID identifies a parse state.
type StateID uint16

// NoState marks a missing goto.
const NoState StateID = math.MaxUint16

// SymbolInfo describes one grammar symbol.
type SymbolInfo struct {
	Name     string
	Terminal bool
	// Named symbols appear in s-expressions; anonymous ones are punctuation.
	Named bool
	// Hidden nonterminals are spliced into their parent node.
	Hidden bool
	// Extra terminals may appear anywhere between tokens (whitespace, comments).
	Extra bool
}

// Assoc is the associativity of a precedence level.
type Assoc uint8

// Associativity values.
const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
	AssocNonassoc
)

func (a Assoc) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	case AssocNonassoc:
		return "nonassoc"
	default:
		return "none"
	}
}

// ParseAssoc converts a string to an Assoc.
func ParseAssoc(s string) (Assoc, error) {
	switch s {
	case "left":
		return AssocLeft, nil
	case "right":
		return AssocRight, nil
	case "nonassoc":
		return AssocNonassoc, nil
	case "none", "":
		return AssocNone, nil
	default:
		return AssocNone, fmt.Errorf("unknown associativity %q", s)
	}
}

// Level is one declared precedence level. Levels are numbered from 1 in
// declaration order; later levels bind tighter.
type Level struct {
	Assoc Assoc
	Names []string
}

// Production is a single rule alternative.
type Production struct {
	LHS token.Kind
	RHS []token.Kind
	// Prec is the precedence level, 0 when the production has none.
	Prec int
	// Dynamic is the dynamic precedence used to rank ambiguous derivations.
	Dynamic int
}

// ActionKind is the kind of a parse action.
type ActionKind uint8

// Action kinds.
const (
	ActionShift ActionKind = iota + 1
	ActionReduce
	ActionAccept
)

// Action is a single entry of an action cell. Target is the next state for
// a shift and the production index for a reduce.
type Action struct {
	Kind   ActionKind
	Target int
}

// Shift returns a shift action.
func Shift(s StateID) Action { return Action{Kind: ActionShift, Target: int(s)} }

// Reduce returns a reduce action.
func Reduce(prod int) Action { return Action{Kind: ActionReduce, Target: prod} }

// Accept returns the accept action.
func Accept() Action { return Action{Kind: ActionAccept} }

func (a Action) String() string {
	switch a.Kind {
	case ActionShift:
		return "s" + strconv.Itoa(a.Target)
	case ActionReduce:
		return "r" + strconv.Itoa(a.Target)
	case ActionAccept:
		return "acc"
	default:
		return "?"
	}
}

// ParseAction parses the textual form produced by Action.String.
func ParseAction(s string) (Action, error) {
	if s == "acc" {
		return Accept(), nil
	}
	if len(s) < 2 {
		return Action{}, fmt.Errorf("invalid action %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 {
		return Action{}, fmt.Errorf("invalid action %q", s)
	}
	switch s[0] {
	case 's':
		return Action{Kind: ActionShift, Target: n}, nil
	case 'r':
		return Action{Kind: ActionReduce, Target: n}, nil
	default:
		return Action{}, fmt.Errorf("invalid action %q", s)
	}
}

// Conflict records an action cell that static precedence could not resolve.
// The parser explores every action of such a cell.
type Conflict struct {
	State   StateID
	Symbol  token.Kind
	Actions []Action
}
