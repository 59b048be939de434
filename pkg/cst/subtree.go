package cst

import (
	"sync/atomic"

	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// Flags describe a subtree.
type Flags uint8

const (
	FlagNamed Flags = 1 << iota
	FlagExtra
	// FlagError marks ERROR nodes and unrecognized-byte leaves.
	FlagError
	// FlagMissing marks zero-width leaves inserted by error recovery.
	FlagMissing
	// FlagFragile marks subtrees built while several stack versions were
	// alive or during recovery. They are never reused.
	FlagFragile
	// FlagHasError is set when the subtree or a descendant is an error or
	// missing node.
	FlagHasError
)

var nextID atomic.Uint64

// Subtree is an immutable, position-independent piece of a tree. Subtrees
// are shared by reference between tree versions; absolute positions live in
// Node.
type Subtree struct {
	id        uint64
	kind      token.Kind
	flags     Flags
	size      int
	extent    token.Point
	lookahead int
	state     grammar.StateID
	errorCost int
	dynamic   int
	children  []*Subtree
	starts    []token.Position // child starts relative to the subtree's start
}

// NewLeaf returns a leaf for tok. state is the parse state the token was
// shifted in.
func NewLeaf(t *grammar.Table, tok token.Token, state grammar.StateID) *Subtree {
	s := &Subtree{
		id:     nextID.Add(1),
		kind:   tok.Kind,
		size:   tok.Len(),
		extent: tok.End.Point.Sub(tok.Start.Point),
		state:  state,
	}
	if tok.ScanEnd > tok.End.Offset {
		s.lookahead = tok.ScanEnd - tok.End.Offset
	}
	info := t.Symbol(tok.Kind)
	if info.Named {
		s.flags |= FlagNamed
	}
	if info.Extra {
		s.flags |= FlagExtra
	}
	if tok.Kind == token.KindError {
		s.flags |= FlagError | FlagHasError
		s.errorCost = 1
	}
	return s
}

// NewMissing returns a zero-width leaf standing for a token that recovery
// inserted.
func NewMissing(t *grammar.Table, kind token.Kind, state grammar.StateID) *Subtree {
	s := &Subtree{
		id:        nextID.Add(1),
		kind:      kind,
		flags:     FlagMissing | FlagHasError | FlagFragile,
		state:     state,
		errorCost: 1,
	}
	if t.Symbol(kind).Named {
		s.flags |= FlagNamed
	}
	return s
}

// NodeSpec carries the parser's inputs for an interior node.
type NodeSpec struct {
	Kind     token.Kind
	Children []*Subtree
	// State is the parse state beneath the node.
	State grammar.StateID
	// Lookahead is the number of bytes past the node's end that the parser
	// examined before reducing it. The result covers at least the
	// children's own lookahead.
	Lookahead int
	Dynamic   int
	Fragile   bool
}

// NewNode returns an interior node over spec.Children.
func NewNode(t *grammar.Table, spec NodeSpec) *Subtree {
	s := &Subtree{
		id:       nextID.Add(1),
		kind:     spec.Kind,
		state:    spec.State,
		dynamic:  spec.Dynamic,
		children: spec.Children,
	}
	if t.Symbol(spec.Kind).Named {
		s.flags |= FlagNamed
	}
	if spec.Fragile {
		s.flags |= FlagFragile
	}
	s.summarize(spec.Lookahead)
	return s
}

// NewError wraps children in an ERROR node.
func NewError(children []*Subtree, state grammar.StateID, lookahead int) *Subtree {
	s := &Subtree{
		id:       nextID.Add(1),
		kind:     token.KindError,
		flags:    FlagNamed | FlagError | FlagHasError | FlagFragile,
		state:    state,
		children: children,
	}
	s.summarize(lookahead)
	s.errorCost++
	for _, c := range children {
		if len(c.children) == 0 && !c.IsExtra() {
			s.errorCost++
		}
	}
	return s
}

// summarize derives size, extent, lookahead and error data from children.
func (s *Subtree) summarize(lookahead int) {
	reach := 0
	s.starts = make([]token.Position, len(s.children))
	for i, c := range s.children {
		s.starts[i] = token.Position{Offset: s.size, Point: s.extent}
		if r := s.size + c.size + c.lookahead; r > reach {
			reach = r
		}
		s.size += c.size
		s.extent = s.extent.Add(c.extent)
		s.errorCost += c.errorCost
		s.dynamic += c.dynamic
		if c.flags&FlagHasError != 0 {
			s.flags |= FlagHasError
		}
	}
	s.lookahead = max(reach-s.size, lookahead, 0)
}

// ID identifies the subtree. Nodes with equal IDs share one subtree.
func (s *Subtree) ID() uint64 { return s.id }

// Kind returns the grammar symbol.
func (s *Subtree) Kind() token.Kind { return s.kind }

// Size returns the byte length.
func (s *Subtree) Size() int { return s.size }

// Extent returns the row and column span of the subtree's text.
func (s *Subtree) Extent() token.Point { return s.extent }

// Lookahead returns how many bytes past its end were examined to build the
// subtree.
func (s *Subtree) Lookahead() int { return s.lookahead }

// ParseState returns the parse state beneath the subtree.
func (s *Subtree) ParseState() grammar.StateID { return s.state }

// ErrorCost counts the error and missing nodes in the subtree, weighting
// skipped tokens.
func (s *Subtree) ErrorCost() int { return s.errorCost }

// Dynamic returns the summed dynamic precedence of the subtree.
func (s *Subtree) Dynamic() int { return s.dynamic }

// Children returns the child subtrees. The slice must not be modified.
func (s *Subtree) Children() []*Subtree { return s.children }

// ChildCount returns the number of children.
func (s *Subtree) ChildCount() int { return len(s.children) }

// IsLeaf reports whether the subtree is a token.
func (s *Subtree) IsLeaf() bool { return len(s.children) == 0 }

// Flag accessors.

func (s *Subtree) IsNamed() bool   { return s.flags&FlagNamed != 0 }
func (s *Subtree) IsExtra() bool   { return s.flags&FlagExtra != 0 }
func (s *Subtree) IsError() bool   { return s.flags&FlagError != 0 }
func (s *Subtree) IsMissing() bool { return s.flags&FlagMissing != 0 }
func (s *Subtree) IsFragile() bool { return s.flags&FlagFragile != 0 }
func (s *Subtree) HasError() bool  { return s.flags&FlagHasError != 0 }
