// Package lexer turns source bytes into tokens using the token rules of a
// grammar table.
//
// Scanning is a pure function of the source, the start position and the
// lexical mode. The scanner keeps no continuation between calls, so the
// incremental parser can restart it at any token boundary of the old tree.
// Every token records how far the scanner looked (ScanEnd); an edit inside
// that range may change the token and invalidates it for reuse.
package lexer

import (
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// State is the lexical mode a scan runs in. The zero value is the default
// mode.
type State int

// Scanner matches the token definitions of one table. It is safe for
// concurrent use.
type Scanner struct {
	defs []grammar.TokenDef
	// byFirst lists, per leading byte, the definitions that can start with
	// that byte, in declaration order.
	byFirst [256][]int
}

// New builds a scanner for t.
func New(t *grammar.Table) *Scanner {
	s := &Scanner{defs: t.Tokens()}
	for i, d := range s.defs {
		for b := 0; b < 256; b++ {
			if canStart(d.Pattern, byte(b)) {
				s.byFirst[b] = append(s.byFirst[b], i)
			}
		}
	}
	return s
}

func canStart(p grammar.Pattern, b byte) bool {
	switch p.Kind {
	case grammar.PatternLiteral, grammar.PatternQuoted, grammar.PatternLineComment,
		grammar.PatternBlockComment, grammar.PatternParameter:
		return p.Text[0] == b
	case grammar.PatternKeyword:
		return lower(p.Text[0]) == lower(b)
	case grammar.PatternWord:
		return isWordStart(b)
	case grammar.PatternNumber:
		return isDigit(b) || b == '.'
	case grammar.PatternWhitespace:
		return isSpace(b)
	case grammar.PatternDollarString:
		return b == '$'
	}
	return false
}

// Scan returns the token starting at position at. Past the last byte it
// returns a zero-width end token. Bytes no rule accepts come back as a
// one-byte error token.
func (s *Scanner) Scan(src []byte, at token.Position, state State) token.Token {
	if at.Offset >= len(src) {
		return token.Token{Kind: token.KindEnd, Start: at, End: at, ScanEnd: at.Offset}
	}

	c := cursor{src: src, start: at.Offset, seen: at.Offset + 1}
	best, bestLen := -1, 0
	for _, i := range s.byFirst[src[at.Offset]] {
		d := s.defs[i]
		if !d.InMode(int(state)) {
			continue
		}
		if n := c.match(d.Pattern); n > bestLen {
			best, bestLen = i, n
		}
	}

	kind := token.KindError
	if best >= 0 {
		kind = s.defs[best].Symbol
	} else {
		bestLen = 1
	}
	end := at.Advance(src[at.Offset : at.Offset+bestLen])
	scanEnd := c.seen
	if scanEnd < end.Offset {
		scanEnd = end.Offset
	}
	return token.Token{Kind: kind, Start: at, End: end, ScanEnd: scanEnd}
}

// Tokenize scans all of src in the default mode. The end token is not
// included.
func (s *Scanner) Tokenize(src []byte) []token.Token {
	var out []token.Token
	var pos token.Position
	for {
		tok := s.Scan(src, pos, 0)
		if tok.IsEnd() {
			return out
		}
		out = append(out, tok)
		pos = tok.End
	}
}
