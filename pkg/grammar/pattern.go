package grammar

import (
	"fmt"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// PatternKind names a scanner primitive. Token rules are built from this
// fixed vocabulary so that the scanner knows exactly which bytes it examined.
type PatternKind string

// Scanner primitives.
const (
	PatternLiteral      PatternKind = "literal"       // exact text
	PatternKeyword      PatternKind = "keyword"       // ASCII case-insensitive text
	PatternWord         PatternKind = "word"          // identifier-like word
	PatternNumber       PatternKind = "number"        // integer, decimal, exponent
	PatternQuoted       PatternKind = "quoted"        // Text is the quote, doubled to escape
	PatternLineComment  PatternKind = "line_comment"  // Text is the prefix, runs to end of line
	PatternBlockComment PatternKind = "block_comment" // Text opens, Close closes, nests
	PatternWhitespace   PatternKind = "whitespace"
	PatternDollarString PatternKind = "dollar_string" // $tag$ ... $tag$
	PatternParameter    PatternKind = "parameter"     // Text prefix followed by digits
)

// Pattern is one way a token can be spelled.
type Pattern struct {
	Kind  PatternKind `yaml:"kind"`
	Text  string      `yaml:"text,omitempty"`
	Close string      `yaml:"close,omitempty"`
}

// Literal matches text exactly.
func Literal(text string) Pattern { return Pattern{Kind: PatternLiteral, Text: text} }

// Keyword matches text ignoring ASCII case.
func Keyword(text string) Pattern { return Pattern{Kind: PatternKeyword, Text: text} }

// Word matches an identifier: a letter or underscore followed by letters,
// digits, underscores or dollar signs. Bytes >= 0x80 count as letters.
func Word() Pattern { return Pattern{Kind: PatternWord} }

// Number matches numeric literals such as 1, 1.5, .5 and 1e10.
func Number() Pattern { return Pattern{Kind: PatternNumber} }

// Quoted matches text between two quote characters; a doubled quote escapes.
func Quoted(quote string) Pattern { return Pattern{Kind: PatternQuoted, Text: quote} }

// LineComment matches prefix up to, not including, the next newline.
func LineComment(prefix string) Pattern { return Pattern{Kind: PatternLineComment, Text: prefix} }

// BlockComment matches a nested block comment. An unterminated comment runs
// to the end of input.
func BlockComment(open, closer string) Pattern {
	return Pattern{Kind: PatternBlockComment, Text: open, Close: closer}
}

// Whitespace matches a run of ASCII whitespace.
func Whitespace() Pattern { return Pattern{Kind: PatternWhitespace} }

// DollarString matches a dollar-quoted string.
func DollarString() Pattern { return Pattern{Kind: PatternDollarString} }

// Parameter matches a positional parameter such as $1.
func Parameter(prefix string) Pattern { return Pattern{Kind: PatternParameter, Text: prefix} }

func (p Pattern) validate() error {
	switch p.Kind {
	case PatternLiteral, PatternKeyword, PatternQuoted, PatternLineComment, PatternParameter:
		if p.Text == "" {
			return fmt.Errorf("%s pattern needs text", p.Kind)
		}
	case PatternBlockComment:
		if p.Text == "" || p.Close == "" {
			return fmt.Errorf("block_comment pattern needs open and close text")
		}
	case PatternWord, PatternNumber, PatternWhitespace, PatternDollarString:
	default:
		return fmt.Errorf("unknown scanner %q", p.Kind)
	}
	return nil
}

// TokenDef binds a pattern to a terminal. Several definitions may share a
// symbol. Modes restricts the definition to lexical modes; empty means all.
type TokenDef struct {
	Symbol  token.Kind
	Pattern Pattern
	Modes   []int
}

// InMode reports whether the definition applies in lexical mode m.
func (d TokenDef) InMode(m int) bool {
	if len(d.Modes) == 0 {
		return true
	}
	for _, x := range d.Modes {
		if x == m {
			return true
		}
	}
	return false
}
