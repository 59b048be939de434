// Package token defines positions and lexical tokens shared by the grammar
// table, the scanner and the concrete syntax tree.
//
// Kinds are assigned by a grammar table: terminals occupy the low range and
// nonterminals follow them. The first two kinds are reserved for every table.
package token

// Kind identifies a grammar symbol, either a token kind or a rule kind.
type Kind uint16

const (
	// KindEnd marks the end of input.
	KindEnd Kind = 0
	// KindError marks unrecognized input and error nodes.
	KindError Kind = 1
)

// Token is a single lexeme. Tokens are immutable once emitted.
type Token struct {
	Kind  Kind
	Start Position
	End   Position
	// ScanEnd is the exclusive byte bound the scanner examined while
	// producing the token. It is at least End.Offset unless the token is empty.
	ScanEnd int
}

// Len returns the token length in bytes.
func (t Token) Len() int {
	return t.End.Offset - t.Start.Offset
}

// Span returns the token's byte and point range.
func (t Token) Span() Span {
	return Span{Start: t.Start, End: t.End}
}

// IsEnd reports whether t marks the end of input.
func (t Token) IsEnd() bool {
	return t.Kind == KindEnd
}

// Text returns the token's bytes within src.
func (t Token) Text(src []byte) string {
	return string(src[t.Start.Offset:t.End.Offset])
}
