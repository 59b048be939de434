package lexer_test

import (
	"testing"

	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/lexer"
	"github.com/leapstack-labs/sqlcst/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *grammar.Table {
	t.Helper()
	tbl, err := grammar.NewBuilder("lex").
		Keywords("SELECT", "FROM").
		Token("identifier", grammar.Word(), grammar.Quoted(`"`)).
		Token("number", grammar.Number()).
		Token("string", grammar.Quoted("'"), grammar.DollarString()).
		Token("parameter", grammar.Parameter("$")).
		Token("comment", grammar.LineComment("--"), grammar.BlockComment("/*", "*/")).
		Anonymous("whitespace", grammar.Whitespace()).
		Punct("::", ":", ".", ";", "(", ")").
		Extras("whitespace", "comment").
		Rule("program", "", "program _item").
		Rule("_item", "keyword_select", "keyword_from", "identifier", "number", "string", "parameter",
			"::", ":", ".", ";", "(", ")").
		Compile()
	require.NoError(t, err)
	return tbl
}

type lexeme struct {
	kind string
	text string
}

func lex(t *testing.T, tbl *grammar.Table, src string) []lexeme {
	t.Helper()
	var out []lexeme
	for _, tok := range lexer.New(tbl).Tokenize([]byte(src)) {
		out = append(out, lexeme{tbl.Name(tok.Kind), tok.Text([]byte(src))})
	}
	return out
}

func TestTokenize(t *testing.T) {
	tbl := testTable(t)
	tests := []struct {
		name string
		src  string
		want []lexeme
	}{
		{
			name: "keywords ignore case",
			src:  "Select x",
			want: []lexeme{{"keyword_select", "Select"}, {"whitespace", " "}, {"identifier", "x"}},
		},
		{
			name: "longest match beats keyword",
			src:  "selection",
			want: []lexeme{{"identifier", "selection"}},
		},
		{
			name: "longest punctuation",
			src:  "a::int:b",
			want: []lexeme{{"identifier", "a"}, {"::", "::"}, {"identifier", "int"}, {":", ":"}, {"identifier", "b"}},
		},
		{
			name: "quoted identifier with escape",
			src:  `"a""b".c`,
			want: []lexeme{{"identifier", `"a""b"`}, {".", "."}, {"identifier", "c"}},
		},
		{
			name: "string with doubled quote",
			src:  `'it''s';`,
			want: []lexeme{{"string", `'it''s'`}, {";", ";"}},
		},
		{
			name: "numbers",
			src:  "1 1.5 .5 1e10 2E-3 7.",
			want: []lexeme{
				{"number", "1"}, {"whitespace", " "},
				{"number", "1.5"}, {"whitespace", " "},
				{"number", ".5"}, {"whitespace", " "},
				{"number", "1e10"}, {"whitespace", " "},
				{"number", "2E-3"}, {"whitespace", " "},
				{"number", "7."},
			},
		},
		{
			name: "exponent without digits",
			src:  "1e",
			want: []lexeme{{"number", "1"}, {"identifier", "e"}},
		},
		{
			name: "comments",
			src:  "-- note\n/* a /* b */ c */x",
			want: []lexeme{
				{"comment", "-- note"}, {"whitespace", "\n"},
				{"comment", "/* a /* b */ c */"}, {"identifier", "x"},
			},
		},
		{
			name: "unterminated block comment runs to end",
			src:  "x /* open",
			want: []lexeme{{"identifier", "x"}, {"whitespace", " "}, {"comment", "/* open"}},
		},
		{
			name: "dollar string and parameter",
			src:  "$fn$ it's $fn$ $1",
			want: []lexeme{{"string", "$fn$ it's $fn$"}, {"whitespace", " "}, {"parameter", "$1"}},
		},
		{
			name: "unrecognized byte",
			src:  "a@b",
			want: []lexeme{{"identifier", "a"}, {"ERROR", "@"}, {"identifier", "b"}},
		},
		{
			name: "unterminated string",
			src:  "'ab",
			want: []lexeme{{"ERROR", "'"}, {"identifier", "ab"}},
		},
		{
			name: "utf-8 identifier",
			src:  "café",
			want: []lexeme{{"identifier", "café"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lex(t, tbl, tt.src))
		})
	}
}

func TestScanExtent(t *testing.T) {
	tbl := testTable(t)
	s := lexer.New(tbl)

	tests := []struct {
		name    string
		src     string
		end     int
		scanEnd int
	}{
		{"number looks one past", "12 ", 2, 3},
		{"keyword checks word boundary", "select x", 6, 7},
		{"token at end of input", "sel", 3, 3},
		{"unknown byte", "@", 1, 1},
		{"unterminated string looks to end", "'abc", 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := s.Scan([]byte(tt.src), token.Position{}, 0)
			assert.Equal(t, tt.end, tok.End.Offset)
			assert.Equal(t, tt.scanEnd, tok.ScanEnd)
		})
	}
}

func TestScanPositions(t *testing.T) {
	tbl := testTable(t)
	s := lexer.New(tbl)
	src := []byte("a\n  bc")

	toks := s.Tokenize(src)
	require.Len(t, toks, 3)
	assert.Equal(t, token.Point{Row: 1, Column: 2}, toks[2].Start.Point)
	assert.Equal(t, token.Point{Row: 1, Column: 4}, toks[2].End.Point)

	end := s.Scan(src, toks[2].End, 0)
	assert.True(t, end.IsEnd())
	assert.Equal(t, 0, end.Len())
	assert.Equal(t, len(src), end.ScanEnd)
}

func TestScanRestartsAnywhere(t *testing.T) {
	tbl := testTable(t)
	s := lexer.New(tbl)
	src := []byte("select abc from t")

	// Scanning from a token boundary gives the same token as a full pass.
	full := s.Tokenize(src)
	for _, want := range full {
		got := s.Scan(src, want.Start, 0)
		assert.Equal(t, want, got)
	}
}
