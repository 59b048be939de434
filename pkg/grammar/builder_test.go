package grammar_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calcBuilder(withPrec bool) *grammar.Builder {
	b := grammar.NewBuilder("calc").
		Token("number", grammar.Number()).
		Anonymous("whitespace", grammar.Whitespace()).
		Punct("+", "*", "(", ")").
		Extras("whitespace")
	if withPrec {
		b.Left("+").Left("*")
	}
	return b.Rule("expr",
		"expr + expr",
		"expr * expr",
		"( expr )",
		"number",
	).Sync("expr").Insertable(")")
}

// drive runs the table deterministically over symbol names and returns the
// reduced productions in order.
func drive(t *testing.T, tbl *grammar.Table, input ...string) ([]int, bool) {
	t.Helper()
	stack := []grammar.StateID{0}
	var reduced []int
	for i := 0; ; {
		k := token.KindEnd
		if i < len(input) {
			var ok bool
			k, ok = tbl.Lookup(input[i])
			require.True(t, ok, "unknown symbol %s", input[i])
		}
		acts := tbl.Actions(stack[len(stack)-1], k)
		if len(acts) == 0 {
			return reduced, false
		}
		a := acts[0]
		switch a.Kind {
		case grammar.ActionShift:
			stack = append(stack, grammar.StateID(a.Target))
			i++
		case grammar.ActionReduce:
			p := tbl.Production(a.Target)
			stack = stack[:len(stack)-len(p.RHS)]
			g, ok := tbl.Goto(stack[len(stack)-1], p.LHS)
			require.True(t, ok)
			stack = append(stack, g)
			reduced = append(reduced, a.Target)
		case grammar.ActionAccept:
			return reduced, true
		}
	}
}

func TestCompileSymbols(t *testing.T) {
	tbl, err := calcBuilder(true).Compile()
	require.NoError(t, err)

	assert.Equal(t, "calc", tbl.Language())
	assert.Equal(t, grammar.FormatVersion, tbl.Version())
	assert.Equal(t, "end", tbl.Name(token.KindEnd))
	assert.Equal(t, "ERROR", tbl.Name(token.KindError))
	assert.Equal(t, "expr", tbl.Name(tbl.Start()))

	num, ok := tbl.Lookup("number")
	require.True(t, ok)
	assert.True(t, tbl.IsTerminal(num))
	assert.True(t, tbl.Symbol(num).Named)

	plus, _ := tbl.Lookup("+")
	assert.False(t, tbl.Symbol(plus).Named)

	ws, _ := tbl.Lookup("whitespace")
	assert.True(t, tbl.IsExtra(ws))

	assert.True(t, tbl.CanRecover(0))
	rparen, _ := tbl.Lookup(")")
	assert.Equal(t, []token.Kind{rparen}, tbl.Insertable())
}

func TestCompilePrecedence(t *testing.T) {
	tbl, err := calcBuilder(true).Compile()
	require.NoError(t, err)
	assert.Empty(t, tbl.Conflicts(), "precedence resolves every conflict")

	tests := []struct {
		name  string
		input []string
		want  []int
	}{
		{"mul binds tighter", []string{"number", "+", "number", "*", "number"}, []int{4, 4, 4, 2, 1}},
		{"mul first", []string{"number", "*", "number", "+", "number"}, []int{4, 4, 2, 4, 1}},
		{"left assoc", []string{"number", "+", "number", "+", "number"}, []int{4, 4, 1, 4, 1}},
		{"parens", []string{"(", "number", ")"}, []int{4, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := drive(t, tbl, tt.input...)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := drive(t, tbl, "number", "+")
	assert.False(t, ok)
}

func TestCompileKeepsUnresolvedConflicts(t *testing.T) {
	tbl, err := calcBuilder(false).Compile()
	require.NoError(t, err)
	require.NotEmpty(t, tbl.Conflicts())
	for _, c := range tbl.Conflicts() {
		require.GreaterOrEqual(t, len(c.Actions), 2)
		assert.Equal(t, grammar.ActionShift, c.Actions[0].Kind, "shift is ordered first")
	}

	// Leftmost action order makes the deterministic driver behave like
	// shift-preferring yacc: right-nested.
	got, ok := drive(t, tbl, "number", "+", "number", "+", "number")
	require.True(t, ok)
	assert.Equal(t, []int{4, 4, 4, 1, 1}, got)
}

func TestCompileNonassoc(t *testing.T) {
	tbl, err := grammar.NewBuilder("cmp").
		Token("number", grammar.Number()).
		Punct("<").
		Nonassoc("<").
		Rule("expr", "expr < expr", "number").
		Compile()
	require.NoError(t, err)

	_, ok := drive(t, tbl, "number", "<", "number")
	assert.True(t, ok)
	_, ok = drive(t, tbl, "number", "<", "number", "<", "number")
	assert.False(t, ok)
}

func TestCompileOptionalKeywordsAndDynamic(t *testing.T) {
	tbl, err := grammar.NewBuilder("kw").
		Token("number", grammar.Number()).
		Keywords("SELECT").
		Punct("(", ")").
		Rule("stmt", "SELECT _list %dyn 2").
		Rule("_list", "( number? )").
		Compile()
	require.NoError(t, err)

	kw, ok := tbl.Lookup("keyword_select")
	require.True(t, ok)
	assert.True(t, tbl.Symbol(kw).Named)

	list, _ := tbl.Lookup("_list")
	assert.True(t, tbl.IsHidden(list))

	var lens []int
	for i := 0; i < tbl.NumProductions(); i++ {
		p := tbl.Production(i)
		if p.LHS == list {
			lens = append(lens, len(p.RHS))
		}
		if tbl.Name(p.LHS) == "stmt" {
			assert.Equal(t, 2, p.Dynamic)
		}
	}
	assert.Equal(t, []int{3, 2}, lens, "optional expands with the full alternative first")

	_, ok = drive(t, tbl, "keyword_select", "(", ")")
	assert.True(t, ok)
	_, ok = drive(t, tbl, "keyword_select", "(", "number", ")")
	assert.True(t, ok)
}

func TestCompileDefinitionErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *grammar.Builder
	}{
		{"unknown symbol", func() *grammar.Builder {
			return grammar.NewBuilder("bad").Token("number", grammar.Number()).Rule("expr", "number missing")
		}},
		{"unknown precedence", func() *grammar.Builder {
			return grammar.NewBuilder("bad").Token("number", grammar.Number()).Rule("expr", "number %prec NOPE")
		}},
		{"no rules", func() *grammar.Builder {
			return grammar.NewBuilder("bad").Token("number", grammar.Number())
		}},
		{"unproductive", func() *grammar.Builder {
			return grammar.NewBuilder("bad").Token("number", grammar.Number()).Rule("expr", "expr number")
		}},
		{"bad pattern", func() *grammar.Builder {
			return grammar.NewBuilder("bad").Token("number", grammar.Pattern{Kind: "regex"}).Rule("expr", "number")
		}},
		{"extra in rule", func() *grammar.Builder {
			return grammar.NewBuilder("bad").
				Anonymous("whitespace", grammar.Whitespace()).Extras("whitespace").
				Token("number", grammar.Number()).
				Rule("expr", "number whitespace")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			require.Error(t, err)
			assert.True(t, errors.Is(err, grammar.ErrInvalidDefinition), "got %v", err)
		})
	}
}

func TestCompileDeterministic(t *testing.T) {
	a, err := calcBuilder(false).Compile()
	require.NoError(t, err)
	b, err := calcBuilder(false).Compile()
	require.NoError(t, err)
	require.Equal(t, a.NumStates(), b.NumStates())
	for s := 0; s < a.NumStates(); s++ {
		for k := 0; k < a.NumTerminals(); k++ {
			assert.Equal(t, a.Actions(grammar.StateID(s), token.Kind(k)), b.Actions(grammar.StateID(s), token.Kind(k)))
		}
	}
}

func TestActionStrings(t *testing.T) {
	for _, a := range []grammar.Action{grammar.Shift(12), grammar.Reduce(3), grammar.Accept()} {
		got, err := grammar.ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := grammar.ParseAction("x1")
	assert.Error(t, err)
}
