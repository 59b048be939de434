package postgres_test

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlcst/internal/testutil"
	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/dialect"
	"github.com/leapstack-labs/sqlcst/pkg/dialects/postgres"
	"github.com/leapstack-labs/sqlcst/pkg/edit"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T) *parser.Parser {
	t.Helper()
	return parser.New(postgres.Table(), parser.Config{Logger: testutil.NewTestLogger(t)})
}

func parse(t *testing.T, p *parser.Parser, src string) *cst.Tree {
	t.Helper()
	tree, err := p.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.NoError(t, cst.Verify(tree, []byte(src)))
	return tree
}

const selectOne = "(statement (select_clause (keyword_select) (select_expression (term (literal (number))))))"

func TestSelectLiteral(t *testing.T) {
	tree := parse(t, newParser(t), "SELECT 1")

	assert.Equal(t, "(program "+selectOne+")", tree.Root().String())
	assert.False(t, tree.HasError())
}

func TestMissingExpression(t *testing.T) {
	tree := parse(t, newParser(t), "SELECT")

	assert.Equal(t,
		"(program (statement (select_clause (keyword_select) "+
			"(select_expression (term (column_reference (MISSING identifier)))))))",
		tree.Root().String())

	ref := tree.NamedNodeAt(6)
	for ref.Type() != "column_reference" {
		var ok bool
		ref, ok = ref.Parent()
		require.True(t, ok)
	}
	missing := ref.Child(0)
	assert.True(t, missing.IsMissing())
	assert.Equal(t, 6, missing.StartByte())
	assert.Equal(t, 6, missing.EndByte())
}

func TestMisspelledKeywordKeepsFirstStatement(t *testing.T) {
	p := newParser(t)
	src := []byte("SELECT 1; SELEC 2;")
	old := parse(t, p, string(src))

	assert.Equal(t, "(program "+selectOne+" (ERROR (identifier) (number)))", old.Root().String())
	first := old.Root().Child(0)
	assert.False(t, first.HasError())
	errNode, ok := old.Root().ChildByType("ERROR")
	require.True(t, ok)
	assert.Equal(t, "SELEC 2", errNode.Text(src))

	updated, e, err := edit.Replace(src, 15, 15, "T")
	require.NoError(t, err)
	require.Equal(t, "SELECT 1; SELECT 2;", string(updated))
	tree, err := p.Reparse(context.Background(), old, []edit.Edit{e}, updated)
	require.NoError(t, err)
	require.NoError(t, cst.Verify(tree, updated))

	assert.Equal(t, "(program "+selectOne+" "+selectOne+")", tree.Root().String())
	assert.False(t, tree.HasError())
	assert.Equal(t, first.ID(), tree.Root().Child(0).ID(), "first statement is shared")
	assert.Positive(t, tree.Stats().NodesReused)
	assert.True(t, cst.TreesEqual(tree, parse(t, p, string(updated))))
}

func TestEmptyInput(t *testing.T) {
	tree := parse(t, newParser(t), "")
	root := tree.Root()

	assert.Equal(t, "program", root.Type())
	assert.Zero(t, root.ChildCount())
	assert.Zero(t, root.StartByte())
	assert.Zero(t, root.EndByte())
}

func TestValidStatements(t *testing.T) {
	p := newParser(t)

	tests := []struct {
		name string
		src  string
	}{
		{"select clauses", "SELECT DISTINCT a, b AS c FROM s.t x WHERE a > 1 AND b IS NOT NULL " +
			"ORDER BY a DESC NULLS LAST LIMIT 10 OFFSET 5"},
		{"aggregates and windows", "SELECT count(*), sum(DISTINCT x) OVER (PARTITION BY y ORDER BY z) " +
			"FROM t GROUP BY y HAVING count(*) > 1"},
		{"joins", "SELECT t.* FROM a t LEFT OUTER JOIN b ON t.id = b.id CROSS JOIN c " +
			"INNER JOIN d USING (id)"},
		{"cte and set operation", "WITH q AS (SELECT 1) SELECT * FROM q UNION ALL SELECT 2 EXCEPT SELECT 3"},
		{"case and casts", "SELECT CASE WHEN a THEN 'x' ELSE 'y' END, CAST(b AS text), c::int[], d[1] FROM t"},
		{"predicates", "SELECT * FROM t WHERE a NOT IN (1, 2) AND b BETWEEN 1 AND 2 " +
			"AND c NOT LIKE 'x%' AND EXISTS (SELECT 1) OR d IS DISTINCT FROM e"},
		{"subquery relation", "SELECT x FROM (SELECT 1 AS x) AS s WHERE x IN (SELECT 1)"},
		{"operators", "SELECT -a + b * c ^ 2, 'a' || 'b', $$x$$, NOT true FROM t"},
		{"insert", "INSERT INTO s.t (a, b) VALUES (1, $1), (2, NULL) RETURNING *"},
		{"insert select", "INSERT INTO t SELECT * FROM u"},
		{"insert defaults", "INSERT INTO t DEFAULT VALUES"},
		{"update", "UPDATE t SET a = a + 1, b = 'x' FROM u WHERE t.id = u.id RETURNING a"},
		{"delete", "DELETE FROM t WHERE a IS NULL"},
		{"create table", "CREATE TABLE IF NOT EXISTS s.t (id int PRIMARY KEY, name varchar(20) NOT NULL UNIQUE, " +
			"ref int REFERENCES o (id), CONSTRAINT pk PRIMARY KEY (id, name), CHECK (id > 0))"},
		{"drop table", "DROP TABLE IF EXISTS a, b CASCADE"},
		{"empty statements", "SELECT 1; ; SELECT 2;"},
		{"comments", "/* c */ SELECT 1 -- tail"},
		{"quoted identifiers", `SELECT "Weird ""Name""" FROM "T"`},
		{"case insensitive keywords", "select a from t where b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, p, tt.src)
			assert.False(t, tree.HasError(), tree.Root().String())
			assert.Equal(t, len(tt.src), tree.Len())
		})
	}
}

func TestDefaultBeforeNotNullIsResolvedAtParseTime(t *testing.T) {
	tbl := postgres.Table()
	not, ok := tbl.Lookup(grammar.KeywordName("NOT"))
	require.True(t, ok)

	found := false
	for _, c := range tbl.Conflicts() {
		if c.Symbol == not {
			found = true
		}
	}
	assert.True(t, found, "NOT after DEFAULT expr is an ambiguous cell")

	tree := parse(t, newParser(t), "CREATE TABLE t (id int DEFAULT 0 NOT NULL)")
	assert.False(t, tree.HasError())
	assert.Contains(t, tree.Root().String(),
		"(column_constraint (keyword_default) (literal (number))) (column_constraint (keyword_not) (keyword_null))")
	assert.GreaterOrEqual(t, tree.Stats().MaxVersions, 2)
}

func TestTableIsShared(t *testing.T) {
	assert.Same(t, postgres.Table(), postgres.Table())

	d, ok := dialect.Get(postgres.Name)
	require.True(t, ok)
	assert.Same(t, postgres.Table(), d.Table())
	assert.Equal(t, "users", d.NormalizeName("Users"))
	assert.Equal(t, "Users", d.NormalizeName(`"Users"`))
	assert.True(t, d.IsAggregate("count"))
	assert.True(t, d.IsReservedWord("select"))
}

func TestEncodingIsDeterministic(t *testing.T) {
	fresh, err := postgres.Builder().Compile()
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, grammar.Encode(&a, postgres.Table()))
	require.NoError(t, grammar.Encode(&b, fresh))
	assert.Equal(t, a.String(), b.String())

	decoded, err := grammar.Decode(bytes.NewReader(a.Bytes()))
	require.NoError(t, err)
	tree, err := parser.New(decoded, parser.Config{}).Parse(context.Background(), []byte("SELECT 1"))
	require.NoError(t, err)
	assert.Equal(t, "(program "+selectOne+")", tree.Root().String())
}

var fragments = []string{
	"SELECT", "FROM", "WHERE", "a", "t.b", "1", "'s'", ",", ";", "(", ")", "*", "+", "=",
	"AND", "NOT", "NULL", "IS", "IN", "CASE", "WHEN", "THEN", "END", "::", "int", "JOIN",
	"ON", "INSERT", "INTO", "VALUES", "CREATE", "TABLE", "--c\n", "@", "\n",
	`"`, "'", "$$", "/*", "*/", `"q"`, "UNION", "ALL",
}

func randomSQL(rng *rand.Rand, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fragments[rng.Intn(len(fragments))]
	}
	return strings.Join(parts, " ")
}

func TestParseAnyInput(t *testing.T) {
	p := newParser(t)
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 200; i++ {
		src := randomSQL(rng, rng.Intn(16))
		tree := parse(t, p, src)
		assert.Equal(t, len(src), tree.Len())

		again := parse(t, p, src)
		require.True(t, cst.TreesEqual(tree, again), "recovery is deterministic for %q", src)
	}
}

func TestReparseMatchesFreshParse(t *testing.T) {
	p := newParser(t)
	rng := rand.New(rand.NewSource(9))

	for i := 0; i < 150; i++ {
		src := []byte(randomSQL(rng, 4+rng.Intn(12)))
		tree := parse(t, p, string(src))
		for step := 0; step < 3; step++ {
			var edits []edit.Edit
			cur := src
			for n := rng.Intn(3) + 1; n > 0; n-- {
				start := rng.Intn(len(cur) + 1)
				end := start + rng.Intn(min(len(cur)-start, 6)+1)
				text := ""
				if rng.Intn(4) > 0 {
					text = fragments[rng.Intn(len(fragments))]
				}
				next, e, err := edit.Replace(cur, start, end, text)
				require.NoError(t, err)
				edits = append(edits, e)
				cur = next
			}

			next, err := p.Reparse(context.Background(), tree, edits, cur)
			require.NoError(t, err)
			require.NoError(t, cst.Verify(next, cur), "source %q", cur)
			fresh := parse(t, p, string(cur))
			require.True(t, cst.TreesEqual(next, fresh),
				"reparse of %q from %q\n got: %s\nwant: %s", cur, src, next.Root(), fresh.Root())
			src, tree = cur, next
		}
	}
}

func TestReparseAfterUnterminatedQuote(t *testing.T) {
	p := newParser(t)
	src := []byte(`SELECT*"UNION AL'E b`)
	old := parse(t, p, string(src))

	// The open quote scans to the end of input, so the select clause before
	// it depends on every later byte.
	updated, e, err := edit.Replace(src, 15, 16, `"`)
	require.NoError(t, err)
	require.Equal(t, `SELECT*"UNION A"'E b`, string(updated))

	tree, err := p.Reparse(context.Background(), old, []edit.Edit{e}, updated)
	require.NoError(t, err)
	fresh := parse(t, p, string(updated))
	assert.True(t, cst.TreesEqual(tree, fresh), "got %s, want %s", tree.Root(), fresh.Root())
}

func TestReparseSharesStatementsAroundEdit(t *testing.T) {
	p := newParser(t)
	src := []byte("SELECT a FROM t; SELECT b FROM u WHERE x = 1; SELECT c FROM v; DELETE FROM w;")
	old := parse(t, p, string(src))

	at := bytes.Index(src, []byte("= 1")) + 2
	updated, e, err := edit.Replace(src, at, at+1, "22")
	require.NoError(t, err)
	tree, err := p.Reparse(context.Background(), old, []edit.Edit{e}, updated)
	require.NoError(t, err)
	require.True(t, cst.TreesEqual(tree, parse(t, p, string(updated))))

	statements := func(tr *cst.Tree) []cst.Node {
		var out []cst.Node
		for _, c := range tr.Root().Children() {
			if c.Type() == "statement" {
				out = append(out, c)
			}
		}
		return out
	}
	before, after := statements(old), statements(tree)
	require.Len(t, before, 4)
	require.Len(t, after, 4)

	assert.Equal(t, before[0].ID(), after[0].ID(), "statement before the edit is shared")
	assert.NotEqual(t, before[1].ID(), after[1].ID(), "edited statement is rebuilt")
	assert.Equal(t, before[2].ID(), after[2].ID(), "statement after the edit is shared")
	assert.Equal(t, before[3].ID(), after[3].ID(), "last statement is shared")

	stats := tree.Stats()
	assert.GreaterOrEqual(t, stats.BytesReused, before[0].EndByte()+before[2].EndByte()-before[2].StartByte()+
		before[3].EndByte()-before[3].StartByte())
}
