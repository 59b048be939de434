package query_test

import (
	"context"
	"testing"

	"github.com/leapstack-labs/sqlcst/pkg/dialect"
	"github.com/leapstack-labs/sqlcst/pkg/dialects/postgres"
	"github.com/leapstack-labs/sqlcst/pkg/parser"
	"github.com/leapstack-labs/sqlcst/pkg/query"
	"github.com/leapstack-labs/sqlcst/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `WITH q AS (SELECT 1) SELECT u.id, u.name AS n, count(*), $1, o.* ` +
	`FROM public.users u JOIN orders o ON o.uid = u.id WHERE u.id = $2; ` +
	`INSERT INTO "Audit" (id) VALUES ($3)`

func index(t *testing.T, src string) *query.Index {
	t.Helper()
	tree, err := parser.New(postgres.Table(), parser.Config{}).Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return query.New(tree, []byte(src), postgres.Postgres)
}

func withoutSpans(rs []query.Relation) []query.Relation {
	out := make([]query.Relation, len(rs))
	for i, r := range rs {
		r.Span = token.Span{}
		out[i] = r
	}
	return out
}

func TestRelations(t *testing.T) {
	ix := index(t, document)

	assert.Equal(t, []query.Relation{
		{Schema: "public", Name: "users", Alias: "u", Role: query.RoleSource},
		{Name: "orders", Alias: "o", Role: query.RoleSource},
		{Name: "Audit", Role: query.RoleTarget},
	}, withoutSpans(ix.Relations()))

	assert.Equal(t, map[string]string{
		"u":     "public.users",
		"o":     "orders",
		"Audit": "Audit",
	}, ix.TableAliases())
}

func TestRelationsInWrites(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []query.Relation
	}{
		{
			"update from",
			"UPDATE t x SET a = 1 FROM s.u WHERE x.id = u.id",
			[]query.Relation{
				{Name: "t", Alias: "x", Role: query.RoleTarget},
				{Schema: "s", Name: "u", Role: query.RoleSource},
			},
		},
		{
			"delete",
			"DELETE FROM Logs",
			[]query.Relation{{Name: "logs", Role: query.RoleTarget}},
		},
		{
			"create with reference",
			"CREATE TABLE a (id int REFERENCES b (id))",
			[]query.Relation{
				{Name: "a", Role: query.RoleTarget},
				{Name: "b", Role: query.RoleSource},
			},
		},
		{
			"drop several",
			"DROP TABLE a, s.b",
			[]query.Relation{
				{Name: "a", Role: query.RoleTarget},
				{Schema: "s", Name: "b", Role: query.RoleTarget},
			},
		},
		{
			"subquery alias",
			"SELECT * FROM (SELECT 1) AS s",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withoutSpans(index(t, tt.src).Relations())
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, map[string]string{"s": ""}, index(t, "SELECT * FROM (SELECT 1) AS s").TableAliases())
}

func TestSelectColumns(t *testing.T) {
	ix := index(t, document)
	stmts := ix.Statements()
	require.Len(t, stmts, 2)

	cols := ix.SelectColumns(stmts[0])
	require.Len(t, cols, 5)

	type col struct {
		expr, alias string
		star        bool
	}
	var got []col
	for _, c := range cols {
		got = append(got, col{c.Expression, c.Alias, c.Star})
	}
	assert.Equal(t, []col{
		{"u.id", "id", false},
		{"u.name", "n", false},
		{"count(*)", "", false},
		{"$1", "", false},
		{"o.*", "", true},
	}, got)

	assert.Empty(t, ix.SelectColumns(stmts[1]))
}

func TestParametersAndFunctions(t *testing.T) {
	ix := index(t, document)

	var params []string
	for _, p := range ix.Parameters() {
		params = append(params, p.Text)
	}
	assert.Equal(t, []string{"$1", "$2", "$3"}, params)

	fns := ix.Functions()
	require.Len(t, fns, 1)
	assert.Equal(t, "count", fns[0].Name)
	assert.Equal(t, dialect.FunctionAggregate, fns[0].Type)
}

func TestStatementAt(t *testing.T) {
	ix := index(t, document)
	stmts := ix.Statements()

	s, ok := ix.StatementAt(0)
	require.True(t, ok)
	assert.Equal(t, stmts[0].ID(), s.ID())

	s, ok = ix.StatementAt(len(document))
	require.True(t, ok)
	assert.Equal(t, stmts[1].ID(), s.ID())

	_, ok = index(t, "").StatementAt(0)
	assert.False(t, ok)
}

func TestContext(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		offset    int
		clause    string
		qualifier string
		relations int
	}{
		{"start of input", "SELECT a FROM t", 0, "", "", 0},
		{"select list", "SELECT a FROM t", 8, "select_clause", "", 1},
		{"after where", "SELECT a FROM t WHERE ", 22, "where_clause", "", 1},
		{"after from", "SELECT a FROM ", 14, "from_clause", "", 1},
		{"qualified", "SELECT t. FROM t", 9, "select_clause", "t", 1},
		{"second statement", "SELECT 1; DELETE FROM x WHERE ", 30, "where_clause", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := index(t, tt.src).Context(tt.offset)
			assert.Equal(t, tt.clause, ctx.Clause)
			assert.Equal(t, tt.qualifier, ctx.Qualifier)
			assert.Len(t, ctx.Relations, tt.relations)
			if tt.clause != "" {
				assert.Equal(t, "statement", ctx.Statement.Type())
			}
		})
	}
}
