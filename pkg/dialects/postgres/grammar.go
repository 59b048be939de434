// Package postgres provides the PostgreSQL rule set.
// The table is compiled from Go declarations on first use and shared by
// every parser in the process. It is pure data: no database driver
// dependencies.
package postgres

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/sqlcst/pkg/grammar"
)

// Name is the language tag of the table.
const Name = "postgres"

var (
	tableOnce sync.Once
	table     *grammar.Table
)

// Table returns the compiled PostgreSQL table.
func Table() *grammar.Table {
	tableOnce.Do(func() {
		t, err := Builder().Compile()
		if err != nil {
			panic(fmt.Sprintf("postgres: compile grammar: %v", err))
		}
		table = t
	})
	return table
}

// keywords are the words the rule set treats as keywords. They cannot be
// used as bare identifiers.
var keywords = []string{
	"SELECT", "DISTINCT", "ALL", "AS", "FROM", "WHERE", "GROUP", "BY", "HAVING",
	"ORDER", "ASC", "DESC", "NULLS", "FIRST", "LAST", "LIMIT", "OFFSET",
	"UNION", "INTERSECT", "EXCEPT", "JOIN", "INNER", "LEFT", "RIGHT", "FULL",
	"OUTER", "CROSS", "ON", "USING", "AND", "OR", "NOT", "IS", "NULL", "TRUE",
	"FALSE", "IN", "BETWEEN", "LIKE", "ILIKE", "CASE", "WHEN", "THEN", "ELSE",
	"END", "CAST", "EXISTS", "OVER", "PARTITION", "WITH", "INSERT", "INTO",
	"VALUES", "UPDATE", "SET", "DELETE", "RETURNING", "CREATE", "TABLE", "IF",
	"DROP", "CASCADE", "RESTRICT", "PRIMARY", "KEY", "UNIQUE", "DEFAULT",
	"REFERENCES", "CONSTRAINT", "CHECK", "FOREIGN",
}

// Builder returns the rule set, ready to compile. Node names follow the
// tree-sitter SQL grammars used by PostgreSQL editor tooling.
func Builder() *grammar.Builder {
	b := grammar.NewBuilder(Name).
		Keywords(keywords...).
		Token("identifier", grammar.Word(), grammar.Quoted(`"`)).
		Token("number", grammar.Number()).
		Token("string", grammar.Quoted("'"), grammar.DollarString()).
		Token("parameter", grammar.Parameter("$")).
		Token("comment", grammar.LineComment("--"), grammar.BlockComment("/*", "*/")).
		Anonymous("whitespace", grammar.Whitespace()).
		Punct(";", ",", ".", "(", ")", "[", "]", "*", "+", "-", "/", "%", "^",
			"=", "<>", "!=", "<", ">", "<=", ">=", "::", "||").
		Extras("whitespace", "comment")

	// Lowest binding first.
	b.Left("OR").
		Left("AND").
		Right("NOT").
		Nonassoc("IS").
		Nonassoc("=", "<>", "!=", "<", ">", "<=", ">=").
		Nonassoc("BETWEEN", "IN", "LIKE", "ILIKE").
		Left("||").
		Left("+", "-").
		Left("*", "/", "%").
		Left("^").
		Right("unary_minus").
		Left("::").
		Left("[")

	statements(b)
	selects(b)
	expressions(b)
	writes(b)
	ddl(b)

	return b.
		Sync("statement").
		Insertable(")", "]", "identifier", "number", "END", "THEN")
}

func statements(b *grammar.Builder) {
	b.Rule("program",
		"_terminated statement",
		"_terminated",
		"statement",
		"",
	)
	b.Rule("_terminated",
		"_terminated statement ;",
		"_terminated ;",
		"statement ;",
		";",
	)
	b.Rule("statement",
		"with_clause? _dml_read",
		"with_clause? insert",
		"with_clause? update",
		"with_clause? delete",
		"create_table",
		"drop_table",
	)
	b.Rule("with_clause", "WITH _cte_list")
	b.Rule("_cte_list", "_cte_list , with_query", "with_query")
	b.Rule("with_query", "identifier AS ( _dml_read )")
}

func selects(b *grammar.Builder) {
	b.Rule("_dml_read", "_select_statement", "set_operation")
	b.Rule("set_operation",
		"_dml_read UNION ALL? _select_statement",
		"_dml_read INTERSECT _select_statement",
		"_dml_read EXCEPT _select_statement",
	)
	b.Rule("_select_statement", "select_clause _clauses?")
	b.Rule("_clauses", "_clauses _clause", "_clause")
	b.Rule("_clause",
		"from_clause",
		"where_clause",
		"group_by_clause",
		"having_clause",
		"order_by_clause",
		"limit_clause",
		"offset_clause",
	)

	b.Rule("select_clause",
		"SELECT select_expression",
		"SELECT DISTINCT select_expression",
		"SELECT ALL select_expression",
	)
	b.Rule("select_expression", "_terms")
	b.Rule("_terms", "_terms , term", "term")
	b.Rule("term", "_expression alias?", "all_fields")
	b.Rule("all_fields", "*", "identifier . *")
	b.Rule("alias", "AS identifier", "identifier")

	b.Rule("from_clause", "FROM _relations _joins?")
	b.Rule("_relations", "_relations , relation", "relation")
	b.Rule("relation", "table_reference alias?", "subquery alias?")
	b.Rule("_joins", "_joins join", "join")
	b.Rule("join",
		"_join_kind? JOIN relation ON _expression",
		"_join_kind? JOIN relation USING ( _identifiers )",
		"CROSS JOIN relation",
	)
	b.Rule("_join_kind", "INNER", "LEFT OUTER?", "RIGHT OUTER?", "FULL OUTER?")

	b.Rule("where_clause", "WHERE _expression")
	b.Rule("group_by_clause", "GROUP BY _expressions")
	b.Rule("having_clause", "HAVING _expression")
	b.Rule("order_by_clause", "ORDER BY _order_targets")
	b.Rule("_order_targets", "_order_targets , order_target", "order_target")
	b.Rule("order_target", "_expression _direction? _nulls?")
	b.Rule("_direction", "ASC", "DESC")
	b.Rule("_nulls", "NULLS FIRST", "NULLS LAST")
	b.Rule("limit_clause", "LIMIT _expression", "LIMIT ALL")
	b.Rule("offset_clause", "OFFSET _expression")
}

func expressions(b *grammar.Builder) {
	b.Rule("_expression",
		"literal",
		"column_reference",
		"parameter",
		"binary_expression",
		"unary_expression",
		"is_expression",
		"between_expression",
		"in_expression",
		"invocation",
		"cast",
		"case",
		"subquery",
		"exists",
		"subscript",
		"parenthesized_expression",
	)
	b.Rule("_expressions", "_expressions , _expression", "_expression")
	b.Rule("_identifiers", "_identifiers , identifier", "identifier")

	b.Rule("literal", "number", "string", "TRUE", "FALSE", "NULL")
	b.Rule("column_reference",
		"identifier",
		"identifier . identifier",
		"identifier . identifier . identifier",
	)
	b.Rule("table_reference", "identifier", "identifier . identifier")
	b.Rule("function_reference", "identifier", "identifier . identifier")

	b.Rule("binary_expression",
		"_expression + _expression",
		"_expression - _expression",
		"_expression * _expression",
		"_expression / _expression",
		"_expression % _expression",
		"_expression ^ _expression",
		"_expression || _expression",
		"_expression = _expression",
		"_expression <> _expression",
		"_expression != _expression",
		"_expression < _expression",
		"_expression > _expression",
		"_expression <= _expression",
		"_expression >= _expression",
		"_expression AND _expression",
		"_expression OR _expression",
		"_expression LIKE _expression",
		"_expression NOT LIKE _expression",
		"_expression ILIKE _expression",
		"_expression NOT ILIKE _expression",
	)
	b.Rule("unary_expression",
		"NOT _expression",
		"- _expression %prec unary_minus",
		"+ _expression %prec unary_minus",
	)
	b.Rule("is_expression",
		"_expression IS NOT? NULL %prec IS",
		"_expression IS NOT? TRUE %prec IS",
		"_expression IS NOT? FALSE %prec IS",
		"_expression IS NOT? DISTINCT FROM _expression %prec IS",
	)
	b.Rule("between_expression",
		"_expression NOT? BETWEEN _expression AND _expression %prec BETWEEN",
	)
	b.Rule("in_expression",
		"_expression NOT? IN list %prec IN",
		"_expression NOT? IN subquery %prec IN",
	)
	b.Rule("list", "( _expressions )")
	b.Rule("subquery", "( _dml_read )")
	b.Rule("exists", "EXISTS subquery")
	b.Rule("parenthesized_expression", "( _expression )")
	b.Rule("subscript", "_expression [ _expression ]")

	b.Rule("invocation",
		"function_reference ( ) over?",
		"function_reference ( _expressions ) over?",
		"function_reference ( DISTINCT _expressions ) over?",
		"function_reference ( * ) over?",
	)
	b.Rule("over", "OVER ( partition_by? order_by_clause? )", "OVER identifier")
	b.Rule("partition_by", "PARTITION BY _expressions")

	b.Rule("cast", "CAST ( _expression AS type )", "_expression :: type")
	b.Rule("type", "identifier", "identifier ( _type_arguments )", "type [ ]")
	b.Rule("_type_arguments", "_type_arguments , number", "number")

	b.Rule("case",
		"CASE _expression? _when_clauses END",
		"CASE _expression? _when_clauses ELSE _expression END",
	)
	b.Rule("_when_clauses", "_when_clauses when_clause", "when_clause")
	b.Rule("when_clause", "WHEN _expression THEN _expression")
}

func writes(b *grammar.Builder) {
	b.Rule("insert",
		"INSERT INTO table_reference insert_columns? _insert_source returning?",
	)
	b.Rule("insert_columns", "( _identifiers )")
	b.Rule("_insert_source", "insert_values", "_dml_read", "DEFAULT VALUES")
	b.Rule("insert_values", "VALUES _rows")
	b.Rule("_rows", "_rows , list", "list")

	b.Rule("update",
		"UPDATE table_reference alias? SET _assignments from_clause? where_clause? returning?",
	)
	b.Rule("_assignments", "_assignments , assignment", "assignment")
	b.Rule("assignment", "identifier = _expression")

	b.Rule("delete", "DELETE FROM table_reference alias? where_clause? returning?")
	b.Rule("returning", "RETURNING select_expression")
}

func ddl(b *grammar.Builder) {
	b.Rule("create_table",
		"CREATE TABLE _if_not_exists? table_reference ( _table_elements )",
	)
	b.Rule("_if_not_exists", "IF NOT EXISTS")
	b.Rule("_table_elements", "_table_elements , _table_element", "_table_element")
	b.Rule("_table_element", "column_definition", "table_constraint")
	b.Rule("column_definition", "identifier type _column_constraints?")
	b.Rule("_column_constraints", "_column_constraints column_constraint", "column_constraint")

	// DEFAULT takes a full expression, so "DEFAULT x NOT NULL" cannot be
	// decided with one token of lookahead. The cell stays ambiguous and the
	// parser forks on NOT.
	b.Rule("column_constraint",
		"NOT NULL",
		"NULL",
		"PRIMARY KEY",
		"UNIQUE",
		"DEFAULT _expression",
		"REFERENCES table_reference",
		"REFERENCES table_reference ( _identifiers )",
		"CHECK ( _expression )",
	)
	b.Rule("table_constraint",
		"CONSTRAINT identifier _table_constraint_body",
		"_table_constraint_body",
	)
	b.Rule("_table_constraint_body",
		"PRIMARY KEY ( _identifiers )",
		"UNIQUE ( _identifiers )",
		"CHECK ( _expression )",
		"FOREIGN KEY ( _identifiers ) REFERENCES table_reference ( _identifiers )",
	)

	b.Rule("drop_table", "DROP TABLE _if_exists? _tables _drop_behavior?")
	b.Rule("_if_exists", "IF EXISTS")
	b.Rule("_tables", "_tables , table_reference", "table_reference")
	b.Rule("_drop_behavior", "CASCADE", "RESTRICT")
}
