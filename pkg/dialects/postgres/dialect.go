package postgres

import (
	"github.com/leapstack-labs/sqlcst/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect. Unquoted names fold to lowercase.
var Postgres = dialect.NewDialect(Name).
	Grammar(Table).
	Identifiers(`"`, `"`, `""`, dialect.NormLowercase).
	Reserved(keywords...).
	Aggregates(aggregates...).
	Generators(generators...).
	Windows(windows...).
	Build()
