package dialect

import (
	"strings"

	"github.com/leapstack-labs/sqlcst/pkg/grammar"
)

// Builder assembles a Dialect.
type Builder struct {
	d *Dialect
}

// NewDialect starts a dialect with lowercase folding and double-quoted
// identifiers.
func NewDialect(name string) *Builder {
	return &Builder{d: &Dialect{
		Name: name,
		Identifiers: Identifiers{
			Quote:         `"`,
			QuoteEnd:      `"`,
			Escape:        `""`,
			Normalization: NormLowercase,
		},
		aggregates: make(map[string]struct{}),
		generators: make(map[string]struct{}),
		windows:    make(map[string]struct{}),
		reserved:   make(map[string]struct{}),
	}}
}

// Grammar sets the function returning the compiled rule set.
func (b *Builder) Grammar(table func() *grammar.Table) *Builder {
	b.d.table = table
	return b
}

// Identifiers sets quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm Normalization) *Builder {
	b.d.Identifiers = Identifiers{Quote: quote, QuoteEnd: quoteEnd, Escape: escape, Normalization: norm}
	return b
}

// Aggregates registers aggregate functions.
func (b *Builder) Aggregates(names ...string) *Builder {
	addAll(b.d.aggregates, names)
	return b
}

// Generators registers functions that take no input columns.
func (b *Builder) Generators(names ...string) *Builder {
	addAll(b.d.generators, names)
	return b
}

// Windows registers window-only functions.
func (b *Builder) Windows(names ...string) *Builder {
	addAll(b.d.windows, names)
	return b
}

// Reserved registers words that must be quoted to be used as identifiers.
func (b *Builder) Reserved(words ...string) *Builder {
	addAll(b.d.reserved, words)
	return b
}

// Build returns the dialect.
func (b *Builder) Build() *Dialect {
	return b.d
}

func addAll(set map[string]struct{}, names []string) {
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
}
