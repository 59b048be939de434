// Package dialect provides the registry of SQL languages known to the
// process and their identifier and function conventions.
//
// Each language bundles a compiled rule set with the naming rules editor
// features need. Concrete languages are registered from pkg/dialects/*/
// packages.
package dialect

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlcst/pkg/grammar"
)

// FunctionType classifies how a function consumes its rows.
type FunctionType int

const (
	// FunctionScalar is the default for unknown functions.
	FunctionScalar FunctionType = iota
	// FunctionAggregate folds many rows into one value (SUM, COUNT, etc.).
	FunctionAggregate
	// FunctionGenerator produces values with no input columns (NOW, RANDOM, etc.).
	FunctionGenerator
	// FunctionWindow requires an OVER clause (ROW_NUMBER, LAG, etc.).
	FunctionWindow
)

// String returns the string representation of FunctionType.
func (t FunctionType) String() string {
	switch t {
	case FunctionScalar:
		return "scalar"
	case FunctionAggregate:
		return "aggregate"
	case FunctionGenerator:
		return "generator"
	case FunctionWindow:
		return "window"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name.
func (t FunctionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Normalization defines how unquoted identifiers are folded.
type Normalization int

const (
	// NormLowercase folds unquoted identifiers to lowercase.
	NormLowercase Normalization = iota
	// NormUppercase folds unquoted identifiers to uppercase.
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly.
	NormCaseSensitive
)

// Identifiers defines how identifiers are quoted and normalized.
type Identifiers struct {
	Quote         string // Opening quote, e.g. "
	QuoteEnd      string // Closing quote, usually the same as Quote
	Escape        string // Escaped closing quote inside a quoted name, e.g. ""
	Normalization Normalization
}

// Dialect is a registered SQL language.
type Dialect struct {
	Name        string
	Identifiers Identifiers

	table func() *grammar.Table

	aggregates map[string]struct{}
	generators map[string]struct{}
	windows    map[string]struct{}
	reserved   map[string]struct{}
}

// Table returns the compiled rule set of the language. Tables are built
// lazily and shared.
func (d *Dialect) Table() *grammar.Table {
	if d.table == nil {
		return nil
	}
	return d.table()
}

// NormalizeName returns the canonical form of an identifier as written in
// source. Quoted names lose their quotes and keep their case; unquoted
// names are folded.
func (d *Dialect) NormalizeName(name string) string {
	id := d.Identifiers
	if id.Quote != "" && len(name) >= len(id.Quote)+len(id.QuoteEnd) &&
		strings.HasPrefix(name, id.Quote) && strings.HasSuffix(name, id.QuoteEnd) {
		inner := name[len(id.Quote) : len(name)-len(id.QuoteEnd)]
		if id.Escape != "" {
			inner = strings.ReplaceAll(inner, id.Escape, id.QuoteEnd)
		}
		return inner
	}
	return d.fold(name)
}

func (d *Dialect) fold(name string) string {
	switch d.Identifiers.Normalization {
	case NormUppercase:
		return strings.ToUpper(name)
	case NormLowercase:
		return strings.ToLower(name)
	default:
		return name
	}
}

// FunctionType returns the classification of a function by name.
func (d *Dialect) FunctionType(name string) FunctionType {
	key := strings.ToLower(d.NormalizeName(name))
	if _, ok := d.aggregates[key]; ok {
		return FunctionAggregate
	}
	if _, ok := d.generators[key]; ok {
		return FunctionGenerator
	}
	if _, ok := d.windows[key]; ok {
		return FunctionWindow
	}
	return FunctionScalar
}

// IsAggregate returns true if the function is an aggregate function.
func (d *Dialect) IsAggregate(name string) bool {
	return d.FunctionType(name) == FunctionAggregate
}

// IsWindow returns true if the function is a window-only function.
func (d *Dialect) IsWindow(name string) bool {
	return d.FunctionType(name) == FunctionWindow
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reserved[strings.ToLower(word)]
	return ok
}

// ReservedWords returns the reserved words in sorted order.
func (d *Dialect) ReservedWords() []string {
	words := make([]string, 0, len(d.reserved))
	for w := range d.reserved {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := name
	if d.Identifiers.Escape != "" {
		escaped = strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	}
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier only if it's a reserved word
// or would not survive folding.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.IsReservedWord(name) || d.fold(name) != name {
		return d.QuoteIdentifier(name)
	}
	return name
}
