package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// Builder declares a rule set in Go and compiles it into a Table.
//
// Alternatives are space separated symbol names:
//
//	b.Rule("binary_expression",
//		"_expression + _expression",
//		"_expression AND _expression",
//	)
//
// Upper-case words refer to keywords declared with Keywords, so AND resolves
// to keyword_and. A trailing ? marks an optional symbol and expands into both
// alternatives. "%prec NAME" sets the production's precedence level and
// "%dyn N" its dynamic precedence. Rules whose name starts with an
// underscore are hidden: their children are spliced into the parent node.
type Builder struct {
	language   string
	symbols    []SymbolInfo
	byName     map[string]token.Kind
	tokens     []TokenDef
	rules      []builderRule
	ruleIndex  map[string]int
	levels     []Level
	sync       []string
	insertable []string
	extras     []string
	start      string
	err        error
}

type builderRule struct {
	name string
	alts []string
}

// NewBuilder returns a Builder for the named language.
func NewBuilder(language string) *Builder {
	b := &Builder{
		language:  language,
		byName:    make(map[string]token.Kind),
		ruleIndex: make(map[string]int),
	}
	b.addTerminal(EndName, false)
	b.addTerminal(ErrorName, true)
	return b
}

func (b *Builder) fail(rule, format string, args ...any) {
	if b.err == nil {
		b.err = &DefinitionError{Language: b.language, Rule: rule, Reason: fmt.Sprintf(format, args...)}
	}
}

func (b *Builder) addTerminal(name string, named bool) token.Kind {
	if k, ok := b.byName[name]; ok {
		return k
	}
	k := token.Kind(len(b.symbols))
	b.symbols = append(b.symbols, SymbolInfo{Name: name, Terminal: true, Named: named})
	b.byName[name] = k
	return k
}

// Token declares a named terminal matched by any of the patterns.
func (b *Builder) Token(name string, patterns ...Pattern) *Builder {
	return b.token(name, true, patterns)
}

// Anonymous declares an unnamed terminal matched by any of the patterns.
func (b *Builder) Anonymous(name string, patterns ...Pattern) *Builder {
	return b.token(name, false, patterns)
}

func (b *Builder) token(name string, named bool, patterns []Pattern) *Builder {
	if len(patterns) == 0 {
		b.fail(name, "token needs at least one pattern")
		return b
	}
	k := b.addTerminal(name, named)
	for _, p := range patterns {
		if err := p.validate(); err != nil {
			b.fail(name, "%v", err)
			return b
		}
		b.tokens = append(b.tokens, TokenDef{Symbol: k, Pattern: p})
	}
	return b
}

// Punct declares anonymous literal tokens named by their text.
func (b *Builder) Punct(texts ...string) *Builder {
	for _, text := range texts {
		b.token(text, false, []Pattern{Literal(text)})
	}
	return b
}

// Keywords declares case-insensitive keyword tokens named keyword_<word>.
func (b *Builder) Keywords(words ...string) *Builder {
	for _, w := range words {
		b.token(KeywordName(w), true, []Pattern{Keyword(strings.ToLower(w))})
	}
	return b
}

const keywordPrefix = "keyword_"

// KeywordName returns the symbol name used for keyword w.
func KeywordName(w string) string {
	return keywordPrefix + strings.ToLower(w)
}

// Extras marks declared terminals as extras.
func (b *Builder) Extras(names ...string) *Builder {
	b.extras = append(b.extras, names...)
	return b
}

// Rule appends alternatives to the named nonterminal. An empty alternative
// derives the empty string.
func (b *Builder) Rule(name string, alts ...string) *Builder {
	if _, isTerm := b.byName[name]; isTerm {
		b.fail(name, "rule name is already a token")
		return b
	}
	i, ok := b.ruleIndex[name]
	if !ok {
		i = len(b.rules)
		b.ruleIndex[name] = i
		b.rules = append(b.rules, builderRule{name: name})
	}
	if len(alts) == 0 {
		alts = []string{""}
	}
	b.rules[i].alts = append(b.rules[i].alts, alts...)
	return b
}

// Left declares a left-associative precedence level.
func (b *Builder) Left(names ...string) *Builder { return b.level(AssocLeft, names) }

// Right declares a right-associative precedence level.
func (b *Builder) Right(names ...string) *Builder { return b.level(AssocRight, names) }

// Nonassoc declares a non-associative precedence level.
func (b *Builder) Nonassoc(names ...string) *Builder { return b.level(AssocNonassoc, names) }

// Precedence declares a level without associativity, usable with %prec.
func (b *Builder) Precedence(names ...string) *Builder { return b.level(AssocNone, names) }

func (b *Builder) level(a Assoc, names []string) *Builder {
	b.levels = append(b.levels, Level{Assoc: a, Names: names})
	return b
}

// Sync declares the synchronizing nonterminals used by error recovery.
func (b *Builder) Sync(names ...string) *Builder {
	b.sync = append(b.sync, names...)
	return b
}

// Insertable declares the terminals error recovery may synthesize.
func (b *Builder) Insertable(names ...string) *Builder {
	b.insertable = append(b.insertable, names...)
	return b
}

// Start sets the root nonterminal. It defaults to the first rule.
func (b *Builder) Start(name string) *Builder {
	b.start = name
	return b
}

func isKeywordRef(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}

// resolve looks a reference up, treating upper-case words as keywords.
func resolve(byName map[string]token.Kind, ref string) (token.Kind, bool) {
	if isKeywordRef(ref) {
		if k, ok := byName[KeywordName(ref)]; ok {
			return k, true
		}
	}
	k, ok := byName[ref]
	return k, ok
}

// Compile derives the LALR(1) table for the declared rule set.
func (b *Builder) Compile() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.rules) == 0 {
		return nil, &DefinitionError{Language: b.language, Reason: "no rules declared"}
	}

	symbols := append([]SymbolInfo(nil), b.symbols...)
	byName := make(map[string]token.Kind, len(b.byName)+len(b.rules)+1)
	for k, v := range b.byName {
		byName[k] = v
	}
	for _, name := range b.extras {
		k, ok := byName[name]
		if !ok || k <= token.KindError {
			return nil, &DefinitionError{Language: b.language, Rule: name, Reason: "extra is not a declared token"}
		}
		symbols[k].Extra = true
	}

	accept := token.Kind(len(symbols))
	symbols = append(symbols, SymbolInfo{Name: acceptName, Hidden: true})
	byName[acceptName] = accept
	for _, r := range b.rules {
		hidden := strings.HasPrefix(r.name, "_")
		byName[r.name] = token.Kind(len(symbols))
		symbols = append(symbols, SymbolInfo{Name: r.name, Named: !hidden, Hidden: hidden})
	}

	startName := b.start
	if startName == "" {
		startName = b.rules[0].name
	}
	start, ok := byName[startName]
	if !ok || symbols[start].Terminal {
		return nil, &DefinitionError{Language: b.language, Rule: startName, Reason: "start symbol is not a rule"}
	}

	levelOf := make(map[string]int)
	termPrec := make([]int, len(symbols))
	for i, lv := range b.levels {
		for _, name := range lv.Names {
			levelOf[name] = i + 1
			if k, ok := resolve(byName, name); ok && symbols[k].Terminal {
				termPrec[k] = i + 1
			}
		}
	}

	prods := []Production{{LHS: accept, RHS: []token.Kind{start}}}
	for _, r := range b.rules {
		lhs := byName[r.name]
		seen := make(map[string]bool)
		for _, alt := range r.alts {
			expanded, err := b.expand(r.name, alt, byName, symbols, levelOf, termPrec)
			if err != nil {
				return nil, err
			}
			for _, p := range expanded {
				key := fmt.Sprint(p.RHS)
				if seen[key] {
					continue
				}
				seen[key] = true
				p.LHS = lhs
				prods = append(prods, p)
			}
		}
	}

	t := &Table{
		version:     FormatVersion,
		language:    b.language,
		start:       start,
		symbols:     symbols,
		tokens:      append([]TokenDef(nil), b.tokens...),
		productions: prods,
		levels:      append([]Level(nil), b.levels...),
	}
	for _, name := range b.sync {
		k, ok := byName[name]
		if !ok || symbols[k].Terminal {
			return nil, &DefinitionError{Language: b.language, Rule: name, Reason: "sync symbol is not a rule"}
		}
		t.sync = append(t.sync, k)
	}
	for _, name := range b.insertable {
		k, ok := resolve(byName, name)
		if !ok || !symbols[k].Terminal {
			return nil, &DefinitionError{Language: b.language, Rule: name, Reason: "insertable symbol is not a token"}
		}
		t.insertable = append(t.insertable, k)
	}

	if err := checkProductive(t); err != nil {
		return nil, &DefinitionError{Language: b.language, Reason: err.Error()}
	}
	buildAutomaton(t, termPrec)
	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

// expand turns one alternative into productions, multiplying out optional
// symbols. The alternative with every optional symbol present comes first.
func (b *Builder) expand(rule, alt string, byName map[string]token.Kind, symbols []SymbolInfo,
	levelOf map[string]int, termPrec []int) ([]Production, error) {
	fields := strings.Fields(alt)
	var (
		rhs      []token.Kind
		optional []int
		prec     = -1
		dyn      int
	)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		switch f {
		case "%prec":
			if i+1 >= len(fields) {
				return nil, &DefinitionError{Language: b.language, Rule: rule, Reason: "%prec needs a level name"}
			}
			i++
			lv, ok := levelOf[fields[i]]
			if !ok {
				return nil, &DefinitionError{Language: b.language, Rule: rule, Reason: "unknown precedence " + fields[i]}
			}
			prec = lv
			continue
		case "%dyn":
			if i+1 >= len(fields) {
				return nil, &DefinitionError{Language: b.language, Rule: rule, Reason: "%dyn needs a value"}
			}
			i++
			n, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, &DefinitionError{Language: b.language, Rule: rule, Reason: "invalid %dyn value " + fields[i]}
			}
			dyn = n
			continue
		}
		opt := false
		if len(f) > 1 && strings.HasSuffix(f, "?") {
			opt = true
			f = strings.TrimSuffix(f, "?")
		}
		k, ok := resolve(byName, f)
		if !ok {
			return nil, &DefinitionError{Language: b.language, Rule: rule, Reason: "unknown symbol " + f}
		}
		if k == token.KindEnd || symbols[k].Extra {
			return nil, &DefinitionError{Language: b.language, Rule: rule, Reason: "symbol " + f + " may not appear in a rule"}
		}
		if opt {
			optional = append(optional, len(rhs))
		}
		rhs = append(rhs, k)
	}

	var out []Production
	for mask := 0; mask < 1<<len(optional); mask++ {
		omit := make(map[int]bool, len(optional))
		for bit, pos := range optional {
			if mask&(1<<bit) != 0 {
				omit[pos] = true
			}
		}
		p := Production{Dynamic: dyn}
		for i, k := range rhs {
			if !omit[i] {
				p.RHS = append(p.RHS, k)
			}
		}
		if prec >= 0 {
			p.Prec = prec
		} else {
			for i := len(p.RHS) - 1; i >= 0; i-- {
				if termPrec[p.RHS[i]] > 0 {
					p.Prec = termPrec[p.RHS[i]]
					break
				}
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// checkProductive reports nonterminals that have no rules or derive no
// terminal string.
func checkProductive(t *Table) error {
	productive := make([]bool, len(t.symbols))
	for i, s := range t.symbols {
		productive[i] = s.Terminal
	}
	for changed := true; changed; {
		changed = false
		for _, p := range t.productions {
			if productive[p.LHS] {
				continue
			}
			all := true
			for _, r := range p.RHS {
				if !productive[r] {
					all = false
					break
				}
			}
			if all {
				productive[p.LHS] = true
				changed = true
			}
		}
	}
	for i, s := range t.symbols {
		if !productive[i] {
			return fmt.Errorf("rule %s derives no input", s.Name)
		}
	}
	return nil
}
