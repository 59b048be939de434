package grammar

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/leapstack-labs/sqlcst/pkg/token"
	"gopkg.in/yaml.v3"
)

// artifact is the YAML form of a Table. Symbols are referenced by name so
// that a corrupted artifact fails validation instead of misparsing.
type artifact struct {
	FormatVersion int                  `yaml:"format_version"`
	Language      string               `yaml:"language"`
	Start         string               `yaml:"start"`
	Symbols       []artifactSymbol     `yaml:"symbols"`
	Tokens        []artifactToken      `yaml:"tokens"`
	Productions   []artifactProduction `yaml:"productions"`
	Precedence    []artifactLevel      `yaml:"precedence,omitempty"`
	Sync          []string             `yaml:"sync,omitempty,flow"`
	Insertable    []string             `yaml:"insertable,omitempty,flow"`
	States        []artifactState      `yaml:"states"`
}

type artifactSymbol struct {
	Name     string `yaml:"name"`
	Terminal bool   `yaml:"terminal,omitempty"`
	Named    bool   `yaml:"named,omitempty"`
	Hidden   bool   `yaml:"hidden,omitempty"`
	Extra    bool   `yaml:"extra,omitempty"`
}

type artifactToken struct {
	Symbol string      `yaml:"symbol"`
	Kind   PatternKind `yaml:"kind"`
	Text   string      `yaml:"text,omitempty"`
	Close  string      `yaml:"close,omitempty"`
	Modes  []int       `yaml:"modes,omitempty,flow"`
}

type artifactProduction struct {
	LHS     string   `yaml:"lhs"`
	RHS     []string `yaml:"rhs,flow"`
	Prec    int      `yaml:"prec,omitempty"`
	Dynamic int      `yaml:"dynamic,omitempty"`
}

type artifactLevel struct {
	Assoc string   `yaml:"assoc"`
	Names []string `yaml:"names,flow"`
}

type artifactState struct {
	Actions map[string][]string `yaml:"actions,omitempty"`
	Gotos   map[string]int      `yaml:"gotos,omitempty"`
}

// Encode writes t as a YAML artifact. Output is deterministic for a given
// table.
func Encode(w io.Writer, t *Table) error {
	a := artifact{
		FormatVersion: FormatVersion,
		Language:      t.language,
		Start:         t.Name(t.start),
	}
	for _, s := range t.symbols {
		a.Symbols = append(a.Symbols, artifactSymbol(s))
	}
	for _, d := range t.tokens {
		a.Tokens = append(a.Tokens, artifactToken{
			Symbol: t.Name(d.Symbol),
			Kind:   d.Pattern.Kind,
			Text:   d.Pattern.Text,
			Close:  d.Pattern.Close,
			Modes:  d.Modes,
		})
	}
	for _, p := range t.productions {
		ap := artifactProduction{LHS: t.Name(p.LHS), RHS: []string{}, Prec: p.Prec, Dynamic: p.Dynamic}
		for _, r := range p.RHS {
			ap.RHS = append(ap.RHS, t.Name(r))
		}
		a.Productions = append(a.Productions, ap)
	}
	for _, lv := range t.levels {
		a.Precedence = append(a.Precedence, artifactLevel{Assoc: lv.Assoc.String(), Names: lv.Names})
	}
	for _, k := range t.sync {
		a.Sync = append(a.Sync, t.Name(k))
	}
	for _, k := range t.insertable {
		a.Insertable = append(a.Insertable, t.Name(k))
	}
	nNonterm := len(t.symbols) - t.numTerminals
	for s := 0; s < t.numStates; s++ {
		var st artifactState
		for k := 0; k < t.numTerminals; k++ {
			cell := t.actions[s*t.numTerminals+k]
			if len(cell) == 0 {
				continue
			}
			if st.Actions == nil {
				st.Actions = make(map[string][]string)
			}
			strs := make([]string, len(cell))
			for i, act := range cell {
				strs[i] = act.String()
			}
			st.Actions[t.Name(token.Kind(k))] = strs
		}
		for n := 0; n < nNonterm; n++ {
			g := t.gotos[s*nNonterm+n]
			if g == NoState {
				continue
			}
			if st.Gotos == nil {
				st.Gotos = make(map[string]int)
			}
			st.Gotos[t.Name(token.Kind(t.numTerminals+n))] = int(g)
		}
		a.States = append(a.States, st)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&a); err != nil {
		return fmt.Errorf("encode grammar %s: %w", t.language, err)
	}
	return enc.Close()
}

// Decode reads a YAML artifact. It returns an error wrapping
// ErrUnsupportedGrammarVersion when the format version is not recognized and
// ErrMalformedGrammarTable when the table does not validate.
func Decode(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory artifact.
func DecodeBytes(data []byte) (*Table, error) {
	var header struct {
		FormatVersion int    `yaml:"format_version"`
		Language      string `yaml:"language"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, &MalformedError{Reason: "invalid artifact", Err: err}
	}
	if header.FormatVersion != FormatVersion {
		return nil, &VersionError{Language: header.Language, Got: header.FormatVersion, Supported: FormatVersion}
	}

	var a artifact
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		return nil, &MalformedError{Reason: "invalid artifact", Err: err}
	}
	return a.table()
}

// LoadFile reads a YAML artifact from path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user's configuration
	if err != nil {
		return nil, fmt.Errorf("open grammar: %w", err)
	}
	defer func() { _ = f.Close() }()
	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load grammar %s: %w", path, err)
	}
	return t, nil
}

func (a *artifact) table() (*Table, error) {
	t := &Table{version: a.FormatVersion, language: a.Language}
	names := make(map[string]token.Kind, len(a.Symbols))
	for i, s := range a.Symbols {
		t.symbols = append(t.symbols, SymbolInfo(s))
		names[s.Name] = token.Kind(i)
	}
	lookup := func(what, name string) (token.Kind, error) {
		k, ok := names[name]
		if !ok {
			return 0, malformed("%s refers to unknown symbol %q", what, name)
		}
		return k, nil
	}

	var err error
	if t.start, err = lookup("start", a.Start); err != nil {
		return nil, err
	}
	for _, at := range a.Tokens {
		k, err := lookup("token", at.Symbol)
		if err != nil {
			return nil, err
		}
		t.tokens = append(t.tokens, TokenDef{
			Symbol:  k,
			Pattern: Pattern{Kind: at.Kind, Text: at.Text, Close: at.Close},
			Modes:   at.Modes,
		})
	}
	for i, ap := range a.Productions {
		lhs, err := lookup(fmt.Sprintf("production %d", i), ap.LHS)
		if err != nil {
			return nil, err
		}
		p := Production{LHS: lhs, Prec: ap.Prec, Dynamic: ap.Dynamic}
		for _, name := range ap.RHS {
			k, err := lookup(fmt.Sprintf("production %d", i), name)
			if err != nil {
				return nil, err
			}
			p.RHS = append(p.RHS, k)
		}
		t.productions = append(t.productions, p)
	}
	for _, al := range a.Precedence {
		assoc, err := ParseAssoc(al.Assoc)
		if err != nil {
			return nil, malformed("precedence: %v", err)
		}
		t.levels = append(t.levels, Level{Assoc: assoc, Names: al.Names})
	}
	for _, name := range a.Sync {
		k, err := lookup("sync", name)
		if err != nil {
			return nil, err
		}
		t.sync = append(t.sync, k)
	}
	for _, name := range a.Insertable {
		k, err := lookup("insertable", name)
		if err != nil {
			return nil, err
		}
		t.insertable = append(t.insertable, k)
	}

	nTerm := 0
	for _, s := range t.symbols {
		if s.Terminal {
			nTerm++
		}
	}
	nNonterm := len(t.symbols) - nTerm
	t.numStates = len(a.States)
	t.actions = make([][]Action, t.numStates*nTerm)
	t.gotos = make([]StateID, t.numStates*nNonterm)
	for i := range t.gotos {
		t.gotos[i] = NoState
	}
	for s, st := range a.States {
		for _, name := range sortedKeys(st.Actions) {
			k, err := lookup(fmt.Sprintf("state %d", s), name)
			if err != nil {
				return nil, err
			}
			if int(k) >= nTerm {
				return nil, malformed("state %d has actions on nonterminal %q", s, name)
			}
			cell := make([]Action, 0, len(st.Actions[name]))
			for _, str := range st.Actions[name] {
				act, err := ParseAction(str)
				if err != nil {
					return nil, malformed("state %d: %v", s, err)
				}
				cell = append(cell, act)
			}
			t.actions[s*nTerm+int(k)] = cell
		}
		for name, g := range st.Gotos {
			k, err := lookup(fmt.Sprintf("state %d", s), name)
			if err != nil {
				return nil, err
			}
			if int(k) < nTerm {
				return nil, malformed("state %d has a goto on terminal %q", s, name)
			}
			if g < 0 || g >= t.numStates {
				return nil, malformed("state %d has a goto to unknown state %d", s, g)
			}
			t.gotos[s*nNonterm+int(k)-nTerm] = StateID(g)
		}
	}

	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
