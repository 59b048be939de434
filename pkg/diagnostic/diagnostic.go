// Package diagnostic turns the error annotations of a concrete syntax tree
// into editor diagnostics.
//
// Parsing never fails on bad input: unexpected input is wrapped in ERROR
// nodes and absent tokens appear as zero-width missing leaves. Collect
// enumerates both in source order.
package diagnostic

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// Diagnostic codes.
const (
	CodeUnexpected = "syntax/unexpected"
	CodeMissing    = "syntax/missing"
)

// maxExpected caps the alternatives listed in a message.
const maxExpected = 6

// maxSnippet caps the quoted source text in a message.
const maxSnippet = 24

// Diagnostic is one syntax problem.
type Diagnostic struct {
	Code     string     `json:"code"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Span     token.Span `json:"span"`
	// Expected lists the tokens that would have been accepted, when known.
	Expected []string `json:"expected,omitempty"`
}

// String formats the diagnostic as row:column: severity: message.
func (d Diagnostic) String() string {
	p := d.Span.Start.Point
	return fmt.Sprintf("%d:%d: %s: %s [%s]", p.Row+1, p.Column+1, d.Severity, d.Message, d.Code)
}

// SyntaxError is one syntax problem as an error value, for callers that
// want to fail on bad input.
type SyntaxError struct {
	Diagnostic
}

func (e *SyntaxError) Error() string { return e.Diagnostic.String() }

// Err returns the first diagnostic of tree as a *SyntaxError, or nil when
// the tree is clean.
func Err(tree *cst.Tree, src []byte) error {
	if !tree.HasError() {
		return nil
	}
	diags := Collect(tree, src)
	if len(diags) == 0 {
		return nil
	}
	return &SyntaxError{Diagnostic: diags[0]}
}

// Collect returns the diagnostics of tree in source order. Nested ERROR
// nodes are reported once, at the outermost.
func Collect(tree *cst.Tree, src []byte) []Diagnostic {
	if !tree.HasError() {
		return nil
	}
	t := tree.Table()
	var out []Diagnostic
	cst.Walk(tree.Root(), func(n cst.Node) bool {
		switch {
		case !n.HasError():
			return false
		case n.IsMissing():
			out = append(out, missing(t, n))
			return false
		case n.IsError():
			out = append(out, unexpected(t, n, src))
			return false
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start.Offset < out[j].Span.Start.Offset
	})
	return out
}

func missing(t *grammar.Table, n cst.Node) Diagnostic {
	return Diagnostic{
		Code:     CodeMissing,
		Severity: SeverityError,
		Message:  "missing " + t.Display(n.Kind()),
		Span:     n.Range(),
	}
}

func unexpected(t *grammar.Table, n cst.Node, src []byte) Diagnostic {
	d := Diagnostic{
		Code:     CodeUnexpected,
		Severity: SeverityError,
		Span:     n.Range(),
		Expected: expected(t, n.Subtree().ParseState()),
	}

	first, ok := firstToken(n)
	switch {
	case n.ChildCount() == 0:
		d.Message = "unexpected character " + snippet(n.Text(src))
	case !ok:
		d.Message = "unexpected input"
	default:
		d.Message = "unexpected " + t.Display(first.Kind())
		if first.IsNamed() && !t.IsKeyword(first.Kind()) {
			d.Message += " " + snippet(first.Text(src))
		}
	}
	if len(d.Expected) > 0 {
		d.Message += ", expected " + strings.Join(d.Expected, ", ")
	}
	return d
}

// firstToken returns the first leaf under n that is not an extra.
func firstToken(n cst.Node) (cst.Node, bool) {
	var found cst.Node
	cst.Walk(n, func(c cst.Node) bool {
		if !found.IsNull() {
			return false
		}
		if c.ChildCount() == 0 && c.Subtree() != n.Subtree() {
			if !c.IsExtra() {
				found = c
			}
			return false
		}
		return true
	})
	return found, !found.IsNull()
}

// expected lists the non-extra terminals with an action in state s, named
// ones last.
func expected(t *grammar.Table, s grammar.StateID) []string {
	if s == 0 {
		return nil
	}
	var anon, named []string
	for _, k := range t.Expected(s) {
		if k == token.KindEnd || k == token.KindError || t.IsExtra(k) {
			continue
		}
		if t.Symbol(k).Named && !t.IsKeyword(k) {
			named = append(named, t.Display(k))
		} else {
			anon = append(anon, t.Display(k))
		}
	}
	out := append(anon, named...)
	if len(out) > maxExpected {
		out = append(out[:maxExpected:maxExpected], "...")
	}
	return out
}

func snippet(s string) string {
	if utf8.RuneCountInString(s) > maxSnippet {
		r := []rune(s)
		s = string(r[:maxSnippet]) + "..."
	}
	return fmt.Sprintf("%q", s)
}
