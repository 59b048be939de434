package format

import (
	"bytes"
	"strings"

	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/grammar"
)

const indentSize = 2

// Printer handles SQL formatting with proper indentation and style.
type Printer struct {
	table       *grammar.Table
	src         []byte
	output      *bytes.Buffer
	depth       int
	atLineStart bool

	// prev is the last token written; glue suppresses the space before the
	// next one.
	prev string
	glue bool
}

func newPrinter(tree *cst.Tree, src []byte) *Printer {
	return &Printer{
		table:       tree.Table(),
		src:         src,
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the formatted output.
func (p *Printer) String() string {
	out := strings.TrimRight(p.output.String(), "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}

func (p *Printer) write(s string) {
	if p.atLineStart && len(s) > 0 && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	p.output.WriteByte('\n')
	p.atLineStart = true
}

// newline ends the current line unless it is empty.
func (p *Printer) newline() {
	if !p.atLineStart {
		p.writeln()
	}
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	p.output.WriteByte(' ')
}

// token writes a leaf with the spacing rules between tokens.
func (p *Printer) token(n cst.Node) {
	text := n.Text(p.src)
	if strings.TrimSpace(text) == "" {
		return
	}
	if n.IsExtra() {
		p.comment(text)
		return
	}
	if p.table.IsKeyword(n.Kind()) {
		text = strings.ToUpper(text)
	}
	if !p.atLineStart && !p.glue && spaced(p.prev, text) {
		p.space()
	}
	p.write(text)
	p.prev = text
	p.glue = false
}

func (p *Printer) comment(text string) {
	text = strings.TrimRight(text, "\r\n")
	if !p.atLineStart {
		p.space()
	}
	p.write(text)
	if strings.HasPrefix(text, "--") {
		p.writeln()
	}
	p.prev = text
	p.glue = false
}

var (
	tightBefore = map[string]bool{",": true, ")": true, "]": true, ".": true, "::": true, ";": true, "[": true}
	tightAfter  = map[string]bool{"(": true, "[": true, ".": true, "::": true}
)

func spaced(prev, cur string) bool {
	return prev != "" && !tightBefore[cur] && !tightAfter[prev]
}

// formatList prints the children of n, breaking the line after each sep.
func (p *Printer) formatList(children []cst.Node, sep string) {
	for _, c := range children {
		if c.Type() == sep && c.ChildCount() == 0 {
			p.token(c)
			p.newline()
			continue
		}
		p.node(c)
	}
}
