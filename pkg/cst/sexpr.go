package cst

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const indentSize = 2

// SExprOptions control Tree.SExpr output.
type SExprOptions struct {
	// Anonymous includes anonymous tokens such as punctuation and
	// whitespace.
	Anonymous bool
	// Text appends the source text of leaves.
	Text bool
	// Points prints row:column ranges instead of byte ranges.
	Points bool
}

// printer writes indented s-expressions.
type printer struct {
	opts        SExprOptions
	src         []byte
	output      *bytes.Buffer
	depth       int
	atLineStart bool
}

func (p *printer) write(s string) {
	if p.atLineStart && len(s) > 0 {
		p.output.WriteString(strings.Repeat(" ", p.depth*indentSize))
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *printer) writeln() {
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *printer) visible(n Node) bool {
	return p.opts.Anonymous || n.IsNamed() || n.IsMissing()
}

func (p *printer) node(n Node) {
	name := n.Type()
	if !n.IsNamed() {
		name = strconv.Quote(name)
	}
	if n.IsMissing() {
		name = "MISSING " + name
	}
	if p.opts.Points {
		p.write(fmt.Sprintf("(%s [%s - %s]", name, n.StartPoint(), n.EndPoint()))
	} else {
		p.write(fmt.Sprintf("(%s [%d, %d]", name, n.StartByte(), n.EndByte()))
	}
	if p.opts.Text && n.ChildCount() == 0 && !n.IsMissing() && p.src != nil {
		p.write(" " + strconv.Quote(n.Text(p.src)))
	}
	p.depth++
	for _, c := range n.Children() {
		if !p.visible(c) {
			continue
		}
		p.writeln()
		p.node(c)
	}
	p.depth--
	p.write(")")
}

// SExpr renders the tree as an indented s-expression with ranges, one node
// per line. src is only consulted when opts.Text is set.
func (t *Tree) SExpr(src []byte, opts SExprOptions) string {
	p := &printer{opts: opts, src: src, output: &bytes.Buffer{}, atLineStart: true}
	p.node(t.Root())
	p.writeln()
	return p.output.String()
}
