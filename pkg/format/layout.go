package format

import (
	"github.com/leapstack-labs/sqlcst/pkg/cst"
)

// node formats n by type. Types without a layout are written inline.
func (p *Printer) node(n cst.Node) {
	if n.ChildCount() == 0 {
		p.token(n)
		return
	}
	switch n.Type() {
	case "program":
		p.formatProgram(n)
	case "select_clause":
		p.formatSelect(n)
	case "from_clause", "limit_clause", "offset_clause", "join", "returning":
		p.newline()
		p.children(n)
	case "where_clause", "having_clause":
		p.formatBlock(n, false)
	case "group_by_clause", "order_by_clause":
		if parent, ok := n.Parent(); ok && parent.Type() == "over" {
			p.children(n)
			return
		}
		p.formatBlock(n, true)
	case "set_operation":
		p.formatSetOperation(n)
	case "with_clause":
		p.formatWith(n)
	case "with_query", "subquery":
		p.formatParenthesized(n)
	case "insert_values":
		p.formatBlock(n, true)
	case "create_table":
		p.formatCreateTable(n)
	case "invocation", "cast", "type":
		p.formatCall(n)
	case "unary_expression":
		p.formatUnary(n)
	default:
		p.children(n)
	}
}

func (p *Printer) children(n cst.Node) {
	for _, c := range n.Children() {
		p.node(c)
	}
}

func (p *Printer) formatProgram(n cst.Node) {
	statements := 0
	for _, c := range n.Children() {
		switch {
		case c.Type() == "statement":
			if statements > 0 {
				p.newline()
				p.writeln()
			}
			statements++
			p.prev = ""
			p.node(c)
		case c.Type() == ";" && c.ChildCount() == 0:
			p.glue = true
			p.token(c)
			p.newline()
		default:
			p.node(c)
		}
	}
}

// formatSelect writes the select keywords on their own line and one term
// per line below them.
func (p *Printer) formatSelect(n cst.Node) {
	p.newline()
	for _, c := range n.Children() {
		if c.Type() != "select_expression" {
			p.node(c)
			continue
		}
		p.newline()
		p.indent()
		p.formatList(c.Children(), ",")
		p.dedent()
	}
}

// formatBlock writes the leading keywords of a clause on their own line
// and its body indented below. Lists break after each comma.
func (p *Printer) formatBlock(n cst.Node, list bool) {
	p.newline()
	children := n.Children()
	i := 0
	for ; i < len(children) && p.isHead(children[i]); i++ {
		p.node(children[i])
	}
	p.newline()
	p.indent()
	if list {
		p.formatList(children[i:], ",")
	} else {
		for _, c := range children[i:] {
			p.node(c)
		}
	}
	p.dedent()
}

// isHead reports whether c is a keyword or an extra leading a clause.
func (p *Printer) isHead(c cst.Node) bool {
	if c.ChildCount() != 0 {
		return false
	}
	return c.IsExtra() || p.table.IsKeyword(c.Kind())
}

func (p *Printer) formatSetOperation(n cst.Node) {
	for _, c := range n.Children() {
		switch c.Type() {
		case "keyword_union", "keyword_intersect", "keyword_except":
			p.newline()
		}
		p.node(c)
	}
}

func (p *Printer) formatWith(n cst.Node) {
	p.newline()
	for _, c := range n.Children() {
		p.node(c)
		if c.Type() == "," && c.ChildCount() == 0 {
			p.newline()
		}
	}
}

// formatParenthesized indents a parenthesized query.
func (p *Printer) formatParenthesized(n cst.Node) {
	for _, c := range n.Children() {
		switch {
		case c.Type() == "(" && c.ChildCount() == 0:
			p.token(c)
			p.indent()
		case c.Type() == ")" && c.ChildCount() == 0:
			p.dedent()
			p.newline()
			p.token(c)
		default:
			p.node(c)
		}
	}
}

// formatCreateTable writes one table element per line.
func (p *Printer) formatCreateTable(n cst.Node) {
	open := false
	for _, c := range n.Children() {
		leaf := c.ChildCount() == 0
		switch {
		case leaf && c.Type() == "(" && !open:
			open = true
			p.token(c)
			p.indent()
			p.newline()
		case leaf && c.Type() == ")" && open:
			p.dedent()
			p.newline()
			p.token(c)
		case leaf && c.Type() == "," && open:
			p.token(c)
			p.newline()
		default:
			p.node(c)
		}
	}
}

// formatCall glues the opening parenthesis to the name before it, as in
// count(*), CAST(x AS int) and varchar(20).
func (p *Printer) formatCall(n cst.Node) {
	for _, c := range n.Children() {
		if c.Type() == "(" && c.ChildCount() == 0 {
			p.glue = true
		}
		p.node(c)
	}
}

func (p *Printer) formatUnary(n cst.Node) {
	for i, c := range n.Children() {
		p.node(c)
		if i == 0 && (c.Type() == "-" || c.Type() == "+") {
			p.glue = true
		}
	}
}
