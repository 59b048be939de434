package query

import (
	"github.com/leapstack-labs/sqlcst/pkg/cst"
)

// clauses are the node types Context reports, innermost first.
var clauses = map[string]bool{
	"select_clause":   true,
	"from_clause":     true,
	"join":            true,
	"where_clause":    true,
	"group_by_clause": true,
	"having_clause":   true,
	"order_by_clause": true,
	"limit_clause":    true,
	"offset_clause":   true,
	"returning":       true,
	"with_clause":     true,
	"insert":          true,
	"update":          true,
	"delete":          true,
	"create_table":    true,
	"drop_table":      true,
}

// Context describes the syntax around a cursor.
type Context struct {
	// Clause is the type of the innermost enclosing clause, or empty.
	Clause string
	// Node is the token just before the cursor.
	Node cst.Node
	// Statement is the enclosing statement, if any.
	Statement cst.Node
	// Qualifier is the name before a trailing dot, as in "t." in t.col.
	Qualifier string
	// Relations are the tables the enclosing statement names.
	Relations []Relation
}

// Context returns what surrounds offset. Whitespace before the cursor is
// skipped, so "FROM |" reports the FROM clause.
func (ix *Index) Context(offset int) Context {
	offset = min(max(offset, 0), len(ix.src))
	p := offset
	for p > 0 && isSpace(ix.src[p-1]) {
		p--
	}

	var ctx Context
	if p > 0 && ix.src[p-1] == '.' {
		ctx.Qualifier = ix.wordBefore(p - 1)
	}
	if p == 0 {
		return ctx
	}

	n := ix.tree.Root()
	for {
		next, ok := childEndingIn(n, p)
		if !ok {
			break
		}
		n = next
	}
	ctx.Node = n

	for cur := n; ; {
		if ctx.Clause == "" && clauses[cur.Type()] {
			ctx.Clause = cur.Type()
		}
		if cur.Type() == "statement" {
			ctx.Statement = cur
			ctx.Relations = ix.relationsIn(cur)
			break
		}
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
	}
	return ctx
}

// childEndingIn returns the child of n whose range covers the byte before p.
func childEndingIn(n cst.Node, p int) (cst.Node, bool) {
	for _, c := range n.Children() {
		if c.StartByte() < p && p <= c.EndByte() {
			return c, true
		}
	}
	return cst.Node{}, false
}

func (ix *Index) wordBefore(end int) string {
	start := end
	for start > 0 && isWordByte(ix.src[start-1]) {
		start--
	}
	if start == end {
		return ""
	}
	word := string(ix.src[start:end])
	if ix.dialect != nil {
		return ix.dialect.NormalizeName(word)
	}
	return word
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}
