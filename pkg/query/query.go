// Package query answers structural questions about a parsed SQL document
// for editor features: the relations a statement reads and writes, the
// aliases in scope, the projected columns and the clause under a cursor.
//
// Queries walk the concrete syntax tree by node type and tolerate error
// nodes: whatever parsed cleanly is reported.
package query

import (
	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/leapstack-labs/sqlcst/pkg/dialect"
	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// Role tells whether a relation is read or written.
type Role string

// Relation roles.
const (
	RoleSource Role = "source"
	RoleTarget Role = "target"
)

// Relation is a table named by a statement.
type Relation struct {
	Schema string     `json:"schema,omitempty"`
	Name   string     `json:"name"`
	Alias  string     `json:"alias,omitempty"`
	Role   Role       `json:"role"`
	Span   token.Span `json:"span"`
}

// QualifiedName returns schema.name, or name when there is no schema.
func (r Relation) QualifiedName() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// Column is one projected term of a select list.
type Column struct {
	Expression string     `json:"expression"`
	Alias      string     `json:"alias,omitempty"`
	Star       bool       `json:"star,omitempty"`
	Span       token.Span `json:"span"`
}

// Parameter is a positional parameter such as $1.
type Parameter struct {
	Text string     `json:"text"`
	Span token.Span `json:"span"`
}

// Function is a function invocation.
type Function struct {
	Name string               `json:"name"`
	Type dialect.FunctionType `json:"type"`
	Span token.Span           `json:"span"`
}

// Index answers queries over one tree and its source.
type Index struct {
	tree    *cst.Tree
	src     []byte
	dialect *dialect.Dialect
}

// New returns an Index over tree. d normalizes names and classifies
// functions; it may be nil.
func New(tree *cst.Tree, src []byte, d *dialect.Dialect) *Index {
	return &Index{tree: tree, src: src, dialect: d}
}

func (ix *Index) name(n cst.Node) string {
	if n.IsNull() || n.IsMissing() {
		return ""
	}
	text := n.Text(ix.src)
	if ix.dialect != nil {
		return ix.dialect.NormalizeName(text)
	}
	return text
}

// identifiers returns the identifier children of n.
func identifiers(n cst.Node) []cst.Node {
	var out []cst.Node
	for _, c := range n.NamedChildren() {
		if c.Type() == "identifier" {
			out = append(out, c)
		}
	}
	return out
}

// Statements returns the statement nodes of the document in order.
func (ix *Index) Statements() []cst.Node {
	var out []cst.Node
	for _, c := range ix.tree.Root().NamedChildren() {
		if c.Type() == "statement" {
			out = append(out, c)
		}
	}
	return out
}

// StatementAt returns the statement that contains offset. An offset right
// after a statement's last byte belongs to it.
func (ix *Index) StatementAt(offset int) (cst.Node, bool) {
	for _, s := range ix.Statements() {
		if s.StartByte() <= offset && offset <= s.EndByte() {
			return s, true
		}
	}
	return cst.Node{}, false
}

// Relations returns every table reference of the document in source order.
func (ix *Index) Relations() []Relation {
	return ix.relationsIn(ix.tree.Root())
}

func (ix *Index) relationsIn(n cst.Node) []Relation {
	var out []Relation
	cst.Walk(n, func(c cst.Node) bool {
		switch c.Type() {
		case "relation":
			if ref, ok := c.ChildByType("table_reference"); ok {
				out = append(out, ix.relation(ref, ix.alias(c), RoleSource))
			}
		case "insert", "update", "delete", "create_table", "drop_table":
			alias := ix.alias(c)
			for _, ref := range c.NamedChildren() {
				if ref.Type() == "table_reference" {
					out = append(out, ix.relation(ref, alias, RoleTarget))
				}
			}
		case "column_constraint", "table_constraint":
			if ref, ok := c.ChildByType("table_reference"); ok {
				out = append(out, ix.relation(ref, "", RoleSource))
			}
		}
		return true
	})
	return out
}

func (ix *Index) relation(ref cst.Node, alias string, role Role) Relation {
	ids := identifiers(ref)
	r := Relation{Alias: alias, Role: role, Span: ref.Range()}
	switch len(ids) {
	case 0:
	case 1:
		r.Name = ix.name(ids[0])
	default:
		r.Schema = ix.name(ids[0])
		r.Name = ix.name(ids[len(ids)-1])
	}
	return r
}

func (ix *Index) alias(n cst.Node) string {
	a, ok := n.ChildByType("alias")
	if !ok {
		return ""
	}
	ids := identifiers(a)
	if len(ids) == 0 {
		return ""
	}
	return ix.name(ids[0])
}

// TableAliases maps every alias, and every unaliased table name, to the
// qualified table it stands for. Subquery aliases map to the empty string.
func (ix *Index) TableAliases() map[string]string {
	out := make(map[string]string)
	for _, r := range ix.Relations() {
		if r.Name == "" {
			continue
		}
		if r.Alias != "" {
			out[r.Alias] = r.QualifiedName()
			continue
		}
		out[r.Name] = r.QualifiedName()
	}
	cst.Walk(ix.tree.Root(), func(c cst.Node) bool {
		if c.Type() == "relation" {
			if _, ok := c.ChildByType("subquery"); ok {
				if a := ix.alias(c); a != "" {
					out[a] = ""
				}
			}
		}
		return true
	})
	return out
}

// SelectColumns returns the projection of the first select list under n,
// outside common table expressions and subqueries.
func (ix *Index) SelectColumns(n cst.Node) []Column {
	var list cst.Node
	cst.Walk(n, func(c cst.Node) bool {
		if !list.IsNull() {
			return false
		}
		if c.Subtree() != n.Subtree() && (c.Type() == "with_clause" || c.Type() == "subquery") {
			return false
		}
		if c.Type() == "select_expression" {
			list = c
			return false
		}
		return true
	})
	if list.IsNull() {
		return nil
	}

	var out []Column
	for _, term := range list.NamedChildren() {
		if term.Type() != "term" || term.ChildCount() == 0 {
			continue
		}
		expr := term.Child(0)
		col := Column{
			Expression: expr.Text(ix.src),
			Star:       expr.Type() == "all_fields",
			Span:       term.Range(),
		}
		// A bare column reference is named after its last part.
		if a, ok := term.ChildByType("alias"); ok {
			if ids := identifiers(a); len(ids) > 0 {
				col.Alias = ix.name(ids[0])
			}
		} else if expr.Type() == "column_reference" {
			if ids := identifiers(expr); len(ids) > 0 {
				col.Alias = ix.name(ids[len(ids)-1])
			}
		}
		out = append(out, col)
	}
	return out
}

// Parameters returns the positional parameters in source order.
func (ix *Index) Parameters() []Parameter {
	var out []Parameter
	cst.Walk(ix.tree.Root(), func(c cst.Node) bool {
		if c.Type() == "parameter" && c.ChildCount() == 0 && !c.IsMissing() {
			out = append(out, Parameter{Text: c.Text(ix.src), Span: c.Range()})
		}
		return true
	})
	return out
}

// Functions returns the function invocations in source order.
func (ix *Index) Functions() []Function {
	var out []Function
	cst.Walk(ix.tree.Root(), func(c cst.Node) bool {
		if c.Type() != "invocation" {
			return true
		}
		ref, ok := c.ChildByType("function_reference")
		if !ok {
			return true
		}
		ids := identifiers(ref)
		if len(ids) == 0 {
			return true
		}
		name := ix.name(ids[len(ids)-1])
		f := Function{Name: name, Span: c.Range()}
		if ix.dialect != nil {
			f.Type = ix.dialect.FunctionType(name)
		}
		out = append(out, f)
		return true
	})
	return out
}
