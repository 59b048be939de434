// Package format pretty-prints SQL from its concrete syntax tree.
//
// Keywords are upper-cased, tokens are separated by single spaces and
// clause keywords start new lines. Comments are kept. A tree with syntax
// errors is returned as written, since its shape says nothing reliable
// about the intended layout.
package format

import (
	"github.com/leapstack-labs/sqlcst/pkg/cst"
)

// Format returns the formatted source of tree.
func Format(tree *cst.Tree, src []byte) string {
	if tree.HasError() {
		return string(src)
	}
	p := newPrinter(tree, src)
	p.node(tree.Root())
	return p.String()
}
