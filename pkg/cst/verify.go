package cst

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// ErrInvariant is matched by every Verify failure.
var ErrInvariant = errors.New("tree invariant violated")

// InvariantError reports a structural defect in a tree.
type InvariantError struct {
	Type   string
	Range  token.Span
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("tree invariant violated at %s %s: %s", e.Type, e.Range, e.Reason)
}

// Is matches ErrInvariant.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// Verify checks that the leaves of t tile its source without gaps or
// overlaps, that every interior node is exactly bounded by its children,
// and that error flags agree with the nodes below them. When src is not nil
// it also checks the tree length and leaf points against it.
func Verify(t *Tree, src []byte) error {
	root := t.Root()
	if root.StartByte() != 0 || root.StartPoint() != (token.Point{}) {
		return invariant(root, "root does not start at the origin")
	}
	if src != nil && t.Len() != len(src) {
		return invariant(root, fmt.Sprintf("tree covers %d bytes, source has %d", t.Len(), len(src)))
	}
	next := token.Position{}
	if err := verifyNode(root, src, &next); err != nil {
		return err
	}
	if next.Offset != t.Len() {
		return invariant(root, fmt.Sprintf("leaves end at %d, tree length is %d", next.Offset, t.Len()))
	}
	return nil
}

func verifyNode(n Node, src []byte, next *token.Position) error {
	if n.start != *next {
		return invariant(n, fmt.Sprintf("starts at %s, expected %s", n.start, *next))
	}
	if n.ChildCount() == 0 {
		if n.IsMissing() && n.t.size != 0 {
			return invariant(n, "missing node is not zero-width")
		}
		if src != nil {
			if n.EndByte() > len(src) {
				return invariant(n, "leaf runs past the source")
			}
			if ext := token.ExtentOf(src[n.StartByte():n.EndByte()]); ext != n.t.extent {
				return invariant(n, fmt.Sprintf("leaf extent %s does not match its text %s", n.t.extent, ext))
			}
		}
		if n.IsError() != n.HasError() && !n.IsMissing() {
			return invariant(n, "error leaf flags disagree")
		}
		*next = n.EndPosition()
		return nil
	}

	hasError := n.IsError()
	for _, c := range n.Children() {
		if err := verifyNode(c, src, next); err != nil {
			return err
		}
		hasError = hasError || c.HasError()
	}
	if *next != n.EndPosition() {
		return invariant(n, fmt.Sprintf("children end at %s, node ends at %s", *next, n.EndPosition()))
	}
	if hasError != n.HasError() {
		return invariant(n, "has-error flag disagrees with children")
	}
	return nil
}

func invariant(n Node, reason string) error {
	return &InvariantError{Type: n.Type(), Range: n.Range(), Reason: reason}
}
