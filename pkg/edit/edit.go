// Package edit describes text edits applied to a document and folds
// sequences of them into a map between old and new byte offsets.
package edit

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/leapstack-labs/sqlcst/pkg/token"
)

// ErrInvalidEdit is matched by every edit validation failure.
var ErrInvalidEdit = errors.New("invalid edit")

// InvalidEditError describes an edit that does not fit the source it was
// applied to.
type InvalidEditError struct {
	Edit   Edit
	Reason string
}

func (e *InvalidEditError) Error() string {
	return fmt.Sprintf("invalid edit [%d, %d) -> %d: %s", e.Edit.StartByte, e.Edit.OldEndByte, e.Edit.NewEndByte, e.Reason)
}

// Is matches ErrInvalidEdit.
func (e *InvalidEditError) Is(target error) bool {
	return target == ErrInvalidEdit
}

// Edit replaces bytes [StartByte, OldEndByte) of a document with text that
// ends at NewEndByte. Points carry the same locations as rows and columns.
type Edit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  token.Point
	OldEndPoint token.Point
	NewEndPoint token.Point
}

// Delta returns the change in document length.
func (e Edit) Delta() int { return e.NewEndByte - e.OldEndByte }

// IsNoop reports whether e leaves the document unchanged.
func (e Edit) IsNoop() bool {
	return e.StartByte == e.OldEndByte && e.StartByte == e.NewEndByte
}

// Validate checks e against a document of sourceLen bytes.
func Validate(e Edit, sourceLen int) error {
	switch {
	case e.StartByte < 0:
		return &InvalidEditError{Edit: e, Reason: "negative start"}
	case e.StartByte > e.OldEndByte:
		return &InvalidEditError{Edit: e, Reason: "start after old end"}
	case e.StartByte > e.NewEndByte:
		return &InvalidEditError{Edit: e, Reason: "start after new end"}
	case e.OldEndByte > sourceLen:
		return &InvalidEditError{Edit: e, Reason: fmt.Sprintf("old end past source length %d", sourceLen)}
	}
	return nil
}

// Replace returns src with bytes [start, end) replaced by text, along with
// the edit describing the change.
func Replace(src []byte, start, end int, text string) ([]byte, Edit, error) {
	e := Edit{StartByte: start, OldEndByte: end, NewEndByte: start + len(text)}
	if err := Validate(e, len(src)); err != nil {
		return nil, e, err
	}
	e.StartPoint = token.ExtentOf(src[:start])
	e.OldEndPoint = token.ExtentOf(src[:end])
	e.NewEndPoint = e.StartPoint.Add(token.ExtentOf([]byte(text)))
	return splice(src, start, end, []byte(text)), e, nil
}

// Apply returns src with e applied, where text is the inserted content.
func Apply(src []byte, e Edit, text []byte) ([]byte, error) {
	if err := Validate(e, len(src)); err != nil {
		return nil, err
	}
	if len(text) != e.NewEndByte-e.StartByte {
		return nil, &InvalidEditError{Edit: e, Reason: fmt.Sprintf("text has %d bytes, edit inserts %d", len(text), e.NewEndByte-e.StartByte)}
	}
	return splice(src, e.StartByte, e.OldEndByte, text), nil
}

func splice(src []byte, start, end int, text []byte) []byte {
	out := make([]byte, 0, len(src)-(end-start)+len(text))
	out = append(out, src[:start]...)
	out = append(out, text...)
	return append(out, src[end:]...)
}

// Diff returns the single edit that turns old into updated, found by
// trimming their common prefix and suffix. It reports false when the two are
// identical.
func Diff(old, updated []byte) (Edit, bool) {
	if bytes.Equal(old, updated) {
		return Edit{}, false
	}
	limit := min(len(old), len(updated))
	p := 0
	for p < limit && old[p] == updated[p] {
		p++
	}
	s := 0
	for s < limit-p && old[len(old)-1-s] == updated[len(updated)-1-s] {
		s++
	}
	start := token.ExtentOf(old[:p])
	e := Edit{
		StartByte:   p,
		OldEndByte:  len(old) - s,
		NewEndByte:  len(updated) - s,
		StartPoint:  start,
		OldEndPoint: token.ExtentOf(old[:len(old)-s]),
		NewEndPoint: start.Add(token.ExtentOf(updated[p : len(updated)-s])),
	}
	return e, true
}
