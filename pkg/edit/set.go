package edit

import (
	"sort"
)

// Change is one changed region: old bytes [OldStart, OldEnd) became new
// bytes [NewStart, NewEnd).
type Change struct {
	OldStart, OldEnd int
	NewStart, NewEnd int
}

// Set is a batch of edits folded into sorted, disjoint changes expressed in
// both old and new coordinates.
type Set struct {
	changes []Change
	oldLen  int
	newLen  int
}

// Fold composes edits applied one after another to a document of oldLen
// bytes. Each edit is in the coordinates of the text produced by the edits
// before it.
func Fold(edits []Edit, oldLen int) (Set, error) {
	s := Set{oldLen: oldLen, newLen: oldLen}
	for _, e := range edits {
		if err := s.add(e); err != nil {
			return Set{}, err
		}
	}
	return s, nil
}

func (s *Set) add(e Edit) error {
	if err := Validate(e, s.newLen); err != nil {
		return err
	}
	if e.IsNoop() {
		return nil
	}
	start, oldEnd, delta := e.StartByte, e.OldEndByte, e.Delta()

	// Changes [lo, hi) overlap or abut the edited range.
	lo := sort.Search(len(s.changes), func(i int) bool { return s.changes[i].NewEnd >= start })
	hi := lo
	for hi < len(s.changes) && s.changes[hi].NewStart <= oldEnd {
		hi++
	}

	var merged Change
	if lo == hi {
		old := s.oldAt(lo, start)
		merged = Change{OldStart: old, OldEnd: old + (oldEnd - start), NewStart: start, NewEnd: e.NewEndByte}
	} else {
		first, last := s.changes[lo], s.changes[hi-1]
		merged = Change{OldStart: first.OldStart, OldEnd: last.OldEnd, NewStart: first.NewStart, NewEnd: last.NewEnd}
		if start < first.NewStart {
			merged.OldStart -= first.NewStart - start
			merged.NewStart = start
		}
		if oldEnd > last.NewEnd {
			merged.OldEnd += oldEnd - last.NewEnd
			merged.NewEnd = oldEnd
		}
		merged.NewEnd += delta
	}

	rest := s.changes[hi:]
	out := make([]Change, 0, lo+1+len(rest))
	out = append(out, s.changes[:lo]...)
	out = append(out, merged)
	for _, c := range rest {
		c.NewStart += delta
		c.NewEnd += delta
		out = append(out, c)
	}
	s.changes = out
	s.newLen += delta
	return nil
}

// oldAt maps a new offset in the unchanged gap before changes[i] to old
// coordinates.
func (s *Set) oldAt(i, pos int) int {
	if i == 0 {
		return pos
	}
	prev := s.changes[i-1]
	return prev.OldEnd + (pos - prev.NewEnd)
}

// Changes returns the folded changes in order.
func (s Set) Changes() []Change { return s.changes }

// IsEmpty reports whether the set changes nothing.
func (s Set) IsEmpty() bool { return len(s.changes) == 0 }

// OldLen returns the length of the document before the edits.
func (s Set) OldLen() int { return s.oldLen }

// NewLen returns the length of the document after the edits.
func (s Set) NewLen() int { return s.newLen }

// Map translates an old offset to the new document. Offsets inside a
// replaced region map into the replacement, clamped to its end.
func (s Set) Map(old int) int {
	i := sort.Search(len(s.changes), func(i int) bool { return s.changes[i].OldStart > old }) - 1
	if i < 0 {
		return old
	}
	c := s.changes[i]
	if old >= c.OldEnd {
		return c.NewEnd + (old - c.OldEnd)
	}
	return c.NewStart + min(old-c.OldStart, c.NewEnd-c.NewStart)
}

// ToOld translates a new offset back to the old document. It reports false
// for offsets strictly inside new text, which have no old counterpart.
func (s Set) ToOld(pos int) (int, bool) {
	i := sort.Search(len(s.changes), func(i int) bool { return s.changes[i].NewStart > pos }) - 1
	if i < 0 {
		return pos, true
	}
	c := s.changes[i]
	switch {
	case pos >= c.NewEnd:
		return c.OldEnd + (pos - c.NewEnd), true
	case pos == c.NewStart:
		return c.OldStart, true
	}
	return 0, false
}

// Touches reports whether any change overlaps or abuts the old range
// [start, end]. Both bounds are inclusive so that text inserted right at a
// boundary counts.
func (s Set) Touches(start, end int) bool {
	i := sort.Search(len(s.changes), func(i int) bool { return s.changes[i].OldEnd >= start })
	return i < len(s.changes) && s.changes[i].OldStart <= end
}
