package edit_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/leapstack-labs/sqlcst/pkg/edit"
	"github.com/leapstack-labs/sqlcst/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		e    edit.Edit
		ok   bool
	}{
		{"insert", edit.Edit{StartByte: 3, OldEndByte: 3, NewEndByte: 5}, true},
		{"delete to end", edit.Edit{StartByte: 3, OldEndByte: 10, NewEndByte: 3}, true},
		{"start after old end", edit.Edit{StartByte: 4, OldEndByte: 3, NewEndByte: 5}, false},
		{"start after new end", edit.Edit{StartByte: 4, OldEndByte: 5, NewEndByte: 3}, false},
		{"past source", edit.Edit{StartByte: 4, OldEndByte: 11, NewEndByte: 4}, false},
		{"negative", edit.Edit{StartByte: -1, OldEndByte: 0, NewEndByte: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := edit.Validate(tt.e, 10)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, edit.ErrInvalidEdit))
			var ierr *edit.InvalidEditError
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.e, ierr.Edit)
		})
	}
}

func TestReplace(t *testing.T) {
	src := []byte("select 1;\nselec 2;")
	out, e, err := edit.Replace(src, 15, 15, "t")
	require.NoError(t, err)
	assert.Equal(t, "select 1;\nselect 2;", string(out))
	assert.Equal(t, 15, e.StartByte)
	assert.Equal(t, 16, e.NewEndByte)
	assert.Equal(t, token.Point{Row: 1, Column: 5}, e.StartPoint)
	assert.Equal(t, token.Point{Row: 1, Column: 6}, e.NewEndPoint)

	again, err := edit.Apply(src, e, []byte("t"))
	require.NoError(t, err)
	assert.Equal(t, out, again)

	_, err = edit.Apply(src, e, []byte("too long"))
	assert.ErrorIs(t, err, edit.ErrInvalidEdit)

	_, _, err = edit.Replace(src, 5, 40, "")
	assert.ErrorIs(t, err, edit.ErrInvalidEdit)
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		updated string
		want    edit.Edit
	}{
		{"insert", "abcd", "abXcd", edit.Edit{StartByte: 2, OldEndByte: 2, NewEndByte: 3}},
		{"delete", "abcd", "ad", edit.Edit{StartByte: 1, OldEndByte: 3, NewEndByte: 1}},
		{"replace", "abcd", "aXYd", edit.Edit{StartByte: 1, OldEndByte: 3, NewEndByte: 3}},
		{"repeated bytes", "aaa", "aaaa", edit.Edit{StartByte: 3, OldEndByte: 3, NewEndByte: 4}},
		{"from empty", "", "ab", edit.Edit{StartByte: 0, OldEndByte: 0, NewEndByte: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := edit.Diff([]byte(tt.old), []byte(tt.updated))
			require.True(t, ok)
			assert.Equal(t, tt.want.StartByte, got.StartByte)
			assert.Equal(t, tt.want.OldEndByte, got.OldEndByte)
			assert.Equal(t, tt.want.NewEndByte, got.NewEndByte)

			text := []byte(tt.updated[got.StartByte:got.NewEndByte])
			out, err := edit.Apply([]byte(tt.old), got, text)
			require.NoError(t, err)
			assert.Equal(t, tt.updated, string(out))
		})
	}

	_, ok := edit.Diff([]byte("same"), []byte("same"))
	assert.False(t, ok)
}

func TestFoldSingle(t *testing.T) {
	set, err := edit.Fold([]edit.Edit{{StartByte: 15, OldEndByte: 15, NewEndByte: 16}}, 18)
	require.NoError(t, err)
	assert.Equal(t, []edit.Change{{OldStart: 15, OldEnd: 15, NewStart: 15, NewEnd: 16}}, set.Changes())
	assert.Equal(t, 19, set.NewLen())

	assert.False(t, set.Touches(0, 9))
	assert.True(t, set.Touches(10, 16))
	assert.True(t, set.Touches(15, 15))
	assert.False(t, set.Touches(16, 18))

	assert.Equal(t, 3, set.Map(3))
	assert.Equal(t, 17, set.Map(16))

	old, ok := set.ToOld(16)
	assert.True(t, ok)
	assert.Equal(t, 15, old)
	old, ok = set.ToOld(15)
	assert.True(t, ok)
	assert.Equal(t, 15, old)
}

func TestFoldSequential(t *testing.T) {
	doc := []byte("0123456789")
	steps := []struct {
		start, end int
		text       string
	}{
		{2, 4, "abcde"}, // 01abcde456789
		{10, 10, "X"},   // 01abcde456X789
		{6, 11, ""},     // 01abcd789
	}
	var edits []edit.Edit
	cur := doc
	for _, s := range steps {
		next, e, err := edit.Replace(cur, s.start, s.end, s.text)
		require.NoError(t, err)
		edits = append(edits, e)
		cur = next
	}
	assert.Equal(t, "01abcd789", string(cur))

	set, err := edit.Fold(edits, len(doc))
	require.NoError(t, err)
	assert.Equal(t, []edit.Change{{OldStart: 2, OldEnd: 7, NewStart: 2, NewEnd: 6}}, set.Changes())
	assert.Equal(t, len(cur), set.NewLen())

	_, ok := set.ToOld(4)
	assert.False(t, ok, "inside new text")
	old, ok := set.ToOld(7)
	require.True(t, ok)
	assert.Equal(t, 8, old)
}

func TestFoldRejectsEditsPastCurrentText(t *testing.T) {
	_, err := edit.Fold([]edit.Edit{
		{StartByte: 0, OldEndByte: 5, NewEndByte: 0},
		{StartByte: 4, OldEndByte: 8, NewEndByte: 4},
	}, 10)
	assert.ErrorIs(t, err, edit.ErrInvalidEdit)
}

// rebuild applies the folded changes to old and must reproduce the edited
// document.
func rebuild(old, updated []byte, set edit.Set) []byte {
	var out []byte
	prev := 0
	for _, c := range set.Changes() {
		out = append(out, old[prev:c.OldStart]...)
		out = append(out, updated[c.NewStart:c.NewEnd]...)
		prev = c.OldEnd
	}
	return append(out, old[prev:]...)
}

func TestFoldRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []byte("abc \n;")
	for round := 0; round < 200; round++ {
		doc := make([]byte, rng.Intn(30))
		for i := range doc {
			doc[i] = alphabet[rng.Intn(len(alphabet))]
		}
		cur := doc
		var edits []edit.Edit
		for n := rng.Intn(5) + 1; n > 0; n-- {
			start := rng.Intn(len(cur) + 1)
			end := start + rng.Intn(len(cur)-start+1)
			text := make([]byte, rng.Intn(4))
			for i := range text {
				text[i] = alphabet[rng.Intn(len(alphabet))]
			}
			next, e, err := edit.Replace(cur, start, end, string(text))
			require.NoError(t, err)
			edits = append(edits, e)
			cur = next
		}

		set, err := edit.Fold(edits, len(doc))
		require.NoError(t, err)
		require.Equal(t, len(cur), set.NewLen())
		require.Equal(t, string(cur), string(rebuild(doc, cur, set)), "round %d", round)

		changes := set.Changes()
		for i := 1; i < len(changes); i++ {
			require.Less(t, changes[i-1].OldEnd, changes[i].OldStart)
			require.Less(t, changes[i-1].NewEnd, changes[i].NewStart)
		}
	}
}
