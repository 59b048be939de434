package workspace

import (
	"context"
	"sync"
	"testing"

	"github.com/leapstack-labs/sqlcst/internal/testutil"
	"github.com/leapstack-labs/sqlcst/pkg/cst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uri = "file:///q.sql"

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.NewParser(t), testutil.NewTestLogger(t))
}

func TestStoreOpenGetClose(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	doc, err := s.Open(ctx, uri, []byte("SELECT 1;"), 1)
	require.NoError(t, err)
	assert.False(t, doc.Tree.HasError())

	got, ok := s.Get(uri)
	require.True(t, ok)
	assert.Same(t, doc, got)
	assert.Equal(t, []string{uri}, s.List())

	s.Close(uri)
	_, ok = s.Get(uri)
	assert.False(t, ok)
	assert.Empty(t, s.List())

	_, err = s.Change(ctx, uri, 2, []Change{{Text: "SELECT 2;"}})
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = s.Diagnostics(uri)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestStoreIncrementalChange(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, err := s.Open(ctx, uri, []byte("SELECT 1;\nSELEC 2;"), 1)
	require.NoError(t, err)
	require.True(t, first.Tree.HasError())

	diags, err := s.Diagnostics(uri)
	require.NoError(t, err)
	require.Len(t, diags, 1)

	doc, err := s.Change(ctx, uri, 2, []Change{{
		Range: &Range{Start: Position{Line: 1, Character: 5}, End: Position{Line: 1, Character: 5}},
		Text:  "T",
	}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;\nSELECT 2;", string(doc.Content))
	assert.Equal(t, 2, doc.Version)
	assert.False(t, doc.Tree.HasError())
	assert.Positive(t, doc.Tree.Stats().NodesReused)

	fresh, err := s.parser.Parse(ctx, doc.Content)
	require.NoError(t, err)
	assert.True(t, cst.TreesEqual(fresh, doc.Tree))

	// The old snapshot is untouched.
	assert.Equal(t, "SELECT 1;\nSELEC 2;", string(first.Content))
	assert.True(t, first.Tree.HasError())

	diags, err = s.Diagnostics(uri)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestStoreChangeSequence(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Open(ctx, uri, []byte("SELECT a FROM t"), 1)
	require.NoError(t, err)

	doc, err := s.Change(ctx, uri, 2, []Change{
		{Range: &Range{Start: Position{0, 7}, End: Position{0, 8}}, Text: "a, b"},
		{Range: &Range{Start: Position{0, 18}, End: Position{0, 18}}, Text: " WHERE b > 1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT a, b FROM t WHERE b > 1", string(doc.Content))
	assert.False(t, doc.Tree.HasError())

	doc, err = s.Change(ctx, uri, 3, []Change{{Text: "DELETE FROM t"}})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM t", string(doc.Content))
	assert.Equal(t, []int{0}, doc.Lines)

	// Stale versions are dropped.
	stale, err := s.Change(ctx, uri, 2, []Change{{Text: "SELECT"}})
	require.NoError(t, err)
	assert.Same(t, doc, stale)
}

func TestStoreConcurrentReaders(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Open(ctx, uri, []byte("SELECT 1"), 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				doc, ok := s.Get(uri)
				if !ok {
					continue
				}
				assert.Equal(t, len(doc.Content), doc.Tree.Len())
			}
		}()
		_, err := s.Change(ctx, uri, i+2, []Change{{
			Range: &Range{Start: Position{0, 7}, End: Position{0, 8}},
			Text:  "42",
		}})
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestStoreConcurrentWriters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Open(ctx, uri, []byte("SELECT 1;"), 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Change(ctx, uri, i+2, []Change{{
				Range: &Range{Start: Position{0, 0}, End: Position{0, 0}},
				Text:  "SELECT 2;\n",
			}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, ok := s.Get(uri)
	require.True(t, ok)
	assert.Equal(t, 9, doc.Version)
	assert.Equal(t, len(doc.Content), doc.Tree.Len())
	assert.Equal(t, computeLineOffsets(doc.Content), doc.Lines)

	fresh, err := testutil.NewParser(t).Parse(ctx, doc.Content)
	require.NoError(t, err)
	assert.True(t, cst.TreesEqual(fresh, doc.Tree))
}

func TestComputeLineOffsets(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []int
	}{
		{"empty", "", []int{0}},
		{"single line", "hello", []int{0}},
		{"two lines", "hello\nworld", []int{0, 6}},
		{"trailing newline", "hello\n", []int{0, 6}},
		{"multiple lines", "a\nb\nc", []int{0, 2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, computeLineOffsets([]byte(tt.content)))
		})
	}
}

func TestPositionConversion(t *testing.T) {
	content := []byte("SELECT *\nFROM users\nWHERE id = 1")
	doc := &Document{Content: content, Lines: computeLineOffsets(content)}

	tests := []struct {
		pos    Position
		offset int
	}{
		{Position{0, 0}, 0},
		{Position{0, 7}, 7},
		{Position{1, 0}, 9},
		{Position{1, 5}, 14},
		{Position{2, 0}, 20},
		{Position{2, 12}, 32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.offset, doc.PositionToOffset(tt.pos), "position %v", tt.pos)
		assert.Equal(t, tt.pos, doc.OffsetToPosition(tt.offset), "offset %d", tt.offset)
	}

	// Out of range positions clamp.
	assert.Equal(t, 8, doc.PositionToOffset(Position{0, 99}))
	assert.Equal(t, len(content), doc.PositionToOffset(Position{9, 0}))
	assert.Equal(t, Position{2, 12}, doc.OffsetToPosition(99))

	assert.Equal(t, "users", doc.WordAt(Position{1, 7}))
	assert.Equal(t, "", doc.WordAt(Position{0, 8}))
}
