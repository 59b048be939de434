package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtentOf(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Point
	}{
		{"empty", "", Point{}},
		{"single line", "select", Point{Row: 0, Column: 6}},
		{"trailing newline", "a\n", Point{Row: 1, Column: 0}},
		{"multi line", "a\nbc\ndef", Point{Row: 2, Column: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtentOf([]byte(tt.in)))
		})
	}
}

func TestPointAdd(t *testing.T) {
	p := Point{Row: 2, Column: 4}
	assert.Equal(t, Point{Row: 2, Column: 7}, p.Add(Point{Column: 3}))
	assert.Equal(t, Point{Row: 3, Column: 1}, p.Add(Point{Row: 1, Column: 1}))
}

func TestPositionAdvance(t *testing.T) {
	p := Position{Offset: 3, Point: Point{Row: 0, Column: 3}}
	got := p.Advance([]byte("ab\ncd"))
	assert.Equal(t, Position{Offset: 8, Point: Point{Row: 1, Column: 2}}, got)
	assert.Equal(t, got, p.Move(5, ExtentOf([]byte("ab\ncd"))))
}

func TestSpan(t *testing.T) {
	s := Span{Start: Position{Offset: 2}, End: Position{Offset: 5}}
	assert.True(t, s.Contains(2))
	assert.True(t, s.Contains(4))
	assert.False(t, s.Contains(5))
	assert.Equal(t, 3, s.Len())
	assert.False(t, s.IsEmpty())
	assert.True(t, Span{}.IsEmpty())
	assert.True(t, Point{Row: 0, Column: 9}.Less(Point{Row: 1}))
}
