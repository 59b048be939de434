package token

import "fmt"

// Point is a zero-based row and byte column, the way editor protocols
// report cursor locations.
type Point struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Add returns p advanced by extent, where extent is the point reached by
// scanning some text from the origin.
func (p Point) Add(extent Point) Point {
	if extent.Row == 0 {
		return Point{Row: p.Row, Column: p.Column + extent.Column}
	}
	return Point{Row: p.Row + extent.Row, Column: extent.Column}
}

// Less reports whether p comes before o.
func (p Point) Less(o Point) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Column < o.Column
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// ExtentOf returns the point reached after scanning b from the origin.
func ExtentOf(b []byte) Point {
	var ext Point
	for _, c := range b {
		if c == '\n' {
			ext.Row++
			ext.Column = 0
			continue
		}
		ext.Column++
	}
	return ext
}

// Position represents a location in the source code.
type Position struct {
	Offset int // 0-based byte offset
	Point  Point
}

// Advance returns the position reached after consuming b from p.
func (p Position) Advance(b []byte) Position {
	return Position{Offset: p.Offset + len(b), Point: p.Point.Add(ExtentOf(b))}
}

// Move returns the position size bytes after p, where extent is the point
// extent of those bytes.
func (p Position) Move(size int, extent Point) Position {
	return Position{Offset: p.Offset + size, Point: p.Point.Add(extent)}
}

func (p Position) String() string {
	return fmt.Sprintf("%d (%s)", p.Offset, p.Point)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// IsEmpty reports whether the span covers no bytes.
func (s Span) IsEmpty() bool {
	return s.Start.Offset == s.End.Offset
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start.Offset, s.End.Offset)
}

// Sub returns the extent covered from o to p, the inverse of Add.
func (p Point) Sub(o Point) Point {
	if p.Row == o.Row {
		return Point{Column: p.Column - o.Column}
	}
	return Point{Row: p.Row - o.Row, Column: p.Column}
}
