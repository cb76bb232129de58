package syntax

import "fmt"

// Point is a position in source text as a zero-based row and a byte column.
type Point struct {
	Row    int
	Column int
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// Length is an amount of source text, measured both in bytes and as the
// rows and columns it spans. Lengths are used as relative positions: a
// node's position is the sum of the lengths that precede it.
type Length struct {
	Bytes  int
	Extent Point
}

// LengthOf returns the length of text.
func LengthOf(text []byte) Length {
	l := Length{Bytes: len(text)}
	for _, b := range text {
		if b == '\n' {
			l.Extent.Row++
			l.Extent.Column = 0
		} else {
			l.Extent.Column++
		}
	}
	return l
}

// Add returns the length of a followed by b.
func (a Length) Add(b Length) Length {
	out := Length{Bytes: a.Bytes + b.Bytes}
	if b.Extent.Row > 0 {
		out.Extent.Row = a.Extent.Row + b.Extent.Row
		out.Extent.Column = b.Extent.Column
	} else {
		out.Extent.Row = a.Extent.Row
		out.Extent.Column = a.Extent.Column + b.Extent.Column
	}
	return out
}

// Sub returns the length that remains of a after removing its prefix b. b
// must not be longer than a.
func (a Length) Sub(b Length) Length {
	out := Length{Bytes: a.Bytes - b.Bytes}
	if a.Extent.Row > b.Extent.Row {
		out.Extent.Row = a.Extent.Row - b.Extent.Row
		out.Extent.Column = a.Extent.Column
	} else {
		out.Extent.Column = a.Extent.Column - b.Extent.Column
	}
	return out
}

// SaturatingSub is Sub, but returns the zero Length when b is longer than a.
func (a Length) SaturatingSub(b Length) Length {
	if b.Bytes >= a.Bytes {
		return Length{}
	}
	return a.Sub(b)
}

// Point returns the length as a point relative to the start of the text.
func (a Length) Point() Point {
	return a.Extent
}

// Range is a span of source text.
type Range struct {
	StartByte  int
	EndByte    int
	StartPoint Point
	EndPoint   Point
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.StartByte, r.EndByte)
}

// Len returns the number of bytes in the range.
func (r Range) Len() int {
	return r.EndByte - r.StartByte
}
