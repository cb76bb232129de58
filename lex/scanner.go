package lex

import "unicode/utf8"

// Scanner lexes tokens that patterns cannot express, such as nested comments
// or indentation. A language declares the tokens its scanner produces as
// externals; they are numbered in declaration order.
//
// A Scanner value is used by a single parse only. Anything it must remember
// between tokens has to round-trip through Serialize and Deserialize, because
// the parser may restore an older state when it backtracks or reuses part of
// a previous tree.
type Scanner interface {
	// Scan tries to lex one external token at the cursor. valid[i] reports
	// whether external token i is acceptable to the parser. It returns the
	// index of the token lexed, or false if none was.
	Scan(c *Cursor, valid []bool) (int, bool)

	// Serialize returns the scanner's state.
	Serialize() []byte

	// Deserialize restores a state returned by Serialize. A nil or empty state
	// is the initial state.
	Deserialize(state []byte)
}

// Cursor is the view of the input given to an external scanner.
type Cursor struct {
	src   []byte
	start int
	pos   int
	end   int
	err   *LexError
}

func newCursor(src []byte, pos int) *Cursor {
	return &Cursor{src: src, start: pos, pos: pos, end: -1}
}

// Lookahead returns the rune at the cursor, or 0 at the end of input.
func (c *Cursor) Lookahead() rune {
	if c.pos >= len(c.src) {
		return 0
	}
	r, _ := utf8.DecodeRune(c.src[c.pos:])
	return r
}

// Advance moves past the current rune. If skip is true the rune is treated as
// whitespace before the token rather than as part of it.
func (c *Cursor) Advance(skip bool) {
	if c.pos >= len(c.src) {
		return
	}
	_, size := utf8.DecodeRune(c.src[c.pos:])
	c.pos += size
	if skip {
		c.start = c.pos
	}
}

// MarkEnd marks the current position as the end of the token. If it is never
// called, the token ends wherever the cursor stops.
func (c *Cursor) MarkEnd() {
	c.end = c.pos
}

// EOF returns whether the cursor is at the end of the input.
func (c *Cursor) EOF() bool {
	return c.pos >= len(c.src)
}

// Column returns the byte offset of the cursor from the start of its line.
func (c *Cursor) Column() int {
	col := 0
	for i := c.pos - 1; i >= 0 && c.src[i] != '\n'; i-- {
		col++
	}
	return col
}

// Fail records a problem found while scanning. The scanner should then return
// false; the input it examined is reported as an error token carrying the
// problem.
func (c *Cursor) Fail(kind ErrorKind, msg string) {
	c.err = &LexError{Kind: kind, Offset: c.pos, Msg: msg}
}

func (c *Cursor) tokenEnd() int {
	if c.end < 0 {
		return c.pos
	}
	return c.end
}
