package lex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	symEnd = iota
	symIf
	symPlus
	symIdent
	symNumber
	symAssign
	symEquals
	symHeredoc
)

const (
	modeAll = iota
	modeNumbers
	modeHeredoc
	modeKeywordOnly
)

// heredocScanner lexes <<text>> as a single token and counts how many it has
// produced.
type heredocScanner struct {
	count byte
}

func (s *heredocScanner) Scan(c *Cursor, valid []bool) (int, bool) {
	if !valid[0] {
		return 0, false
	}
	for c.Lookahead() == ' ' {
		c.Advance(true)
	}
	if c.Lookahead() != '<' {
		return 0, false
	}
	c.Advance(false)
	if c.Lookahead() != '<' {
		return 0, false
	}
	c.Advance(false)
	for {
		if c.EOF() {
			c.Fail(ErrScanner, "unterminated heredoc")
			return 0, false
		}
		if c.Lookahead() == '>' {
			c.Advance(false)
			if c.Lookahead() == '>' {
				c.Advance(false)
				c.MarkEnd()
				s.count++
				return 0, true
			}
			continue
		}
		c.Advance(false)
	}
}

func (s *heredocScanner) Serialize() []byte {
	return []byte{s.count}
}

func (s *heredocScanner) Deserialize(state []byte) {
	s.count = 0
	if len(state) > 0 {
		s.count = state[0]
	}
}

func testLexer(t *testing.T) *Lexer {
	terms := []Terminal{
		{Symbol: symEnd, Name: "end"},
		{Symbol: symIf, Name: "if", Literal: "if", IsLiteral: true, Keyword: true},
		{Symbol: symPlus, Name: "+", Literal: "+", IsLiteral: true},
		{Symbol: symIdent, Name: "ident", Pattern: `[a-z]+`},
		{Symbol: symNumber, Name: "number", Pattern: `\d+`},
		{Symbol: symAssign, Name: "=", Literal: "=", IsLiteral: true},
		{Symbol: symEquals, Name: "==", Literal: "==", IsLiteral: true},
		{Symbol: symHeredoc, Name: "heredoc", External: true},
	}
	modes := [][]int{
		modeAll:         {symEnd, symIf, symPlus, symIdent, symNumber, symAssign, symEquals},
		modeNumbers:     {symEnd, symNumber},
		modeHeredoc:     {symEnd, symIdent, symHeredoc},
		modeKeywordOnly: {symEnd, symIf},
	}

	lx, err := New(terms, modes, []string{`\s`, `//[^\n]*`}, symIdent, []int{symHeredoc})
	require.NoError(t, err)
	return lx
}

func Test_Lexer_Lex(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		pos    int
		mode   int
		expect Token
	}{
		{
			name:   "longest literal wins",
			input:  "==x",
			mode:   modeAll,
			expect: Token{Symbol: symEquals, Start: 0, End: 2, Lookahead: 1},
		},
		{
			name:   "keyword beats word token",
			input:  "if x",
			mode:   modeAll,
			expect: Token{Symbol: symIf, Start: 0, End: 2, Lookahead: 1},
		},
		{
			name:   "longer identifier is not a keyword",
			input:  "iffy",
			mode:   modeAll,
			expect: Token{Symbol: symIdent, Start: 0, End: 4},
		},
		{
			name:   "keyword only valid as a whole word",
			input:  "ifx",
			mode:   modeKeywordOnly,
			expect: Token{Symbol: ErrorSymbol, Start: 0, End: 3, Err: &LexError{Kind: ErrUnexpected, Offset: 0, Msg: `"ifx"`}},
		},
		{
			name:   "keyword valid without the word token",
			input:  "if",
			mode:   modeKeywordOnly,
			expect: Token{Symbol: symIf, Start: 0, End: 2},
		},
		{
			name:   "whitespace and comments are padding",
			input:  "  // note\n 12",
			mode:   modeNumbers,
			expect: Token{Symbol: symNumber, PaddingStart: 0, Start: 11, End: 13},
		},
		{
			name:   "starting mid-input",
			input:  "1 + 2",
			pos:    1,
			mode:   modeAll,
			expect: Token{Symbol: symPlus, PaddingStart: 1, Start: 2, End: 3, Lookahead: 1},
		},
		{
			name:   "end of input after padding",
			input:  "12   ",
			pos:    2,
			mode:   modeNumbers,
			expect: Token{Symbol: symEnd, PaddingStart: 2, Start: 5, End: 5},
		},
		{
			name:   "token not valid in mode is an error run",
			input:  "abc 7",
			mode:   modeNumbers,
			expect: Token{Symbol: ErrorSymbol, Start: 0, End: 3, Err: &LexError{Kind: ErrUnexpected, Offset: 0, Msg: `"abc"`}},
		},
		{
			name:   "invalid UTF-8",
			input:  "\xff\xfe9",
			mode:   modeNumbers,
			expect: Token{Symbol: ErrorSymbol, Start: 0, End: 2, Err: &LexError{Kind: ErrInvalidUTF8, Offset: 0, Msg: "byte 0xff"}},
		},
	}

	lx := testLexer(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// execute
			actual := lx.Lex([]byte(tc.input), tc.pos, tc.mode, nil)

			// assert
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Lexer_Lex_invalidUTF8InsideMatch(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		pos    int
		expect Token
	}{
		{
			name:   "match ends before the bad byte",
			input:  "ab\xffc",
			expect: Token{Symbol: 1, Start: 0, End: 2, Lookahead: 1},
		},
		{
			name:   "bad bytes at the start",
			input:  "ab\xff\xfec",
			pos:    2,
			expect: Token{Symbol: ErrorSymbol, PaddingStart: 2, Start: 2, End: 4, Err: &LexError{Kind: ErrInvalidUTF8, Offset: 2, Msg: "byte 0xff"}},
		},
		{
			name:   "encoded replacement character is valid",
			input:  "a\uFFFDb",
			expect: Token{Symbol: 1, Start: 0, End: 5},
		},
	}

	terms := []Terminal{
		{Symbol: symEnd, Name: "end"},
		{Symbol: 1, Name: "text", Pattern: `[^"]+`},
	}
	lx, err := New(terms, [][]int{{symEnd, 1}}, nil, -1, nil)
	require.NoError(t, err)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// execute
			actual := lx.Lex([]byte(tc.input), tc.pos, 0, nil)

			// assert
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Lexer_Lex_externalScanner(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expect      Token
		expectCount byte
	}{
		{
			name:        "scanner token",
			input:       " <<a > b>>x",
			expect:      Token{Symbol: symHeredoc, PaddingStart: 0, Start: 1, End: 10, Lookahead: 1, ScannerState: []byte{1}},
			expectCount: 1,
		},
		{
			name:   "scanner declines and the lexer takes over",
			input:  "word",
			expect: Token{Symbol: symIdent, Start: 0, End: 4},
		},
		{
			name:   "scanner failure is an error token",
			input:  "<<open",
			expect: Token{Symbol: ErrorSymbol, Start: 0, End: 6, Err: &LexError{Kind: ErrScanner, Offset: 6, Msg: "unterminated heredoc"}},
		},
	}

	lx := testLexer(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			sc := &heredocScanner{}

			// execute
			actual := lx.Lex([]byte(tc.input), 0, modeHeredoc, sc)

			// assert
			assert.Equal(tc.expect, actual)
			assert.Equal(tc.expectCount, sc.count)
		})
	}
}

func Test_Lexer_Lex_scannerNotConsultedWhenInvalid(t *testing.T) {
	assert := assert.New(t)

	// setup
	lx := testLexer(t)
	sc := &heredocScanner{}

	// execute
	actual := lx.Lex([]byte("<<a>>"), 0, modeAll, sc)

	// assert
	assert.Equal(ErrorSymbol, actual.Symbol)
	assert.Equal(byte(0), sc.count)
}

func Test_New_errors(t *testing.T) {
	testCases := []struct {
		name   string
		terms  []Terminal
		modes  [][]int
		word   int
		expect string
	}{
		{
			name:   "bad pattern",
			terms:  []Terminal{{Symbol: 0, Name: "end"}, {Symbol: 1, Name: "bad", Pattern: "[a-"}},
			word:   -1,
			expect: `terminal "bad"`,
		},
		{
			name:   "word token is a literal",
			terms:  []Terminal{{Symbol: 0, Name: "end"}, {Symbol: 1, Name: "x", Literal: "x", IsLiteral: true}},
			word:   1,
			expect: "word token 1 is not a pattern terminal",
		},
		{
			name:   "mode names unknown terminal",
			terms:  []Terminal{{Symbol: 0, Name: "end"}},
			modes:  [][]int{{0, 9}},
			word:   -1,
			expect: "lex mode uses unknown terminal 9",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// execute
			_, err := New(tc.terms, tc.modes, nil, tc.word, nil)

			// assert
			assert.ErrorContains(t, err, tc.expect)
		})
	}
}

func Test_Cursor(t *testing.T) {
	assert := assert.New(t)

	// setup
	c := newCursor([]byte("ab\ncdé"), 3)

	// execute + assert
	assert.Equal(0, c.Column())
	assert.Equal('c', c.Lookahead())
	c.Advance(true)
	assert.Equal(4, c.start)
	c.Advance(false)
	c.MarkEnd()
	c.Advance(false)
	assert.True(c.EOF())
	assert.Equal(rune(0), c.Lookahead())
	assert.Equal(5, c.tokenEnd())
	assert.Equal(4, c.Column())
}

func Test_LexError_Error(t *testing.T) {
	testCases := []struct {
		name   string
		err    *LexError
		expect string
	}{
		{
			name:   "with message",
			err:    &LexError{Kind: ErrNestingDepth, Offset: 40, Msg: "comments nested deeper than 64"},
			expect: "nesting too deep at byte 40: comments nested deeper than 64",
		},
		{
			name:   "without message",
			err:    &LexError{Kind: ErrInvalidUTF8, Offset: 3},
			expect: "invalid UTF-8 at byte 3",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.err.Error())
		})
	}
}

func Test_errorToken_truncatesLongRuns(t *testing.T) {
	assert := assert.New(t)

	// setup
	lx := testLexer(t)
	input := strings.Repeat("x", 40)

	// execute
	actual := lx.Lex([]byte(input), 0, modeNumbers, nil)

	// assert
	assert.Equal(40, actual.End)
	if assert.NotNil(actual.Err) {
		assert.Equal(`"xxxxxxxxxxxxxxxx..."`, actual.Err.Msg)
	}
}
