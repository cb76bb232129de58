// Package lex turns source bytes into tokens for the parser. Lexing is driven
// by the parser's state: only the terminals valid in the current state are
// considered, and the longest match among them wins.
package lex

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"
)

// EndSymbol is the symbol of the end-of-input token.
const EndSymbol = 0

// ErrorSymbol is the symbol of a token covering input that could not be
// lexed.
const ErrorSymbol = -1

// Terminal describes one terminal symbol of a language.
type Terminal struct {
	Symbol  int
	Name    string
	Literal string
	Pattern string

	// IsLiteral is whether the terminal matches Literal exactly rather than
	// Pattern.
	IsLiteral bool

	// Keyword is whether the terminal is lexed by matching the word token and
	// comparing its text to Literal.
	Keyword bool

	// External is whether the terminal is produced by the Scanner.
	External bool
}

// Token is a single lexed token.
type Token struct {
	Symbol int

	// PaddingStart is where skipped input before the token begins. Start and
	// End delimit the token itself.
	PaddingStart int
	Start        int
	End          int

	// Lookahead is how many bytes past End were examined to decide the token.
	Lookahead int

	// Err is set for error tokens.
	Err *LexError

	// ScannerState is the external scanner's state after the token. It is
	// only set for tokens produced by the scanner.
	ScannerState []byte
}

func (t Token) String() string {
	if t.Symbol == ErrorSymbol {
		return fmt.Sprintf("<ERROR %d-%d>", t.Start, t.End)
	}
	return fmt.Sprintf("<%d %d-%d>", t.Symbol, t.Start, t.End)
}

type matcher struct {
	term Terminal
	re   *regexp.Regexp
}

// match returns the length of the match at the start of src, or -1.
func (m matcher) match(src []byte) int {
	if m.term.IsLiteral {
		lit := m.term.Literal
		if len(src) >= len(lit) && string(src[:len(lit)]) == lit {
			return len(lit)
		}
		return -1
	}
	loc := m.re.FindIndex(src)
	if loc == nil {
		return -1
	}
	return loc[1]
}

type mode struct {
	matchers []int
	keywords []int
	word     bool
	external []bool
	anyExt   bool
}

// Lexer lexes source for one language. It holds no per-parse state and is
// safe for concurrent use.
type Lexer struct {
	matchers  []matcher
	bySymbol  map[int]int
	skip      []*regexp.Regexp
	word      int
	externals []int
	modes     []mode
}

// New compiles a Lexer. modes lists, for each lex mode, the terminal symbols
// valid in it. word is the symbol of the word token or -1. externals lists the
// external symbols in scanner order.
func New(terms []Terminal, modes [][]int, skip []string, word int, externals []int) (*Lexer, error) {
	lx := &Lexer{
		bySymbol:  map[int]int{},
		word:      -1,
		externals: externals,
	}

	for _, t := range terms {
		m := matcher{term: t}
		if !t.IsLiteral && !t.External && t.Symbol != EndSymbol {
			re, err := regexp.Compile(`^(?:` + t.Pattern + `)`)
			if err != nil {
				return nil, fmt.Errorf("terminal %q: %w", t.Name, err)
			}
			re.Longest()
			m.re = re
		}
		lx.bySymbol[t.Symbol] = len(lx.matchers)
		lx.matchers = append(lx.matchers, m)
	}

	for _, s := range skip {
		re, err := regexp.Compile(`^(?:` + s + `)`)
		if err != nil {
			return nil, fmt.Errorf("extra %q: %w", s, err)
		}
		re.Longest()
		lx.skip = append(lx.skip, re)
	}

	if word >= 0 {
		idx, ok := lx.bySymbol[word]
		if !ok || lx.matchers[idx].re == nil {
			return nil, fmt.Errorf("word token %d is not a pattern terminal", word)
		}
		lx.word = idx
	}

	extIndex := map[int]int{}
	for i, sym := range externals {
		extIndex[sym] = i
	}

	for _, syms := range modes {
		md := mode{external: make([]bool, len(externals))}
		for _, sym := range syms {
			idx, ok := lx.bySymbol[sym]
			if !ok {
				return nil, fmt.Errorf("lex mode uses unknown terminal %d", sym)
			}
			t := lx.matchers[idx].term
			switch {
			case t.External:
				md.external[extIndex[sym]] = true
				md.anyExt = true
			case t.Symbol == EndSymbol:
			case t.Keyword && lx.word >= 0:
				md.keywords = append(md.keywords, idx)
			default:
				if idx == lx.word {
					md.word = true
				}
				md.matchers = append(md.matchers, idx)
			}
		}
		sort.Ints(md.matchers)
		lx.modes = append(lx.modes, md)
	}

	return lx, nil
}

// Lex lexes the next token at pos using lex mode modeIdx. sc may be nil if the
// language has no external scanner.
func (lx *Lexer) Lex(src []byte, pos, modeIdx int, sc Scanner) Token {
	md := lx.modes[modeIdx]
	padStart := pos

	if md.anyExt && sc != nil {
		tok, ok := lx.scanExternal(src, pos, md, sc)
		if ok {
			return tok
		}
	}

	pos = lx.skipExtras(src, pos)
	if pos >= len(src) {
		return Token{Symbol: EndSymbol, PaddingStart: padStart, Start: pos, End: pos}
	}

	sym, length := lx.longest(src[pos:], md)
	if length > 0 && !utf8.Valid(src[pos:pos+length]) {
		// patterns match bad bytes as readily as good ones
		bad := pos + validPrefix(src[pos:pos+length])
		if bad == pos {
			return invalidToken(src, padStart, pos)
		}
		sym, length = lx.longest(src[pos:bad], md)
		if length <= 0 {
			return lx.errorToken(src[:bad], padStart, pos, md)
		}
	}
	if length > 0 {
		la := 0
		if pos+length < len(src) {
			la = 1
		}
		return Token{Symbol: sym, PaddingStart: padStart, Start: pos, End: pos + length, Lookahead: la}
	}

	return lx.errorToken(src, padStart, pos, md)
}

func (lx *Lexer) scanExternal(src []byte, pos int, md mode, sc Scanner) (Token, bool) {
	c := newCursor(src, pos)
	idx, ok := sc.Scan(c, md.external)

	if c.err != nil && !ok {
		end := c.pos
		if end <= c.start {
			end = c.start
			if end < len(src) {
				_, size := utf8.DecodeRune(src[end:])
				end += size
			}
		}
		return Token{
			Symbol:       ErrorSymbol,
			PaddingStart: pos,
			Start:        c.start,
			End:          end,
			Err:          c.err,
		}, true
	}

	if !ok || idx < 0 || idx >= len(lx.externals) || !md.external[idx] {
		return Token{}, false
	}

	end := c.tokenEnd()
	if end <= c.start {
		// zero-width external tokens would never advance the parse
		return Token{}, false
	}

	return Token{
		Symbol:       lx.externals[idx],
		PaddingStart: pos,
		Start:        c.start,
		End:          end,
		Lookahead:    c.pos - end + 1,
		ScannerState: sc.Serialize(),
	}, true
}

// skipExtras returns the position after any skippable input at pos.
func (lx *Lexer) skipExtras(src []byte, pos int) int {
	for pos < len(src) {
		advanced := false
		for _, re := range lx.skip {
			loc := re.FindIndex(src[pos:])
			if loc != nil && loc[1] > 0 {
				pos += loc[1]
				advanced = true
				break
			}
		}
		if !advanced {
			break
		}
	}
	return pos
}

// longest finds the best token at the start of src among the terminals of the
// mode: the longest match wins; on equal length a keyword beats a literal, a
// literal beats a pattern, and otherwise the first-declared terminal wins.
func (lx *Lexer) longest(src []byte, md mode) (int, int) {
	bestSym, bestLen, bestRank := ErrorSymbol, 0, -1

	consider := func(sym, length, rank int) {
		if length <= 0 {
			return
		}
		if length > bestLen || (length == bestLen && rank > bestRank) || (length == bestLen && rank == bestRank && sym < bestSym) {
			bestSym, bestLen, bestRank = sym, length, rank
		}
	}

	wordLen := -1
	if lx.word >= 0 && (md.word || len(md.keywords) > 0) {
		wordLen = lx.matchers[lx.word].match(src)
	}

	for _, idx := range md.keywords {
		kw := lx.matchers[idx].term
		if wordLen == len(kw.Literal) && string(src[:wordLen]) == kw.Literal {
			consider(kw.Symbol, wordLen, 3)
		}
	}

	for _, idx := range md.matchers {
		m := lx.matchers[idx]
		if idx == lx.word {
			consider(m.term.Symbol, wordLen, 1)
			continue
		}
		rank := 1
		if m.term.IsLiteral {
			rank = 2
		}
		consider(m.term.Symbol, m.match(src), rank)
	}

	return bestSym, bestLen
}

// startsToken returns whether any terminal of the mode or any skip pattern
// matches at the start of src.
func (lx *Lexer) startsToken(src []byte, md mode) bool {
	if _, length := lx.longest(src, md); length > 0 {
		return true
	}
	for _, re := range lx.skip {
		if loc := re.FindIndex(src); loc != nil && loc[1] > 0 {
			return true
		}
	}
	return false
}

// errorToken builds a token covering the run of input at pos that starts no
// valid token.
func (lx *Lexer) errorToken(src []byte, padStart, pos int, md mode) Token {
	var lexErr *LexError
	end := pos

	for end < len(src) {
		r, size := utf8.DecodeRune(src[end:])
		if r == utf8.RuneError && size <= 1 {
			if lexErr == nil {
				lexErr = &LexError{Kind: ErrInvalidUTF8, Offset: end, Msg: fmt.Sprintf("byte 0x%02x", src[end])}
			}
			size = 1
		}
		end += size
		if end >= len(src) || lx.startsToken(src[end:], md) {
			break
		}
	}

	if lexErr == nil {
		lexErr = &LexError{Kind: ErrUnexpected, Offset: pos, Msg: fmt.Sprintf("%q", truncate(src[pos:end], 16))}
	}

	return Token{Symbol: ErrorSymbol, PaddingStart: padStart, Start: pos, End: end, Err: lexErr}
}

// invalidToken builds an error token for the run of bytes at pos that are not
// valid UTF-8.
func invalidToken(src []byte, padStart, pos int) Token {
	end := pos
	for end < len(src) {
		r, size := utf8.DecodeRune(src[end:])
		if r != utf8.RuneError || size > 1 {
			break
		}
		end++
	}
	return Token{
		Symbol:       ErrorSymbol,
		PaddingStart: padStart,
		Start:        pos,
		End:          end,
		Err:          &LexError{Kind: ErrInvalidUTF8, Offset: pos, Msg: fmt.Sprintf("byte 0x%02x", src[pos])},
	}
}

// validPrefix returns the length of the longest prefix of b that is valid
// UTF-8.
func validPrefix(b []byte) int {
	n := 0
	for n < len(b) {
		r, size := utf8.DecodeRune(b[n:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		n += size
	}
	return n
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
