package grammar

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseRule parses a rule written in rule notation:
//
//	source_file = _item*
//	block       = '{' (block | _token)* '}'
//	expr        = prec.left(1, expr '+' expr) | NUMBER
//
// Juxtaposition is sequence, '|' is choice, postfix '*', '+' and '?' are
// repeat, repeat-one and optional. Strings are quoted with ' or ", patterns
// are delimited with slashes, '_' alone is the blank rule, and token(r),
// prec(n, r), prec.left(n, r), prec.right(n, r) and prec.dynamic(n, r) are
// the function forms.
func ParseRule(s string) (Rule, error) {
	p := &notationParser{src: s}
	p.skipSpace()
	if p.atEnd() {
		return Rule{}, p.errorf("empty rule definition")
	}

	r, err := p.parseChoice()
	if err != nil {
		return Rule{}, err
	}

	p.skipSpace()
	if !p.atEnd() {
		return Rule{}, p.errorf("unexpected %q", p.peek())
	}
	return r, nil
}

// MustParseRule is ParseRule but panics on error.
func MustParseRule(s string) Rule {
	r, err := ParseRule(s)
	if err != nil {
		panic(err.Error())
	}
	return r
}

// NotationError is returned by ParseRule when the notation is malformed.
type NotationError struct {
	Column int
	Msg    string
}

func (e *NotationError) Error() string {
	return fmt.Sprintf("column %d: %s", e.Column, e.Msg)
}

type notationParser struct {
	src string
	pos int
}

func (p *notationParser) errorf(format string, a ...interface{}) error {
	col := utf8.RuneCountInString(p.src[:p.pos]) + 1
	return &NotationError{Column: col, Msg: fmt.Sprintf(format, a...)}
}

func (p *notationParser) atEnd() bool {
	return p.pos >= len(p.src)
}

func (p *notationParser) peek() rune {
	if p.atEnd() {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return ch
}

func (p *notationParser) next() rune {
	ch, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	return ch
}

func (p *notationParser) skipSpace() {
	for !p.atEnd() && unicode.IsSpace(p.peek()) {
		p.next()
	}
}

func (p *notationParser) parseChoice() (Rule, error) {
	var alts []Rule

	for {
		seq, err := p.parseSeq()
		if err != nil {
			return Rule{}, err
		}
		alts = append(alts, seq)

		p.skipSpace()
		if p.peek() != '|' {
			break
		}
		p.next()
	}

	return Choice(alts...), nil
}

func (p *notationParser) parseSeq() (Rule, error) {
	var items []Rule

	for {
		p.skipSpace()
		if p.atEnd() {
			break
		}
		ch := p.peek()
		if ch == '|' || ch == ')' || ch == ',' {
			break
		}

		item, err := p.parsePostfix()
		if err != nil {
			return Rule{}, err
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return Rule{}, p.errorf("expected a rule")
	}
	return Seq(items...), nil
}

func (p *notationParser) parsePostfix() (Rule, error) {
	r, err := p.parseAtom()
	if err != nil {
		return Rule{}, err
	}

	for !p.atEnd() {
		switch p.peek() {
		case '*':
			p.next()
			r = Repeat(r)
		case '+':
			p.next()
			r = Repeat1(r)
		case '?':
			p.next()
			r = Optional(r)
		default:
			return r, nil
		}
	}
	return r, nil
}

func (p *notationParser) parseAtom() (Rule, error) {
	ch := p.peek()

	switch {
	case ch == '\'' || ch == '"':
		s, err := p.parseString()
		if err != nil {
			return Rule{}, err
		}
		return Str(s), nil
	case ch == '/':
		re, err := p.parsePattern()
		if err != nil {
			return Rule{}, err
		}
		return Pat(re), nil
	case ch == '(':
		p.next()
		r, err := p.parseChoice()
		if err != nil {
			return Rule{}, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return Rule{}, p.errorf("expected ')'")
		}
		p.next()
		return r, nil
	case isIdentStart(ch):
		return p.parseIdentOrCall()
	default:
		return Rule{}, p.errorf("unexpected %q", ch)
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func (p *notationParser) parseIdent() string {
	start := p.pos
	for !p.atEnd() && isIdentPart(p.peek()) {
		p.next()
	}
	return p.src[start:p.pos]
}

func (p *notationParser) parseIdentOrCall() (Rule, error) {
	start := p.pos
	name := p.parseIdent()

	if name == "prec" && p.peek() == '.' {
		p.next()
		variant := p.parseIdent()
		switch variant {
		case "left", "right", "dynamic":
			name += "." + variant
		default:
			p.pos = start
			return Rule{}, p.errorf("unknown precedence form %q", "prec."+variant)
		}
	}

	switch name {
	case "token", "prec", "prec.left", "prec.right", "prec.dynamic":
		save := p.pos
		p.skipSpace()
		if p.peek() == '(' {
			p.next()
			return p.parseCall(name)
		}
		if name != "token" && name != "prec" {
			return Rule{}, p.errorf("%s must be called", name)
		}
		p.pos = save
	}

	if name == "_" {
		return Blank(), nil
	}
	return Sym(name), nil
}

// parseCall parses the argument list of a function form. The opening paren
// has already been consumed.
func (p *notationParser) parseCall(name string) (Rule, error) {
	var n int
	var hasNum bool

	if name != "token" {
		p.skipSpace()
		start := p.pos
		if p.peek() == '-' {
			p.next()
		}
		for !p.atEnd() && unicode.IsDigit(p.peek()) {
			p.next()
		}
		if p.pos > start {
			num, err := strconv.Atoi(p.src[start:p.pos])
			if err != nil {
				p.pos = start
				return Rule{}, p.errorf("bad precedence value")
			}
			n = num
			hasNum = true

			p.skipSpace()
			if p.peek() != ',' {
				return Rule{}, p.errorf("expected ',' after precedence value")
			}
			p.next()
		}
	}

	if !hasNum && (name == "prec" || name == "prec.dynamic") {
		return Rule{}, p.errorf("%s requires a precedence value", name)
	}

	inner, err := p.parseChoice()
	if err != nil {
		return Rule{}, err
	}
	p.skipSpace()
	if p.peek() != ')' {
		return Rule{}, p.errorf("expected ')' to close %s", name)
	}
	p.next()

	switch name {
	case "token":
		return Token(inner), nil
	case "prec":
		return Prec(n, inner), nil
	case "prec.left":
		return PrecLeft(n, inner), nil
	case "prec.right":
		return PrecRight(n, inner), nil
	default:
		return PrecDynamic(n, inner), nil
	}
}

func (p *notationParser) parseString() (string, error) {
	quote := p.next()
	var sb strings.Builder

	for {
		if p.atEnd() {
			return "", p.errorf("unterminated string")
		}
		ch := p.next()
		if ch == quote {
			break
		}
		if ch == '\\' {
			if p.atEnd() {
				return "", p.errorf("unterminated escape")
			}
			esc := p.next()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\\', '\'', '"':
				sb.WriteRune(esc)
			default:
				return "", p.errorf("unknown escape \\%c", esc)
			}
			continue
		}
		sb.WriteRune(ch)
	}

	if sb.Len() == 0 {
		return "", p.errorf("empty string literal")
	}
	return sb.String(), nil
}

func (p *notationParser) parsePattern() (string, error) {
	p.next()
	var sb strings.Builder

	for {
		if p.atEnd() {
			return "", p.errorf("unterminated pattern")
		}
		ch := p.next()
		if ch == '/' {
			break
		}
		if ch == '\\' && p.peek() == '/' {
			p.next()
			sb.WriteRune('/')
			continue
		}
		if ch == '\\' && !p.atEnd() {
			// keep every other escape for the regexp engine
			sb.WriteRune(ch)
			sb.WriteRune(p.next())
			continue
		}
		sb.WriteRune(ch)
	}

	if sb.Len() == 0 {
		return "", p.errorf("empty pattern")
	}
	return sb.String(), nil
}
