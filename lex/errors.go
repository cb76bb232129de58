package lex

import "fmt"

// ErrorKind is the category of a LexError.
type ErrorKind int

const (
	// ErrUnexpected is input that does not begin any token valid at its
	// position.
	ErrUnexpected ErrorKind = iota

	// ErrInvalidUTF8 is input that is not valid UTF-8.
	ErrInvalidUTF8

	// ErrNestingDepth is reported by scanners whose nesting guard was
	// exceeded.
	ErrNestingDepth

	// ErrScanner is any other problem reported by an external scanner.
	ErrScanner
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnexpected:
		return "unexpected input"
	case ErrInvalidUTF8:
		return "invalid UTF-8"
	case ErrNestingDepth:
		return "nesting too deep"
	case ErrScanner:
		return "scanner error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// LexError describes input the lexer could not turn into a token. It is
// never returned from a parse; it is attached to the error node that covers
// the input instead.
type LexError struct {
	Kind   ErrorKind
	Offset int
	Msg    string
}

func (e *LexError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s at byte %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("%s at byte %d: %s", e.Kind, e.Offset, e.Msg)
}
