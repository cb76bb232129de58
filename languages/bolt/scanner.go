package bolt

import (
	"fmt"

	"github.com/dekarrin/remora/lex"
)

// DefaultMaxCommentDepth is how deeply block comments may nest before the
// scanner gives up on them.
const DefaultMaxCommentDepth = 64

// index of each external token, in the order the grammar declares them
const (
	blockCommentContent = iota
)

// Scanner lexes the body of a block comment, which the grammar's patterns
// cannot do because block comments nest:
//
//	/* outer /* inner */ still outer */
//
// The whole body up to the closing "*/" of the outermost comment is a single
// token. The scanner keeps no state between tokens, so it serializes to
// nothing. MaxDepth is configuration and is set by the function that creates
// the scanner.
type Scanner struct {
	MaxDepth int
}

// NewScanner returns a Scanner with the default nesting limit.
func NewScanner() *Scanner {
	return &Scanner{MaxDepth: DefaultMaxCommentDepth}
}

// Scan is called after the opening "/*" has been lexed. It consumes everything
// up to but not including the "*/" that closes the comment. It produces no
// token for an empty body or for a comment that is never closed.
func (s *Scanner) Scan(c *lex.Cursor, valid []bool) (int, bool) {
	if !valid[blockCommentContent] {
		return 0, false
	}

	maxDepth := s.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCommentDepth
	}

	depth := 1
	consumed := false
	for {
		switch c.Lookahead() {
		case 0:
			if c.EOF() {
				return 0, false
			}
			c.Advance(false)
		case '/':
			c.Advance(false)
			if c.Lookahead() == '*' {
				depth++
				if depth > maxDepth {
					c.Fail(lex.ErrNestingDepth, fmt.Sprintf("block comments nested more than %d deep", maxDepth))
					return 0, false
				}
				c.Advance(false)
			}
		case '*':
			c.MarkEnd()
			c.Advance(false)
			if c.Lookahead() == '/' {
				if depth == 1 {
					// the closing "*/" is left for the grammar
					if !consumed {
						return 0, false
					}
					return blockCommentContent, true
				}
				depth--
				c.Advance(false)
			}
		default:
			c.Advance(false)
		}
		consumed = true
		c.MarkEnd()
	}
}

// Serialize returns the scanner's state, which is always empty.
func (s *Scanner) Serialize() []byte {
	return nil
}

// Deserialize restores the scanner's state. It does nothing.
func (s *Scanner) Deserialize(state []byte) {}
