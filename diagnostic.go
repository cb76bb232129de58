package remora

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dekarrin/remora/internal/cfg"
	"github.com/dekarrin/remora/internal/lr"
	"github.com/dekarrin/remora/internal/util"
	"github.com/dekarrin/remora/lex"
	"github.com/dekarrin/remora/syntax"
)

// Diagnostic describes one syntax error recorded in a tree.
type Diagnostic struct {
	Range   syntax.Range
	Message string

	// Missing is set when the error is a token the parser had to insert.
	Missing bool
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Range.StartPoint.Row+1, d.Range.StartPoint.Column+1, d.Message)
}

// Diagnose lists the ERROR and MISSING nodes of tree in source order. tree
// must have been parsed with l.
func (l *Language) Diagnose(tree *syntax.Tree) []Diagnostic {
	var diags []Diagnostic

	tree.Root().Walk(func(n syntax.Node) bool {
		if !n.IsError() {
			return false
		}

		switch {
		case n.IsMissing():
			diags = append(diags, Diagnostic{
				Range:   n.Range(),
				Message: "expected " + l.describe(n.Symbol(), true),
				Missing: true,
			})
			return false
		case n.IsErrorNode():
			diags = append(diags, Diagnostic{
				Range:   n.Range(),
				Message: l.unexpected(n, tree.Source()),
			})
			return false
		}
		return true
	})

	return diags
}

func (l *Language) unexpected(n syntax.Node, src []byte) string {
	// bad encodings and scanner failures say more than the text does
	var lexErr *lex.LexError
	n.Walk(func(c syntax.Node) bool {
		if lexErr == nil {
			errors.As(c.LexError(), &lexErr)
		}
		return lexErr == nil
	})
	if lexErr != nil && lexErr.Kind != lex.ErrUnexpected {
		return lexErr.Error()
	}

	var msg string
	if s, e := n.ByteRange(); e <= len(src) && e > s {
		msg = fmt.Sprintf("unexpected %q", util.Truncate(string(src[s:e]), 24))
	} else {
		msg = "unexpected input"
	}

	if expected := l.expectedIn(n.Subtree().ParseState()); len(expected) > 0 {
		msg += "; expected " + util.MakeTextList(expected, "or")
	}
	return msg
}

// expectedIn returns the description of every token valid in state.
func (l *Language) expectedIn(state int) []string {
	t := l.table
	if state < 0 || state >= len(t.States) {
		return nil
	}

	var names []string
	for term := 0; term < t.NumTerminals; term++ {
		entry := t.States[state].Entries[term]
		if len(entry.Actions) == 0 || t.Symbols[term].Extra {
			continue
		}
		if entry.Actions[0].Type == lr.Shift && entry.Actions[0].Extra {
			continue
		}
		names = append(names, l.describe(term, false))
	}
	return names
}

// describe names a symbol for messages. Anonymous tokens are quoted.
func (l *Language) describe(sym int, article bool) string {
	if sym == cfg.EndSymbol {
		return "end of input"
	}

	info := l.table.Symbols[sym]
	if info.IsLiteral && !info.Named {
		return fmt.Sprintf("%q", info.Literal)
	}

	name := strings.TrimPrefix(info.Name, "_")
	if article {
		return util.ArticleFor(strings.ToLower(name), false) + " " + name
	}
	return name
}
