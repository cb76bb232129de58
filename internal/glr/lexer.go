package glr

import (
	"github.com/dekarrin/remora/internal/cfg"
	"github.com/dekarrin/remora/internal/lr"
	"github.com/dekarrin/remora/lex"
)

// LexerFor builds the lexer for the terminals and lex modes of t.
func LexerFor(t *lr.Table) (*lex.Lexer, error) {
	terms := make([]lex.Terminal, t.NumTerminals)
	for sym := 0; sym < t.NumTerminals; sym++ {
		info := t.Symbols[sym]
		terms[sym] = lex.Terminal{
			Symbol:    sym,
			Name:      info.Name,
			Literal:   info.Literal,
			Pattern:   info.Pattern,
			IsLiteral: info.IsLiteral,
			Keyword:   info.Keyword,
			External:  info.Kind == cfg.External,
		}
	}

	modes := make([][]int, len(t.LexModes))
	for i, m := range t.LexModes {
		modes[i] = m.Terminals
	}

	return lex.New(terms, modes, t.Skip, t.Word, t.Externals)
}
