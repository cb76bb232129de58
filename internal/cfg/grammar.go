// Package cfg lowers a grammar specification into a flat context-free grammar
// whose productions are plain sequences of symbol IDs, ready for LR automaton
// construction.
package cfg

import (
	"fmt"
	"strings"

	"github.com/dekarrin/remora/grammar"
)

// SymbolKind is what sort of grammar symbol a Symbol is.
type SymbolKind int

const (
	// Terminal is a symbol lexed by the table-driven lexer.
	Terminal SymbolKind = iota

	// External is a terminal lexed by an external scanner.
	External

	// NonTerminal is a symbol produced by reducing a production.
	NonTerminal
)

func (k SymbolKind) String() string {
	switch k {
	case Terminal:
		return "terminal"
	case External:
		return "external"
	case NonTerminal:
		return "nonterminal"
	default:
		return fmt.Sprintf("SymbolKind(%d)", int(k))
	}
}

// EndSymbol is the ID of the end-of-input symbol "$".
const EndSymbol = 0

// Symbol is a single symbol of the grammar.
type Symbol struct {
	Name string
	Kind SymbolKind

	// Named is whether the symbol comes from a named rule rather than an
	// inline string.
	Named bool

	// Visible is whether nodes of the symbol show up in the syntax tree's
	// child lists.
	Visible bool

	// Extra is whether the symbol may appear between any two tokens.
	Extra bool

	// Aux is whether the symbol was generated during lowering rather than
	// written in the grammar.
	Aux bool

	// Origin is the ID of the named rule an auxiliary symbol was generated for.
	// For other symbols it is the symbol's own ID.
	Origin int

	// Literal is the exact text of a string terminal.
	Literal string

	// Pattern is the regular expression of a pattern terminal.
	Pattern string

	// IsLiteral is whether the terminal is matched by Literal rather than
	// Pattern.
	IsLiteral bool

	// Keyword is whether the terminal is lexed through the word token.
	Keyword bool
}

// Production is a single alternative of a nonterminal.
type Production struct {
	LHS int
	RHS []int

	// Prec and Assoc are the precedence annotation of the production. HasPrec
	// is false when the production has no annotation at all.
	Prec    int
	Assoc   grammar.Assoc
	HasPrec bool

	// StepPrec holds the precedence in effect at each position of RHS. It is
	// used to find the precedence of shifting the symbol at that position.
	StepPrec []int

	// DynPrec is the dynamic precedence of the production.
	DynPrec int
}

// Grammar is a lowered, augmented context-free grammar.
type Grammar struct {
	Name        string
	Symbols     []Symbol
	Productions []Production

	// NumTerminals is the number of terminal symbols (including externals and
	// the end symbol). Terminal IDs are all below this; nonterminal IDs are at
	// or above it.
	NumTerminals int

	// Start is the ID of the augmented start symbol, and StartProduction the
	// production Start -> S.
	Start           int
	StartProduction int

	// Word is the ID of the word token, or -1 if there is none.
	Word int

	// Externals holds the IDs of the external symbols in scanner order.
	Externals []int

	// Skip holds the regular expressions of the anonymous extras that the
	// lexer discards.
	Skip []string

	// ExtraTerminals and ExtraNonTerminals hold the named extras.
	ExtraTerminals    []int
	ExtraNonTerminals []int

	// Conflicts holds the declared conflict groups as sets of named rule IDs.
	Conflicts []SymbolSet

	byName   map[string]int
	byLHS    [][]int
	nullable []bool
	first    []SymbolSet
}

// Lookup returns the ID of the symbol with the given name.
func (g *Grammar) Lookup(name string) (int, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// IsTerminal returns whether id is a terminal (or external) symbol.
func (g *Grammar) IsTerminal(id int) bool {
	return id < g.NumTerminals
}

// ProductionsOf returns the indexes of every production with the given
// nonterminal on its left-hand side.
func (g *Grammar) ProductionsOf(nt int) []int {
	if nt < 0 || nt >= len(g.byLHS) {
		return nil
	}
	return g.byLHS[nt]
}

// Nullable returns whether symbol id can derive the empty string.
func (g *Grammar) Nullable(id int) bool {
	return g.nullable[id]
}

// First returns FIRST(id), the set of terminals that can begin a string
// derived from id. The returned set must not be modified.
func (g *Grammar) First(id int) SymbolSet {
	return g.first[id]
}

// FirstOfSeq returns FIRST of the given sequence of symbols followed by the
// lookahead set la.
func (g *Grammar) FirstOfSeq(seq []int, la SymbolSet) SymbolSet {
	var out SymbolSet
	for _, sym := range seq {
		out.AddAll(g.first[sym])
		if !g.nullable[sym] {
			return out
		}
	}
	out.AddAll(la)
	return out
}

// SymbolName returns the name of symbol id.
func (g *Grammar) SymbolName(id int) string {
	if id < 0 || id >= len(g.Symbols) {
		return fmt.Sprintf("<sym %d>", id)
	}
	return g.Symbols[id].Name
}

// ProductionString returns the production in "A -> b c" form.
func (g *Grammar) ProductionString(p int) string {
	prod := g.Productions[p]
	var sb strings.Builder
	sb.WriteString(g.SymbolName(prod.LHS))
	sb.WriteString(" ->")
	if len(prod.RHS) == 0 {
		sb.WriteString(" ε")
	}
	for _, sym := range prod.RHS {
		sb.WriteRune(' ')
		sb.WriteString(displayName(g.Symbols[sym]))
	}
	return sb.String()
}

func displayName(s Symbol) string {
	if s.Kind != NonTerminal && !s.Named && s.IsLiteral {
		return fmt.Sprintf("%q", s.Literal)
	}
	return s.Name
}

// String returns a listing of every production of the grammar.
func (g *Grammar) String() string {
	var sb strings.Builder
	for i := range g.Productions {
		sb.WriteString(g.ProductionString(i))
		if i+1 < len(g.Productions) {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

func (g *Grammar) computeSets() {
	n := len(g.Symbols)
	g.nullable = make([]bool, n)
	g.first = make([]SymbolSet, n)

	for id := 0; id < g.NumTerminals; id++ {
		g.first[id] = NewSymbolSet(id)
	}

	changed := true
	for changed {
		changed = false
		for _, prod := range g.Productions {
			allNullable := true
			for _, sym := range prod.RHS {
				if g.first[prod.LHS].AddAll(g.first[sym]) {
					changed = true
				}
				if !g.nullable[sym] {
					allNullable = false
					break
				}
			}
			if allNullable && !g.nullable[prod.LHS] {
				g.nullable[prod.LHS] = true
				changed = true
			}
		}
	}
}
