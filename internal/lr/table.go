// Package lr builds LALR(1) parse tables from a lowered grammar. Conflicts are
// resolved at build time with precedence and associativity; conflicts between
// rules that the grammar declares as expected are kept as multi-action cells
// for the runtime to fork on.
package lr

import (
	"fmt"
	"strings"

	"github.com/dekarrin/rosed"
	"github.com/dekarrin/remora/internal/cfg"
)

// ActionType is the type of an Action.
type ActionType int

const (
	Shift ActionType = iota
	Reduce
	Accept
)

func (at ActionType) String() string {
	switch at {
	case Shift:
		return "shift"
	case Reduce:
		return "reduce"
	case Accept:
		return "accept"
	default:
		return fmt.Sprintf("ActionType(%d)", int(at))
	}
}

// Action is one entry of the ACTION table.
type Action struct {
	Type ActionType

	// State is the state to go to after a shift. For an extra shift it is the
	// current state.
	State int

	// Extra is whether a shift pushes an extra token that leaves the state
	// unchanged.
	Extra bool

	// Production is the production reduced by a reduce action.
	Production int
}

func (act Action) String() string {
	switch act.Type {
	case Shift:
		if act.Extra {
			return "ACTION<shift-extra>"
		}
		return fmt.Sprintf("ACTION<shift %d>", act.State)
	case Reduce:
		return fmt.Sprintf("ACTION<reduce %d>", act.Production)
	case Accept:
		return "ACTION<accept>"
	default:
		return "ACTION<unknown>"
	}
}

// Entry is the set of actions for one (state, terminal) pair. The first action
// is the preferred one; more than one action means the runtime must fork.
type Entry struct {
	Actions []Action

	// Fragile is set when the entry was decided by precedence, associativity
	// or a declared conflict. Nodes built through fragile entries depend on
	// their surroundings and are not reused by incremental parsing.
	Fragile bool
}

// SymbolInfo is the run-time metadata of a grammar symbol.
type SymbolInfo struct {
	Name      string
	Kind      cfg.SymbolKind
	Named     bool
	Visible   bool
	Extra     bool
	Aux       bool
	Literal   string
	Pattern   string
	IsLiteral bool
	Keyword   bool
}

// ProductionInfo is the run-time metadata of a production.
type ProductionInfo struct {
	LHS     int
	RHS     []int
	DynPrec int
}

// LexMode is the set of terminals valid in a state.
type LexMode struct {
	Terminals []int

	// External is whether any external token is valid.
	External bool
}

// State is one state of the automaton.
type State struct {
	// Entries is indexed by terminal ID.
	Entries []Entry

	// Gotos maps nonterminal IDs to states.
	Gotos map[int]int

	// LexMode is the index of the state's lex mode in Table.LexModes.
	LexMode int
}

// Table is a compiled, immutable LALR(1) automaton together with everything
// the lexer and parser need at run time. It is safe for concurrent use.
type Table struct {
	Name         string
	Symbols      []SymbolInfo
	Productions  []ProductionInfo
	States       []State
	LexModes     []LexMode
	NumTerminals int

	// ErrorLexMode is a lex mode that accepts every terminal. It is used while
	// skipping input during error recovery.
	ErrorLexMode int

	Word      int
	Skip      []string
	Externals []int
}

// Initial returns the initial state.
func (t *Table) Initial() int {
	return 0
}

// Actions returns the entry for state and terminal sym.
func (t *Table) Actions(state, sym int) Entry {
	if state < 0 || state >= len(t.States) || sym < 0 || sym >= t.NumTerminals {
		return Entry{}
	}
	return t.States[state].Entries[sym]
}

// Goto returns the state reached from state on nonterminal sym.
func (t *Table) Goto(state, sym int) (int, bool) {
	if state < 0 || state >= len(t.States) {
		return 0, false
	}
	next, ok := t.States[state].Gotos[sym]
	return next, ok
}

// LexModeOf returns the lex mode of state.
func (t *Table) LexModeOf(state int) int {
	if state < 0 || state >= len(t.States) {
		return t.ErrorLexMode
	}
	return t.States[state].LexMode
}

// IsTerminal returns whether sym is a terminal.
func (t *Table) IsTerminal(sym int) bool {
	return sym >= 0 && sym < t.NumTerminals
}

// SymbolName returns the name of sym.
func (t *Table) SymbolName(sym int) string {
	if sym < 0 || sym >= len(t.Symbols) {
		return fmt.Sprintf("<sym %d>", sym)
	}
	return t.Symbols[sym].Name
}

// ProductionString returns production p in "A -> b c" form.
func (t *Table) ProductionString(p int) string {
	prod := t.Productions[p]
	var sb strings.Builder
	sb.WriteString(t.SymbolName(prod.LHS))
	sb.WriteString(" ->")
	if len(prod.RHS) == 0 {
		sb.WriteString(" ε")
	}
	for _, sym := range prod.RHS {
		sb.WriteRune(' ')
		sb.WriteString(t.displayName(sym))
	}
	return sb.String()
}

func (t *Table) displayName(sym int) string {
	info := t.Symbols[sym]
	if info.IsLiteral && !info.Named {
		return fmt.Sprintf("%q", info.Literal)
	}
	if sym == cfg.EndSymbol {
		return "$"
	}
	return info.Name
}

// String returns the ACTION/GOTO grid of the table. Two tables that produce
// the same String() output behave identically.
func (t *Table) String() string {
	var nonTerms []int
	for sym := t.NumTerminals; sym < len(t.Symbols); sym++ {
		nonTerms = append(nonTerms, sym)
	}

	headers := []string{"S", "|"}
	for term := 0; term < t.NumTerminals; term++ {
		headers = append(headers, fmt.Sprintf("A:%s", t.displayName(term)))
	}
	headers = append(headers, "|")
	for _, nt := range nonTerms {
		headers = append(headers, fmt.Sprintf("G:%s", t.displayName(nt)))
	}

	data := [][]string{headers}
	for i, st := range t.States {
		row := []string{fmt.Sprintf("%d", i), "|"}
		for term := 0; term < t.NumTerminals; term++ {
			var cells []string
			for _, act := range st.Entries[term].Actions {
				switch act.Type {
				case Accept:
					cells = append(cells, "acc")
				case Shift:
					if act.Extra {
						cells = append(cells, "sx")
					} else {
						cells = append(cells, fmt.Sprintf("s%d", act.State))
					}
				case Reduce:
					cells = append(cells, fmt.Sprintf("r%d", act.Production))
				}
			}
			row = append(row, strings.Join(cells, "/"))
		}
		row = append(row, "|")
		for _, nt := range nonTerms {
			cell := ""
			if next, ok := st.Gotos[nt]; ok {
				cell = fmt.Sprintf("%d", next)
			}
			row = append(row, cell)
		}
		data = append(data, row)
	}

	return rosed.Edit("").
		InsertTableOpts(0, data, 10, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}
