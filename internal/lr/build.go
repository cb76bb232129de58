package lr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/remora/grammar"
	"github.com/dekarrin/remora/internal/cfg"
)

type buildState struct {
	kernel []Item
	la     itemSet
	trans  map[int]int

	// extra is set for states of a nonterminal extra's sub-automaton.
	extra bool
}

type builder struct {
	g       *cfg.Grammar
	states  []*buildState
	byCore  map[string]int
	work    []int
	queued  map[int]bool
	allTerm cfg.SymbolSet
	errs    *grammar.GrammarError
}

// Build constructs the LALR(1) automaton for g.
//
// States are built from LR(1) closure and goto computations, but a state is
// identified by its LR(0) core: when goto produces a kernel whose core already
// exists, its lookaheads are merged into the existing state and, if they grew,
// the state is processed again so the new lookaheads propagate to its
// successors. At the fixpoint this gives the same states and lookaheads as
// building the canonical LR(1) collection and merging states with identical
// cores.
//
// Returns a *grammar.GrammarError if any conflict cannot be resolved.
func Build(g *cfg.Grammar) (*Table, error) {
	b := &builder{
		g:      g,
		byCore: map[string]int{},
		queued: map[int]bool{},
		errs:   &grammar.GrammarError{},
	}
	for t := 0; t < g.NumTerminals; t++ {
		b.allTerm.Add(t)
	}

	startItem := Item{Prod: g.StartProduction, Dot: 0}
	b.addState([]Item{startItem}, itemSet{startItem: ptr(cfg.NewSymbolSet(cfg.EndSymbol))}, false)
	b.run()

	extraStarts := map[int]int{}
	for _, e := range g.ExtraNonTerminals {
		var kernel []Item
		la := itemSet{}
		for _, p := range g.ProductionsOf(e) {
			it := Item{Prod: p, Dot: 0}
			kernel = append(kernel, it)
			la.add(it, b.allTerm)
		}
		extraStarts[e] = b.addState(kernel, la, true)
	}
	b.run()

	table := b.table(extraStarts)
	if err := b.errs.OrNil(); err != nil {
		return nil, err
	}
	return table, nil
}

func ptr(s cfg.SymbolSet) *cfg.SymbolSet {
	return &s
}

// addState adds the state with the given kernel or merges la into the
// existing state with the same core. Returns the state's index.
func (b *builder) addState(kernel []Item, la itemSet, extra bool) int {
	sortItems(kernel)
	key := coreKey(kernel)

	if id, ok := b.byCore[key]; ok {
		st := b.states[id]
		grew := false
		for it, set := range la {
			if st.la.add(it, *set) {
				grew = true
			}
		}
		if extra && !st.extra {
			st.extra = true
			grew = true
		}
		if grew {
			b.enqueue(id)
		}
		return id
	}

	id := len(b.states)
	b.states = append(b.states, &buildState{
		kernel: kernel,
		la:     la,
		trans:  map[int]int{},
		extra:  extra,
	})
	b.byCore[key] = id
	b.enqueue(id)
	return id
}

func (b *builder) enqueue(id int) {
	if b.queued[id] {
		return
	}
	b.queued[id] = true
	b.work = append(b.work, id)
}

func (b *builder) run() {
	for len(b.work) > 0 {
		id := b.work[0]
		b.work = b.work[1:]
		b.queued[id] = false

		st := b.states[id]
		closure := b.closure(st)

		// group advanced items by the symbol after the dot
		advanced := map[int]itemSet{}
		var order []int
		for _, it := range closure.sortedItems() {
			sym := it.next(b.g)
			if sym < 0 {
				continue
			}
			if _, ok := advanced[sym]; !ok {
				advanced[sym] = itemSet{}
				order = append(order, sym)
			}
			advanced[sym].add(Item{Prod: it.Prod, Dot: it.Dot + 1}, *closure[it])
		}

		for _, sym := range order {
			set := advanced[sym]
			kernel := set.sortedItems()
			target := b.addState(kernel, set, st.extra)
			st.trans[sym] = target
		}
	}
}

// closure computes CLOSURE of a state's kernel with LR(1) lookaheads.
func (b *builder) closure(st *buildState) itemSet {
	g := b.g
	items := itemSet{}
	var queue []Item
	for _, it := range st.kernel {
		items.add(it, *st.la[it])
		queue = append(queue, it)
	}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		nt := it.next(g)
		if nt < 0 || g.IsTerminal(nt) {
			continue
		}

		beta := g.Productions[it.Prod].RHS[it.Dot+1:]
		la := g.FirstOfSeq(beta, *items[it])
		for _, p := range g.ProductionsOf(nt) {
			ni := Item{Prod: p, Dot: 0}
			if items.add(ni, la) {
				queue = append(queue, ni)
			}
		}
	}

	return items
}

func (b *builder) table(extraStarts map[int]int) *Table {
	g := b.g
	t := &Table{
		Name:         g.Name,
		NumTerminals: g.NumTerminals,
		Word:         g.Word,
		Skip:         g.Skip,
		Externals:    g.Externals,
	}

	for _, sym := range g.Symbols {
		t.Symbols = append(t.Symbols, SymbolInfo{
			Name:      sym.Name,
			Kind:      sym.Kind,
			Named:     sym.Named,
			Visible:   sym.Visible,
			Extra:     sym.Extra,
			Aux:       sym.Aux,
			Literal:   sym.Literal,
			Pattern:   sym.Pattern,
			IsLiteral: sym.IsLiteral,
			Keyword:   sym.Keyword,
		})
	}
	for _, prod := range g.Productions {
		t.Productions = append(t.Productions, ProductionInfo{LHS: prod.LHS, RHS: prod.RHS, DynPrec: prod.DynPrec})
	}

	for id, st := range b.states {
		closure := b.closure(st)

		shiftItems := map[int][]Item{}
		reduces := map[int][]int{}
		accept := false

		for _, it := range closure.sortedItems() {
			sym := it.next(g)
			if sym >= 0 {
				if g.IsTerminal(sym) {
					shiftItems[sym] = append(shiftItems[sym], it)
				}
				continue
			}
			if it.Prod == g.StartProduction {
				accept = true
				continue
			}
			for _, la := range closure[it].Elements() {
				reduces[la] = append(reduces[la], it.Prod)
			}
		}

		state := State{
			Entries: make([]Entry, g.NumTerminals),
			Gotos:   map[int]int{},
		}
		for term := 0; term < g.NumTerminals; term++ {
			shiftTo := -1
			if len(shiftItems[term]) > 0 {
				shiftTo = st.trans[term]
			}
			state.Entries[term] = b.resolve(id, term, shiftTo, shiftItems[term], reduces[term])
		}
		if accept {
			state.Entries[cfg.EndSymbol] = Entry{Actions: []Action{{Type: Accept}}}
		}
		for sym, next := range st.trans {
			if !g.IsTerminal(sym) {
				state.Gotos[sym] = next
			}
		}

		t.States = append(t.States, state)
	}

	// extras may appear between any two tokens outside of an extra
	for id, st := range b.states {
		if st.extra {
			continue
		}
		state := &t.States[id]
		for _, e := range g.ExtraTerminals {
			if len(state.Entries[e].Actions) == 0 {
				state.Entries[e] = Entry{Actions: []Action{{Type: Shift, State: id, Extra: true}}}
			}
		}
		for _, e := range g.ExtraNonTerminals {
			start := t.States[extraStarts[e]]
			for term, entry := range start.Entries {
				if len(entry.Actions) == 0 || entry.Actions[0].Type != Shift {
					continue
				}
				if len(state.Entries[term].Actions) == 0 {
					state.Entries[term] = Entry{Actions: []Action{entry.Actions[0]}}
				}
			}
			if _, ok := state.Gotos[e]; !ok {
				state.Gotos[e] = id
			}
		}
	}

	b.assignLexModes(t)
	return t
}

func (b *builder) assignLexModes(t *Table) {
	modes := map[string]int{}
	for id := range t.States {
		var set cfg.SymbolSet
		for term, entry := range t.States[id].Entries {
			if len(entry.Actions) > 0 {
				set.Add(term)
			}
		}
		key := set.Key()
		mode, ok := modes[key]
		if !ok {
			mode = len(t.LexModes)
			modes[key] = mode
			t.LexModes = append(t.LexModes, b.lexMode(set))
		}
		t.States[id].LexMode = mode
	}

	t.ErrorLexMode = len(t.LexModes)
	t.LexModes = append(t.LexModes, b.lexMode(b.allTerm))
}

func (b *builder) lexMode(set cfg.SymbolSet) LexMode {
	mode := LexMode{Terminals: set.Elements()}
	for _, term := range mode.Terminals {
		if b.g.Symbols[term].Kind == cfg.External {
			mode.External = true
		}
	}
	return mode
}

// resolve decides the entry for one (state, terminal) pair. In order: reduce
// candidates are filtered by precedence, a remaining shift/reduce pair is
// decided by precedence and then associativity, and anything still ambiguous
// is kept for the runtime if every rule involved is in one declared conflict
// group. Otherwise the conflict is recorded as a grammar error.
func (b *builder) resolve(state, term, shiftTo int, shiftItems []Item, reduces []int) Entry {
	g := b.g
	sort.Ints(reduces)

	if len(reduces) == 0 {
		if shiftTo < 0 {
			return Entry{}
		}
		return Entry{Actions: []Action{{Type: Shift, State: shiftTo}}}
	}
	if shiftTo < 0 && len(reduces) == 1 {
		return Entry{Actions: []Action{{Type: Reduce, Production: reduces[0]}}}
	}

	fragile := false

	// reduce/reduce: keep only the highest precedence productions
	if len(reduces) > 1 {
		best := g.Productions[reduces[0]].Prec
		for _, p := range reduces[1:] {
			if g.Productions[p].Prec > best {
				best = g.Productions[p].Prec
			}
		}
		var kept []int
		for _, p := range reduces {
			if g.Productions[p].Prec == best {
				kept = append(kept, p)
			}
		}
		if len(kept) < len(reduces) {
			fragile = true
		}
		reduces = kept
	}

	if shiftTo >= 0 && len(reduces) == 1 {
		prod := g.Productions[reduces[0]]
		shiftPrec := b.shiftPrec(shiftItems)

		switch {
		case prod.Prec > shiftPrec:
			return Entry{Actions: []Action{{Type: Reduce, Production: reduces[0]}}, Fragile: true}
		case prod.Prec < shiftPrec:
			return Entry{Actions: []Action{{Type: Shift, State: shiftTo}}, Fragile: true}
		case prod.HasPrec && prod.Assoc == grammar.AssocLeft:
			return Entry{Actions: []Action{{Type: Reduce, Production: reduces[0]}}, Fragile: true}
		case prod.HasPrec && prod.Assoc == grammar.AssocRight:
			return Entry{Actions: []Action{{Type: Shift, State: shiftTo}}, Fragile: true}
		}
	} else if shiftTo < 0 && len(reduces) == 1 {
		return Entry{Actions: []Action{{Type: Reduce, Production: reduces[0]}}, Fragile: fragile}
	}

	// still ambiguous; only allowed when declared
	var involved cfg.SymbolSet
	for _, p := range reduces {
		involved.Add(g.Symbols[g.Productions[p].LHS].Origin)
	}
	for _, it := range shiftItems {
		involved.Add(g.Symbols[g.Productions[it.Prod].LHS].Origin)
	}

	for _, group := range g.Conflicts {
		covered := true
		for _, sym := range involved.Elements() {
			if !group.Has(sym) {
				covered = false
				break
			}
		}
		if !covered {
			continue
		}

		var actions []Action
		if shiftTo >= 0 {
			actions = append(actions, Action{Type: Shift, State: shiftTo})
		}
		for _, p := range reduces {
			actions = append(actions, Action{Type: Reduce, Production: p})
		}
		return Entry{Actions: actions, Fragile: true}
	}

	b.errs.Add(g.SymbolName(g.Symbols[g.Productions[reduces[0]].LHS].Origin), "%s", b.describeConflict(state, term, shiftItems, reduces))

	// keep going so every conflict gets reported
	if shiftTo >= 0 {
		return Entry{Actions: []Action{{Type: Shift, State: shiftTo}}}
	}
	return Entry{Actions: []Action{{Type: Reduce, Production: reduces[0]}}}
}

func (b *builder) shiftPrec(items []Item) int {
	prec := 0
	for i, it := range items {
		p := b.g.Productions[it.Prod].StepPrec[it.Dot]
		if i == 0 || p > prec {
			prec = p
		}
	}
	return prec
}

func (b *builder) describeConflict(state, term int, shiftItems []Item, reduces []int) string {
	g := b.g
	var sb strings.Builder
	kind := "reduce/reduce"
	if len(shiftItems) > 0 {
		kind = "shift/reduce"
	}
	sb.WriteString(fmt.Sprintf("unresolved %s conflict in state %d on %s between:", kind, state, displaySym(g, term)))
	for _, it := range shiftItems {
		sb.WriteString(fmt.Sprintf("\n    shift  %s", it.Format(g)))
	}
	for _, p := range reduces {
		sb.WriteString(fmt.Sprintf("\n    reduce %s", g.ProductionString(p)))
	}
	sb.WriteString("\n    (add a precedence or associativity annotation, or declare the rules as a conflict)")
	return sb.String()
}
