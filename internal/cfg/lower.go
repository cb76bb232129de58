package cfg

import (
	"fmt"
	"regexp"

	"github.com/dekarrin/remora/grammar"
)

// alternative is one flattened sequence produced while lowering a rule.
type alternative struct {
	syms     []int
	stepPrec []int
	stepSet  []bool
	prec     int
	assoc    grammar.Assoc
	hasPrec  bool
	dynPrec  int
	hasDyn   bool
}

func (a alternative) concat(b alternative) alternative {
	out := alternative{
		syms:     append(append([]int{}, a.syms...), b.syms...),
		stepPrec: append(append([]int{}, a.stepPrec...), b.stepPrec...),
		stepSet:  append(append([]bool{}, a.stepSet...), b.stepSet...),
		prec:     a.prec,
		assoc:    a.assoc,
		hasPrec:  a.hasPrec,
		dynPrec:  a.dynPrec,
		hasDyn:   a.hasDyn,
	}
	if !out.hasPrec && b.hasPrec {
		out.prec, out.assoc, out.hasPrec = b.prec, b.assoc, true
	}
	if !out.hasDyn && b.hasDyn {
		out.dynPrec, out.hasDyn = b.dynPrec, true
	}
	return out
}

type lowerer struct {
	spec grammar.Spec
	g    *Grammar
	errs *grammar.GrammarError

	// terminals keyed by how they were written; see termKey.
	terminals map[string]int
	auxCount  map[string]int

	// named rules that lower to a single lexical terminal
	lexical map[string]bool

	// pending holds terminals before IDs are final
	termSyms []Symbol
	termKeys []string
}

// Lower converts spec into an augmented context-free grammar. If the spec has
// problems, the returned error is a *grammar.GrammarError listing all of them.
func Lower(spec grammar.Spec) (*Grammar, error) {
	l := &lowerer{
		spec:      spec,
		g:         &Grammar{Name: spec.Name, byName: map[string]int{}, Word: -1},
		errs:      &grammar.GrammarError{},
		terminals: map[string]int{},
		auxCount:  map[string]int{},
		lexical:   map[string]bool{},
	}

	if len(spec.Rules) == 0 {
		l.errs.Add("", "grammar does not define any rules")
		return nil, l.errs
	}

	l.collectTerminals()
	if err := l.errs.OrNil(); err != nil {
		return nil, err
	}

	l.assignSymbols()
	l.lowerRules()
	l.lowerExtras()
	l.resolveWord()
	l.resolveConflicts()

	if err := l.errs.OrNil(); err != nil {
		return nil, err
	}

	l.g.computeSets()
	l.validate()

	if err := l.errs.OrNil(); err != nil {
		return nil, err
	}
	return l.g, nil
}

// isLexicalRule returns whether a named rule's body is a single token.
func isLexicalRule(r grammar.Rule) bool {
	for r.Kind == grammar.KindPrec {
		r = r.Inner()
	}
	switch r.Kind {
	case grammar.KindString, grammar.KindPattern, grammar.KindToken:
		return true
	default:
		return false
	}
}

func termKey(r grammar.Rule) string {
	switch r.Kind {
	case grammar.KindString:
		return "str:" + r.Value
	case grammar.KindPattern:
		return "pat:" + r.Value
	default:
		re, _ := tokenRegex(r)
		return "tok:" + re
	}
}

func (l *lowerer) addTerminal(key string, sym Symbol) {
	if _, ok := l.terminals[key]; ok {
		return
	}
	l.terminals[key] = len(l.termSyms)
	l.termSyms = append(l.termSyms, sym)
	l.termKeys = append(l.termKeys, key)
}

// collectTerminals walks every rule in declaration order and registers the
// terminals they use, so that terminal IDs follow declaration order.
func (l *lowerer) collectTerminals() {
	l.addTerminal("end", Symbol{Name: "end", Kind: Terminal, Visible: false})

	for i, def := range l.spec.Rules {
		if i > 0 && isLexicalRule(def.Rule) {
			l.lexical[def.Name] = true
		}
	}

	externals := map[string]bool{}
	for _, name := range l.spec.Externals {
		if externals[name] {
			l.errs.Add(name, "external token declared more than once")
		}
		externals[name] = true
		if _, ok := l.spec.Rule(name); ok {
			l.errs.Add(name, "defined both as a rule and as an external token")
		}
	}

	var walk func(owner string, r grammar.Rule)
	walk = func(owner string, r grammar.Rule) {
		switch r.Kind {
		case grammar.KindString:
			l.addTerminal(termKey(r), Symbol{
				Name:      r.Value,
				Kind:      Terminal,
				Visible:   true,
				Literal:   r.Value,
				IsLiteral: true,
			})
		case grammar.KindPattern:
			l.addAuxTerminal(owner, r)
		case grammar.KindToken:
			inner := r.Inner()
			for inner.Kind == grammar.KindPrec {
				inner = inner.Inner()
			}
			if inner.Kind == grammar.KindString {
				walk(owner, inner)
				return
			}
			if !inner.IsLexical() {
				l.errs.Add(owner, "token() may only contain strings and patterns")
				return
			}
			l.addAuxTerminal(owner, r)
		default:
			for i := range r.Members {
				walk(owner, r.Members[i])
			}
		}
	}

	for _, def := range l.spec.Rules {
		if l.lexical[def.Name] {
			l.addNamedTerminal(def)
			continue
		}
		walk(def.Name, def.Rule)
	}
	for _, ex := range l.spec.Extras {
		if ex.Kind == grammar.KindSymbol {
			continue
		}
		if !ex.IsLexical() {
			l.errs.Add("", "extras must be patterns, strings or rule references; got %s", ex.String())
			continue
		}
		re, err := tokenRegex(ex)
		if err != nil {
			l.errs.Add("", "extra %s: %v", ex.String(), err)
			continue
		}
		l.g.Skip = append(l.g.Skip, re)
	}
}

func (l *lowerer) addAuxTerminal(owner string, r grammar.Rule) {
	key := termKey(r)
	if _, ok := l.terminals[key]; ok {
		return
	}

	re, err := tokenRegex(r)
	if err != nil {
		l.errs.Add(owner, "%v", err)
		return
	}

	l.auxCount[owner]++
	l.addTerminal(key, Symbol{
		Name:    fmt.Sprintf("%s_token%d", owner, l.auxCount[owner]),
		Kind:    Terminal,
		Aux:     true,
		Pattern: re,
	})
}

func (l *lowerer) addNamedTerminal(def grammar.RuleDef) {
	body := def.Rule
	for body.Kind == grammar.KindPrec {
		body = body.Inner()
	}

	sym := Symbol{
		Name:    def.Name,
		Kind:    Terminal,
		Named:   true,
		Visible: !grammar.IsHidden(def.Name),
	}

	inner := body
	if inner.Kind == grammar.KindToken {
		inner = inner.Inner()
		for inner.Kind == grammar.KindPrec {
			inner = inner.Inner()
		}
		if !inner.IsLexical() {
			l.errs.Add(def.Name, "token() may only contain strings and patterns")
			return
		}
	}

	if inner.Kind == grammar.KindString {
		sym.Literal = inner.Value
		sym.IsLiteral = true
	} else {
		re, err := tokenRegex(inner)
		if err != nil {
			l.errs.Add(def.Name, "%v", err)
			return
		}
		sym.Pattern = re
	}

	l.addTerminal("rule:"+def.Name, sym)
}

// assignSymbols fixes the IDs of every terminal, external and named
// nonterminal. Auxiliary nonterminals are appended while lowering rules.
func (l *lowerer) assignSymbols() {
	g := l.g
	for i, sym := range l.termSyms {
		sym.Origin = i
		g.Symbols = append(g.Symbols, sym)
		if sym.Named || sym.IsLiteral {
			if _, exists := g.byName[sym.Name]; !exists || sym.Named {
				g.byName[sym.Name] = i
			}
		}
	}

	for _, name := range l.spec.Externals {
		id := len(g.Symbols)
		g.Symbols = append(g.Symbols, Symbol{
			Name:    name,
			Kind:    External,
			Named:   true,
			Visible: !grammar.IsHidden(name),
			Origin:  id,
		})
		g.byName[name] = id
		g.Externals = append(g.Externals, id)
	}

	g.NumTerminals = len(g.Symbols)

	for _, def := range l.spec.Rules {
		if l.lexical[def.Name] {
			continue
		}
		if existing, exists := g.byName[def.Name]; exists && g.Symbols[existing].Named {
			l.errs.Add(def.Name, "rule name collides with another symbol")
			continue
		}
		id := len(g.Symbols)
		g.Symbols = append(g.Symbols, Symbol{
			Name:    def.Name,
			Kind:    NonTerminal,
			Named:   true,
			Visible: !grammar.IsHidden(def.Name),
			Origin:  id,
		})
		g.byName[def.Name] = id
	}
}

func (l *lowerer) lowerRules() {
	g := l.g

	// augmented start first so that its production is production 0.
	startName := l.spec.Start() + "'"
	for {
		if _, exists := g.byName[startName]; !exists {
			break
		}
		startName += "'"
	}
	g.Start = len(g.Symbols)
	g.Symbols = append(g.Symbols, Symbol{Name: startName, Kind: NonTerminal, Aux: true, Origin: g.Start})
	g.byName[startName] = g.Start

	startSym := g.byName[l.spec.Start()]
	g.StartProduction = l.addProduction(g.Start, alternative{syms: []int{startSym}, stepPrec: []int{0}, stepSet: []bool{false}})

	for _, def := range l.spec.Rules {
		if l.lexical[def.Name] {
			continue
		}
		lhs, ok := g.byName[def.Name]
		if !ok || g.Symbols[lhs].Kind != NonTerminal {
			continue
		}
		for _, alt := range l.expand(def.Name, lhs, def.Rule) {
			l.addProduction(lhs, alt)
		}
	}
}

func (l *lowerer) addProduction(lhs int, alt alternative) int {
	g := l.g
	for len(g.byLHS) < len(g.Symbols) {
		g.byLHS = append(g.byLHS, nil)
	}

	steps := make([]int, len(alt.syms))
	for i := range alt.syms {
		if i < len(alt.stepSet) && alt.stepSet[i] {
			steps[i] = alt.stepPrec[i]
		} else if alt.hasPrec {
			steps[i] = alt.prec
		}
	}

	idx := len(g.Productions)
	g.Productions = append(g.Productions, Production{
		LHS:      lhs,
		RHS:      alt.syms,
		Prec:     alt.prec,
		Assoc:    alt.assoc,
		HasPrec:  alt.hasPrec,
		StepPrec: steps,
		DynPrec:  alt.dynPrec,
	})
	g.byLHS[lhs] = append(g.byLHS[lhs], idx)
	return idx
}

// expand flattens r into the list of symbol sequences it can match.
func (l *lowerer) expand(owner string, ownerID int, r grammar.Rule) []alternative {
	g := l.g

	switch r.Kind {
	case grammar.KindBlank:
		return []alternative{{}}
	case grammar.KindString, grammar.KindPattern, grammar.KindToken:
		id, ok := l.terminalFor(r)
		if !ok {
			return []alternative{{}}
		}
		return []alternative{single(id)}
	case grammar.KindSymbol:
		id, ok := g.byName[r.Value]
		if !ok || (g.Symbols[id].Kind == Terminal && !g.Symbols[id].Named) {
			l.errs.Add(owner, "references undefined rule %q", r.Value)
			return []alternative{{}}
		}
		return []alternative{single(id)}
	case grammar.KindSeq:
		alts := []alternative{{}}
		for _, m := range r.Members {
			next := l.expand(owner, ownerID, m)
			var combined []alternative
			for _, a := range alts {
				for _, b := range next {
					combined = append(combined, a.concat(b))
				}
			}
			alts = combined
		}
		return alts
	case grammar.KindChoice:
		var alts []alternative
		for _, m := range r.Members {
			alts = append(alts, l.expand(owner, ownerID, m)...)
		}
		return alts
	case grammar.KindRepeat, grammar.KindRepeat1:
		aux := l.addRepeat(owner, ownerID, r.Inner())
		if r.Kind == grammar.KindRepeat {
			return []alternative{single(aux), {}}
		}
		return []alternative{single(aux)}
	case grammar.KindPrec:
		alts := l.expand(owner, ownerID, r.Inner())
		for i := range alts {
			if !alts[i].hasPrec {
				alts[i].prec, alts[i].assoc, alts[i].hasPrec = r.Prec, r.Assoc, true
			}
			for j := range alts[i].stepPrec {
				if !alts[i].stepSet[j] {
					alts[i].stepPrec[j] = r.Prec
					alts[i].stepSet[j] = true
				}
			}
		}
		return alts
	case grammar.KindPrecDynamic:
		alts := l.expand(owner, ownerID, r.Inner())
		for i := range alts {
			if !alts[i].hasDyn {
				alts[i].dynPrec, alts[i].hasDyn = r.Prec, true
			}
		}
		return alts
	default:
		l.errs.Add(owner, "unknown rule kind %s", r.Kind)
		return []alternative{{}}
	}
}

func single(id int) alternative {
	return alternative{syms: []int{id}, stepPrec: []int{0}, stepSet: []bool{false}}
}

func (l *lowerer) terminalFor(r grammar.Rule) (int, bool) {
	if r.Kind == grammar.KindToken {
		inner := r.Inner()
		for inner.Kind == grammar.KindPrec {
			inner = inner.Inner()
		}
		if inner.Kind == grammar.KindString {
			r = inner
		}
	}
	idx, ok := l.terminals[termKey(r)]
	return idx, ok
}

// addRepeat creates a hidden left-recursive nonterminal matching one or more
// of r.
func (l *lowerer) addRepeat(owner string, ownerID int, r grammar.Rule) int {
	g := l.g
	l.auxCount[owner+"/repeat"]++
	id := len(g.Symbols)
	g.Symbols = append(g.Symbols, Symbol{
		Name:   fmt.Sprintf("%s_repeat%d", owner, l.auxCount[owner+"/repeat"]),
		Kind:   NonTerminal,
		Aux:    true,
		Origin: ownerID,
	})
	g.byName[g.Symbols[id].Name] = id

	for _, alt := range l.expand(owner, ownerID, r) {
		l.addProduction(id, alt)
		l.addProduction(id, single(id).concat(alt))
	}
	return id
}

func (l *lowerer) lowerExtras() {
	g := l.g
	for _, ex := range l.spec.Extras {
		if ex.Kind != grammar.KindSymbol {
			continue
		}
		id, ok := g.byName[ex.Value]
		if !ok {
			l.errs.Add(ex.Value, "extra references undefined rule")
			continue
		}
		g.Symbols[id].Extra = true
		if g.Symbols[id].Kind == NonTerminal {
			g.ExtraNonTerminals = append(g.ExtraNonTerminals, id)
		} else {
			g.ExtraTerminals = append(g.ExtraTerminals, id)
		}
	}
}

func (l *lowerer) resolveWord() {
	g := l.g
	if l.spec.Word == "" {
		return
	}
	id, ok := g.byName[l.spec.Word]
	if !ok || g.Symbols[id].Kind != Terminal || g.Symbols[id].IsLiteral {
		l.errs.Add(l.spec.Word, "word token must be a rule defined by a single pattern token")
		return
	}
	g.Word = id

	wordRe, err := regexp.Compile(`^(?:` + g.Symbols[id].Pattern + `)$`)
	if err != nil {
		l.errs.Add(l.spec.Word, "invalid word pattern: %v", err)
		return
	}
	for i := 1; i < g.NumTerminals; i++ {
		sym := &g.Symbols[i]
		if sym.Kind == Terminal && sym.IsLiteral && wordRe.MatchString(sym.Literal) {
			sym.Keyword = true
		}
	}
}

func (l *lowerer) resolveConflicts() {
	g := l.g
	for _, group := range l.spec.Conflicts {
		var set SymbolSet
		for _, name := range group {
			id, ok := g.byName[name]
			if !ok || g.Symbols[id].Kind != NonTerminal {
				l.errs.Add(name, "conflict group names a rule that is not a nonterminal")
				continue
			}
			set.Add(id)
		}
		g.Conflicts = append(g.Conflicts, set)
	}
}

// validate checks the lowered grammar for unreachable rules and rules that can
// derive themselves without consuming any input.
func (l *lowerer) validate() {
	g := l.g

	reachable := make([]bool, len(g.Symbols))
	var visit func(int)
	visit = func(id int) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		for _, p := range g.ProductionsOf(id) {
			for _, sym := range g.Productions[p].RHS {
				visit(sym)
			}
		}
	}
	visit(g.Start)
	for _, id := range g.ExtraNonTerminals {
		visit(id)
	}
	for _, id := range g.ExtraTerminals {
		reachable[id] = true
	}
	if g.Word >= 0 {
		reachable[g.Word] = true
	}

	for id, sym := range g.Symbols {
		if sym.Aux || !sym.Named || sym.Kind == External || reachable[id] {
			continue
		}
		l.errs.Add(sym.Name, "unreachable from start rule %q", l.spec.Start())
	}

	// unit graph: A -> B when A can derive B alone
	units := make([][]int, len(g.Symbols))
	for _, prod := range g.Productions {
		for i, sym := range prod.RHS {
			if g.IsTerminal(sym) {
				continue
			}
			others := true
			for j, o := range prod.RHS {
				if j != i && !g.nullable[o] {
					others = false
					break
				}
			}
			if others {
				units[prod.LHS] = append(units[prod.LHS], sym)
			}
		}
	}

	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.Symbols))
	reported := map[int]bool{}
	var dfs func(int)
	dfs = func(id int) {
		color[id] = grey
		for _, next := range units[id] {
			if color[next] == grey {
				owner := g.Symbols[g.Symbols[next].Origin].Name
				if !reported[next] {
					reported[next] = true
					l.errs.Add(owner, "can derive itself without consuming any input")
				}
				continue
			}
			if color[next] == white {
				dfs(next)
			}
		}
		color[id] = black
	}
	for id := g.NumTerminals; id < len(g.Symbols); id++ {
		if color[id] == white {
			dfs(id)
		}
	}
}
