// Package glr runs compiled automata over source text. It is an LR parser
// that forks into several stack versions where the automaton holds more than
// one action, recovers from syntax errors by inserting missing tokens or
// skipping input, and reuses unchanged subtrees of a previous tree when
// re-parsing after an edit.
package glr

import (
	"bytes"
	"fmt"

	"github.com/dekarrin/remora/internal/lr"
	"github.com/dekarrin/remora/lex"
	"github.com/dekarrin/remora/syntax"
)

const (
	DefaultMaxVersions = 6
	DefaultHorizon     = 8
)

// maxSteps bounds the actions one version may take without consuming input.
const maxSteps = 100000

// Stats describes the work done by one parse.
type Stats struct {
	TokensLexed int
	NodesReused int
	MaxVersions int
}

// Parser parses source with one automaton. It holds no per-parse state and is
// safe for concurrent use.
type Parser struct {
	table      *lr.Table
	lexer      *lex.Lexer
	newScanner func() lex.Scanner
	names      syntax.SymbolNamer

	// defaultReduce holds, per state, the production reduced regardless of
	// the lookahead, or -1.
	defaultReduce []int

	// MaxVersions is the most stack versions kept alive at once.
	MaxVersions int

	// Horizon is how many tokens several versions may run side by side
	// before all but the best one are dropped.
	Horizon int

	trace func(s string)
}

// New creates a Parser. newScanner may be nil if the language has no external
// scanner. names is recorded in the trees the parser builds.
func New(table *lr.Table, lexer *lex.Lexer, newScanner func() lex.Scanner, names syntax.SymbolNamer) *Parser {
	p := &Parser{
		table:       table,
		lexer:       lexer,
		newScanner:  newScanner,
		names:       names,
		MaxVersions: DefaultMaxVersions,
		Horizon:     DefaultHorizon,
	}

	p.defaultReduce = make([]int, len(table.States))
	for id, st := range table.States {
		p.defaultReduce[id] = -1
		prod := -1
		all := true
		for term := 0; term < table.NumTerminals; term++ {
			acts := st.Entries[term].Actions
			if len(acts) != 1 || acts[0].Type != lr.Reduce || (prod >= 0 && acts[0].Production != prod) {
				all = false
				break
			}
			prod = acts[0].Production
		}
		if all && prod >= 0 {
			p.defaultReduce[id] = prod
		}
	}

	return p
}

// RegisterTraceListener sets a function to be called with a description of
// every step the parser takes. Pass nil to stop tracing.
func (p *Parser) RegisterTraceListener(listener func(s string)) {
	p.trace = listener
}

func (p *Parser) notifyTraceFn(fn func() string) {
	if p.trace != nil {
		p.trace(fn())
	}
}

func (p *Parser) notifyTrace(fmtStr string, args ...interface{}) {
	p.notifyTraceFn(func() string { return fmt.Sprintf(fmtStr, args...) })
}

// version is one alternative interpretation of the input.
type version struct {
	top *stackNode

	// la is the lookahead token, or nil if none has been read at top.pos.
	la *syntax.Subtree

	// pending is a lookahead held back while a missing token is shifted
	// before it.
	pending *syntax.Subtree

	// missingAt is the byte position of the last missing token inserted.
	missingAt int

	order    int
	halted   bool
	accepted *syntax.Subtree
}

func (v *version) active() bool {
	return !v.halted && v.accepted == nil
}

func (v *version) fork(order int) *version {
	c := *v
	c.order = order
	return &c
}

// better returns whether a is preferred over b: fewer errors, then higher
// dynamic precedence, then the version that was created first.
func better(a, b *version) bool {
	ac, bc := a.errorCost(), b.errorCost()
	if ac != bc {
		return ac < bc
	}
	ad, bd := a.dynPrec(), b.dynPrec()
	if ad != bd {
		return ad > bd
	}
	return a.order < b.order
}

func (v *version) errorCost() int {
	if v.accepted != nil {
		return v.accepted.ErrorCost()
	}
	return v.top.errorCost
}

func (v *version) dynPrec() int {
	if v.accepted != nil {
		return v.accepted.DynPrec()
	}
	return v.top.dynPrec
}

type lexKey struct {
	pos  int
	mode int
	scan string
}

// run is the state of a single parse.
type run struct {
	p        *Parser
	src      []byte
	sc       lex.Scanner
	versions []*version
	reuse    *reuseCursor
	order    int
	forked   int
	stats    Stats
	lexCache map[lexKey]*syntax.Subtree
	cachePos int
}

// Parse parses src. If old is not nil, unchanged subtrees of it are reused;
// old must describe src, usually as the result of syntax.Tree.Edit. Parse
// always returns a tree: syntax errors are represented in the tree.
func (p *Parser) Parse(src []byte, old *syntax.Tree) (*syntax.Tree, Stats) {
	r := &run{
		p:        p,
		src:      src,
		lexCache: map[lexKey]*syntax.Subtree{},
	}
	if p.newScanner != nil {
		r.sc = p.newScanner()
	}
	if old != nil {
		r.reuse = newReuseCursor(old.RootSubtree())
	}

	r.versions = []*version{{top: newStack(p.table.Initial()), missingAt: -1}}
	r.stats.MaxVersions = 1

	for {
		minPos := -1
		for _, v := range r.versions {
			if v.active() && (minPos < 0 || v.top.pos.Bytes < minPos) {
				minPos = v.top.pos.Bytes
			}
		}
		if minPos < 0 {
			break
		}
		if minPos > r.cachePos {
			r.lexCache = map[lexKey]*syntax.Subtree{}
			r.cachePos = minPos
		}

		for i := 0; i < len(r.versions); i++ {
			v := r.versions[i]
			if v.active() && v.top.pos.Bytes == minPos {
				r.advance(v, minPos)
			}
		}
		r.condense()
	}

	var best *version
	for _, v := range r.versions {
		if v.accepted != nil && (best == nil || better(v, best)) {
			best = v
		}
	}

	var root *syntax.Subtree
	if best != nil {
		root = best.accepted
	} else {
		root = r.fallbackRoot()
	}
	p.notifyTrace("accepted tree with error cost %d", root.ErrorCost())
	return syntax.NewTree(root, p.names, src), r.stats
}

// fallbackRoot returns a tree that covers the whole source with a single
// error. It is only used if every version was halted without recovering.
func (r *run) fallbackRoot() *syntax.Subtree {
	whole := syntax.NewLeaf(syntax.LeafInfo{
		Symbol:     syntax.ErrorSymbol,
		Size:       syntax.LengthOf(r.src),
		ParseState: r.p.table.Initial(),
		LexMode:    r.p.table.ErrorLexMode,
		Err:        &lex.LexError{Kind: lex.ErrUnexpected, Msg: "input could not be parsed"},
	})
	eof := syntax.NewLeaf(syntax.LeafInfo{Symbol: lex.EndSymbol, ParseState: r.p.table.Initial()})
	return syntax.NewNode(syntax.NodeInfo{Symbol: syntax.ErrorSymbol, Visible: true, Named: true}, []*syntax.Subtree{whole, eof})
}

func (r *run) activeCount() int {
	n := 0
	for _, v := range r.versions {
		if v.active() {
			n++
		}
	}
	return n
}

// advance steps v until it consumes input past pos, accepts or halts.
func (r *run) advance(v *version, pos int) {
	for steps := 0; v.active() && v.top.pos.Bytes == pos; steps++ {
		if steps > maxSteps {
			r.p.notifyTrace("version %d made no progress at byte %d; halting", v.order, pos)
			v.halted = true
			return
		}
		r.step(v)
	}
}

func (r *run) step(v *version) {
	t := r.p.table
	state := v.top.state

	if v.la == nil {
		if prod := r.p.defaultReduce[state]; prod >= 0 {
			r.reduce(v, prod, false, nil)
			return
		}
		if r.tryReuse(v) && v.la == nil {
			return
		}
		if v.la == nil {
			v.la = r.lexAt(v, t.LexModeOf(state))
		}
	}

	entry := t.Actions(state, v.la.Symbol())
	if len(entry.Actions) == 0 && !v.la.IsMissing() && v.la.IsLeaf() && v.la.LexMode() != t.LexModeOf(state) {
		// lexed in the mode of an earlier state
		relexed := r.lexAt(v, t.LexModeOf(state))
		if relexed.Symbol() != v.la.Symbol() || relexed.Size() != v.la.Size() {
			v.la = relexed
			entry = t.Actions(state, v.la.Symbol())
		}
	}

	if len(entry.Actions) == 0 {
		r.handleError(v)
		return
	}

	for i := 1; i < len(entry.Actions); i++ {
		r.order++
		forked := v.fork(r.order)
		r.p.notifyTrace("fork version %d from %d on %s", forked.order, v.order, entry.Actions[i])
		r.versions = append(r.versions, forked)
		r.apply(forked, entry.Actions[i], true)
	}
	if n := r.activeCount(); n > r.stats.MaxVersions {
		r.stats.MaxVersions = n
	}
	r.apply(v, entry.Actions[0], entry.Fragile)
}

func (r *run) apply(v *version, act lr.Action, fragile bool) {
	switch act.Type {
	case lr.Shift:
		r.shift(v, act.State, act.Extra, fragile)
	case lr.Reduce:
		r.reduce(v, act.Production, fragile, v.la)
	case lr.Accept:
		r.accept(v)
	}
}

func (r *run) shift(v *version, state int, extra, fragile bool) {
	leaf := v.la
	if extra {
		leaf = leaf.WithExtra()
	}
	if fragile || r.activeCount() > 1 {
		leaf = leaf.WithFragile()
	}
	r.p.notifyTrace("version %d: shift %s to state %d", v.order, r.p.table.SymbolName(leaf.Symbol()), state)

	v.top = v.top.push(state, leaf, leaf.ScanAfter())
	v.la = v.pending
	v.pending = nil
}

func (r *run) reduce(v *version, prodIdx int, fragile bool, la *syntax.Subtree) {
	t := r.p.table
	prod := t.Productions[prodIdx]
	arity := len(prod.RHS)

	top := v.top
	var trailing []*stackNode
	if arity > 0 {
		for top.isExtra() {
			trailing = append(trailing, top)
			top = top.prev
		}
	}

	scan := top.scan
	var children []*syntax.Subtree
	cur := top
	for count := 0; count < arity && !cur.isBottom(); cur = cur.prev {
		children = append(children, cur.tree)
		if !cur.isExtra() {
			count++
		}
	}
	for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
		children[i], children[j] = children[j], children[i]
	}
	base := cur

	next, ok := t.Goto(base.state, prod.LHS)
	if !ok {
		r.p.notifyTrace("version %d: no goto from state %d on %s", v.order, base.state, t.SymbolName(prod.LHS))
		v.halted = true
		return
	}

	lookahead := 0
	if la != nil {
		nodeEnd := top.pos.Bytes
		reach := v.top.pos.Bytes + la.TotalSize().Bytes + la.Lookahead()
		lookahead = reach - nodeEnd
	}

	info := t.Symbols[prod.LHS]
	node := syntax.NewNode(syntax.NodeInfo{
		Symbol:    prod.LHS,
		Visible:   info.Visible,
		Named:     info.Named,
		Extra:     info.Extra,
		Fragile:   fragile || r.activeCount() > 1,
		DynPrec:   prod.DynPrec,
		Lookahead: lookahead,
	}, children)
	r.p.notifyTrace("version %d: reduce %s", v.order, t.ProductionString(prodIdx))

	newTop := base.push(next, node, scan)
	for i := len(trailing) - 1; i >= 0; i-- {
		newTop = newTop.push(next, trailing[i].tree, trailing[i].scan)
	}
	v.top = newTop

	if info.Extra && v.la != nil && !v.la.IsMissing() && v.pending == nil {
		// the lookahead was lexed inside the extra
		v.la = nil
	}
}

func (r *run) accept(v *version) {
	trees := v.top.subtrees(nil)

	var start *syntax.Subtree
	for _, st := range trees {
		if !st.Extra() {
			start = st
		}
	}

	var children []*syntax.Subtree
	for _, st := range trees {
		if st == start {
			children = append(children, st.Children()...)
		} else {
			children = append(children, st)
		}
	}
	children = append(children, v.la)

	if start == nil {
		v.accepted = syntax.NewNode(syntax.NodeInfo{Symbol: syntax.ErrorSymbol, Visible: true, Named: true}, children)
	} else {
		v.accepted = start.WithChildren(children)
	}
	v.la = nil
	r.p.notifyTrace("version %d: accept", v.order)
}

// condense removes halted versions, merges versions that reached the same
// point and enforces the version limits.
func (r *run) condense() {
	var kept []*version
	var acceptedBest *version
	for _, v := range r.versions {
		switch {
		case v.halted:
			continue
		case v.accepted != nil:
			if acceptedBest == nil || better(v, acceptedBest) {
				acceptedBest = v
			}
			continue
		}

		merged := false
		for i, k := range kept {
			if sameHead(k, v) {
				if better(v, k) {
					kept[i] = v
				}
				r.p.notifyTrace("merged versions %d and %d", k.order, v.order)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, v)
		}
	}

	if acceptedBest != nil {
		// anything already worse than a finished parse cannot win
		var still []*version
		for _, v := range kept {
			if v.errorCost() <= acceptedBest.errorCost() {
				still = append(still, v)
			}
		}
		kept = still
	}

	sortVersions(kept)
	if len(kept) > 1 {
		r.forked++
	} else {
		r.forked = 0
	}
	limit := r.p.MaxVersions
	if limit < 1 {
		limit = 1
	}
	if r.forked > r.p.Horizon {
		limit = 1
	}
	if len(kept) > limit {
		r.p.notifyTrace("dropping %d versions", len(kept)-limit)
		kept = kept[:limit]
	}
	if len(kept) == 1 {
		r.forked = 0
	}

	if acceptedBest != nil {
		kept = append(kept, acceptedBest)
	}
	r.versions = kept
}

func sameHead(a, b *version) bool {
	if a.top.state != b.top.state || a.top.pos.Bytes != b.top.pos.Bytes {
		return false
	}
	if !bytes.Equal(a.top.scan, b.top.scan) {
		return false
	}
	return a.la == b.la && a.pending == b.pending
}

func sortVersions(vs []*version) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && better(vs[j], vs[j-1]); j-- {
			vs[j], vs[j-1] = vs[j-1], vs[j]
		}
	}
}

// lexAt lexes the token after v's stack in lex mode mode.
func (r *run) lexAt(v *version, mode int) *syntax.Subtree {
	t := r.p.table
	pos := v.top.pos
	key := lexKey{pos: pos.Bytes, mode: mode, scan: string(v.top.scan)}
	if leaf, ok := r.lexCache[key]; ok {
		return leaf
	}

	var sc lex.Scanner
	if r.sc != nil && mode != t.ErrorLexMode {
		r.sc.Deserialize(v.top.scan)
		sc = r.sc
	}
	tok := r.p.lexer.Lex(r.src, pos.Bytes, mode, sc)
	r.stats.TokensLexed++

	info := lr.SymbolInfo{Visible: true, Named: true}
	if tok.Symbol != lex.ErrorSymbol {
		info = t.Symbols[tok.Symbol]
	}
	scanAfter := v.top.scan
	if tok.ScannerState != nil {
		scanAfter = tok.ScannerState
	}

	leaf := syntax.NewLeaf(syntax.LeafInfo{
		Symbol:     tok.Symbol,
		Padding:    syntax.LengthOf(r.src[tok.PaddingStart:tok.Start]),
		Size:       syntax.LengthOf(r.src[tok.Start:tok.End]),
		Lookahead:  tok.Lookahead,
		ParseState: v.top.state,
		LexMode:    mode,
		Visible:    info.Visible,
		Named:      info.Named,
		Keyword:    info.Keyword,
		ScanBefore: v.top.scan,
		ScanAfter:  scanAfter,
		Err:        tok.Err,
	})
	r.p.notifyTrace("lexed %s at %d-%d", t.SymbolName(tok.Symbol), tok.Start, tok.End)

	r.lexCache[key] = leaf
	return leaf
}
