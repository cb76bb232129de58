package glr

import (
	"github.com/dekarrin/remora/internal/cfg"
	"github.com/dekarrin/remora/lex"
	"github.com/dekarrin/remora/syntax"
)

// handleError deals with a version that has no action for its lookahead. If
// other versions are still running the version is dropped; the last one
// standing recovers instead.
func (r *run) handleError(v *version) {
	for _, other := range r.versions {
		if other != v && other.active() {
			r.p.notifyTrace("version %d: no action on %s; halting", v.order, r.p.table.SymbolName(v.la.Symbol()))
			v.halted = true
			return
		}
	}
	r.recover(v)
}

// recover makes progress on v after a syntax error. In order it tries:
// inserting a single missing token, discarding the top of the stack back to
// a state that can continue with the lookahead, and skipping the lookahead.
// Each byte position gets at most one missing token and every skip consumes
// input, so recovery always terminates.
func (r *run) recover(v *version) {
	t := r.p.table
	pos := v.top.pos.Bytes

	if v.la.Symbol() == lex.ErrorSymbol && v.la.LexMode() != t.ErrorLexMode && relexable(v.la.LexError()) {
		if relexed := r.lexAt(v, t.ErrorLexMode); relexed.Symbol() != lex.ErrorSymbol {
			v.la = relexed
		}
	}
	la := v.la

	if !la.IsMissing() && v.pending == nil && v.missingAt != pos {
		if sym, ok := r.findMissing(v.top, la.Symbol()); ok {
			info := t.Symbols[sym]
			missing := syntax.NewMissing(sym, syntax.Length{}, v.top.state, t.LexModeOf(v.top.state), info.Visible, info.Named, v.top.scan)
			r.p.notifyTrace("version %d: inserting missing %s at byte %d", v.order, t.SymbolName(sym), pos)
			v.pending = la
			v.la = missing
			v.missingAt = pos
			return
		}
	}

	if la.IsMissing() {
		// the missing token no longer fits; drop it
		v.la = v.pending
		v.pending = nil
		return
	}

	for n := v.top.prev; n != nil; n = n.prev {
		if n.isExtra() {
			continue
		}
		if r.p.viable(n, la.Symbol()) {
			popped := v.top.subtrees(n)
			r.p.notifyTrace("version %d: discarding %d stack entries to resume in state %d", v.order, len(popped), n.state)
			v.top = n.push(n.state, syntax.NewError(popped), v.top.scan)
			return
		}
	}

	if la.Symbol() == lex.EndSymbol {
		trees := v.top.subtrees(nil)
		trees = append(trees, la)
		r.p.notifyTrace("version %d: no way to finish; wrapping input in an error", v.order)
		v.accepted = syntax.NewNode(syntax.NodeInfo{Symbol: syntax.ErrorSymbol, Visible: true, Named: true}, trees)
		v.la = nil
		return
	}

	r.skip(v)
}

// skip moves the lookahead into an ERROR node on top of the stack, joining
// the ERROR node already there if there is one.
func (r *run) skip(v *version) {
	la := v.la
	r.p.notifyTrace("version %d: skipping %s", v.order, r.p.table.SymbolName(la.Symbol()))

	top := v.top
	switch {
	case top.isExtra() && top.tree.IsError():
		var children []*syntax.Subtree
		if top.tree.IsLeaf() {
			children = []*syntax.Subtree{top.tree}
		} else {
			children = append(children, top.tree.Children()...)
		}
		children = append(children, la)
		v.top = top.prev.push(top.state, syntax.NewError(children), la.ScanAfter())
	case la.IsError():
		v.top = top.push(top.state, la.WithExtra(), la.ScanAfter())
	default:
		v.top = top.push(top.state, syntax.NewError([]*syntax.Subtree{la}), la.ScanAfter())
	}
	v.la = nil
}

// findMissing returns the first terminal that, inserted before the
// lookahead, would let the parse continue.
func (r *run) findMissing(top *stackNode, la int) (int, bool) {
	if la == lex.ErrorSymbol {
		return 0, false
	}
	t := r.p.table
	for sym := 1; sym < t.NumTerminals; sym++ {
		info := t.Symbols[sym]
		if info.Extra || info.Kind == cfg.External {
			continue
		}
		sim := r.p.simulate(top)
		if sim.feed(sym) != simShifted {
			continue
		}
		if sim.feed(la) != simFail {
			return sym, true
		}
	}
	return 0, false
}

// relexable returns whether an error token may be replaced by lexing its
// input again with every terminal allowed. Bad encodings and scanner
// failures stay as they are.
func relexable(err *lex.LexError) bool {
	return err == nil || err.Kind == lex.ErrUnexpected
}
