package glr

import (
	"bytes"

	"github.com/dekarrin/remora/internal/lr"
	"github.com/dekarrin/remora/syntax"
)

type cursorFrame struct {
	st    *syntax.Subtree
	start int
	index int
}

// reuseCursor walks an old tree in document order, offering its subtrees to
// the parser. It only moves forward.
type reuseCursor struct {
	stack []cursorFrame
}

func newReuseCursor(root *syntax.Subtree) *reuseCursor {
	c := &reuseCursor{stack: []cursorFrame{{st: root}}}
	if !c.descend() {
		c.stack = nil
	}
	return c
}

func (c *reuseCursor) current() (*syntax.Subtree, int, bool) {
	if len(c.stack) < 2 {
		return nil, 0, false
	}
	top := c.stack[len(c.stack)-1]
	return top.st, top.start, true
}

// descend moves to the first child of the current subtree.
func (c *reuseCursor) descend() bool {
	top := c.stack[len(c.stack)-1]
	children := top.st.Children()
	if len(children) == 0 {
		return false
	}
	c.stack = append(c.stack, cursorFrame{st: children[0], start: top.start, index: 0})
	return true
}

// advance moves past the current subtree to whatever follows it.
func (c *reuseCursor) advance() {
	for len(c.stack) > 1 {
		top := c.stack[len(c.stack)-1]
		end := top.start + top.st.TotalSize().Bytes
		c.stack = c.stack[:len(c.stack)-1]

		parent := c.stack[len(c.stack)-1]
		siblings := parent.st.Children()
		if next := top.index + 1; next < len(siblings) {
			c.stack = append(c.stack, cursorFrame{st: siblings[next], start: end, index: next})
			return
		}
	}
}

// tryReuse offers v the largest reusable subtree of the old tree that starts
// at v's position. A reused nonterminal is pushed onto the stack directly and
// a reused token becomes the lookahead. If the state must first reduce on the
// nonterminal's first token, that reduction is done and the same subtree is
// offered again on the next step. Returns whether v made progress.
func (r *run) tryReuse(v *version) bool {
	c := r.reuse
	if c == nil || r.activeCount() > 1 {
		return false
	}
	if v.pending != nil || (v.top.tree != nil && v.top.tree.IsError()) {
		// a recovering version rebuilds from fresh tokens
		return false
	}
	t := r.p.table
	pos := v.top.pos.Bytes
	state := v.top.state
	mode := t.LexModeOf(state)

	for {
		st, start, ok := c.current()
		if !ok || start > pos {
			return false
		}
		end := start + st.TotalSize().Bytes
		if end <= pos {
			c.advance()
			continue
		}
		if start < pos {
			if !c.descend() {
				c.advance()
			}
			continue
		}

		if !reusable(st) || !bytes.Equal(st.ScanBefore(), v.top.scan) {
			if !c.descend() {
				return false
			}
			continue
		}

		if st.IsLeaf() {
			if st.LexMode() != mode {
				return false
			}
			r.p.notifyTrace("version %d: reusing token %s at byte %d", v.order, t.SymbolName(st.Symbol()), pos)
			v.la = st
			r.stats.NodesReused++
			c.advance()
			return true
		}

		first := st.FirstLeaf()
		if first.LexMode() == mode {
			entry := t.Actions(state, first.Symbol())
			if shifts(entry) {
				if next, ok := t.Goto(state, st.Symbol()); ok {
					r.p.notifyTrace("version %d: reusing %s at byte %d", v.order, t.SymbolName(st.Symbol()), pos)
					v.top = v.top.push(next, st, st.ScanAfter())
					r.stats.NodesReused += st.NodeCount()
					c.advance()
					return true
				}
			} else if prod, ok := reduces(entry); ok {
				r.p.notifyTrace("version %d: reducing before %s at byte %d", v.order, t.SymbolName(st.Symbol()), pos)
				r.reduce(v, prod, entry.Fragile, first)
				return true
			}
		}
		if !c.descend() {
			return false
		}
	}
}

func reusable(st *syntax.Subtree) bool {
	return !st.HasChanges() && !st.HasError() && !st.Fragile() && !st.IsMissing() && st.Size().Bytes > 0
}

// reduces returns the production of an entry whose only action is a reduce.
func reduces(e lr.Entry) (int, bool) {
	if len(e.Actions) != 1 || e.Actions[0].Type != lr.Reduce {
		return 0, false
	}
	return e.Actions[0].Production, true
}

func shifts(e lr.Entry) bool {
	return len(e.Actions) == 1 && e.Actions[0].Type == lr.Shift && !e.Actions[0].Extra
}
