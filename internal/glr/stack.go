package glr

import (
	"github.com/dekarrin/remora/internal/lr"
	"github.com/dekarrin/remora/syntax"
)

// stackNode is one entry of a parse stack. Stacks are persistent: pushing
// creates a new node pointing at the old top, so forking a version only
// copies a pointer and versions share everything below the fork.
type stackNode struct {
	prev  *stackNode
	state int
	tree  *syntax.Subtree

	// pos is the position just past tree.
	pos syntax.Length

	// scan is the external scanner state after tree.
	scan []byte

	errorCost int
	dynPrec   int
	depth     int
}

func newStack(state int) *stackNode {
	return &stackNode{state: state}
}

func (n *stackNode) push(state int, st *syntax.Subtree, scan []byte) *stackNode {
	return &stackNode{
		prev:      n,
		state:     state,
		tree:      st,
		pos:       n.pos.Add(st.TotalSize()),
		scan:      scan,
		errorCost: n.errorCost + st.ErrorCost(),
		dynPrec:   n.dynPrec + st.DynPrec(),
		depth:     n.depth + 1,
	}
}

func (n *stackNode) isBottom() bool {
	return n.prev == nil
}

func (n *stackNode) isExtra() bool {
	return n.tree != nil && n.tree.Extra()
}

// subtrees returns the trees of every entry above base, bottom first.
func (n *stackNode) subtrees(base *stackNode) []*syntax.Subtree {
	var trees []*syntax.Subtree
	for cur := n; cur != base && !cur.isBottom(); cur = cur.prev {
		trees = append(trees, cur.tree)
	}
	for i, j := 0, len(trees)-1; i < j; i, j = i+1, j-1 {
		trees[i], trees[j] = trees[j], trees[i]
	}
	return trees
}

// simStack runs the automaton ahead of a real stack without building any
// trees. It is used to test whether a token could be accepted from some
// stack position during error recovery.
type simStack struct {
	p      *Parser
	base   *stackNode
	pushed []int
}

func (p *Parser) simulate(base *stackNode) *simStack {
	return &simStack{p: p, base: base}
}

func (s *simStack) top() int {
	if len(s.pushed) > 0 {
		return s.pushed[len(s.pushed)-1]
	}
	return s.base.state
}

func (s *simStack) pop(n int) bool {
	for ; n > 0; n-- {
		if len(s.pushed) > 0 {
			s.pushed = s.pushed[:len(s.pushed)-1]
			continue
		}
		for s.base.isExtra() {
			s.base = s.base.prev
		}
		if s.base.isBottom() {
			return false
		}
		s.base = s.base.prev
	}
	return true
}

type simResult int

const (
	simFail simResult = iota
	simShifted
	simAccepted
)

// maxSimSteps bounds a single simulation.
const maxSimSteps = 10000

// feed runs reductions on sym until it is shifted or accepted.
func (s *simStack) feed(sym int) simResult {
	t := s.p.table
	for i := 0; i < maxSimSteps; i++ {
		st := s.top()

		var act lr.Action
		if prod := s.p.defaultReduce[st]; prod >= 0 {
			act = lr.Action{Type: lr.Reduce, Production: prod}
		} else {
			entry := t.Actions(st, sym)
			if len(entry.Actions) == 0 {
				return simFail
			}
			act = entry.Actions[0]
		}

		switch act.Type {
		case lr.Shift:
			if !act.Extra {
				s.pushed = append(s.pushed, act.State)
			}
			return simShifted
		case lr.Accept:
			return simAccepted
		case lr.Reduce:
			prod := t.Productions[act.Production]
			if !s.pop(len(prod.RHS)) {
				return simFail
			}
			next, ok := t.Goto(s.top(), prod.LHS)
			if !ok {
				return simFail
			}
			if !t.Symbols[prod.LHS].Extra {
				s.pushed = append(s.pushed, next)
			}
		}
	}
	return simFail
}

// viable returns whether sym could be consumed from the stack at base.
func (p *Parser) viable(base *stackNode, sym int) bool {
	if sym == syntax.ErrorSymbol {
		return false
	}
	return p.simulate(base).feed(sym) != simFail
}
