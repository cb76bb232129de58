package syntax

import "github.com/dekarrin/remora/lex"

// ErrorSymbol is the symbol of ERROR nodes.
const ErrorSymbol = lex.ErrorSymbol

// NoState marks a subtree that was not built from a single parse state, such
// as one built during error recovery.
const NoState = -1

type subtreeFlags uint16

const (
	flagVisible subtreeFlags = 1 << iota
	flagNamed
	flagExtra
	flagMissing
	flagFragile
	flagChanged
	flagHasError
	flagKeyword
	flagInternal
)

// Subtree is an immutable node of a syntax tree. Subtrees do not know their
// absolute position; they store the length of the whitespace before them
// (padding) and of their own text (size), so a subtree after an edit can be
// shared by the new tree without being rebuilt. Use a Node to read a subtree
// at a position.
//
// Subtrees are created by the parser and never modified afterwards.
type Subtree struct {
	symbol   int
	flags    subtreeFlags
	padding  Length
	size     Length
	children []*Subtree

	// lookahead is how many bytes past the end of the subtree were examined
	// while building it.
	lookahead int

	// parseState and lexMode are the parser state and lex mode a leaf was
	// lexed in.
	parseState int
	lexMode    int

	errorCost  int
	dynPrec    int
	ownPrec    int
	nodeCount  int
	visibleCnt int

	scanBefore []byte
	scanAfter  []byte
	lexErr     *lex.LexError
}

// LeafInfo describes a token leaf.
type LeafInfo struct {
	Symbol     int
	Padding    Length
	Size       Length
	Lookahead  int
	ParseState int
	LexMode    int
	Visible    bool
	Named      bool
	Extra      bool
	Keyword    bool

	// Fragile marks a leaf shifted through an action that depended on the
	// parser's surroundings.
	Fragile bool

	// ScanBefore and ScanAfter are the external scanner's state before and
	// after the leaf.
	ScanBefore []byte
	ScanAfter  []byte

	// Err is set for error leaves covering input that could not be lexed.
	Err *lex.LexError
}

// NewLeaf creates a token leaf.
func NewLeaf(info LeafInfo) *Subtree {
	st := &Subtree{
		symbol:     info.Symbol,
		padding:    info.Padding,
		size:       info.Size,
		lookahead:  info.Lookahead,
		parseState: info.ParseState,
		lexMode:    info.LexMode,
		scanBefore: info.ScanBefore,
		scanAfter:  info.ScanAfter,
		lexErr:     info.Err,
		nodeCount:  1,
	}
	st.setFlag(flagVisible, info.Visible)
	st.setFlag(flagNamed, info.Named)
	st.setFlag(flagExtra, info.Extra)
	st.setFlag(flagFragile, info.Fragile)
	st.setFlag(flagKeyword, info.Keyword)
	if info.Symbol == ErrorSymbol {
		st.flags |= flagVisible | flagNamed | flagHasError
		st.errorCost = errorCostPerSkippedTree + info.Size.Bytes*errorCostPerSkippedChar
	}
	return st
}

// NewMissing creates a zero-width leaf for a token the parser required but
// did not find in the input.
func NewMissing(symbol int, padding Length, parseState, lexMode int, visible, named bool, scan []byte) *Subtree {
	st := &Subtree{
		symbol:     symbol,
		padding:    padding,
		parseState: parseState,
		lexMode:    lexMode,
		scanBefore: scan,
		scanAfter:  scan,
		errorCost:  errorCostPerMissingTree,
		nodeCount:  1,
	}
	st.flags |= flagMissing | flagHasError
	st.setFlag(flagVisible, visible)
	st.setFlag(flagNamed, named)
	return st
}

// NodeInfo describes an internal node.
type NodeInfo struct {
	Symbol  int
	Visible bool
	Named   bool
	Extra   bool
	Fragile bool

	// DynPrec is the dynamic precedence of the production that built the
	// node.
	DynPrec int

	// Lookahead is how many bytes past the node's end the parser examined
	// when it decided to build the node.
	Lookahead int
}

// NewNode creates an internal node over children.
func NewNode(info NodeInfo, children []*Subtree) *Subtree {
	st := &Subtree{
		symbol:     info.Symbol,
		children:   children,
		parseState: NoState,
		lexMode:    NoState,
		dynPrec:    info.DynPrec,
		ownPrec:    info.DynPrec,
		nodeCount:  1,
		flags:      flagInternal,
	}
	st.setFlag(flagVisible, info.Visible)
	st.setFlag(flagNamed, info.Named)
	st.setFlag(flagExtra, info.Extra)
	st.setFlag(flagFragile, info.Fragile)
	if info.Symbol == ErrorSymbol {
		st.flags |= flagVisible | flagNamed | flagHasError
		st.errorCost = errorCostPerRecovery
	}
	st.summarize(info.Lookahead)
	return st
}

// NewError creates an ERROR node over children.
func NewError(children []*Subtree) *Subtree {
	return NewNode(NodeInfo{Symbol: ErrorSymbol, Visible: true, Named: true, Extra: true}, children)
}

// summarize computes the derived fields of an internal node from its
// children.
func (st *Subtree) summarize(lookahead int) {
	var total Length
	reach := 0
	for i, child := range st.children {
		if i == 0 {
			st.padding = child.padding
			st.parseState = child.parseState
			st.lexMode = child.lexMode
			st.scanBefore = child.scanBefore
		}
		total = total.Add(child.TotalSize())
		if r := total.Bytes + child.lookahead; r > reach {
			reach = r
		}

		st.errorCost += child.errorCost
		st.dynPrec += child.dynPrec
		st.nodeCount += child.nodeCount
		if child.Visible() {
			st.visibleCnt++
		} else {
			st.visibleCnt += child.visibleCnt
		}
		if child.HasError() {
			st.flags |= flagHasError
		}
		if child.Fragile() {
			st.flags |= flagFragile
		}
		if child.scanAfter != nil {
			st.scanAfter = child.scanAfter
		}
	}

	if len(st.children) > 0 {
		st.size = total.Sub(st.padding)
	}
	if la := reach - total.Bytes; la > lookahead {
		lookahead = la
	}
	st.lookahead = lookahead
}

func (st *Subtree) setFlag(f subtreeFlags, on bool) {
	if on {
		st.flags |= f
	} else {
		st.flags &^= f
	}
}

// Error costs used to compare competing parses. Lower is better.
const (
	errorCostPerRecovery    = 500
	errorCostPerMissingTree = 110
	errorCostPerSkippedTree = 100
	errorCostPerSkippedChar = 1
)

// Symbol returns the grammar symbol of the subtree.
func (st *Subtree) Symbol() int { return st.symbol }

// Padding returns the length of the skipped text before the subtree.
func (st *Subtree) Padding() Length { return st.padding }

// Size returns the length of the subtree's own text.
func (st *Subtree) Size() Length { return st.size }

// TotalSize returns the padding plus the size.
func (st *Subtree) TotalSize() Length { return st.padding.Add(st.size) }

// Children returns the subtree's children. The slice must not be modified.
func (st *Subtree) Children() []*Subtree { return st.children }

// IsLeaf returns whether the subtree is a token.
func (st *Subtree) IsLeaf() bool { return st.flags&flagInternal == 0 }

// Lookahead returns how many bytes past the end were examined to build the
// subtree.
func (st *Subtree) Lookahead() int { return st.lookahead }

// ParseState returns the parse state the subtree's first token was lexed in.
func (st *Subtree) ParseState() int { return st.parseState }

// LexMode returns the lex mode the subtree's first token was lexed in.
func (st *Subtree) LexMode() int { return st.lexMode }

// Visible returns whether the subtree is shown by the tree read API.
func (st *Subtree) Visible() bool { return st.flags&flagVisible != 0 }

// Named returns whether the subtree comes from a named rule.
func (st *Subtree) Named() bool { return st.flags&flagNamed != 0 }

// Extra returns whether the subtree is an extra, such as a comment.
func (st *Subtree) Extra() bool { return st.flags&flagExtra != 0 }

// IsMissing returns whether the subtree is a zero-width token inserted by
// error recovery.
func (st *Subtree) IsMissing() bool { return st.flags&flagMissing != 0 }

// IsError returns whether the subtree is an ERROR node.
func (st *Subtree) IsError() bool { return st.symbol == ErrorSymbol }

// HasError returns whether the subtree is or contains an ERROR or MISSING
// node.
func (st *Subtree) HasError() bool { return st.flags&flagHasError != 0 }

// Fragile returns whether the subtree was built through a parse decision that
// depended on its surroundings.
func (st *Subtree) Fragile() bool { return st.flags&flagFragile != 0 }

// HasChanges returns whether the subtree was touched by an edit.
func (st *Subtree) HasChanges() bool { return st.flags&flagChanged != 0 }

// Keyword returns whether the leaf was lexed as a keyword.
func (st *Subtree) Keyword() bool { return st.flags&flagKeyword != 0 }

// ErrorCost returns the summed cost of every error in the subtree.
func (st *Subtree) ErrorCost() int { return st.errorCost }

// DynPrec returns the summed dynamic precedence of the subtree.
func (st *Subtree) DynPrec() int { return st.dynPrec }

// NodeCount returns the number of subtrees in the subtree, itself included.
func (st *Subtree) NodeCount() int { return st.nodeCount }

// ScanBefore returns the external scanner state before the subtree.
func (st *Subtree) ScanBefore() []byte { return st.scanBefore }

// ScanAfter returns the external scanner state after the subtree.
func (st *Subtree) ScanAfter() []byte { return st.scanAfter }

// LexError returns the lexing problem attached to an error leaf.
func (st *Subtree) LexError() *lex.LexError { return st.lexErr }

// FirstLeaf returns the first token of the subtree.
func (st *Subtree) FirstLeaf() *Subtree {
	cur := st
	for len(cur.children) > 0 {
		cur = cur.children[0]
	}
	return cur
}

// WithExtra returns a copy of the subtree marked as an extra.
func (st *Subtree) WithExtra() *Subtree {
	if st.Extra() {
		return st
	}
	c := *st
	c.flags |= flagExtra
	return &c
}

// WithChildren returns a copy of an internal node with different children.
// Derived fields are recomputed.
func (st *Subtree) WithChildren(children []*Subtree) *Subtree {
	c := &Subtree{
		symbol:     st.symbol,
		flags:      st.flags &^ (flagHasError | flagChanged | flagFragile),
		children:   children,
		dynPrec:    st.ownPrec,
		ownPrec:    st.ownPrec,
		nodeCount:  1,
		parseState: NoState,
		lexMode:    NoState,
	}
	if st.Fragile() && !anyFragile(children) {
		c.flags |= flagFragile
	}
	if c.symbol == ErrorSymbol {
		c.flags |= flagHasError
		c.errorCost = errorCostPerRecovery
	}
	c.summarize(st.lookahead)
	return c
}

func anyFragile(children []*Subtree) bool {
	for _, c := range children {
		if c.Fragile() {
			return true
		}
	}
	return false
}

// WithFragile returns a copy of the subtree marked as fragile.
func (st *Subtree) WithFragile() *Subtree {
	if st.Fragile() {
		return st
	}
	c := *st
	c.flags |= flagFragile
	return &c
}
