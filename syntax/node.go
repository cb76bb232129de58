package syntax

// Node is a subtree read at its position in a tree. Nodes are small values
// and are cheap to copy; they stay valid for as long as the tree they were
// read from is kept.
type Node struct {
	st   *Subtree
	pos  Length
	tree *Tree
	root bool
}

// IsZero returns whether n is the zero Node.
func (n Node) IsZero() bool {
	return n.st == nil
}

// Subtree returns the subtree n reads. Two nodes from different trees with the
// same Subtree share structure.
func (n Node) Subtree() *Subtree {
	return n.st
}

// Same returns whether n and other read the same shared subtree.
func (n Node) Same(other Node) bool {
	return n.st != nil && n.st == other.st
}

// Kind returns the name of the node's grammar symbol. Error nodes have kind
// "ERROR".
func (n Node) Kind() string {
	if n.st.IsError() {
		return "ERROR"
	}
	return n.tree.lang.SymbolName(n.st.symbol)
}

// Symbol returns the node's grammar symbol.
func (n Node) Symbol() int {
	return n.st.symbol
}

// StartByte returns the offset of the first byte of the node's text.
func (n Node) StartByte() int {
	if n.root {
		return 0
	}
	return n.pos.Bytes + n.st.padding.Bytes
}

// EndByte returns the offset just past the node's text.
func (n Node) EndByte() int {
	return n.pos.Bytes + n.st.padding.Bytes + n.st.size.Bytes
}

// ByteRange returns the half-open byte range of the node's text. The root
// always covers the whole input.
func (n Node) ByteRange() (start, end int) {
	return n.StartByte(), n.EndByte()
}

// Range returns the byte and point range of the node's text.
func (n Node) Range() Range {
	start := n.pos.Add(n.st.padding)
	if n.root {
		start = Length{}
	}
	end := n.pos.Add(n.st.padding).Add(n.st.size)
	return Range{
		StartByte:  start.Bytes,
		EndByte:    end.Bytes,
		StartPoint: start.Point(),
		EndPoint:   end.Point(),
	}
}

// Text returns the source text of the node.
func (n Node) Text() string {
	s, e := n.ByteRange()
	if e > len(n.tree.source) {
		return ""
	}
	return string(n.tree.source[s:e])
}

// IsError returns whether the node is an ERROR node or contains an ERROR or
// MISSING node.
func (n Node) IsError() bool {
	return n.st.HasError()
}

// IsErrorNode returns whether the node itself is an ERROR node.
func (n Node) IsErrorNode() bool {
	return n.st.IsError()
}

// IsMissing returns whether the node was inserted by error recovery.
func (n Node) IsMissing() bool {
	return n.st.IsMissing()
}

// IsNamed returns whether the node comes from a named rule.
func (n Node) IsNamed() bool {
	return n.st.Named()
}

// IsExtra returns whether the node is an extra, such as a comment.
func (n Node) IsExtra() bool {
	return n.st.Extra()
}

// IsLeaf returns whether the node is a token.
func (n Node) IsLeaf() bool {
	return n.st.IsLeaf()
}

// Children returns the visible children of the node. Children of hidden
// nodes are returned in their place.
func (n Node) Children() []Node {
	var out []Node
	n.appendVisible(&out)
	return out
}

func (n Node) appendVisible(out *[]Node) {
	pos := n.pos
	for _, c := range n.st.children {
		child := Node{st: c, pos: pos, tree: n.tree}
		if c.Visible() {
			*out = append(*out, child)
		} else {
			child.appendVisible(out)
		}
		pos = pos.Add(c.TotalSize())
	}
}

// AllChildren returns the direct children of the node, hidden ones
// included.
func (n Node) AllChildren() []Node {
	out := make([]Node, 0, len(n.st.children))
	pos := n.pos
	for _, c := range n.st.children {
		out = append(out, Node{st: c, pos: pos, tree: n.tree})
		pos = pos.Add(c.TotalSize())
	}
	return out
}

// NamedChildren returns the visible children that come from named rules.
func (n Node) NamedChildren() []Node {
	var named []Node
	for _, c := range n.Children() {
		if c.IsNamed() {
			named = append(named, c)
		}
	}
	return named
}

// ChildCount returns the number of visible children.
func (n Node) ChildCount() int {
	return len(n.Children())
}

// Child returns the i-th visible child. It panics if i is out of range.
func (n Node) Child(i int) Node {
	return n.Children()[i]
}

// LexError returns the lexing problem of an error leaf, or nil.
func (n Node) LexError() error {
	if n.st.lexErr == nil {
		return nil
	}
	return n.st.lexErr
}

// Walk calls fn on n and every visible descendant in pre-order. If fn returns
// false the node's children are skipped.
func (n Node) Walk(fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

// DescendantForByte returns the smallest visible node whose text contains
// the byte at offset.
func (n Node) DescendantForByte(offset int) Node {
	cur := n
	for {
		found := false
		for _, c := range cur.Children() {
			s, e := c.ByteRange()
			if s <= offset && offset < e {
				cur = c
				found = true
				break
			}
		}
		if !found {
			return cur
		}
	}
}
