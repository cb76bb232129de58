// Package syntax holds the concrete syntax trees built by the parser.
//
// Trees are persistent. A Subtree is never modified once built, and editing a
// Tree produces a new Tree that shares every untouched Subtree with the old
// one. The old Tree stays valid for anyone still holding it.
package syntax

import "sort"

// SymbolNamer gives the names of grammar symbols. It is implemented by the
// language a tree was parsed with.
type SymbolNamer interface {
	SymbolName(symbol int) string
}

// Tree is the result of a parse.
type Tree struct {
	root   *Subtree
	lang   SymbolNamer
	source []byte
	length int
	edited bool
}

// NewTree creates a tree over root for source.
func NewTree(root *Subtree, lang SymbolNamer, source []byte) *Tree {
	return &Tree{
		root:   root,
		lang:   lang,
		source: source,
		length: root.TotalSize().Bytes,
	}
}

// Root returns the root node. The root always covers the whole source.
func (t *Tree) Root() Node {
	return Node{st: t.root, tree: t, root: true}
}

// RootSubtree returns the subtree at the root.
func (t *Tree) RootSubtree() *Subtree {
	return t.root
}

// Language returns the language the tree was parsed with.
func (t *Tree) Language() SymbolNamer {
	return t.lang
}

// Source returns the text the tree was parsed from. It is nil for a tree
// returned by Edit, which no longer matches any parsed text.
func (t *Tree) Source() []byte {
	return t.source
}

// Len returns the length in bytes of the source the tree covers.
func (t *Tree) Len() int {
	return t.length
}

// HasError returns whether the tree contains any ERROR or MISSING node.
func (t *Tree) HasError() bool {
	return t.root.HasError()
}

// IsEdited returns whether the tree was produced by Edit and has not been
// re-parsed.
func (t *Tree) IsEdited() bool {
	return t.edited
}

// Edit returns a new tree with positions adjusted for e and every subtree
// the edit touches marked as changed. t itself is not modified.
func (t *Tree) Edit(e Edit) (*Tree, error) {
	if err := e.validate(t.length); err != nil {
		return nil, err
	}
	return &Tree{
		root:   t.root.edit(e.lengths()),
		lang:   t.lang,
		length: t.length + e.Delta(),
		edited: true,
	}, nil
}

// ChangedRanges returns the ranges of an edited tree that hold subtrees the
// parser may not reuse. Overlapping and adjacent ranges are merged.
func (t *Tree) ChangedRanges() []Range {
	var ranges []Range
	var collect func(st *Subtree, pos Length)
	collect = func(st *Subtree, pos Length) {
		if !st.HasChanges() {
			return
		}
		deeper := false
		childPos := pos
		for _, c := range st.children {
			if c.HasChanges() {
				deeper = true
				collect(c, childPos)
			}
			childPos = childPos.Add(c.TotalSize())
		}
		if !deeper {
			end := pos.Add(st.TotalSize())
			ranges = append(ranges, Range{
				StartByte:  pos.Bytes,
				EndByte:    end.Bytes,
				StartPoint: pos.Point(),
				EndPoint:   end.Point(),
			})
		}
	}
	collect(t.root, Length{})

	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].StartByte < ranges[j].StartByte
	})
	var merged []Range
	for _, r := range ranges {
		if n := len(merged); n > 0 && r.StartByte <= merged[n-1].EndByte {
			if r.EndByte > merged[n-1].EndByte {
				merged[n-1].EndByte = r.EndByte
				merged[n-1].EndPoint = r.EndPoint
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
