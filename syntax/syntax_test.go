package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testNames map[int]string

func (tn testNames) SymbolName(sym int) string {
	return tn[sym]
}

const (
	symEnd = iota
	symNum
	symPlus
	symExpr
	symHidden
)

var names = testNames{
	symEnd:    "end",
	symNum:    "NUMBER",
	symPlus:   "+",
	symExpr:   "expr",
	symHidden: "_hidden",
}

// buildSum builds the tree for "1+2+3" by hand, the way the parser would.
func buildSum(src string) (*Tree, map[string]*Subtree) {
	leaf := func(sym, start, end, pad int, visible, named bool) *Subtree {
		return NewLeaf(LeafInfo{
			Symbol:    sym,
			Padding:   Length{Bytes: pad, Extent: Point{Column: pad}},
			Size:      Length{Bytes: end - start, Extent: Point{Column: end - start}},
			Lookahead: 1,
			Visible:   visible,
			Named:     named,
		})
	}
	expr := func(children ...*Subtree) *Subtree {
		return NewNode(NodeInfo{Symbol: symExpr, Visible: true, Named: true}, children)
	}

	e1 := expr(leaf(symNum, 0, 1, 0, true, true))
	e2 := expr(leaf(symNum, 2, 3, 0, true, true))
	e3 := expr(leaf(symNum, 4, 5, 0, true, true))
	inner := expr(e1, leaf(symPlus, 1, 2, 0, true, false), e2)
	eof := NewLeaf(LeafInfo{Symbol: symEnd})
	root := NewNode(NodeInfo{Symbol: symExpr, Visible: true, Named: true}, []*Subtree{inner, leaf(symPlus, 3, 4, 0, true, false), e3, eof})

	return NewTree(root, names, []byte(src)), map[string]*Subtree{"e1": e1, "e2": e2, "e3": e3, "inner": inner}
}

func Test_Tree_String(t *testing.T) {
	assert := assert.New(t)

	// setup
	tree, _ := buildSum("1+2+3")

	// execute
	compact := tree.String()
	sexpr := tree.SExpr()

	// assert
	assert.Equal("(expr (expr (expr 1) + (expr 2)) + (expr 3))", compact)
	assert.Equal("(expr (expr (expr (NUMBER)) (expr (NUMBER))) (expr (NUMBER)))", sexpr)
}

func Test_Tree_Dump(t *testing.T) {
	assert := assert.New(t)

	// setup
	tree, _ := buildSum("1+2+3")
	expect := `( expr ) [0, 5)
  |---: ( expr ) [0, 3)
  |       |---: ( expr ) [0, 1)
  |       |       \---: (TERM "1") [0, 1)
  |       |---: (TERM "+") [1, 2)
  |       \---: ( expr ) [2, 3)
  |               \---: (TERM "2") [2, 3)
  |---: (TERM "+") [3, 4)
  \---: ( expr ) [4, 5)
          \---: (TERM "3") [4, 5)`

	// execute
	actual := tree.Dump()

	// assert
	assert.Equal(expect, actual)
}

func Test_Node_ByteRange(t *testing.T) {
	testCases := []struct {
		name      string
		src       string
		pad       int
		expectRng [2]int
	}{
		{
			name:      "no padding",
			src:       "1",
			expectRng: [2]int{0, 1},
		},
		{
			name:      "root covers leading whitespace",
			src:       "  1",
			pad:       2,
			expectRng: [2]int{0, 3},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			num := NewLeaf(LeafInfo{
				Symbol:  symNum,
				Padding: Length{Bytes: tc.pad, Extent: Point{Column: tc.pad}},
				Size:    Length{Bytes: 1, Extent: Point{Column: 1}},
				Visible: true,
				Named:   true,
			})
			root := NewNode(NodeInfo{Symbol: symExpr, Visible: true, Named: true}, []*Subtree{num})
			tree := NewTree(root, names, []byte(tc.src))

			// execute
			start, end := tree.Root().ByteRange()
			childStart, childEnd := tree.Root().Child(0).ByteRange()

			// assert
			assert.Equal(tc.expectRng, [2]int{start, end})
			assert.Equal(tc.pad, childStart)
			assert.Equal(tc.pad+1, childEnd)
		})
	}
}

func Test_Node_Children_hiddenNodesAreSpliced(t *testing.T) {
	assert := assert.New(t)

	// setup
	a := NewLeaf(LeafInfo{Symbol: symNum, Size: Length{Bytes: 1}, Visible: true, Named: true})
	b := NewLeaf(LeafInfo{Symbol: symNum, Size: Length{Bytes: 1}, Visible: true, Named: true})
	hidden := NewNode(NodeInfo{Symbol: symHidden}, []*Subtree{a, b})
	root := NewNode(NodeInfo{Symbol: symExpr, Visible: true, Named: true}, []*Subtree{hidden})
	tree := NewTree(root, names, []byte("12"))

	// execute
	children := tree.Root().Children()
	all := tree.Root().AllChildren()

	// assert
	assert.Len(children, 2)
	assert.Len(all, 1)
	assert.Equal("1", children[0].Text())
	assert.Equal("2", children[1].Text())
	assert.Equal(1, children[1].StartByte())
}

func Test_Tree_Edit(t *testing.T) {
	assert := assert.New(t)

	// setup
	tree, parts := buildSum("1+2+3")
	e, newSrc := NewEdit([]byte("1+2+3"), 1, 2, []byte("*"))

	// execute
	edited, err := tree.Edit(e)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal("1*2+3", string(newSrc))
	assert.Equal(5, edited.Len())
	assert.True(edited.IsEdited())
	assert.False(tree.IsEdited())

	// the old tree is untouched
	assert.False(tree.RootSubtree().HasChanges())
	assert.Equal("(expr (expr (expr 1) + (expr 2)) + (expr 3))", tree.String())

	root := edited.RootSubtree()
	assert.True(root.HasChanges())
	inner := root.Children()[0]
	assert.True(inner.HasChanges())
	assert.NotSame(parts["inner"], inner)

	// e1 examined the operator as lookahead so it is invalidated too
	assert.True(inner.Children()[0].HasChanges())
	assert.True(inner.Children()[1].HasChanges())

	// everything after the operator is shared
	assert.Same(parts["e2"], inner.Children()[2])
	assert.Same(parts["e3"], root.Children()[2])

	assert.Equal([]Range{{StartByte: 0, EndByte: 2, EndPoint: Point{Column: 2}}}, edited.ChangedRanges())
}

func Test_Tree_Edit_shiftsLaterNodes(t *testing.T) {
	assert := assert.New(t)

	// setup
	tree, parts := buildSum("1+2+3")
	e, _ := NewEdit([]byte("1+2+3"), 0, 1, []byte("100"))

	// execute
	edited, err := tree.Edit(e)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(7, edited.Len())
	start, end := edited.Root().ByteRange()
	assert.Equal(0, start)
	assert.Equal(7, end)

	last := edited.Root().Children()[2]
	assert.Same(parts["e3"], last.Subtree())
	s, e2 := last.ByteRange()
	assert.Equal(6, s)
	assert.Equal(7, e2)
}

func Test_Tree_Edit_invalid(t *testing.T) {
	testCases := []struct {
		name string
		edit Edit
	}{
		{name: "negative start", edit: Edit{StartByte: -1}},
		{name: "old end before start", edit: Edit{StartByte: 2, OldEndByte: 1, NewEndByte: 2}},
		{name: "past end", edit: Edit{StartByte: 4, OldEndByte: 9, NewEndByte: 4}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			tree, _ := buildSum("1+2+3")

			// execute
			_, err := tree.Edit(tc.edit)

			// assert
			assert.ErrorIs(err, ErrInvalidEdit)
		})
	}
}

func Test_Subtree_errorFlags(t *testing.T) {
	assert := assert.New(t)

	// setup
	missing := NewMissing(symNum, Length{}, 3, 0, true, true, nil)
	plus := NewLeaf(LeafInfo{Symbol: symPlus, Size: Length{Bytes: 1}, Visible: true})
	one := NewLeaf(LeafInfo{Symbol: symNum, Size: Length{Bytes: 1}, Visible: true, Named: true})
	root := NewNode(NodeInfo{Symbol: symExpr, Visible: true, Named: true}, []*Subtree{one, plus, missing})
	tree := NewTree(root, names, []byte("1+"))

	// execute
	str := tree.String()

	// assert
	assert.True(tree.HasError())
	assert.True(tree.Root().IsError())
	assert.False(tree.Root().IsErrorNode())
	assert.True(tree.Root().Child(2).IsMissing())
	assert.Equal("(expr 1 + (MISSING NUMBER))", str)
}

func Test_Length_Add_Sub(t *testing.T) {
	assert := assert.New(t)

	// setup
	a := LengthOf([]byte("ab\ncd"))
	b := LengthOf([]byte("e\nf"))

	// execute
	sum := a.Add(b)
	back := sum.Sub(a)

	// assert
	assert.Equal(Length{Bytes: 8, Extent: Point{Row: 2, Column: 1}}, sum)
	assert.Equal(b, back)
	assert.Equal(Length{}, a.SaturatingSub(sum))
}
