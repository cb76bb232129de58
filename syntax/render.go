package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	treeLevelEmpty               = "        "
	treeLevelOngoing             = "  |     "
	treeLevelPrefix              = "  |%s: "
	treeLevelPrefixLast          = `  \%s: `
	treeLevelPrefixNamePadChar   = '-'
	treeLevelPrefixNamePadAmount = 3
)

func makeTreeLevelPrefix(msg string) string {
	for len([]rune(msg)) < treeLevelPrefixNamePadAmount {
		msg = string(treeLevelPrefixNamePadChar) + msg
	}
	return fmt.Sprintf(treeLevelPrefix, msg)
}

func makeTreeLevelPrefixLast(msg string) string {
	for len([]rune(msg)) < treeLevelPrefixNamePadAmount {
		msg = string(treeLevelPrefixNamePadChar) + msg
	}
	return fmt.Sprintf(treeLevelPrefixLast, msg)
}

// String returns the tree in compact form, with tokens shown as their source
// text:
//
//	(expr (expr (expr 1) + (expr 2)) + (expr 3))
func (t *Tree) String() string {
	return t.Root().String()
}

// SExpr returns the tree as an S-expression of named nodes only.
func (t *Tree) SExpr() string {
	return t.Root().SExpr()
}

// Dump returns the tree with one node per line, including byte ranges.
func (t *Tree) Dump() string {
	return t.Root().Dump()
}

// String returns the node in the compact form used by Tree.String.
func (n Node) String() string {
	var sb strings.Builder
	n.writeCompact(&sb)
	return sb.String()
}

func (n Node) writeCompact(sb *strings.Builder) {
	switch {
	case n.IsMissing():
		sb.WriteString("(MISSING ")
		sb.WriteString(n.Kind())
		sb.WriteRune(')')
		return
	case n.IsLeaf() && n.IsErrorNode():
		sb.WriteString("(ERROR ")
		sb.WriteString(n.leafText())
		sb.WriteRune(')')
		return
	case n.IsLeaf():
		sb.WriteString(n.leafText())
		return
	}

	sb.WriteRune('(')
	sb.WriteString(n.Kind())
	for _, c := range n.Children() {
		sb.WriteRune(' ')
		c.writeCompact(sb)
	}
	sb.WriteRune(')')
}

func (n Node) leafText() string {
	text := n.Text()
	if text == "" && n.EndByte() > len(n.tree.source) {
		// positions no longer match the source
		return n.Kind()
	}
	if text == "" || strings.ContainsAny(text, " \t\r\n()\"'\\") {
		return strconv.Quote(text)
	}
	return text
}

// SExpr returns the node as an S-expression of its named descendants.
// Anonymous tokens are left out and missing tokens are shown as
// (MISSING kind).
func (n Node) SExpr() string {
	var sb strings.Builder
	n.writeSExpr(&sb)
	return sb.String()
}

func (n Node) writeSExpr(sb *strings.Builder) {
	if n.IsMissing() {
		sb.WriteString("(MISSING ")
		if n.IsNamed() {
			sb.WriteString(n.Kind())
		} else {
			sb.WriteString(strconv.Quote(n.Kind()))
		}
		sb.WriteRune(')')
		return
	}

	sb.WriteRune('(')
	sb.WriteString(n.Kind())
	for _, c := range n.Children() {
		if !c.IsNamed() && !c.IsMissing() {
			continue
		}
		sb.WriteRune(' ')
		c.writeSExpr(sb)
	}
	sb.WriteRune(')')
}

// Dump returns the node and its visible descendants one per line, with
// tokens shown as (TERM "text") and each node's byte range.
func (n Node) Dump() string {
	return n.leveledStr("", "")
}

func (n Node) leveledStr(firstPrefix, contPrefix string) string {
	var sb strings.Builder

	sb.WriteString(firstPrefix)
	start, end := n.ByteRange()
	switch {
	case n.IsMissing():
		sb.WriteString(fmt.Sprintf("(MISSING %s) [%d, %d)", n.Kind(), start, end))
	case n.IsLeaf() && n.IsErrorNode():
		sb.WriteString(fmt.Sprintf("(ERROR %q) [%d, %d)", n.Text(), start, end))
		if err := n.LexError(); err != nil {
			sb.WriteString(" " + err.Error())
		}
	case n.IsLeaf():
		sb.WriteString(fmt.Sprintf("(TERM %q) [%d, %d)", n.Text(), start, end))
	default:
		sb.WriteString(fmt.Sprintf("( %s ) [%d, %d)", n.Kind(), start, end))
	}

	children := n.Children()
	for i := range children {
		sb.WriteRune('\n')
		var leveledFirstPrefix string
		var leveledContPrefix string
		if i+1 < len(children) {
			leveledFirstPrefix = contPrefix + makeTreeLevelPrefix("")
			leveledContPrefix = contPrefix + treeLevelOngoing
		} else {
			leveledFirstPrefix = contPrefix + makeTreeLevelPrefixLast("")
			leveledContPrefix = contPrefix + treeLevelEmpty
		}
		sb.WriteString(children[i].leveledStr(leveledFirstPrefix, leveledContPrefix))
	}

	return sb.String()
}

// Equal returns whether two trees have the same structure: the same symbols
// with the same ranges and the same error, missing and extra markings. Trees
// parsed from the same text with the same language are Equal no matter
// whether one was parsed incrementally.
func (t *Tree) Equal(o any) bool {
	other, ok := o.(*Tree)
	if !ok || other == nil || t == nil {
		return false
	}
	return subtreesEqual(t.root, other.root)
}

func subtreesEqual(a, b *Subtree) bool {
	if a == b {
		return true
	}
	const compared = flagVisible | flagNamed | flagExtra | flagMissing | flagHasError | flagInternal
	if a.symbol != b.symbol || a.flags&compared != b.flags&compared {
		return false
	}
	if a.padding != b.padding || a.size != b.size {
		return false
	}
	if len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !subtreesEqual(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}
