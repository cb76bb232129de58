package syntax

import (
	"errors"
	"fmt"
)

// ErrInvalidEdit is returned when an Edit does not fit the tree it is applied
// to.
var ErrInvalidEdit = errors.New("invalid edit")

// Edit describes a replacement of the source text: the bytes in
// [StartByte, OldEndByte) were replaced by text that now spans
// [StartByte, NewEndByte).
type Edit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// NewEdit builds the Edit that replaces src[start:oldEnd] with text and
// returns it along with the edited source. src is not modified.
func NewEdit(src []byte, start, oldEnd int, text []byte) (Edit, []byte) {
	out := make([]byte, 0, len(src)-(oldEnd-start)+len(text))
	out = append(out, src[:start]...)
	out = append(out, text...)
	out = append(out, src[oldEnd:]...)

	startLen := LengthOf(src[:start])
	e := Edit{
		StartByte:   start,
		OldEndByte:  oldEnd,
		NewEndByte:  start + len(text),
		StartPoint:  startLen.Point(),
		OldEndPoint: startLen.Add(LengthOf(src[start:oldEnd])).Point(),
		NewEndPoint: startLen.Add(LengthOf(text)).Point(),
	}
	return e, out
}

func (e Edit) String() string {
	return fmt.Sprintf("edit[%d:%d -> %d:%d]", e.StartByte, e.OldEndByte, e.StartByte, e.NewEndByte)
}

// Delta returns the change in source length.
func (e Edit) Delta() int {
	return e.NewEndByte - e.OldEndByte
}

func (e Edit) validate(length int) error {
	if e.StartByte < 0 || e.OldEndByte < e.StartByte || e.NewEndByte < e.StartByte {
		return fmt.Errorf("%w: %s has a negative range", ErrInvalidEdit, e)
	}
	if e.OldEndByte > length {
		return fmt.Errorf("%w: %s ends past end of %d-byte source", ErrInvalidEdit, e, length)
	}
	return nil
}

// lengthEdit is an Edit in the coordinate space of one subtree, where zero is
// the start of the subtree's padding.
type lengthEdit struct {
	start  Length
	oldEnd Length
	newEnd Length
}

func (e Edit) lengths() lengthEdit {
	return lengthEdit{
		start:  Length{Bytes: e.StartByte, Extent: e.StartPoint},
		oldEnd: Length{Bytes: e.OldEndByte, Extent: e.OldEndPoint},
		newEnd: Length{Bytes: e.NewEndByte, Extent: e.NewEndPoint},
	}
}

// edit returns a copy of st adjusted for e. Only the subtrees touched by the
// edit are copied; the rest are shared with st. Copies are marked as
// changed so the parser will not reuse them.
func (st *Subtree) edit(e lengthEdit) *Subtree {
	isNoop := e.oldEnd.Bytes == e.start.Bytes && e.newEnd.Bytes == e.start.Bytes
	isInsertion := e.oldEnd.Bytes == e.start.Bytes

	padding := st.padding
	size := st.size
	total := padding.Add(size)
	endByte := total.Bytes + st.lookahead
	if e.start.Bytes > endByte || (isNoop && e.start.Bytes == endByte) {
		return st
	}

	switch {
	case e.oldEnd.Bytes <= padding.Bytes:
		// entirely in the padding; shift
		padding = e.newEnd.Add(padding.Sub(e.oldEnd))
	case e.start.Bytes < padding.Bytes:
		// starts in the padding and runs into the content
		size = size.SaturatingSub(e.oldEnd.Sub(padding))
		padding = e.newEnd
	case e.start.Bytes < total.Bytes || (e.start.Bytes == total.Bytes && isInsertion):
		size = e.newEnd.Sub(padding).Add(total.SaturatingSub(e.oldEnd))
	}

	out := *st
	out.padding = padding
	out.size = size
	out.flags |= flagChanged

	if len(st.children) == 0 {
		return &out
	}

	out.children = make([]*Subtree, len(st.children))
	copy(out.children, st.children)

	var childLeft, childRight Length
	for i, child := range st.children {
		childSize := child.TotalSize()
		childLeft = childRight
		childRight = childLeft.Add(childSize)

		if childRight.Bytes+child.lookahead < e.start.Bytes {
			continue
		}
		if childLeft.Bytes > e.oldEnd.Bytes || (childLeft.Bytes == e.oldEnd.Bytes && childSize.Bytes > 0 && i > 0) {
			break
		}

		childEdit := lengthEdit{
			start:  e.start.SaturatingSub(childLeft),
			oldEnd: e.oldEnd.SaturatingSub(childLeft),
			newEnd: e.newEnd.SaturatingSub(childLeft),
		}

		// inserted text goes to the first child touching the edit; later
		// children only shrink
		if childRight.Bytes > e.start.Bytes || (childRight.Bytes == e.start.Bytes && isInsertion) {
			e.newEnd = e.start
		} else {
			childEdit.oldEnd = childEdit.start
			childEdit.newEnd = childEdit.start
		}

		out.children[i] = child.edit(childEdit)
	}

	return &out
}
