package cfg

import (
	"math/bits"
	"sort"
	"strconv"
	"strings"
)

// SymbolSet is a set of symbol IDs stored as a bitset. The zero value is an
// empty set.
type SymbolSet struct {
	words []uint64
}

// NewSymbolSet creates a set containing the given symbols.
func NewSymbolSet(ids ...int) SymbolSet {
	var s SymbolSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add adds id to the set and returns whether it was not already present.
func (s *SymbolSet) Add(id int) bool {
	w := id / 64
	for len(s.words) <= w {
		s.words = append(s.words, 0)
	}
	mask := uint64(1) << uint(id%64)
	if s.words[w]&mask != 0 {
		return false
	}
	s.words[w] |= mask
	return true
}

// Has returns whether id is in the set.
func (s SymbolSet) Has(id int) bool {
	w := id / 64
	if w >= len(s.words) || id < 0 {
		return false
	}
	return s.words[w]&(uint64(1)<<uint(id%64)) != 0
}

// AddAll adds every element of o to s and returns whether s grew.
func (s *SymbolSet) AddAll(o SymbolSet) bool {
	for len(s.words) < len(o.words) {
		s.words = append(s.words, 0)
	}
	grew := false
	for i := range o.words {
		before := s.words[i]
		s.words[i] |= o.words[i]
		if s.words[i] != before {
			grew = true
		}
	}
	return grew
}

// Len returns the number of elements in the set.
func (s SymbolSet) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty returns whether the set has no elements.
func (s SymbolSet) Empty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Elements returns the members of the set in ascending order.
func (s SymbolSet) Elements() []int {
	var ids []int
	for i, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			ids = append(ids, i*64+b)
			w &^= uint64(1) << uint(b)
		}
	}
	return ids
}

// Copy returns an independent copy of the set.
func (s SymbolSet) Copy() SymbolSet {
	c := SymbolSet{words: make([]uint64, len(s.words))}
	copy(c.words, s.words)
	return c
}

// Equal returns whether both sets have the same members.
func (s SymbolSet) Equal(o SymbolSet) bool {
	n := len(s.words)
	if len(o.words) > n {
		n = len(o.words)
	}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(s.words) {
			a = s.words[i]
		}
		if i < len(o.words) {
			b = o.words[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

// Key returns a string usable as a map key that is equal for equal sets.
func (s SymbolSet) Key() string {
	ids := s.Elements()
	sort.Ints(ids)
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteRune(',')
		}
		sb.WriteString(strconv.Itoa(id))
	}
	return sb.String()
}
