package lr

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dekarrin/remora/internal/cfg"
)

// Item is an LR(0) item: a production with a dot at some position of its
// right-hand side.
type Item struct {
	Prod int
	Dot  int
}

// itemSet maps items to their LR(1) lookahead sets.
type itemSet map[Item]*cfg.SymbolSet

func (is itemSet) add(it Item, la cfg.SymbolSet) bool {
	existing, ok := is[it]
	if !ok {
		c := la.Copy()
		is[it] = &c
		return true
	}
	return existing.AddAll(la)
}

// sortedItems returns the items of the set in a stable order.
func (is itemSet) sortedItems() []Item {
	items := make([]Item, 0, len(is))
	for it := range is {
		items = append(items, it)
	}
	sortItems(items)
	return items
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Prod != items[j].Prod {
			return items[i].Prod < items[j].Prod
		}
		return items[i].Dot < items[j].Dot
	})
}

// coreKey returns a key identifying the LR(0) core of a kernel.
func coreKey(kernel []Item) string {
	var sb strings.Builder
	for i, it := range kernel {
		if i > 0 {
			sb.WriteRune(';')
		}
		sb.WriteString(strconv.Itoa(it.Prod))
		sb.WriteRune('.')
		sb.WriteString(strconv.Itoa(it.Dot))
	}
	return sb.String()
}

// next returns the symbol after the dot, or -1 if the dot is at the end.
func (it Item) next(g *cfg.Grammar) int {
	rhs := g.Productions[it.Prod].RHS
	if it.Dot >= len(rhs) {
		return -1
	}
	return rhs[it.Dot]
}

// Format returns the item in "A -> a . b" form.
func (it Item) Format(g *cfg.Grammar) string {
	prod := g.Productions[it.Prod]
	var sb strings.Builder
	sb.WriteString(g.SymbolName(prod.LHS))
	sb.WriteString(" ->")
	for i, sym := range prod.RHS {
		if i == it.Dot {
			sb.WriteString(" .")
		}
		sb.WriteRune(' ')
		sb.WriteString(displaySym(g, sym))
	}
	if it.Dot >= len(prod.RHS) {
		sb.WriteString(" .")
	}
	return sb.String()
}

// FormatLR1 returns the item with its lookaheads in "A -> a . b, x/y" form.
func FormatLR1(g *cfg.Grammar, it Item, la cfg.SymbolSet) string {
	var names []string
	for _, t := range la.Elements() {
		if t == cfg.EndSymbol {
			names = append(names, "$")
			continue
		}
		names = append(names, displaySym(g, t))
	}
	return it.Format(g) + ", " + strings.Join(names, "/")
}

func displaySym(g *cfg.Grammar, sym int) string {
	s := g.Symbols[sym]
	if s.Kind == cfg.Terminal && s.IsLiteral && !s.Named {
		return "\"" + s.Literal + "\""
	}
	return s.Name
}
