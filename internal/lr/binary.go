package lr

import (
	"fmt"
	"sort"

	"github.com/dekarrin/remora/internal/cfg"
	"github.com/dekarrin/rezi"
)

// This file contains the binary format of compiled tables, used to cache
// automata between runs.

const binaryFormatVersion = 1

// MarshalBinary encodes the table in the cache format.
func (t *Table) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncString("REMORA-LR")...)
	data = append(data, rezi.EncInt(binaryFormatVersion)...)
	data = append(data, rezi.EncString(t.Name)...)
	data = append(data, rezi.EncInt(t.NumTerminals)...)
	data = append(data, rezi.EncInt(t.ErrorLexMode)...)
	data = append(data, rezi.EncInt(t.Word)...)

	data = append(data, rezi.EncInt(len(t.Skip))...)
	for _, s := range t.Skip {
		data = append(data, rezi.EncString(s)...)
	}
	data = append(data, encInts(t.Externals)...)

	data = append(data, rezi.EncInt(len(t.Symbols))...)
	for _, sym := range t.Symbols {
		data = append(data, rezi.EncString(sym.Name)...)
		data = append(data, rezi.EncInt(int(sym.Kind))...)
		data = append(data, rezi.EncBool(sym.Named)...)
		data = append(data, rezi.EncBool(sym.Visible)...)
		data = append(data, rezi.EncBool(sym.Extra)...)
		data = append(data, rezi.EncBool(sym.Aux)...)
		data = append(data, rezi.EncString(sym.Literal)...)
		data = append(data, rezi.EncString(sym.Pattern)...)
		data = append(data, rezi.EncBool(sym.IsLiteral)...)
		data = append(data, rezi.EncBool(sym.Keyword)...)
	}

	data = append(data, rezi.EncInt(len(t.Productions))...)
	for _, p := range t.Productions {
		data = append(data, rezi.EncInt(p.LHS)...)
		data = append(data, encInts(p.RHS)...)
		data = append(data, rezi.EncInt(p.DynPrec)...)
	}

	data = append(data, rezi.EncInt(len(t.LexModes))...)
	for _, m := range t.LexModes {
		data = append(data, encInts(m.Terminals)...)
		data = append(data, rezi.EncBool(m.External)...)
	}

	data = append(data, rezi.EncInt(len(t.States))...)
	for _, st := range t.States {
		data = append(data, rezi.EncInt(st.LexMode)...)

		// only non-empty entries are stored
		var filled []int
		for term, e := range st.Entries {
			if len(e.Actions) > 0 {
				filled = append(filled, term)
			}
		}
		data = append(data, rezi.EncInt(len(filled))...)
		for _, term := range filled {
			e := st.Entries[term]
			data = append(data, rezi.EncInt(term)...)
			data = append(data, rezi.EncBool(e.Fragile)...)
			data = append(data, rezi.EncInt(len(e.Actions))...)
			for _, act := range e.Actions {
				data = append(data, rezi.EncInt(int(act.Type))...)
				data = append(data, rezi.EncInt(act.State)...)
				data = append(data, rezi.EncBool(act.Extra)...)
				data = append(data, rezi.EncInt(act.Production)...)
			}
		}

		var nts []int
		for nt := range st.Gotos {
			nts = append(nts, nt)
		}
		sort.Ints(nts)
		data = append(data, rezi.EncInt(len(nts))...)
		for _, nt := range nts {
			data = append(data, rezi.EncInt(nt)...)
			data = append(data, rezi.EncInt(st.Gotos[nt])...)
		}
	}

	return data, nil
}

// UnmarshalBinary decodes a table encoded with MarshalBinary.
func (t *Table) UnmarshalBinary(data []byte) error {
	d := &decoder{data: data}

	if magic := d.str(); d.err == nil && magic != "REMORA-LR" {
		return fmt.Errorf("not a compiled table")
	}
	if ver := d.int(); d.err == nil && ver != binaryFormatVersion {
		return fmt.Errorf("unsupported table format version %d", ver)
	}

	var out Table
	out.Name = d.str()
	out.NumTerminals = d.int()
	out.ErrorLexMode = d.int()
	out.Word = d.int()

	for i, n := 0, d.count(); i < n; i++ {
		out.Skip = append(out.Skip, d.str())
	}
	out.Externals = d.ints()

	out.Symbols = make([]SymbolInfo, d.count())
	for i := range out.Symbols {
		out.Symbols[i] = SymbolInfo{
			Name:      d.str(),
			Kind:      cfg.SymbolKind(d.int()),
			Named:     d.bool(),
			Visible:   d.bool(),
			Extra:     d.bool(),
			Aux:       d.bool(),
			Literal:   d.str(),
			Pattern:   d.str(),
			IsLiteral: d.bool(),
			Keyword:   d.bool(),
		}
	}

	out.Productions = make([]ProductionInfo, d.count())
	for i := range out.Productions {
		out.Productions[i] = ProductionInfo{
			LHS:     d.int(),
			RHS:     d.ints(),
			DynPrec: d.int(),
		}
	}

	out.LexModes = make([]LexMode, d.count())
	for i := range out.LexModes {
		out.LexModes[i] = LexMode{
			Terminals: d.ints(),
			External:  d.bool(),
		}
	}

	out.States = make([]State, d.count())
	for i := range out.States {
		st := State{
			LexMode: d.int(),
			Entries: make([]Entry, out.NumTerminals),
			Gotos:   map[int]int{},
		}
		for j, n := 0, d.count(); j < n; j++ {
			term := d.int()
			var e Entry
			e.Fragile = d.bool()
			e.Actions = make([]Action, d.count())
			for k := range e.Actions {
				e.Actions[k] = Action{
					Type:       ActionType(d.int()),
					State:      d.int(),
					Extra:      d.bool(),
					Production: d.int(),
				}
			}
			if d.err == nil && (term < 0 || term >= len(st.Entries)) {
				d.err = fmt.Errorf("state %d: terminal %d out of range", i, term)
			}
			if d.err != nil {
				break
			}
			st.Entries[term] = e
		}
		for j, n := 0, d.count(); j < n; j++ {
			nt := d.int()
			st.Gotos[nt] = d.int()
		}
		if d.err != nil {
			break
		}
		out.States[i] = st
	}

	if d.err != nil {
		return fmt.Errorf("decoding table: %w", d.err)
	}
	*t = out
	return nil
}

func encInts(vals []int) []byte {
	data := rezi.EncInt(len(vals))
	for _, v := range vals {
		data = append(data, rezi.EncInt(v)...)
	}
	return data
}

// decoder reads rezi-encoded values in sequence. After the first error every
// read returns a zero value and the error is kept.
type decoder struct {
	data []byte
	err  error
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := rezi.DecInt(d.data)
	if err != nil {
		d.err = err
		return 0
	}
	d.data = d.data[n:]
	return v
}

// count reads a length prefix. Negative or absurd counts are errors.
func (d *decoder) count() int {
	n := d.int()
	if d.err == nil && (n < 0 || n > len(d.data)) {
		d.err = fmt.Errorf("bad element count %d", n)
		return 0
	}
	return n
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	v, n, err := rezi.DecString(d.data)
	if err != nil {
		d.err = err
		return ""
	}
	d.data = d.data[n:]
	return v
}

func (d *decoder) bool() bool {
	if d.err != nil {
		return false
	}
	v, n, err := rezi.DecBool(d.data)
	if err != nil {
		d.err = err
		return false
	}
	d.data = d.data[n:]
	return v
}

func (d *decoder) ints() []int {
	n := d.count()
	if n == 0 {
		return nil
	}
	vals := make([]int, n)
	for i := range vals {
		vals[i] = d.int()
	}
	return vals
}
