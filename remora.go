// Package remora is an incremental parser generator and runtime. A grammar
// written as a grammar.Spec is compiled into a Language, whose Parser turns
// source text into a syntax.Tree that always covers the whole input, marking
// syntax errors in the tree instead of failing. After the source is edited,
// ParseIncremental builds the new tree by reusing every subtree of the old one
// that the edit did not touch.
package remora

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dekarrin/remora/grammar"
	"github.com/dekarrin/remora/internal/cfg"
	"github.com/dekarrin/remora/internal/glr"
	"github.com/dekarrin/remora/internal/lr"
	"github.com/dekarrin/remora/lex"
	"github.com/dekarrin/remora/syntax"
)

var (
	// ErrLanguageMismatch is returned when a tree is re-parsed with a
	// different language than the one that produced it.
	ErrLanguageMismatch = errors.New("tree was not parsed with this language")

	// ErrNoScanner is returned when a language declares external tokens but
	// no scanner was given for it.
	ErrNoScanner = errors.New("language declares external tokens but has no scanner")
)

// Language is a compiled grammar. It is immutable and safe for concurrent
// use; any number of parsers may share one.
type Language struct {
	table      *lr.Table
	lexer      *lex.Lexer
	newScanner func() lex.Scanner
}

// Compile compiles spec into a Language. If the grammar has problems, the
// returned error is a *grammar.GrammarError describing every one found.
func Compile(spec grammar.Spec) (*Language, error) {
	g, err := cfg.Lower(spec)
	if err != nil {
		return nil, err
	}

	table, err := lr.Build(g)
	if err != nil {
		return nil, err
	}

	return newLanguage(table)
}

// CompileFile loads a grammar file and compiles it.
func CompileFile(path string) (*Language, error) {
	spec, err := grammar.LoadFile(path)
	if err != nil {
		return nil, err
	}
	lang, err := Compile(spec)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return lang, nil
}

// LoadCompiled restores a Language from data produced by
// Language.MarshalBinary.
func LoadCompiled(data []byte) (*Language, error) {
	var table lr.Table
	if err := table.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return newLanguage(&table)
}

func newLanguage(table *lr.Table) (*Language, error) {
	lexer, err := glr.LexerFor(table)
	if err != nil {
		return nil, fmt.Errorf("building lexer: %w", err)
	}
	return &Language{table: table, lexer: lexer}, nil
}

// WithScanner returns a copy of the language that creates a scanner with
// newScanner for every parse. Languages with external tokens need one.
func (l *Language) WithScanner(newScanner func() lex.Scanner) *Language {
	cp := *l
	cp.newScanner = newScanner
	return &cp
}

// Name returns the name given in the grammar.
func (l *Language) Name() string {
	return l.table.Name
}

// SymbolName returns the name of a grammar symbol. Anonymous tokens are named
// by their text.
func (l *Language) SymbolName(sym int) string {
	if sym == syntax.ErrorSymbol {
		return "ERROR"
	}
	return l.table.SymbolName(sym)
}

// SymbolCount returns the number of grammar symbols.
func (l *Language) SymbolCount() int {
	return len(l.table.Symbols)
}

// StateCount returns the number of states of the automaton.
func (l *Language) StateCount() int {
	return len(l.table.States)
}

// HasExternals returns whether the grammar declares tokens that must be
// produced by an external scanner.
func (l *Language) HasExternals() bool {
	return len(l.table.Externals) > 0
}

// TableString returns the ACTION/GOTO grid of the automaton.
func (l *Language) TableString() string {
	return l.table.String()
}

// MarshalBinary encodes the compiled automaton. The scanner is not part of
// the encoding.
func (l *Language) MarshalBinary() ([]byte, error) {
	return l.table.MarshalBinary()
}

// Options controls a Parser.
type Options struct {
	// MaxVersions is the most parse stack versions kept alive at once while
	// the parse is ambiguous.
	MaxVersions int

	// Horizon is how many tokens ambiguous versions may run side by side
	// before only the best one is kept.
	Horizon int

	// Trace, if set, is called with a description of every parser step.
	Trace func(s string)
}

// DefaultOptions returns the options used by Parse and ParseIncremental.
func DefaultOptions() Options {
	return Options{
		MaxVersions: glr.DefaultMaxVersions,
		Horizon:     glr.DefaultHorizon,
	}
}

// Stats describes the work done by the most recent parse.
type Stats struct {
	// TokensLexed is how many tokens were lexed from the source.
	TokensLexed int

	// NodesReused is how many subtrees were taken over from the old tree.
	NodesReused int

	// MaxVersions is the largest number of stack versions alive at once.
	MaxVersions int
}

// Parser parses source text for one Language.
type Parser struct {
	lang *Language
	p    *glr.Parser

	mtx   sync.Mutex
	stats Stats
}

// NewParser creates a parser for lang.
func NewParser(lang *Language, opts Options) (*Parser, error) {
	if lang.HasExternals() && lang.newScanner == nil {
		return nil, ErrNoScanner
	}

	p := glr.New(lang.table, lang.lexer, lang.newScanner, lang)
	if opts.MaxVersions > 0 {
		p.MaxVersions = opts.MaxVersions
	}
	if opts.Horizon > 0 {
		p.Horizon = opts.Horizon
	}
	if opts.Trace != nil {
		p.RegisterTraceListener(opts.Trace)
	}
	return &Parser{lang: lang, p: p}, nil
}

// Language returns the language the parser parses.
func (p *Parser) Language() *Language {
	return p.lang
}

// Parse parses src. It always returns a tree whose root spans all of src;
// syntax errors show up as ERROR and MISSING nodes.
func (p *Parser) Parse(src []byte) *syntax.Tree {
	tree, stats := p.p.Parse(src, nil)
	p.setStats(stats)
	return tree
}

// ParseIncremental applies edit to old and parses newSrc, the text after the
// edit, reusing the parts of old the edit did not affect. The result is equal
// to Parse(newSrc). old itself is not modified.
func (p *Parser) ParseIncremental(old *syntax.Tree, edit syntax.Edit, newSrc []byte) (*syntax.Tree, error) {
	if old.Language() != syntax.SymbolNamer(p.lang) {
		return nil, ErrLanguageMismatch
	}

	edited, err := old.Edit(edit)
	if err != nil {
		return nil, err
	}
	if edited.Len() != len(newSrc) {
		return nil, fmt.Errorf("%w: edited tree covers %d bytes but new source has %d", syntax.ErrInvalidEdit, edited.Len(), len(newSrc))
	}

	return p.Reparse(edited, newSrc)
}

// Reparse parses src reusing edited, a tree that has already had every edit
// applied with syntax.Tree.Edit.
func (p *Parser) Reparse(edited *syntax.Tree, src []byte) (*syntax.Tree, error) {
	if edited.Language() != syntax.SymbolNamer(p.lang) {
		return nil, ErrLanguageMismatch
	}

	tree, stats := p.p.Parse(src, edited)
	p.setStats(stats)
	return tree, nil
}

// Stats returns statistics about the most recent parse.
func (p *Parser) Stats() Stats {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.stats
}

func (p *Parser) setStats(s glr.Stats) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.stats = Stats{
		TokensLexed: s.TokensLexed,
		NodesReused: s.NodesReused,
		MaxVersions: s.MaxVersions,
	}
}

// Parse parses src with lang using the default options.
func Parse(lang *Language, src []byte) (*syntax.Tree, error) {
	p, err := NewParser(lang, DefaultOptions())
	if err != nil {
		return nil, err
	}
	return p.Parse(src), nil
}

// ParseIncremental re-parses after an edit with lang using the default
// options. See Parser.ParseIncremental.
func ParseIncremental(lang *Language, old *syntax.Tree, edit syntax.Edit, newSrc []byte) (*syntax.Tree, error) {
	p, err := NewParser(lang, DefaultOptions())
	if err != nil {
		return nil, err
	}
	return p.ParseIncremental(old, edit, newSrc)
}

// EditTree returns a copy of tree adjusted for edit. Nodes the edit touches
// are copied and marked as changed; every other node is shared with tree.
func EditTree(tree *syntax.Tree, edit syntax.Edit) (*syntax.Tree, error) {
	return tree.Edit(edit)
}
