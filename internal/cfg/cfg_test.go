package cfg

import (
	"testing"

	"github.com/dekarrin/remora/grammar"
	"github.com/stretchr/testify/assert"
)

// mustSpec builds a spec from name/notation pairs. The first pair is the
// start rule.
func mustSpec(pairs ...string) grammar.Spec {
	var spec grammar.Spec
	for i := 0; i+1 < len(pairs); i += 2 {
		spec.AddRule(pairs[i], grammar.MustParseRule(pairs[i+1]))
	}
	return spec
}

func symbolNames(g *Grammar) []string {
	names := make([]string, len(g.Symbols))
	for i := range g.Symbols {
		names[i] = g.Symbols[i].Name
	}
	return names
}

func Test_Lower(t *testing.T) {
	testCases := []struct {
		name         string
		spec         grammar.Spec
		expectSyms   []string
		expectTerms  int
		expectString string
	}{
		{
			name: "precedence alternatives",
			spec: mustSpec(
				"expr", "prec.left(1, expr '+' expr) | prec.left(2, expr '*' expr) | NUMBER",
				"NUMBER", `/\d+/`,
			),
			expectSyms:  []string{"end", "+", "*", "NUMBER", "expr", "expr'"},
			expectTerms: 4,
			expectString: "expr' -> expr\n" +
				"expr -> expr \"+\" expr\n" +
				"expr -> expr \"*\" expr\n" +
				"expr -> NUMBER",
		},
		{
			name: "repeat becomes left-recursive aux rule",
			spec: mustSpec(
				"start", "item*",
				"item", "'x'",
			),
			expectSyms:  []string{"end", "item", "start", "start'", "start_repeat1"},
			expectTerms: 2,
			expectString: "start' -> start\n" +
				"start_repeat1 -> item\n" +
				"start_repeat1 -> start_repeat1 item\n" +
				"start -> start_repeat1\n" +
				"start -> ε",
		},
		{
			name: "optional expands to two productions",
			spec: mustSpec(
				"start", "'a' 'b'? 'c'",
			),
			expectSyms:  []string{"end", "a", "b", "c", "start", "start'"},
			expectTerms: 4,
			expectString: "start' -> start\n" +
				"start -> \"a\" \"b\" \"c\"\n" +
				"start -> \"a\" \"c\"",
		},
		{
			name: "inline pattern becomes aux terminal",
			spec: mustSpec(
				"start", "/[0-9]+/ ';' /[0-9]+/",
			),
			expectSyms:  []string{"end", "start_token1", ";", "start", "start'"},
			expectTerms: 3,
			expectString: "start' -> start\n" +
				"start -> start_token1 \";\" start_token1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// execute
			g, err := Lower(tc.spec)

			// assert
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectSyms, symbolNames(g))
			assert.Equal(tc.expectTerms, g.NumTerminals)
			assert.Equal(tc.expectString, g.String())
			assert.Equal(0, g.StartProduction)
		})
	}
}

func Test_Lower_errors(t *testing.T) {
	testCases := []struct {
		name   string
		spec   grammar.Spec
		expect []string
	}{
		{
			name:   "no rules",
			spec:   grammar.Spec{},
			expect: []string{"grammar does not define any rules"},
		},
		{
			name: "undefined reference",
			spec: mustSpec(
				"start", "thing ';'",
			),
			expect: []string{`rule "start": references undefined rule "thing"`},
		},
		{
			name: "unreachable rule",
			spec: mustSpec(
				"start", "'a'",
				"orphan", "'b' 'c'",
			),
			expect: []string{`rule "orphan": unreachable from start rule "start"`},
		},
		{
			name: "cycle that consumes nothing",
			spec: mustSpec(
				"start", "a",
				"a", "b | 'x'",
				"b", "a",
			),
			expect: []string{`rule "a": can derive itself without consuming any input`},
		},
		{
			name: "bad pattern",
			spec: mustSpec(
				"start", "/[a-/",
			),
			expect: []string{`rule "start": invalid pattern`},
		},
		{
			name: "several problems are all reported",
			spec: mustSpec(
				"start", "x y",
			),
			expect: []string{
				`rule "start": references undefined rule "x"`,
				`rule "start": references undefined rule "y"`,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// execute
			_, err := Lower(tc.spec)

			// assert
			var gerr *grammar.GrammarError
			if !assert.ErrorAs(err, &gerr) {
				return
			}
			assert.Len(gerr.Problems, len(tc.expect))
			for _, msg := range tc.expect {
				assert.ErrorContains(err, msg)
			}
		})
	}
}

func Test_Lower_declarationErrors(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*grammar.Spec)
		expect string
	}{
		{
			name:   "word is not a pattern terminal",
			modify: func(s *grammar.Spec) { s.Word = "start" },
			expect: "word token must be a rule defined by a single pattern token",
		},
		{
			name:   "conflict names unknown rule",
			modify: func(s *grammar.Spec) { s.Conflicts = [][]string{{"start", "nope"}} },
			expect: `rule "nope": conflict group names a rule that is not a nonterminal`,
		},
		{
			name:   "external shadows rule",
			modify: func(s *grammar.Spec) { s.Externals = []string{"ident"} },
			expect: `rule "ident": defined both as a rule and as an external token`,
		},
		{
			name:   "extra references nothing",
			modify: func(s *grammar.Spec) { s.Extras = []grammar.Rule{grammar.Sym("comment")} },
			expect: `rule "comment": extra references undefined rule`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			spec := mustSpec(
				"start", "ident+",
				"ident", "/[a-z]+/",
			)
			tc.modify(&spec)

			// execute
			_, err := Lower(spec)

			// assert
			assert.ErrorContains(err, tc.expect)
		})
	}
}

func Test_Lower_keywords(t *testing.T) {
	assert := assert.New(t)

	// setup
	spec := mustSpec(
		"start", "('if' | '+' | identifier)+",
		"identifier", "/[a-z_]+/",
	)
	spec.Word = "identifier"

	// execute
	g, err := Lower(spec)

	// assert
	if !assert.NoError(err) {
		return
	}
	ifID, _ := g.Lookup("if")
	plusID, _ := g.Lookup("+")
	identID, _ := g.Lookup("identifier")
	assert.True(g.Symbols[ifID].Keyword)
	assert.False(g.Symbols[plusID].Keyword)
	assert.Equal(identID, g.Word)
}

func Test_Lower_extras(t *testing.T) {
	assert := assert.New(t)

	// setup
	spec := mustSpec(
		"start", "'a'+",
		"comment", "token('#' /.*/)",
		"block", "'(*' 'a'* '*)'",
	)
	spec.Extras = []grammar.Rule{grammar.Pat(`\s`), grammar.Sym("comment"), grammar.Sym("block")}

	// execute
	g, err := Lower(spec)

	// assert
	if !assert.NoError(err) {
		return
	}
	commentID, _ := g.Lookup("comment")
	blockID, _ := g.Lookup("block")
	assert.Equal([]string{`(?:\s)`}, g.Skip)
	assert.Equal([]int{commentID}, g.ExtraTerminals)
	assert.Equal([]int{blockID}, g.ExtraNonTerminals)
	assert.True(g.Symbols[commentID].Extra)
	assert.Equal(Terminal, g.Symbols[commentID].Kind)
	assert.Equal(`#(?:.*)`, g.Symbols[commentID].Pattern)
}

func Test_Lower_hiddenAndExternal(t *testing.T) {
	assert := assert.New(t)

	// setup
	spec := mustSpec(
		"start", "_item+",
		"_item", "'a' | _heredoc",
	)
	spec.Externals = []string{"_heredoc"}

	// execute
	g, err := Lower(spec)

	// assert
	if !assert.NoError(err) {
		return
	}
	itemID, _ := g.Lookup("_item")
	hereID, _ := g.Lookup("_heredoc")
	assert.False(g.Symbols[itemID].Visible)
	assert.Equal(NonTerminal, g.Symbols[itemID].Kind)
	assert.Equal(External, g.Symbols[hereID].Kind)
	assert.Equal([]int{hereID}, g.Externals)
	assert.True(g.IsTerminal(hereID))
}

func Test_Grammar_FirstAndNullable(t *testing.T) {
	assert := assert.New(t)

	// setup
	g, err := Lower(mustSpec(
		"start", "opt 'b'",
		"opt", "'a'?",
	))
	if !assert.NoError(err) {
		return
	}
	start, _ := g.Lookup("start")
	opt, _ := g.Lookup("opt")
	a, _ := g.Lookup("a")
	b, _ := g.Lookup("b")

	// assert
	assert.True(g.Nullable(opt))
	assert.False(g.Nullable(start))
	assert.True(g.First(opt).Equal(NewSymbolSet(a)))
	assert.True(g.First(start).Equal(NewSymbolSet(a, b)))
	assert.True(g.FirstOfSeq([]int{opt}, NewSymbolSet(EndSymbol)).Equal(NewSymbolSet(a, EndSymbol)))
}

func Test_SymbolSet(t *testing.T) {
	assert := assert.New(t)

	// setup
	var s SymbolSet

	// execute
	addedFirst := s.Add(3)
	addedAgain := s.Add(3)
	s.Add(130)
	o := NewSymbolSet(1, 130)
	changed := s.AddAll(o)

	// assert
	assert.True(addedFirst)
	assert.False(addedAgain)
	assert.True(changed)
	assert.Equal(3, s.Len())
	assert.True(s.Has(130))
	assert.False(s.Has(2))
	assert.Equal([]int{1, 3, 130}, s.Elements())
	assert.Equal("1,3,130", s.Key())
	assert.True(s.Copy().Equal(s))
	assert.True(SymbolSet{}.Empty())
	assert.True(NewSymbolSet(1).Equal(NewSymbolSet(1)))
	assert.False(NewSymbolSet(1).Equal(NewSymbolSet(1, 200)))
}
