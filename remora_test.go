package remora

import (
	"strings"
	"testing"

	"github.com/dekarrin/remora/grammar"
	"github.com/dekarrin/remora/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arithGrammar = `
format = "REMORA"
type = "GRAMMAR"
name = "arith"
extras = ['/\s/']

[[rule]]
name = "expr"
def = "prec.left(1, expr '+' expr) | prec.left(2, expr '*' expr) | NUMBER"

[[rule]]
name = "NUMBER"
def = '/\d+/'
`

func arith(t *testing.T) *Language {
	spec, err := grammar.Decode([]byte(arithGrammar))
	require.NoError(t, err)
	lang, err := Compile(spec)
	require.NoError(t, err)
	return lang
}

func Test_Compile(t *testing.T) {
	testCases := []struct {
		name      string
		rules     []string
		expectErr string
	}{
		{
			name:  "simple grammar",
			rules: []string{"start", "'a' 'b'"},
		},
		{
			name:      "undefined symbol",
			rules:     []string{"start", "thing"},
			expectErr: "thing",
		},
		{
			name:      "unresolved conflict",
			rules:     []string{"start", "start start | 'a'"},
			expectErr: "conflict",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			spec := grammar.Spec{Name: "test"}
			for i := 0; i < len(tc.rules); i += 2 {
				spec.AddRule(tc.rules[i], grammar.MustParseRule(tc.rules[i+1]))
			}

			// execute
			lang, err := Compile(spec)

			// assert
			if tc.expectErr != "" {
				assert.Error(err)
				assert.ErrorContains(err, tc.expectErr)
				var gErr *grammar.GrammarError
				assert.ErrorAs(err, &gErr)
				return
			}
			assert.NoError(err)
			assert.Equal("test", lang.Name())
		})
	}
}

func Test_Parse_spansTheInput(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    string
		expectErr bool
	}{
		{
			name:   "left associative sum",
			input:  "1+2+3",
			expect: "(expr (expr (expr 1) + (expr 2)) + (expr 3))",
		},
		{
			name:   "product binds tighter",
			input:  "1*2+3",
			expect: "(expr (expr (expr 1) * (expr 2)) + (expr 3))",
		},
		{
			name:      "missing operand",
			input:     "1+",
			expect:    "(expr (expr 1) + (expr (MISSING NUMBER)))",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			lang := arith(t)

			// execute
			tree, err := Parse(lang, []byte(tc.input))

			// assert
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, tree.String())
			assert.Equal(tc.expectErr, tree.HasError())
			assert.Equal(tc.expectErr, tree.Root().IsError())
			assert.Equal(len(tc.input), tree.Len())
		})
	}
}

func Test_ParseIncremental_reusesUntouchedSubtrees(t *testing.T) {
	assert := assert.New(t)

	// setup
	lang := arith(t)
	p, err := NewParser(lang, DefaultOptions())
	require.NoError(t, err)
	src := []byte("1+2+3")
	old := p.Parse(src)
	edit, newSrc := syntax.NewEdit(src, 1, 2, []byte("*"))

	// execute
	tree, err := p.ParseIncremental(old, edit, newSrc)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal("(expr (expr (expr 1) * (expr 2)) + (expr 3))", tree.String())
	assert.Greater(p.Stats().NodesReused, 0)

	oldTwo := old.Root().DescendantForByte(2).Subtree()
	newTwo := tree.Root().DescendantForByte(2).Subtree()
	assert.Same(oldTwo, newTwo)

	oldThree := old.Root().Children()[2].Subtree()
	newThree := tree.Root().Children()[2].Subtree()
	assert.Same(oldThree, newThree)

	full := p.Parse(newSrc)
	assert.True(full.Equal(tree))
	assert.Equal("(expr (expr (expr 1) + (expr 2)) + (expr 3))", old.String())
}

func Test_ParseIncremental_errors(t *testing.T) {
	testCases := []struct {
		name      string
		edit      func(src []byte) (syntax.Edit, []byte)
		otherLang bool
		expectErr error
	}{
		{
			name: "edit past end of tree",
			edit: func(src []byte) (syntax.Edit, []byte) {
				return syntax.Edit{StartByte: 3, OldEndByte: 10, NewEndByte: 3}, src[:3]
			},
			expectErr: syntax.ErrInvalidEdit,
		},
		{
			name: "new source does not match edit",
			edit: func(src []byte) (syntax.Edit, []byte) {
				e, _ := syntax.NewEdit(src, 0, 1, []byte("42"))
				return e, src
			},
			expectErr: syntax.ErrInvalidEdit,
		},
		{
			name: "tree from another language",
			edit: func(src []byte) (syntax.Edit, []byte) {
				return syntax.NewEdit(src, 0, 1, []byte("4"))
			},
			otherLang: true,
			expectErr: ErrLanguageMismatch,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			lang := arith(t)
			src := []byte("1+2+3")
			old, err := Parse(lang, src)
			require.NoError(t, err)
			parseWith := lang
			if tc.otherLang {
				parseWith = arith(t)
			}
			edit, newSrc := tc.edit(src)

			// execute
			_, err = ParseIncremental(parseWith, old, edit, newSrc)

			// assert
			assert.ErrorIs(err, tc.expectErr)
		})
	}
}

func Test_EditTree(t *testing.T) {
	assert := assert.New(t)

	// setup
	lang := arith(t)
	src := []byte("1+2+3")
	tree, err := Parse(lang, src)
	require.NoError(t, err)
	edit, _ := syntax.NewEdit(src, 4, 5, []byte("30"))

	// execute
	edited, err := EditTree(tree, edit)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(6, edited.Len())
	assert.True(edited.IsEdited())
	assert.False(tree.IsEdited())
	assert.Nil(edited.Source())
	assert.NotEmpty(edited.ChangedRanges())
}

func Test_NewParser_requiresScannerForExternals(t *testing.T) {
	assert := assert.New(t)

	// setup
	spec := grammar.Spec{Name: "ext", Externals: []string{"HEREDOC"}}
	spec.AddRule("start", grammar.MustParseRule("HEREDOC"))
	lang, err := Compile(spec)
	require.NoError(t, err)

	// execute
	_, err = NewParser(lang, DefaultOptions())

	// assert
	assert.ErrorIs(err, ErrNoScanner)
	assert.True(lang.HasExternals())
}

func Test_LoadCompiled(t *testing.T) {
	assert := assert.New(t)

	// setup
	lang := arith(t)
	data, err := lang.MarshalBinary()
	require.NoError(t, err)

	// execute
	loaded, err := LoadCompiled(data)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(lang.Name(), loaded.Name())
	assert.Equal(lang.StateCount(), loaded.StateCount())
	assert.Equal(lang.SymbolCount(), loaded.SymbolCount())
	assert.Equal(lang.TableString(), loaded.TableString())

	tree, err := Parse(loaded, []byte("1+2*3"))
	require.NoError(t, err)
	assert.Equal("(expr (expr 1) + (expr (expr 2) * (expr 3)))", tree.String())
}

func Test_LoadCompiled_rejectsGarbage(t *testing.T) {
	_, err := LoadCompiled([]byte("not a table"))
	assert.Error(t, err)
}

func Test_Language_Diagnose(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		expect  []string
		partial bool
	}{
		{
			name:   "no errors",
			input:  "1+2",
			expect: nil,
		},
		{
			name:   "missing operand",
			input:  "1+",
			expect: []string{"1:3: expected a NUMBER"},
		},
		{
			name:   "missing operand on second line",
			input:  "1\n+",
			expect: []string{"2:2: expected a NUMBER"},
		},
		{
			name:    "invalid encoding",
			input:   "1+\xff",
			expect:  []string{"invalid UTF-8 at byte 2"},
			partial: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			lang := arith(t)
			tree, err := Parse(lang, []byte(tc.input))
			require.NoError(t, err)

			// execute
			diags := lang.Diagnose(tree)

			// assert
			var actual []string
			for _, d := range diags {
				actual = append(actual, d.String())
			}
			if tc.partial {
				assert.Contains(strings.Join(actual, "\n"), tc.expect[0])
				return
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Language_Diagnose_unexpectedToken(t *testing.T) {
	assert := assert.New(t)

	// setup
	lang := arith(t)
	tree, err := Parse(lang, []byte("1+)"))
	require.NoError(t, err)

	// execute
	diags := lang.Diagnose(tree)

	// assert
	if !assert.Len(diags, 2) {
		return
	}
	assert.False(diags[0].Missing)
	assert.True(strings.HasPrefix(diags[0].Message, `unexpected ")"`), "got %q", diags[0].Message)
	assert.Equal(2, diags[0].Range.StartByte)
	assert.True(diags[1].Missing)
	assert.Equal("expected a NUMBER", diags[1].Message)
}

func Test_Parser_trace(t *testing.T) {
	assert := assert.New(t)

	// setup
	var lines []string
	opts := DefaultOptions()
	opts.Trace = func(s string) {
		lines = append(lines, s)
	}
	p, err := NewParser(arith(t), opts)
	require.NoError(t, err)

	// execute
	p.Parse([]byte("1+"))

	// assert
	assert.Contains(lines, "version 0: inserting missing NUMBER at byte 2")
	assert.Contains(lines, "version 0: accept")
}
