package service

import (
	"context"
	"testing"

	"github.com/dekarrin/remora"
	"github.com/dekarrin/remora/grammar"
	"github.com/dekarrin/remora/internal/store/inmem"
	"github.com/dekarrin/remora/languages/bolt"
	"github.com/dekarrin/remora/server/serr"
	"github.com/google/uuid"
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

func newTestService(t *testing.T) *Service {
	svc := New(inmem.NewDatastore(), remora.DefaultOptions())
	_, _, err := svc.LoadGrammar(context.Background(), []byte(arithGrammar))
	require.NoError(t, err)
	return svc
}

func Test_Service_Languages(t *testing.T) {
	assert := assert.New(t)

	// setup
	svc := newTestService(t)
	boltLang, err := bolt.Language()
	require.NoError(t, err)

	// execute
	err = svc.AddLanguage(boltLang)

	// assert
	assert.NoError(err)
	assert.Equal([]string{"arith", "bolt"}, svc.Languages())
}

func Test_Service_AddLanguage_needsScanner(t *testing.T) {
	assert := assert.New(t)

	// setup
	svc := newTestService(t)
	spec := grammar.Spec{Name: "ext", Externals: []string{"HEREDOC"}}
	spec.AddRule("start", grammar.MustParseRule("HEREDOC"))
	lang, err := remora.Compile(spec)
	require.NoError(t, err)

	// execute
	err = svc.AddLanguage(lang)

	// assert
	assert.ErrorIs(err, remora.ErrNoScanner)
	assert.Equal([]string{"arith"}, svc.Languages())
}

func Test_Service_LoadGrammar_usesStoredAutomaton(t *testing.T) {
	assert := assert.New(t)

	// setup
	db := inmem.NewDatastore()
	first := New(db, remora.DefaultOptions())
	second := New(db, remora.DefaultOptions())
	_, cached, err := first.LoadGrammar(context.Background(), []byte(arithGrammar))
	require.NoError(t, err)
	require.False(t, cached)

	// execute
	lang, cached, err := second.LoadGrammar(context.Background(), []byte(arithGrammar))

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.True(cached)
	assert.Equal("arith", lang.Name())
}

func Test_Service_CreateSession(t *testing.T) {
	testCases := []struct {
		name         string
		language     string
		source       string
		expectTree   string
		expectDiags  []string
		expectErrIs  error
		expectNoTree bool
	}{
		{
			name:       "valid source",
			language:   "arith",
			source:     "1+2",
			expectTree: "(expr (expr 1) + (expr 2))",
		},
		{
			name:        "source with errors",
			language:    "arith",
			source:      "1+",
			expectTree:  "(expr (expr 1) + (expr (MISSING NUMBER)))",
			expectDiags: []string{"1:3: expected a NUMBER"},
		},
		{
			name:        "unknown language",
			language:    "cobol",
			source:      "1",
			expectErrIs: serr.ErrNoLanguage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			svc := newTestService(t)

			// execute
			sess, err := svc.CreateSession(context.Background(), tc.language, []byte(tc.source))

			// assert
			if tc.expectErrIs != nil {
				assert.ErrorIs(err, tc.expectErrIs)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.NotEqual(uuid.Nil, sess.ID)
			assert.Equal(tc.language, sess.Language)
			assert.Equal(tc.source, string(sess.Source))
			assert.Equal(0, sess.Edits)
			assert.Equal(tc.expectTree, sess.Tree.String())

			var diags []string
			for _, d := range sess.Diagnostics {
				diags = append(diags, d.String())
			}
			assert.Equal(tc.expectDiags, diags)
		})
	}
}

func Test_Service_EditSession(t *testing.T) {
	testCases := []struct {
		name         string
		start        int
		oldEnd       int
		text         string
		expectSource string
		expectTree   string
		expectErrIs  error
	}{
		{
			name:         "replace operator",
			start:        1,
			oldEnd:       2,
			text:         "*",
			expectSource: "1*2+3",
			expectTree:   "(expr (expr (expr 1) * (expr 2)) + (expr 3))",
		},
		{
			name:         "append",
			start:        5,
			oldEnd:       5,
			text:         "+4",
			expectSource: "1+2+3+4",
			expectTree:   "(expr (expr (expr (expr 1) + (expr 2)) + (expr 3)) + (expr 4))",
		},
		{
			name:        "end past source",
			start:       4,
			oldEnd:      9,
			expectErrIs: serr.ErrBadArgument,
		},
		{
			name:        "end before start",
			start:       3,
			oldEnd:      2,
			expectErrIs: serr.ErrBadArgument,
		},
		{
			name:        "negative start",
			start:       -1,
			oldEnd:      2,
			expectErrIs: serr.ErrBadArgument,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			// setup
			svc := newTestService(t)
			created, err := svc.CreateSession(context.Background(), "arith", []byte("1+2+3"))
			require.NoError(t, err)

			// execute
			sess, err := svc.EditSession(context.Background(), created.ID, tc.start, tc.oldEnd, []byte(tc.text))

			// assert
			if tc.expectErrIs != nil {
				assert.ErrorIs(err, tc.expectErrIs)

				unchanged, err := svc.GetSession(context.Background(), created.ID)
				require.NoError(t, err)
				assert.Equal("1+2+3", string(unchanged.Source))
				assert.Equal(0, unchanged.Edits)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectSource, string(sess.Source))
			assert.Equal(tc.expectTree, sess.Tree.String())
			assert.Equal(1, sess.Edits)
			assert.Greater(sess.Stats.NodesReused, 0)
			assert.Empty(sess.Diagnostics)
		})
	}
}

func Test_Service_GetSession_afterRestart(t *testing.T) {
	assert := assert.New(t)

	// setup
	db := inmem.NewDatastore()
	before := New(db, remora.DefaultOptions())
	_, _, err := before.LoadGrammar(context.Background(), []byte(arithGrammar))
	require.NoError(t, err)
	created, err := before.CreateSession(context.Background(), "arith", []byte("1+2"))
	require.NoError(t, err)
	_, err = before.EditSession(context.Background(), created.ID, 3, 3, []byte("*4"))
	require.NoError(t, err)

	after := New(db, remora.DefaultOptions())
	_, _, err = after.LoadGrammar(context.Background(), []byte(arithGrammar))
	require.NoError(t, err)

	// execute
	sess, err := after.GetSession(context.Background(), created.ID)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal("1+2*4", string(sess.Source))
	assert.Equal(1, sess.Edits)
	assert.Equal("(expr (expr 1) + (expr (expr 2) * (expr 4)))", sess.Tree.String())
}

func Test_Service_DeleteSession(t *testing.T) {
	assert := assert.New(t)

	// setup
	svc := newTestService(t)
	created, err := svc.CreateSession(context.Background(), "arith", []byte("7"))
	require.NoError(t, err)

	// execute
	deleted, err := svc.DeleteSession(context.Background(), created.ID)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(created.ID, deleted.ID)
	assert.Equal("(expr 7)", deleted.Tree.String())

	_, err = svc.GetSession(context.Background(), created.ID)
	assert.ErrorIs(err, serr.ErrNotFound)
	_, err = svc.EditSession(context.Background(), created.ID, 0, 1, []byte("8"))
	assert.ErrorIs(err, serr.ErrNotFound)
	_, err = svc.DeleteSession(context.Background(), created.ID)
	assert.ErrorIs(err, serr.ErrNotFound)
}
