package sqlite

import (
	"context"
	"testing"

	"github.com/dekarrin/remora/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	st, err := NewDatastore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

func Test_Automata(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// setup
	repo := newTestStore(t).Automata()

	// execute
	created, err := repo.Create(ctx, store.Automaton{GrammarHash: "abc", Name: "arith", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	_, dupErr := repo.Create(ctx, store.Automaton{GrammarHash: "abc", Name: "other", Data: []byte{4}})
	byHash, hashErr := repo.GetByHash(ctx, "abc")
	byID, idErr := repo.GetByID(ctx, created.ID)
	all, allErr := repo.GetAll(ctx)
	_, missingErr := repo.GetByHash(ctx, "def")

	// assert
	assert.NotEqual(uuid.Nil, created.ID)
	assert.ErrorIs(dupErr, store.ErrConstraintViolation)
	assert.ErrorIs(missingErr, store.ErrNotFound)
	if assert.NoError(hashErr) {
		assert.Equal(created.ID, byHash.ID)
		assert.Equal("arith", byHash.Name)
		assert.Equal([]byte{1, 2, 3}, byHash.Data)
	}
	if assert.NoError(idErr) {
		assert.Equal("abc", byID.GrammarHash)
	}
	if assert.NoError(allErr) {
		assert.Len(all, 1)
	}
}

func Test_Automata_Delete(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// setup
	repo := newTestStore(t).Automata()
	created, err := repo.Create(ctx, store.Automaton{GrammarHash: "abc", Name: "arith", Data: []byte{1}})
	require.NoError(t, err)

	// execute
	deleted, err := repo.Delete(ctx, created.ID)

	// assert
	assert.NoError(err)
	assert.Equal(created.ID, deleted.ID)
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(err, store.ErrNotFound)
	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(err, store.ErrNotFound)
}

func Test_Sessions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// setup
	repo := newTestStore(t).Sessions()
	created, err := repo.Create(ctx, store.Session{Language: "bolt", Source: []byte("let x")})
	require.NoError(t, err)

	// execute
	created.Source = []byte("let y")
	created.Edits = 1
	updated, updErr := repo.Update(ctx, created.ID, created)
	got, getErr := repo.GetByID(ctx, created.ID)
	_, missingErr := repo.Update(ctx, uuid.New(), created)

	// assert
	assert.NoError(updErr)
	assert.Equal([]byte("let y"), updated.Source)
	if assert.NoError(getErr) {
		assert.Equal("bolt", got.Language)
		assert.Equal([]byte("let y"), got.Source)
		assert.Equal(1, got.Edits)
	}
	assert.ErrorIs(missingErr, store.ErrNotFound)

	all, err := repo.GetAll(ctx)
	assert.NoError(err)
	assert.Len(all, 1)

	_, err = repo.Delete(ctx, created.ID)
	assert.NoError(err)
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(err, store.ErrNotFound)
}

// staleLookups hides every cached automaton from GetByHash, as if another
// process added it between the lookup and the insert.
type staleLookups struct {
	store.AutomatonRepository
}

func (s staleLookups) GetByHash(ctx context.Context, hash string) (store.Automaton, error) {
	return store.Automaton{}, store.ErrNotFound
}

func Test_LoadLanguage_concurrentInsert(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// setup
	data := []byte(`
format = "REMORA"
type = "GRAMMAR"
name = "arith"
extras = ['/\s/']

[[rule]]
name = "expr"
def = "prec.left(1, expr '+' expr) | NUMBER"

[[rule]]
name = "NUMBER"
def = '/\d+/'
`)
	repo := newTestStore(t).Automata()
	_, _, err := store.LoadLanguage(ctx, repo, data)
	require.NoError(t, err)

	// execute
	lang, cached, err := store.LoadLanguage(ctx, staleLookups{repo}, data)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.False(cached)
	assert.Equal("arith", lang.Name())
	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(all, 1)
}
