package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dekarrin/remora/internal/store"
	"github.com/google/uuid"
)

func NewAutomataRepository() *AutomataRepository {
	return &AutomataRepository{
		automata:    make(map[uuid.UUID]store.Automaton),
		byHashIndex: make(map[string]uuid.UUID),
	}
}

type AutomataRepository struct {
	mtx         sync.RWMutex
	automata    map[uuid.UUID]store.Automaton
	byHashIndex map[string]uuid.UUID
}

func (repo *AutomataRepository) Close() error {
	return nil
}

func (repo *AutomataRepository) Create(ctx context.Context, a store.Automaton) (store.Automaton, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return store.Automaton{}, fmt.Errorf("could not generate ID: %w", err)
	}

	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	// make sure it's not already in the DB
	if _, ok := repo.byHashIndex[a.GrammarHash]; ok {
		return store.Automaton{}, store.ErrConstraintViolation
	}

	a.ID = newUUID
	a.Created = time.Now()
	a.Data = copyBytes(a.Data)

	repo.automata[a.ID] = a
	repo.byHashIndex[a.GrammarHash] = a.ID

	return a, nil
}

func (repo *AutomataRepository) GetAll(ctx context.Context) ([]store.Automaton, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	all := make([]store.Automaton, 0, len(repo.automata))
	for k := range repo.automata {
		all = append(all, repo.automata[k])
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].ID.String() < all[j].ID.String()
	})

	return all, nil
}

func (repo *AutomataRepository) GetByID(ctx context.Context, id uuid.UUID) (store.Automaton, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	a, ok := repo.automata[id]
	if !ok {
		return store.Automaton{}, store.ErrNotFound
	}

	return a, nil
}

func (repo *AutomataRepository) GetByHash(ctx context.Context, hash string) (store.Automaton, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	id, ok := repo.byHashIndex[hash]
	if !ok {
		return store.Automaton{}, store.ErrNotFound
	}

	return repo.automata[id], nil
}

func (repo *AutomataRepository) Delete(ctx context.Context, id uuid.UUID) (store.Automaton, error) {
	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	a, ok := repo.automata[id]
	if !ok {
		return store.Automaton{}, store.ErrNotFound
	}

	delete(repo.byHashIndex, a.GrammarHash)
	delete(repo.automata, a.ID)

	return a, nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
