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

func NewSessionsRepository() *SessionsRepository {
	return &SessionsRepository{
		sessions: make(map[uuid.UUID]store.Session),
	}
}

type SessionsRepository struct {
	mtx      sync.RWMutex
	sessions map[uuid.UUID]store.Session
}

func (repo *SessionsRepository) Close() error {
	return nil
}

func (repo *SessionsRepository) Create(ctx context.Context, s store.Session) (store.Session, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return store.Session{}, fmt.Errorf("could not generate ID: %w", err)
	}

	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	now := time.Now()
	s.ID = newUUID
	s.Created = now
	s.Modified = now
	s.Source = copyBytes(s.Source)

	repo.sessions[s.ID] = s

	return s, nil
}

func (repo *SessionsRepository) GetAll(ctx context.Context) ([]store.Session, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	all := make([]store.Session, 0, len(repo.sessions))
	for k := range repo.sessions {
		all = append(all, repo.sessions[k])
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].ID.String() < all[j].ID.String()
	})

	return all, nil
}

func (repo *SessionsRepository) GetByID(ctx context.Context, id uuid.UUID) (store.Session, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	s, ok := repo.sessions[id]
	if !ok {
		return store.Session{}, store.ErrNotFound
	}

	return s, nil
}

func (repo *SessionsRepository) Update(ctx context.Context, id uuid.UUID, s store.Session) (store.Session, error) {
	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	existing, ok := repo.sessions[id]
	if !ok {
		return store.Session{}, store.ErrNotFound
	}

	if s.ID != id {
		// that's okay but we need to check it
		if _, ok := repo.sessions[s.ID]; ok {
			return store.Session{}, store.ErrConstraintViolation
		}
	}

	s.Created = existing.Created
	s.Modified = time.Now()
	s.Source = copyBytes(s.Source)

	repo.sessions[s.ID] = s
	if s.ID != id {
		delete(repo.sessions, id)
	}

	return s, nil
}

func (repo *SessionsRepository) Delete(ctx context.Context, id uuid.UUID) (store.Session, error) {
	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	s, ok := repo.sessions[id]
	if !ok {
		return store.Session{}, store.ErrNotFound
	}

	delete(repo.sessions, s.ID)

	return s, nil
}
