// Package inmem provides a store.Store that keeps everything in memory and
// loses it when the program exits.
package inmem

import (
	"fmt"

	"github.com/dekarrin/remora/internal/store"
)

type datastore struct {
	automata *AutomataRepository
	sessions *SessionsRepository
}

func NewDatastore() store.Store {
	return &datastore{
		automata: NewAutomataRepository(),
		sessions: NewSessionsRepository(),
	}
}

func (s *datastore) Automata() store.AutomatonRepository {
	return s.automata
}

func (s *datastore) Sessions() store.SessionRepository {
	return s.sessions
}

func (s *datastore) Close() error {
	var err error

	if nextErr := s.automata.Close(); nextErr != nil {
		err = nextErr
	}
	if nextErr := s.sessions.Close(); nextErr != nil {
		if err != nil {
			err = fmt.Errorf("%s\nadditionally, %w", err, nextErr)
		} else {
			err = nextErr
		}
	}

	return err
}
