// Package store provides data access objects for compiled automata and parse
// sessions.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConstraintViolation = errors.New("a uniqueness constraint was violated")
	ErrNotFound            = errors.New("the requested resource was not found")
)

// Store holds all the repositories.
type Store interface {
	Automata() AutomatonRepository
	Sessions() SessionRepository
	Close() error
}

// Automaton is a compiled grammar kept so the grammar does not have to be
// compiled again.
type Automaton struct {
	ID uuid.UUID

	// GrammarHash identifies the grammar file the automaton was compiled
	// from. See HashGrammar.
	GrammarHash string

	// Name is the name of the language.
	Name string

	// Data is the automaton as returned by remora.Language.MarshalBinary.
	Data []byte

	Created time.Time
}

type AutomatonRepository interface {
	// Create creates a new Automaton. All attributes except for
	// auto-generated fields are taken from the provided Automaton. Two
	// automata may not have the same GrammarHash.
	Create(ctx context.Context, a Automaton) (Automaton, error)
	GetByID(ctx context.Context, id uuid.UUID) (Automaton, error)
	GetByHash(ctx context.Context, hash string) (Automaton, error)
	GetAll(ctx context.Context) ([]Automaton, error)
	Delete(ctx context.Context, id uuid.UUID) (Automaton, error)
	Close() error
}

// Session is a source text being edited and re-parsed by a client.
type Session struct {
	ID uuid.UUID

	// Language is the name of the language the source is parsed with.
	Language string

	Source []byte

	// Edits is how many edits have been applied since the session was
	// created.
	Edits int

	Created  time.Time
	Modified time.Time
}

type SessionRepository interface {
	// Create creates a new Session. All attributes except for auto-generated
	// fields are taken from the provided Session.
	Create(ctx context.Context, s Session) (Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (Session, error)
	GetAll(ctx context.Context) ([]Session, error)
	Update(ctx context.Context, id uuid.UUID, s Session) (Session, error)
	Delete(ctx context.Context, id uuid.UUID) (Session, error)
	Close() error
}

// HashGrammar returns the key automata compiled from the grammar file data
// are stored under.
func HashGrammar(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
