// Package service has services for interacting with the remora server backend
// decoupled from the API that accesses it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dekarrin/remora"
	"github.com/dekarrin/remora/internal/store"
	"github.com/dekarrin/remora/internal/util"
	"github.com/dekarrin/remora/server/serr"
	"github.com/dekarrin/remora/syntax"
	"github.com/google/uuid"
)

// Service is a service for parsing and incrementally re-parsing sources held
// in sessions. Sources are kept in the persistence store; the trees built from
// them are held in memory and rebuilt from the stored source when missing.
//
// The zero-value of Service is not ready to be used; call New to create one.
type Service struct {
	db   store.Store
	opts remora.Options

	mtx   sync.RWMutex
	langs map[string]*remora.Language
	live  map[uuid.UUID]*liveSession
}

type liveSession struct {
	mtx    sync.Mutex
	parser *remora.Parser
	tree   *syntax.Tree
	gone   bool
}

// Session is the current state of a parse session.
type Session struct {
	ID       uuid.UUID
	Language string
	Source   []byte
	Edits    int
	Tree     *syntax.Tree

	// Diagnostics describes each syntax error in Tree.
	Diagnostics []remora.Diagnostic

	// Stats is the work done by the parse that produced Tree.
	Stats remora.Stats
}

// New creates a Service that persists sessions to db and parses with opts.
func New(db store.Store, opts remora.Options) *Service {
	return &Service{
		db:    db,
		opts:  opts,
		langs: map[string]*remora.Language{},
		live:  map[uuid.UUID]*liveSession{},
	}
}

// AddLanguage makes lang available to new sessions under its name. A
// language already added under the same name is replaced.
func (svc *Service) AddLanguage(lang *remora.Language) error {
	// parsers are created per session, so catch a missing scanner now
	if _, err := remora.NewParser(lang, svc.opts); err != nil {
		return fmt.Errorf("language %q: %w", lang.Name(), err)
	}

	svc.mtx.Lock()
	defer svc.mtx.Unlock()
	svc.langs[lang.Name()] = lang
	return nil
}

// LoadGrammar compiles the grammar file data, or loads its automaton from the
// store if it has been compiled before, and adds the result with AddLanguage.
// The returned bool is whether a stored automaton was used.
func (svc *Service) LoadGrammar(ctx context.Context, data []byte) (*remora.Language, bool, error) {
	lang, cached, err := store.LoadLanguage(ctx, svc.db.Automata(), data)
	if err != nil {
		return nil, false, err
	}
	if err := svc.AddLanguage(lang); err != nil {
		return nil, false, err
	}
	return lang, cached, nil
}

// Languages returns the names of all languages sessions may be created with,
// in sorted order.
func (svc *Service) Languages() []string {
	svc.mtx.RLock()
	defer svc.mtx.RUnlock()

	return util.OrderedKeys(svc.langs)
}

func (svc *Service) language(name string) (*remora.Language, error) {
	svc.mtx.RLock()
	defer svc.mtx.RUnlock()

	lang, ok := svc.langs[name]
	if !ok {
		return nil, serr.New(fmt.Sprintf("language %q", name), serr.ErrNoLanguage)
	}
	return lang, nil
}

// CreateSession parses source with the named language and stores it as a new
// session.
//
// The returned error will match serr.ErrNoLanguage if no such language is
// loaded, and serr.ErrDB if the store could not be updated.
func (svc *Service) CreateSession(ctx context.Context, language string, source []byte) (Session, error) {
	lang, err := svc.language(language)
	if err != nil {
		return Session{}, err
	}
	p, err := remora.NewParser(lang, svc.opts)
	if err != nil {
		return Session{}, err
	}
	tree := p.Parse(source)

	stored, err := svc.db.Sessions().Create(ctx, store.Session{
		Language: language,
		Source:   source,
	})
	if err != nil {
		return Session{}, serr.WrapDB("could not create session", err)
	}

	svc.mtx.Lock()
	svc.live[stored.ID] = &liveSession{parser: p, tree: tree}
	svc.mtx.Unlock()

	return svc.view(stored, p, tree), nil
}

// GetSession returns the session with the given ID.
//
// The returned error will match serr.ErrNotFound if there is no such session.
func (svc *Service) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	stored, err := svc.getStored(ctx, id)
	if err != nil {
		return Session{}, err
	}

	ls, err := svc.liveFor(stored)
	if err != nil {
		return Session{}, err
	}
	ls.mtx.Lock()
	defer ls.mtx.Unlock()
	if ls.gone {
		return Session{}, serr.New("", serr.ErrNotFound)
	}

	// the source may have been edited while waiting on the lock
	stored, err = svc.getStored(ctx, id)
	if err != nil {
		return Session{}, err
	}

	return svc.view(stored, ls.parser, ls.tree), nil
}

// EditSession replaces the bytes [start, oldEnd) of the session's source with
// text and re-parses it incrementally.
//
// The returned error will match serr.ErrNotFound if there is no such session
// and serr.ErrBadArgument if the range is not within the source.
func (svc *Service) EditSession(ctx context.Context, id uuid.UUID, start, oldEnd int, text []byte) (Session, error) {
	stored, err := svc.getStored(ctx, id)
	if err != nil {
		return Session{}, err
	}

	ls, err := svc.liveFor(stored)
	if err != nil {
		return Session{}, err
	}
	ls.mtx.Lock()
	defer ls.mtx.Unlock()
	if ls.gone {
		return Session{}, serr.New("", serr.ErrNotFound)
	}

	// the source may have been edited while waiting on the lock
	stored, err = svc.getStored(ctx, id)
	if err != nil {
		return Session{}, err
	}

	src := stored.Source
	if start < 0 || oldEnd < start || oldEnd > len(src) {
		msg := fmt.Sprintf("range [%d, %d) is not within the %d-byte source", start, oldEnd, len(src))
		return Session{}, serr.New(msg, serr.ErrBadArgument)
	}

	edit, newSrc := syntax.NewEdit(src, start, oldEnd, text)
	tree, err := ls.parser.ParseIncremental(ls.tree, edit, newSrc)
	if err != nil {
		return Session{}, fmt.Errorf("re-parse: %w", err)
	}

	stored.Source = newSrc
	stored.Edits++
	updated, err := svc.db.Sessions().Update(ctx, id, stored)
	if err != nil {
		return Session{}, serr.WrapDB("could not update session", err)
	}
	ls.tree = tree

	return svc.view(updated, ls.parser, tree), nil
}

// DeleteSession removes the session with the given ID and returns its final
// state.
//
// The returned error will match serr.ErrNotFound if there is no such session.
func (svc *Service) DeleteSession(ctx context.Context, id uuid.UUID) (Session, error) {
	stored, err := svc.db.Sessions().Delete(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, serr.New("", serr.ErrNotFound)
		}
		return Session{}, serr.WrapDB("could not delete session", err)
	}

	svc.mtx.Lock()
	ls, ok := svc.live[id]
	delete(svc.live, id)
	svc.mtx.Unlock()

	deleted := Session{
		ID:       stored.ID,
		Language: stored.Language,
		Source:   stored.Source,
		Edits:    stored.Edits,
	}
	if ok {
		ls.mtx.Lock()
		ls.gone = true
		deleted.Tree = ls.tree
		ls.mtx.Unlock()
	}
	return deleted, nil
}

// Close releases the store.
func (svc *Service) Close() error {
	return svc.db.Close()
}

func (svc *Service) getStored(ctx context.Context, id uuid.UUID) (store.Session, error) {
	stored, err := svc.db.Sessions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Session{}, serr.New("", serr.ErrNotFound)
		}
		return store.Session{}, serr.WrapDB("could not get session", err)
	}
	return stored, nil
}

// liveFor returns the in-memory state of a stored session, parsing its source
// if the session was created by an earlier run of the server.
func (svc *Service) liveFor(stored store.Session) (*liveSession, error) {
	svc.mtx.RLock()
	ls, ok := svc.live[stored.ID]
	svc.mtx.RUnlock()
	if ok {
		return ls, nil
	}

	lang, err := svc.language(stored.Language)
	if err != nil {
		return nil, err
	}
	p, err := remora.NewParser(lang, svc.opts)
	if err != nil {
		return nil, err
	}
	tree := p.Parse(stored.Source)

	svc.mtx.Lock()
	defer svc.mtx.Unlock()
	if ls, ok := svc.live[stored.ID]; ok {
		return ls, nil
	}
	ls = &liveSession{parser: p, tree: tree}
	svc.live[stored.ID] = ls
	return ls, nil
}

func (svc *Service) view(stored store.Session, p *remora.Parser, tree *syntax.Tree) Session {
	return Session{
		ID:          stored.ID,
		Language:    stored.Language,
		Source:      stored.Source,
		Edits:       stored.Edits,
		Tree:        tree,
		Diagnostics: p.Language().Diagnose(tree),
		Stats:       p.Stats(),
	}
}
