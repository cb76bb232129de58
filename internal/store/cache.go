package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dekarrin/remora"
	"github.com/dekarrin/remora/grammar"
)

// LoadLanguage returns the language defined by the grammar file data. If repo
// already holds an automaton for the file it is loaded from there; otherwise
// the grammar is compiled and the result is added to repo. The returned bool
// is whether the cached automaton was used.
//
// A cached automaton that can no longer be loaded is replaced.
func LoadLanguage(ctx context.Context, repo AutomatonRepository, data []byte) (*remora.Language, bool, error) {
	hash := HashGrammar(data)

	cached, err := repo.GetByHash(ctx, hash)
	if err == nil {
		lang, loadErr := remora.LoadCompiled(cached.Data)
		if loadErr == nil {
			return lang, true, nil
		}
		if _, err := repo.Delete(ctx, cached.ID); err != nil {
			return nil, false, fmt.Errorf("removing stale automaton: %w", err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("looking up cached automaton: %w", err)
	}

	spec, err := grammar.Decode(data)
	if err != nil {
		return nil, false, err
	}
	lang, err := remora.Compile(spec)
	if err != nil {
		return nil, false, err
	}

	compiled, err := lang.MarshalBinary()
	if err != nil {
		return nil, false, fmt.Errorf("encoding automaton: %w", err)
	}
	_, err = repo.Create(ctx, Automaton{
		GrammarHash: hash,
		Name:        lang.Name(),
		Data:        compiled,
	})
	if err != nil && !errors.Is(err, ErrConstraintViolation) {
		return nil, false, fmt.Errorf("caching automaton: %w", err)
	}

	return lang, false, nil
}
