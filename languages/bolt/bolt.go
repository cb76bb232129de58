// Package bolt provides the Bolt language: a grammar for highlighting Bolt
// source that recognizes blocks, arrays, strings, literals, keywords,
// operators and nested comments without building a full expression tree.
package bolt

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/dekarrin/remora"
	"github.com/dekarrin/remora/grammar"
	"github.com/dekarrin/remora/lex"
)

//go:embed bolt.toml
var grammarFile []byte

var (
	lang    *remora.Language
	langErr error
	once    sync.Once
)

// Grammar returns the Bolt grammar.
func Grammar() (grammar.Spec, error) {
	spec, err := grammar.Decode(grammarFile)
	if err != nil {
		return grammar.Spec{}, fmt.Errorf("bolt grammar: %w", err)
	}
	return spec, nil
}

// GrammarFile returns the contents of the Bolt grammar file.
func GrammarFile() []byte {
	out := make([]byte, len(grammarFile))
	copy(out, grammarFile)
	return out
}

// Language returns the compiled Bolt language. It is compiled on first use
// and shared after that.
func Language() (*remora.Language, error) {
	once.Do(func() {
		spec, err := Grammar()
		if err != nil {
			langErr = err
			return
		}
		compiled, err := remora.Compile(spec)
		if err != nil {
			langErr = fmt.Errorf("bolt grammar: %w", err)
			return
		}
		lang = compiled.WithScanner(newScanner)
	})
	return lang, langErr
}

// FromCompiled attaches the Bolt scanner to a language restored with
// remora.LoadCompiled from a compiled Bolt automaton.
func FromCompiled(data []byte) (*remora.Language, error) {
	compiled, err := remora.LoadCompiled(data)
	if err != nil {
		return nil, err
	}
	if compiled.Name() != "bolt" {
		return nil, fmt.Errorf("compiled language is %q, not bolt", compiled.Name())
	}
	return compiled.WithScanner(newScanner), nil
}

func newScanner() lex.Scanner {
	return NewScanner()
}
