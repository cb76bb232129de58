package grammar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBadFormat is returned when a grammar file does not declare the
	// REMORA format in its header.
	ErrBadFormat = errors.New(`file does not have a 'format = "REMORA"' entry`)

	// ErrBadType is returned when a grammar file declares a type other than
	// GRAMMAR.
	ErrBadType = errors.New(`file does not have a 'type = "GRAMMAR"' entry`)

	// ErrNoRules is returned when a grammar file defines no rules.
	ErrNoRules = errors.New("grammar does not define any rules")
)

// Problem is a single issue found while compiling a grammar.
type Problem struct {
	// Rule is the name of the offending rule. It may be empty if the problem
	// is not tied to a rule.
	Rule string

	// Msg describes the problem.
	Msg string
}

func (p Problem) String() string {
	if p.Rule == "" {
		return p.Msg
	}
	return fmt.Sprintf("rule %q: %s", p.Rule, p.Msg)
}

// GrammarError is returned when a grammar cannot be compiled into an
// automaton. It carries every problem that was found.
type GrammarError struct {
	Problems []Problem
}

// NewGrammarError creates a GrammarError with a single problem.
func NewGrammarError(rule, format string, a ...interface{}) *GrammarError {
	return &GrammarError{Problems: []Problem{{Rule: rule, Msg: fmt.Sprintf(format, a...)}}}
}

// Add adds a problem to the error.
func (e *GrammarError) Add(rule, format string, a ...interface{}) {
	e.Problems = append(e.Problems, Problem{Rule: rule, Msg: fmt.Sprintf(format, a...)})
}

// Rule returns the rule named by the first problem.
func (e *GrammarError) Rule() string {
	if len(e.Problems) == 0 {
		return ""
	}
	return e.Problems[0].Rule
}

// OrNil returns e if it holds any problems, otherwise nil.
func (e *GrammarError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

func (e *GrammarError) Error() string {
	if len(e.Problems) == 1 {
		return "grammar error: " + e.Problems[0].String()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("grammar has %d errors:", len(e.Problems)))
	for i := range e.Problems {
		sb.WriteString("\n  ERR: ")
		sb.WriteString(e.Problems[i].String())
	}
	return sb.String()
}
