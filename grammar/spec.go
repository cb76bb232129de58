package grammar

import (
	"fmt"
	"strings"
)

// RuleDef is a named rule of a grammar.
type RuleDef struct {
	Name string
	Rule Rule
}

// Spec is a complete grammar specification. It is the input to the grammar
// compiler.
type Spec struct {
	// Name is the name of the language.
	Name string

	// Rules holds every rule of the grammar in declaration order. The first
	// rule is the start rule. Rules whose names begin with an underscore are
	// hidden; their nodes do not show up as children in the syntax tree.
	Rules []RuleDef

	// Extras are the rules that may appear between any two tokens. Patterns
	// and strings given here are skipped by the lexer; references to rules
	// produce extra nodes in the tree.
	Extras []Rule

	// Externals names the tokens produced by the language's external scanner,
	// in the order the scanner numbers them.
	Externals []string

	// Conflicts lists groups of rules whose conflicts are expected and that
	// should be resolved at run time by forking the parse.
	Conflicts [][]string

	// Word names the token used for keyword extraction. Keywords that the
	// word token's pattern would also match are lexed by matching the word
	// token first and then checking the text against the keywords.
	Word string
}

// Rule returns the rule with the given name.
func (s Spec) Rule(name string) (Rule, bool) {
	for i := range s.Rules {
		if s.Rules[i].Name == name {
			return s.Rules[i].Rule, true
		}
	}
	return Rule{}, false
}

// Start returns the name of the start rule, or "" if there are no rules.
func (s Spec) Start() string {
	if len(s.Rules) == 0 {
		return ""
	}
	return s.Rules[0].Name
}

// AddRule appends a rule to the spec. If a rule with that name already exists
// it is replaced in place.
func (s *Spec) AddRule(name string, r Rule) {
	for i := range s.Rules {
		if s.Rules[i].Name == name {
			s.Rules[i].Rule = r
			return
		}
	}
	s.Rules = append(s.Rules, RuleDef{Name: name, Rule: r})
}

// IsHidden returns whether nodes for the rule called name are hidden from the
// tree read API.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, "_")
}

// String returns a human-readable listing of the spec's rules.
func (s Spec) String() string {
	var sb strings.Builder

	width := 0
	for i := range s.Rules {
		if len(s.Rules[i].Name) > width {
			width = len(s.Rules[i].Name)
		}
	}

	for i := range s.Rules {
		sb.WriteString(fmt.Sprintf("%-*s = %s", width, s.Rules[i].Name, s.Rules[i].Rule.String()))
		if i+1 < len(s.Rules) {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}
