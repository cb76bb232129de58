// Package grammar holds the rule specification language that grammars are
// written in. A grammar is an ordered list of named rules, each of which is a
// tree of Rule values, plus the declarations (extras, externals, conflicts,
// word token) that control how the rules are compiled into an automaton.
package grammar

import (
	"fmt"
	"strings"
)

// Kind is the variant of a Rule.
type Kind int

const (
	KindBlank Kind = iota
	KindString
	KindPattern
	KindSymbol
	KindSeq
	KindChoice
	KindRepeat
	KindRepeat1
	KindToken
	KindPrec
	KindPrecDynamic
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "BLANK"
	case KindString:
		return "STRING"
	case KindPattern:
		return "PATTERN"
	case KindSymbol:
		return "SYMBOL"
	case KindSeq:
		return "SEQ"
	case KindChoice:
		return "CHOICE"
	case KindRepeat:
		return "REPEAT"
	case KindRepeat1:
		return "REPEAT1"
	case KindToken:
		return "TOKEN"
	case KindPrec:
		return "PREC"
	case KindPrecDynamic:
		return "PREC_DYNAMIC"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Assoc is the associativity attached to a precedence annotation.
type Assoc int

const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
)

func (a Assoc) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	default:
		return "none"
	}
}

// Rule is a single node in the definition of a grammar rule. Which fields are
// meaningful depends on Kind:
//
//   - KindString: Value is the literal text.
//   - KindPattern: Value is the regular expression source.
//   - KindSymbol: Value is the name of the referenced rule.
//   - KindSeq, KindChoice: Members holds the sub-rules in order.
//   - KindRepeat, KindRepeat1, KindToken: Members holds exactly one sub-rule.
//   - KindPrec: Members holds one sub-rule, Prec and Assoc hold the annotation.
//   - KindPrecDynamic: Members holds one sub-rule, Prec holds the weight.
type Rule struct {
	Kind    Kind
	Value   string
	Members []Rule
	Prec    int
	Assoc   Assoc
}

// Blank matches the empty string.
func Blank() Rule {
	return Rule{Kind: KindBlank}
}

// Str matches the literal text s.
func Str(s string) Rule {
	return Rule{Kind: KindString, Value: s}
}

// Pat matches the regular expression re.
func Pat(re string) Rule {
	return Rule{Kind: KindPattern, Value: re}
}

// Sym references the rule called name.
func Sym(name string) Rule {
	return Rule{Kind: KindSymbol, Value: name}
}

// Seq matches each of rules in order. A Seq of exactly one rule is that rule.
func Seq(rules ...Rule) Rule {
	if len(rules) == 1 {
		return rules[0]
	}
	return Rule{Kind: KindSeq, Members: rules}
}

// Choice matches any one of rules. A Choice of exactly one rule is that rule.
func Choice(rules ...Rule) Rule {
	if len(rules) == 1 {
		return rules[0]
	}
	return Rule{Kind: KindChoice, Members: rules}
}

// Repeat matches r zero or more times.
func Repeat(r Rule) Rule {
	return Rule{Kind: KindRepeat, Members: []Rule{r}}
}

// Repeat1 matches r one or more times.
func Repeat1(r Rule) Rule {
	return Rule{Kind: KindRepeat1, Members: []Rule{r}}
}

// Optional matches r or nothing.
func Optional(r Rule) Rule {
	return Choice(r, Blank())
}

// Token collapses everything r matches into a single lexical token. r may only
// contain strings, patterns and the sequence/choice/repeat combinators.
func Token(r Rule) Rule {
	return Rule{Kind: KindToken, Members: []Rule{r}}
}

// Prec gives r a precedence with no associativity.
func Prec(n int, r Rule) Rule {
	return Rule{Kind: KindPrec, Prec: n, Assoc: AssocNone, Members: []Rule{r}}
}

// PrecLeft gives r a left-associative precedence.
func PrecLeft(n int, r Rule) Rule {
	return Rule{Kind: KindPrec, Prec: n, Assoc: AssocLeft, Members: []Rule{r}}
}

// PrecRight gives r a right-associative precedence.
func PrecRight(n int, r Rule) Rule {
	return Rule{Kind: KindPrec, Prec: n, Assoc: AssocRight, Members: []Rule{r}}
}

// PrecDynamic gives r a weight that is used to pick between competing parses
// at run time when the grammar declares the ambiguity as a conflict.
func PrecDynamic(n int, r Rule) Rule {
	return Rule{Kind: KindPrecDynamic, Prec: n, Members: []Rule{r}}
}

// Inner returns the single member of a wrapping rule (Repeat, Repeat1, Token,
// Prec, PrecDynamic). It panics if r is not a wrapping rule.
func (r Rule) Inner() Rule {
	switch r.Kind {
	case KindRepeat, KindRepeat1, KindToken, KindPrec, KindPrecDynamic:
		return r.Members[0]
	default:
		panic(fmt.Sprintf("%s rule has no inner rule", r.Kind))
	}
}

// IsLexical returns whether r is made only of strings, patterns, blanks, and
// the combinators that may appear inside of a Token.
func (r Rule) IsLexical() bool {
	switch r.Kind {
	case KindString, KindPattern, KindBlank:
		return true
	case KindSymbol:
		return false
	case KindPrecDynamic:
		return false
	default:
		for i := range r.Members {
			if !r.Members[i].IsLexical() {
				return false
			}
		}
		return true
	}
}

// Symbols returns the names of every rule referenced by r, in order of first
// appearance.
func (r Rule) Symbols() []string {
	var names []string
	seen := map[string]bool{}

	var walk func(Rule)
	walk = func(cur Rule) {
		if cur.Kind == KindSymbol {
			if !seen[cur.Value] {
				seen[cur.Value] = true
				names = append(names, cur.Value)
			}
			return
		}
		for i := range cur.Members {
			walk(cur.Members[i])
		}
	}
	walk(r)

	return names
}

// String returns the rule in the notation accepted by ParseRule. Parsing the
// returned string gives back an equivalent Rule.
func (r Rule) String() string {
	return r.notation(precChoice)
}

// binding levels used when deciding where parentheses are needed.
const (
	precChoice = iota
	precSeq
	precPostfix
)

func (r Rule) notation(ctx int) string {
	switch r.Kind {
	case KindBlank:
		return "_"
	case KindString:
		return quoteString(r.Value)
	case KindPattern:
		return "/" + strings.ReplaceAll(r.Value, "/", `\/`) + "/"
	case KindSymbol:
		return r.Value
	case KindSeq:
		parts := make([]string, len(r.Members))
		for i := range r.Members {
			parts[i] = r.Members[i].notation(precSeq)
		}
		s := strings.Join(parts, " ")
		if ctx > precSeq {
			return "(" + s + ")"
		}
		return s
	case KindChoice:
		// optional sugar
		if len(r.Members) == 2 && r.Members[1].Kind == KindBlank {
			return r.Members[0].notation(precPostfix) + "?"
		}
		parts := make([]string, len(r.Members))
		for i := range r.Members {
			parts[i] = r.Members[i].notation(precSeq)
		}
		s := strings.Join(parts, " | ")
		if ctx > precChoice {
			return "(" + s + ")"
		}
		return s
	case KindRepeat:
		return r.Members[0].notation(precPostfix) + "*"
	case KindRepeat1:
		return r.Members[0].notation(precPostfix) + "+"
	case KindToken:
		return "token(" + r.Members[0].notation(precChoice) + ")"
	case KindPrec:
		name := "prec"
		switch r.Assoc {
		case AssocLeft:
			name = "prec.left"
		case AssocRight:
			name = "prec.right"
		}
		return fmt.Sprintf("%s(%d, %s)", name, r.Prec, r.Members[0].notation(precChoice))
	case KindPrecDynamic:
		return fmt.Sprintf("prec.dynamic(%d, %s)", r.Prec, r.Members[0].notation(precChoice))
	default:
		return fmt.Sprintf("<%s>", r.Kind)
	}
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteRune('\'')
	for _, ch := range s {
		switch ch {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(ch)
		}
	}
	sb.WriteRune('\'')
	return sb.String()
}
