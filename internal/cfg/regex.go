package cfg

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dekarrin/remora/grammar"
)

// tokenRegex converts a lexical rule into a single regular expression.
func tokenRegex(r grammar.Rule) (string, error) {
	var sb strings.Builder
	if err := writeTokenRegex(&sb, r); err != nil {
		return "", err
	}
	re := sb.String()
	if _, err := regexp.Compile(re); err != nil {
		return "", fmt.Errorf("invalid pattern %s: %w", r.String(), err)
	}
	return re, nil
}

func writeTokenRegex(sb *strings.Builder, r grammar.Rule) error {
	switch r.Kind {
	case grammar.KindBlank:
		return nil
	case grammar.KindString:
		sb.WriteString(regexp.QuoteMeta(r.Value))
	case grammar.KindPattern:
		sb.WriteString("(?:")
		sb.WriteString(r.Value)
		sb.WriteString(")")
	case grammar.KindSeq:
		for _, m := range r.Members {
			if err := writeTokenRegex(sb, m); err != nil {
				return err
			}
		}
	case grammar.KindChoice:
		optional := false
		var alts []grammar.Rule
		for _, m := range r.Members {
			if m.Kind == grammar.KindBlank {
				optional = true
				continue
			}
			alts = append(alts, m)
		}
		sb.WriteString("(?:")
		for i, m := range alts {
			if i > 0 {
				sb.WriteRune('|')
			}
			if err := writeTokenRegex(sb, m); err != nil {
				return err
			}
		}
		sb.WriteString(")")
		if optional {
			sb.WriteRune('?')
		}
	case grammar.KindRepeat, grammar.KindRepeat1:
		sb.WriteString("(?:")
		if err := writeTokenRegex(sb, r.Inner()); err != nil {
			return err
		}
		sb.WriteString(")")
		if r.Kind == grammar.KindRepeat {
			sb.WriteRune('*')
		} else {
			sb.WriteRune('+')
		}
	case grammar.KindToken, grammar.KindPrec:
		return writeTokenRegex(sb, r.Inner())
	default:
		return fmt.Errorf("%s may not appear inside a token", r.Kind)
	}
	return nil
}
