package command

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	// VerbAliases maps shorthand verbs (which must be the first word of a
	// command) to their canonical forms. They are all uppercase.
	VerbAliases = map[string]string{
		"E":      "EDIT",
		"I":      "INSERT",
		"INS":    "INSERT",
		"D":      "DELETE",
		"DEL":    "DELETE",
		"S":      "SHOW",
		"SRC":    "SHOW",
		"SOURCE": "SHOW",
		"T":      "TREE",
		"SEXP":   "TREE",
		"ERR":    "ERRORS",
		"BYE":    "QUIT",
		"EXIT":   "QUIT",
		"Q":      "QUIT",
		"?":      "HELP",
		"/?":     "HELP",
		"-H":     "HELP",
		"H":      "HELP",
	}
)

// ParseCommand parses a command from the given text. If it cannot, a non-nil
// error is returned.
//
// If an empty string or a string composed only of whitespace is passed in, nil
// error is returned and a zero value for Command will be returned.
func ParseCommand(toParse string) (Command, error) {
	var parsedCmd Command

	tokens, err := tokenize(toParse)
	if err != nil {
		return parsedCmd, err
	}

	// some simple sanity checking, make sure we at least have a command
	if len(tokens) < 1 {
		return parsedCmd, nil
	}

	verb := strings.ToUpper(tokens[0])
	if canon, ok := VerbAliases[verb]; ok {
		verb = canon
	}
	parsedCmd.Verb = verb
	args := tokens[1:]

	switch verb {
	case "EDIT":
		// EDIT START END TEXT
		if len(args) != 3 {
			return parsedCmd, fmt.Errorf("%s needs a start offset, an end offset and the new text", tokens[0])
		}
		if parsedCmd.Start, parsedCmd.End, err = parseRange(args[0], args[1]); err != nil {
			return parsedCmd, err
		}
		parsedCmd.Text = args[2]
	case "INSERT":
		// INSERT POS TEXT
		if len(args) != 2 {
			return parsedCmd, fmt.Errorf("%s needs an offset and the text to insert", tokens[0])
		}
		if parsedCmd.Start, err = parseOffset(args[0]); err != nil {
			return parsedCmd, err
		}
		parsedCmd.End = parsedCmd.Start
		parsedCmd.Text = args[1]
	case "DELETE":
		// DELETE START END
		if len(args) != 2 {
			return parsedCmd, fmt.Errorf("%s needs a start offset and an end offset", tokens[0])
		}
		if parsedCmd.Start, parsedCmd.End, err = parseRange(args[0], args[1]); err != nil {
			return parsedCmd, err
		}
	case "HELP":
		// help takes an optional argument
		if len(args) > 1 {
			return parsedCmd, fmt.Errorf("%s takes at most one command name", tokens[0])
		}
		if len(args) == 1 {
			parsedCmd.Text = strings.ToUpper(args[0])
		}
	case "SHOW", "TREE", "DUMP", "ERRORS", "STATS", "CHANGES", "QUIT":
		// these take no additional args, make sure this is true
		if len(args) > 0 {
			return parsedCmd, fmt.Errorf("%s does not take arguments; type %s by itself", tokens[0], tokens[0])
		}
	default:
		return parsedCmd, fmt.Errorf("I don't know what you mean by %q", tokens[0])
	}

	return parsedCmd, nil
}

func parseOffset(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a byte offset", s)
	}
	return n, nil
}

func parseRange(startStr, endStr string) (int, int, error) {
	start, err := parseOffset(startStr)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseOffset(endStr)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("end offset %d is before start offset %d", end, start)
	}
	return start, end, nil
}

// tokenize splits input on whitespace. A token starting with a double quote
// or backquote is read as a Go string literal, so text containing spaces,
// newlines or nothing at all can be given.
func tokenize(s string) ([]string, error) {
	var tokens []string
	rs := []rune(s)

	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}

		if rs[i] == '"' || rs[i] == '`' {
			quote := rs[i]
			j := i + 1
			for ; j < len(rs); j++ {
				if quote == '"' && rs[j] == '\\' {
					j++
					continue
				}
				if rs[j] == quote {
					break
				}
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("unterminated quoted text")
			}
			text, err := strconv.Unquote(string(rs[i : j+1]))
			if err != nil {
				return nil, fmt.Errorf("bad quoted text %s: %w", string(rs[i:j+1]), err)
			}
			tokens = append(tokens, text)
			i = j + 1
			continue
		}

		j := i
		for j < len(rs) && !unicode.IsSpace(rs[j]) {
			j++
		}
		tokens = append(tokens, string(rs[i:j]))
		i = j
	}

	return tokens, nil
}
