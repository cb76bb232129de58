package remora

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dekarrin/remora/internal/command"
	"github.com/dekarrin/remora/internal/input"
	"github.com/dekarrin/remora/syntax"
	"github.com/dekarrin/rosed"
)

// Engine is an interactive shell that holds one source text and its tree.
// Each edit typed into the shell is applied to both and the tree is re-parsed
// incrementally.
type Engine struct {
	parser      *Parser
	src         []byte
	tree        *syntax.Tree
	lastEdit    *syntax.Tree
	in          command.Reader
	out         *bufio.Writer
	forceDirect bool
	running     bool
}

const consoleOutputWidth = 80

// EngineOptions controls how an Engine reads input.
type EngineOptions struct {
	// ForceDirect disables readline even when attached to a terminal.
	ForceDirect bool

	// HistoryFile is where readline keeps command history. Empty means no
	// history is kept.
	HistoryFile string

	// Parser holds the options for the engine's parser.
	Parser Options
}

// NewEngine creates a new engine ready to operate on the given input and
// output streams, starting with src parsed by lang.
//
// If nil is given for the input stream, stdin is used. If nil is given for the
// output stream, stdout is used.
func NewEngine(inputStream io.Reader, outputStream io.Writer, lang *Language, src []byte, opts EngineOptions) (*Engine, error) {
	if inputStream == nil {
		inputStream = os.Stdin
	}
	if outputStream == nil {
		outputStream = os.Stdout
	}

	p, err := NewParser(lang, opts.Parser)
	if err != nil {
		return nil, err
	}

	eng := &Engine{
		parser:      p,
		src:         src,
		out:         bufio.NewWriter(outputStream),
		forceDirect: opts.ForceDirect,
	}
	eng.tree = p.Parse(src)

	useReadline := !opts.ForceDirect && inputStream == os.Stdin && outputStream == os.Stdout
	if useReadline {
		eng.in, err = input.NewInteractiveReader(opts.HistoryFile)
		if err != nil {
			return nil, fmt.Errorf("initializing interactive-mode input reader: %w", err)
		}
	} else {
		eng.in = input.NewDirectReader(inputStream)
	}

	return eng, nil
}

// Tree returns the current tree.
func (eng *Engine) Tree() *syntax.Tree {
	return eng.tree
}

// Source returns the current source text.
func (eng *Engine) Source() []byte {
	return eng.src
}

// Close closes all resources associated with the Engine, including any
// readline-related resources created for interactive mode.
func (eng *Engine) Close() error {
	if eng.running {
		return fmt.Errorf("cannot close a running engine")
	}

	err := eng.in.Close()
	if err != nil {
		return fmt.Errorf("close command reader: %w", err)
	}

	return nil
}

// RunUntilQuit reads commands and applies them until QUIT is received or the
// input ends.
func (eng *Engine) RunUntilQuit() error {
	introMsg := fmt.Sprintf("remora shell for %s\n", eng.parser.Language().Name())
	if eng.forceDirect {
		introMsg += "(direct input mode)\n"
	}
	introMsg += "type HELP for commands\n"
	if err := eng.write(introMsg); err != nil {
		return err
	}

	eng.running = true
	// so we dont have to remember to do this on every returned error condition
	defer func() {
		eng.running = false
	}()

	for eng.running {
		cmd, err := command.Get(eng.in, eng.out)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("get user command: %w", err)
		}

		if cmd.Verb == "QUIT" {
			eng.running = false
			break
		}

		output, err := eng.Execute(cmd)
		if err != nil {
			output = rosed.Edit(err.Error()).Wrap(consoleOutputWidth).String()
		}
		if err := eng.write(output + "\n"); err != nil {
			return err
		}
	}

	return eng.write("Goodbye\n")
}

// Execute applies cmd and returns the text to show for it.
func (eng *Engine) Execute(cmd command.Command) (string, error) {
	switch cmd.Verb {
	case "EDIT", "INSERT", "DELETE":
		return eng.applyEdit(cmd.Start, cmd.End, cmd.Text)
	case "SHOW":
		return string(eng.src), nil
	case "TREE":
		return eng.tree.String(), nil
	case "DUMP":
		return eng.tree.Dump(), nil
	case "ERRORS":
		diags := eng.parser.Language().Diagnose(eng.tree)
		if len(diags) == 0 {
			return "no syntax errors", nil
		}
		lines := make([]string, len(diags))
		for i := range diags {
			lines[i] = diags[i].String()
		}
		return strings.Join(lines, "\n"), nil
	case "STATS":
		st := eng.parser.Stats()
		return fmt.Sprintf("tokens lexed: %d\nnodes reused: %d\nmost versions: %d", st.TokensLexed, st.NodesReused, st.MaxVersions), nil
	case "CHANGES":
		if eng.lastEdit == nil {
			return "no edits yet", nil
		}
		var sb strings.Builder
		for _, r := range eng.lastEdit.ChangedRanges() {
			sb.WriteString(r.String())
			sb.WriteRune('\n')
		}
		return strings.TrimSuffix(sb.String(), "\n"), nil
	case "HELP":
		return helpText(cmd.Text), nil
	default:
		return "", fmt.Errorf("%s is not a command of this shell", cmd.Verb)
	}
}

func (eng *Engine) applyEdit(start, end int, text string) (string, error) {
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: [%d, %d) is not a valid range", syntax.ErrInvalidEdit, start, end)
	}
	if end > len(eng.src) {
		return "", fmt.Errorf("offset %d is past the end of the %d-byte source", end, len(eng.src))
	}

	edit, newSrc := syntax.NewEdit(eng.src, start, end, []byte(text))
	edited, err := eng.tree.Edit(edit)
	if err != nil {
		return "", err
	}
	tree, err := eng.parser.Reparse(edited, newSrc)
	if err != nil {
		return "", err
	}

	eng.src = newSrc
	eng.tree = tree
	eng.lastEdit = edited
	return tree.String(), nil
}

func (eng *Engine) write(s string) error {
	if _, err := eng.out.WriteString(s); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := eng.out.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}

var helpTopics = map[string]string{
	"EDIT":    "EDIT START END TEXT - replace bytes [START, END) with TEXT and re-parse",
	"INSERT":  "INSERT POS TEXT - insert TEXT at byte POS and re-parse",
	"DELETE":  "DELETE START END - remove bytes [START, END) and re-parse",
	"SHOW":    "SHOW - print the current source",
	"TREE":    "TREE - print the tree with tokens shown as their text",
	"DUMP":    "DUMP - print every node of the tree with its byte range",
	"ERRORS":  "ERRORS - list the syntax errors in the tree",
	"STATS":   "STATS - show how much of the last parse was reused",
	"CHANGES": "CHANGES - show the ranges invalidated by the last edit",
	"QUIT":    "QUIT - leave the shell",
}

var helpOrder = []string{"EDIT", "INSERT", "DELETE", "SHOW", "TREE", "DUMP", "ERRORS", "STATS", "CHANGES", "QUIT"}

func helpText(topic string) string {
	if topic != "" {
		if text, ok := helpTopics[topic]; ok {
			return text
		}
		return fmt.Sprintf("There is no command called %q", topic)
	}

	data := [][]string{{"Command", "Description"}}
	for _, verb := range helpOrder {
		desc := helpTopics[verb]
		desc = desc[strings.Index(desc, " - ")+3:]
		data = append(data, []string{verb, desc})
	}
	msg := "TEXT may be a bare word or a Go-quoted string such as \"a\\nb\" or \"\"."
	return rosed.Edit("").
		InsertTableOpts(0, data, consoleOutputWidth, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String() + "\n" + rosed.Edit(msg).Wrap(consoleOutputWidth).String()
}
