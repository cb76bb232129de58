/*
Remora parses a source file with a grammar and prints the resulting syntax
tree.

Usage:

	remora [flags] GRAMMAR [FILE]

GRAMMAR is the path to a TOML grammar file, or "@bolt" for the built-in Bolt
language. FILE is the source to parse; if it is not given, the source is read
from stdin. The tree is printed as an S-expression of its named nodes, and every
syntax error found is listed on stderr.

The flags are:

	--version
		Give the current version of remora and then exit.

	-t, --table
		Print the ACTION/GOTO table of the compiled grammar. If no FILE is
		given, nothing is parsed.

	-e, --emit
		Print the grammar back out as a TOML grammar file with every rule in
		normalized notation. If no FILE is given, nothing is parsed.

	-T, --tree
		Print the tree with one node per line, indented by depth and with the
		byte range of every node, instead of as an S-expression.

	-i, --interactive
		Start a shell for editing the source and re-parsing it incrementally
		after every edit. Type "HELP" in the shell for its commands. Without a
		FILE the shell starts with an empty source.

	-d, --direct
		Force reading directly from the console in interactive mode as opposed
		to using GNU readline based routines, even if launched in a tty with
		stdin and stdout.

	-c, --cache DB
		Keep compiled grammars in the sqlite database file DB so unchanged
		grammars are not compiled again. If not given, defaults to the value of
		environment variable REMORA_CACHE. If neither is set, grammars are
		always compiled.

	--strict
		Exit with status 2 if the source has syntax errors.

	-v, --verbose
		Log more details to stderr. May be given more than once.

The exit status is 0 on success, 1 for bad usage or a grammar that cannot be
compiled, 2 if --strict is given and the source has syntax errors, and 3 if a
file could not be read or written.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/remora"
	"github.com/dekarrin/remora/grammar"
	"github.com/dekarrin/remora/internal/store"
	"github.com/dekarrin/remora/internal/store/sqlite"
	"github.com/dekarrin/remora/internal/version"
	"github.com/dekarrin/remora/languages/bolt"
	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitUsageError indicates the program was called incorrectly or the
	// grammar could not be compiled.
	ExitUsageError

	// ExitParseErrors indicates the source had syntax errors and --strict was
	// given.
	ExitParseErrors

	// ExitIOError indicates a file could not be read or written.
	ExitIOError
)

const (
	EnvCache = "REMORA_CACHE"

	builtinBolt = "@bolt"
)

var (
	returnCode int = ExitSuccess

	flagVersion     = pflag.Bool("version", false, "Give the current version of remora and then exit.")
	flagTable       = pflag.BoolP("table", "t", false, "Print the ACTION/GOTO table of the compiled grammar.")
	flagEmit        = pflag.BoolP("emit", "e", false, "Print the grammar as a normalized TOML grammar file.")
	flagTree        = pflag.BoolP("tree", "T", false, "Print the tree one node per line with byte ranges.")
	flagInteractive = pflag.BoolP("interactive", "i", false, "Edit the source and re-parse it in an interactive shell.")
	flagDirect      = pflag.BoolP("direct", "d", false, "Force reading directly from stdin instead of going through GNU readline.")
	flagCache       = pflag.StringP("cache", "c", "", "Keep compiled grammars in the given sqlite DB file.")
	flagStrict      = pflag.Bool("strict", false, "Exit with status 2 if the source has syntax errors.")
	flagVerbose     = pflag.CountP("verbose", "v", "Log more details. May be repeated.")
)

var log = commonlog.GetLogger("remora")

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			// we are panicking, make sure we dont lose the panic just because
			// we checked
			panic(panicErr)
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	commonlog.Configure(*flagVerbose, nil)

	args := pflag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: no grammar given\nDo -h for help.\n")
		returnCode = ExitUsageError
		return
	}
	if len(args) > 2 {
		fmt.Fprintf(os.Stderr, "ERROR: too many arguments\nDo -h for help.\n")
		returnCode = ExitUsageError
		return
	}

	if *flagEmit {
		if err := emitGrammar(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitUsageError
			var ioErr ioError
			if errors.As(err, &ioErr) {
				returnCode = ExitIOError
			}
			return
		}
		if len(args) < 2 && !*flagTable && !*flagInteractive {
			return
		}
	}

	lang, err := loadLanguage(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		var ioErr ioError
		if errors.As(err, &ioErr) {
			returnCode = ExitIOError
		} else {
			returnCode = ExitUsageError
		}
		return
	}

	if *flagTable {
		fmt.Println(lang.TableString())
		if len(args) < 2 && !*flagInteractive {
			return
		}
	}

	var src []byte
	var srcName string
	if len(args) == 2 {
		srcName = args[1]
		src, err = os.ReadFile(srcName)
	} else if !*flagInteractive {
		srcName = "<stdin>"
		src, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitIOError
		return
	}

	opts := remora.DefaultOptions()
	if *flagVerbose > 2 {
		opts.Trace = func(s string) {
			log.Debug(s)
		}
	}

	if *flagInteractive {
		returnCode = runShell(lang, src, opts)
		return
	}

	p, err := remora.NewParser(lang, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitUsageError
		return
	}

	tree := p.Parse(src)
	stats := p.Stats()
	log.Infof("parsed %d bytes: %d tokens lexed, at most %d stack versions", len(src), stats.TokensLexed, stats.MaxVersions)

	if *flagTree {
		fmt.Print(tree.Dump())
	} else {
		fmt.Println(tree.SExpr())
	}

	for _, d := range lang.Diagnose(tree) {
		fmt.Fprintf(os.Stderr, "%s:%s\n", srcName, d.String())
	}

	if *flagStrict && tree.HasError() {
		returnCode = ExitParseErrors
	}
}

// ioError marks an error as being caused by a failure to read or write a
// file.
type ioError struct {
	err error
}

func (e ioError) Error() string {
	return e.err.Error()
}

func (e ioError) Unwrap() error {
	return e.err
}

// loadLanguage returns the language named by the GRAMMAR argument.
func loadLanguage(arg string) (*remora.Language, error) {
	if arg == builtinBolt {
		return bolt.Language()
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, ioError{err}
	}

	cachePath := os.Getenv(EnvCache)
	if pflag.Lookup("cache").Changed {
		cachePath = *flagCache
	}

	if cachePath == "" {
		spec, err := grammar.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		lang, err := remora.Compile(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		log.Infof("compiled %s: %d states", lang.Name(), lang.StateCount())
		return lang, nil
	}

	db, err := sqlite.NewDatastore(cachePath)
	if err != nil {
		return nil, ioError{fmt.Errorf("open cache: %w", err)}
	}
	defer db.Close()

	lang, cached, err := store.LoadLanguage(context.Background(), db.Automata(), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arg, err)
	}
	if cached {
		log.Infof("loaded %s from cache %s", lang.Name(), cachePath)
	} else {
		log.Infof("compiled %s and added it to cache %s", lang.Name(), cachePath)
	}
	return lang, nil
}

// emitGrammar prints the grammar named by the GRAMMAR argument in grammar
// file form.
func emitGrammar(arg string) error {
	var spec grammar.Spec
	var err error
	if arg == builtinBolt {
		spec, err = bolt.Grammar()
	} else {
		var data []byte
		data, err = os.ReadFile(arg)
		if err != nil {
			return ioError{err}
		}
		spec, err = grammar.Decode(data)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", arg, err)
	}

	out, err := spec.MarshalTOML()
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func runShell(lang *remora.Language, src []byte, opts remora.Options) int {
	eng, err := remora.NewEngine(os.Stdin, os.Stdout, lang, src, remora.EngineOptions{
		ForceDirect: *flagDirect,
		Parser:      opts,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		if errors.Is(err, remora.ErrNoScanner) {
			return ExitUsageError
		}
		return ExitIOError
	}
	defer eng.Close()

	if err := eng.RunUntilQuit(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		return ExitIOError
	}

	if *flagStrict && eng.Tree().HasError() {
		return ExitParseErrors
	}
	return ExitSuccess
}
