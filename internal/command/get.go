package command

import (
	"bufio"
	"fmt"
)

// Reader reads lines of command input.
type Reader interface {
	// ReadCommand blocks until a line of input is ready and returns it. At
	// end of input it returns "" and io.EOF; a final line without a newline
	// is returned first with a nil error.
	ReadCommand() (string, error)

	// Close releases the Reader. It must be called once the Reader is no
	// longer needed.
	Close() error
}

// Get reads lines from cmdStream until one parses as a command and returns
// that command. Lines that do not parse are reported to ostream along with a
// hint to use HELP; blank lines are skipped.
//
// The command is not checked against the current source, so an EDIT may still
// name a range that does not exist.
func Get(cmdStream Reader, ostream *bufio.Writer) (Command, error) {
	for {
		input, err := cmdStream.ReadCommand()
		if err != nil {
			return Command{}, fmt.Errorf("could not get input: %w", err)
		}

		cmd, err := ParseCommand(input)
		if err == nil {
			if cmd.Verb == "" {
				continue
			}
			return cmd, nil
		}

		fmt.Fprintf(ostream, "%v\nTry HELP for valid commands\n", err)
		if err := ostream.Flush(); err != nil {
			return Command{}, fmt.Errorf("could not write output: %w", err)
		}
	}
}
