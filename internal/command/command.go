// Package command defines the commands of the interactive edit/re-parse shell
// and handles parsing them from input sources.
package command

// Command is a valid command received from the shell's input.
type Command struct {

	// Verb is the canonical name of the command being invoked, such as "EDIT",
	// "TREE" or "QUIT". Some verbs have shorthand forms; "E" is typed for
	// "EDIT", "Q" for "QUIT", and so on, and for all those cases the Command
	// holds the canonical verb.
	Verb string

	// Start and End are the byte offsets given to commands that operate on a
	// range of the source. For INSERT, End equals Start.
	Start int
	End   int

	// Text is the replacement text of EDIT and INSERT, and the optional topic
	// of HELP.
	Text string
}
