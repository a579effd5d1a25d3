// Package console holds the colored terminal helpers shared by all commands.
package console

import (
	"os"

	"github.com/mitchellh/colorstring"
)

func PrintTask(msg string) {
	colorstring.Printf("[blue][bold]==>[default] %s\n", msg)
}

func PrintSubtask(msg string) {
	colorstring.Printf("[green][bold]  ->[reset] %s\n", msg)
}

func PrintWarning(msg string) {
	colorstring.Printf("[yellow][bold]  ->[reset] %s\n", msg)
}

// PrintError goes to stderr so failure text never mixes into captured
// build output on stdout.
func PrintError(msg string) {
	colorstring.Fprintf(os.Stderr, "[red][bold]  ->[reset] %s\n", msg)
}
