// Command forestcover predicts forest cover types from the terminal.
package main

import (
	"fmt"
	"os"
)

// ExitError is returned for bad input, unusable artifacts and failed predictions.
const ExitError = 1

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitError)
	}
}
