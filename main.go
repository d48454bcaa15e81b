// The main package for the waterzone executable.
package main

import (
	"github.com/keepnetics/waterzone/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
