// The main package for the atcoder-search executable.
package main

import (
	"github.com/JakeFAU/atcoder-search/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
