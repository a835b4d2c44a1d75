// The main package for the story-preview-gateway executable.
package main

import (
	"github.com/JakeFAU/story-preview-gateway/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
