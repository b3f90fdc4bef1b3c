// The main package for the jobsift executable.
package main

import (
	"github.com/jobsift/jobsift/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
