// Package main is the entry point for the ircevents CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ircevents/internal/cli"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.NewRootCommand()
	cmd.Version = fmt.Sprintf("%s (%s)", version, commit)
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.GetExitCode(err)
	}
	return 0
}
