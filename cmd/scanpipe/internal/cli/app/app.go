// Package app contains the command entry point.
package app

import (
	"os"

	scanpipe "github.com/nanolab/scanpipe"
	"github.com/nanolab/scanpipe/cmd/scanpipe/internal/cli/root"
)

// Run parses the command line and runs the selected subcommand.
func Run() error {
	root.Cmd.Version(scanpipe.Version)
	_, err := root.Cmd.Parse(os.Args[1:])
	return err
}
