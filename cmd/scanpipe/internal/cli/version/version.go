// Package version implements the version subcommand.
package version

import (
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	scanpipe "github.com/nanolab/scanpipe"
	"github.com/nanolab/scanpipe/cmd/scanpipe/internal/cli/root"
)

func init() {
	cmd := root.Command("version", "Show version.")
	cmd.Action(func(_ *kingpin.ParseContext) error {
		fmt.Println(scanpipe.Version)
		return nil
	})
}
