package main

import (
	"os"

	"github.com/apex/log"
	"github.com/nanolab/scanpipe/cmd/scanpipe/internal/cli/app"
	_ "github.com/nanolab/scanpipe/cmd/scanpipe/internal/cli/aggregate"
	_ "github.com/nanolab/scanpipe/cmd/scanpipe/internal/cli/validate"
	_ "github.com/nanolab/scanpipe/cmd/scanpipe/internal/cli/version"
)

func main() {
	if err := app.Run(); err != nil {
		log.WithError(err).Error("scanpipe failed")
		os.Exit(1)
	}
}
