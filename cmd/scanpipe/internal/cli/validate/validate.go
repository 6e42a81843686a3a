// Package validate implements the validate subcommand.
package validate

import (
	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/nanolab/scanpipe/cmd/scanpipe/internal/cli/root"
)

func init() {
	cmd := root.Command("validate", "Validate a pipeline configuration file.")
	cmd.Action(func(_ *kingpin.ParseContext) error {
		cfg, err := root.LoadConfig()
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"modes":           len(cfg.Modes),
			"csv_modes":       len(cfg.CSVModes),
			"result_schemas":  len(cfg.ResultSchemas),
			"aggregate_modes": len(cfg.AggregateModes),
			"profiles":        len(cfg.Profiles),
		}).Info("configuration is valid")
		return nil
	})
}
