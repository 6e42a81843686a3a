// Package root hosts the root command all subcommands register with.
package root

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/nanolab/scanpipe/internal/config"
	"github.com/nanolab/scanpipe/internal/logx"
	"github.com/nanolab/scanpipe/internal/model"
)

// Cmd is the root command.
var Cmd = kingpin.New("scanpipe", "Masking, filtered statistics, and aggregation for scanned-probe data.")

// Command is syntax sugar for defining sub-commands.
var Command = Cmd.Command

// ConfigPath is the --config flag shared by all subcommands.
var ConfigPath = Cmd.Flag("config", "Path to the pipeline configuration file.").Short('c').String()

var verbose = Cmd.Flag("verbose", "Enable verbose log output.").Short('v').Bool()

// LoadConfig loads the configuration named by --config.
func LoadConfig() (*config.Config, error) {
	path := *ConfigPath
	if path == "" {
		return nil, &model.ConfigError{
			Field:  "--config",
			Reason: "a configuration file is required",
		}
	}
	log.Debugf("reading configuration from %s", path)
	return config.Load(path)
}

func init() {
	Cmd.PreAction(func(ctx *kingpin.ParseContext) error {
		log.SetHandler(logx.NewHandler(os.Stderr))
		if *verbose {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	})
}
