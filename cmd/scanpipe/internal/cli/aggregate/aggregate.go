// Package aggregate implements the aggregate subcommand.
package aggregate

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/nanolab/scanpipe/cmd/scanpipe/internal/cli/root"
	"github.com/nanolab/scanpipe/internal/aggregate"
	"github.com/nanolab/scanpipe/internal/model"
	"github.com/nanolab/scanpipe/internal/summary"
)

func init() {
	cmd := root.Command("aggregate", "Combine a summary table into grouped aggregates.")
	csvPath := cmd.Flag("csv", "Path to the summary CSV to aggregate.").Required().String()
	outPath := cmd.Flag("out-csv", "Path to write the aggregate CSV to (default: stdout).").String()
	groupBy := cmd.Flag("group-by", "Comma-separated summary columns to group by.").String()
	allowMixed := cmd.Flag("allow-mixed-units", "Mark groups with conflicting units as MIXED instead of failing.").Bool()
	modeName := cmd.Flag("mode", "Aggregate mode from the configuration file (overrides --group-by).").String()

	cmd.Action(func(_ *kingpin.ParseContext) error {
		columns, mixed, err := resolveRequest(*modeName, *groupBy, *allowMixed)
		if err != nil {
			return err
		}

		records, err := readRecords(*csvPath)
		if err != nil {
			return err
		}
		log.Debugf("aggregating %d records by %s", len(records), strings.Join(columns, ","))

		groups, err := aggregate.Aggregate(records, columns, mixed)
		if err != nil {
			return err
		}

		return writeGroups(*outPath, groups, columns)
	})
}

// resolveRequest picks the group-by columns and the mixed-units flag,
// from the named aggregate mode when given and from the flags otherwise.
func resolveRequest(modeName, groupBy string, allowMixed bool) ([]string, bool, error) {
	if modeName != "" {
		cfg, err := root.LoadConfig()
		if err != nil {
			return nil, false, err
		}
		mode, err := cfg.AggregateMode(modeName)
		if err != nil {
			return nil, false, err
		}
		return mode.GroupBy, mode.AllowMixedUnits, nil
	}

	var columns []string
	for _, column := range strings.Split(groupBy, ",") {
		if column = strings.TrimSpace(column); column != "" {
			columns = append(columns, column)
		}
	}
	if len(columns) < 1 {
		return nil, false, &model.ConfigError{
			Field:  "--group-by",
			Reason: "at least one group-by column is required (or use --mode)",
		}
	}
	return columns, allowMixed, nil
}

func readRecords(path string) ([]*model.ScanRecord, error) {
	var reader io.Reader = os.Stdin
	if path != "-" {
		filep, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer filep.Close()
		reader = filep
	}
	return summary.ReadRecords(reader)
}

func writeGroups(path string, groups []*model.GroupAggregate, groupBy []string) error {
	if path == "" {
		return summary.WriteGroups(os.Stdout, groups, groupBy)
	}
	filep, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := summary.WriteGroups(filep, groups, groupBy); err != nil {
		filep.Close()
		return err
	}
	return filep.Close()
}
