package summary

//
// Summary CSV reading and writing
//

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/nanolab/scanpipe/internal/model"
)

// Conventional summary column names understood by [ReadRecords]. Any
// other column becomes a group-key column of the record.
const (
	ColSourceFile = "source_file"
	ColAvgValue   = "avg_value"
	ColStdValue   = "std_value"
	ColMinValue   = "min_value"
	ColMaxValue   = "max_value"
	ColNValid     = "n_valid"
	ColUnits      = "units"
	ColMaskKept   = "mask_n_kept"
	ColMaskTotal  = "mask_n_total"
)

// DefaultScalarMode returns the conventional per-scan summary layout.
func DefaultScalarMode() *CSVMode {
	return &CSVMode{
		Name:      "default_scalar",
		OnMissing: model.MissingFieldWarnNull,
		Columns: []Column{
			{Name: ColSourceFile, From: model.FieldSourceID},
			{Name: "mode", From: model.GroupKeyFieldPrefix + "mode"},
			{Name: "metric_type", From: model.GroupKeyFieldPrefix + "metric_type"},
			{Name: ColAvgValue, From: model.FieldMean},
			{Name: ColStdValue, From: model.FieldStd},
			{Name: ColMinValue, From: model.FieldMin},
			{Name: ColMaxValue, From: model.FieldMax},
			{Name: ColNValid, From: model.FieldNValid},
			{Name: ColUnits, From: model.FieldUnit},
			{Name: ColMaskKept, From: model.FieldMaskKept},
			{Name: ColMaskTotal, From: model.FieldMaskTotal},
		},
	}
}

// WriteRecords writes records as a summary CSV using the given mode.
// Rows dropped by the skip_row missing-field policy are silently
// omitted.
func WriteRecords(w io.Writer, records []*model.ScanRecord, mode *CSVMode, logger model.Logger) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(mode.Header()); err != nil {
		return err
	}
	for _, record := range records {
		row, skip, err := mode.BuildRow(record.Fields(), logger)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadRecords reads a summary CSV back into records for aggregation.
//
// The conventional numeric columns map onto the record stats; every
// other column becomes a group-key column, and the units column is
// additionally mirrored into the group keys so datasets can group by
// unit. An empty or unparsable numeric cell reads as NaN (or zero for
// counters), which downstream aggregation treats as "no usable value".
func ReadRecords(r io.Reader) ([]*model.ScanRecord, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []*model.ScanRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("summary: row has %d cells, header has %d", len(row), len(header))
		}
		record := &model.ScanRecord{
			GroupKeys: make(map[string]string),
			Stats: model.ScanStats{
				Mean: math.NaN(),
				Std:  math.NaN(),
				Min:  math.NaN(),
				Max:  math.NaN(),
			},
		}
		for i, name := range header {
			cell := row[i]
			switch name {
			case ColSourceFile:
				record.SourceID = cell
			case ColAvgValue:
				record.Stats.Mean = parseFloatCell(cell)
			case ColStdValue:
				record.Stats.Std = parseFloatCell(cell)
			case ColMinValue:
				record.Stats.Min = parseFloatCell(cell)
			case ColMaxValue:
				record.Stats.Max = parseFloatCell(cell)
			case ColNValid:
				record.Stats.NValid = parseIntCell(cell)
			case ColUnits:
				record.Unit = cell
				record.GroupKeys[ColUnits] = cell
			case ColMaskKept:
				record.MaskKept = parseIntCell(cell)
				record.Masked = record.Masked || cell != ""
			case ColMaskTotal:
				record.MaskTotal = parseIntCell(cell)
				record.Masked = record.Masked || cell != ""
			default:
				record.GroupKeys[name] = cell
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// GroupHeader returns the header row for an aggregate CSV with the
// given group-by columns.
func GroupHeader(groupBy []string) []string {
	header := make([]string, 0, len(groupBy)+9)
	header = append(header, groupBy...)
	header = append(header,
		model.FieldNScans,
		model.FieldNScansWithMean,
		model.FieldNScansWithPooled,
		model.FieldNValidTotal,
		model.FieldAvgPooled,
		model.FieldStdPooled,
		model.FieldAvgScanMean,
		model.FieldStdScanMean,
		ColUnits,
	)
	return header
}

// WriteGroups writes group aggregates as a CSV table. None aggregates
// render as empty cells; counters are always present.
func WriteGroups(w io.Writer, groups []*model.GroupAggregate, groupBy []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(GroupHeader(groupBy)); err != nil {
		return err
	}
	for _, group := range groups {
		row := make([]string, 0, len(groupBy)+9)
		row = append(row, group.GroupKeys...)
		row = append(row,
			strconv.FormatInt(group.NScans, 10),
			strconv.FormatInt(group.NScansWithMean, 10),
			strconv.FormatInt(group.NScansWithPooled, 10),
			strconv.FormatInt(group.NValidTotal, 10),
			formatOptionalCell(group.AvgPooled.UnwrapOr(math.NaN())),
			formatOptionalCell(group.StdPooled.UnwrapOr(math.NaN())),
			formatOptionalCell(group.AvgScanMean.UnwrapOr(math.NaN())),
			formatOptionalCell(group.StdScanMean.UnwrapOr(math.NaN())),
			group.Unit,
		)
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseFloatCell(cell string) float64 {
	if cell == "" {
		return math.NaN()
	}
	parsed, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}

func parseIntCell(cell string) int64 {
	if cell == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(cell, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func formatOptionalCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
