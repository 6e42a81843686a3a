// Package summary maps engine records to and from tabular rows.
//
// The engine itself is agnostic to serialization: records expose named
// outputs ([model.ScanRecord.Fields]) and this package overlays the
// declarative column specifications from configuration ("csv modes") on
// top of them. A column spec names the output it reads from, an
// optional default, and the csv mode's missing-field policy decides
// what happens when a record lacks the output and there is no default.
//
// The package also reads summary rows back into records for the
// dataset-level aggregation stage, and writes group aggregates as rows
// for the external tabular writer.
package summary

import (
	"fmt"
	"math"
	"strconv"

	"github.com/nanolab/scanpipe/internal/model"
)

// Column is a single declarative CSV column.
type Column struct {
	// Name is the CSV header name.
	Name string

	// From names the record output this column reads from.
	From string

	// Default is written when the output is missing; the empty string
	// means no default.
	Default string
}

// CSVMode is a declarative CSV layout: ordered columns plus the
// missing-field policy.
type CSVMode struct {
	// Name is the csv mode name from configuration.
	Name string

	// Columns contains the ordered column specs.
	Columns []Column

	// OnMissing resolves a missing record output without a default.
	OnMissing model.MissingFieldPolicy
}

// Header returns the CSV header row.
func (m *CSVMode) Header() []string {
	header := make([]string, 0, len(m.Columns))
	for _, col := range m.Columns {
		header = append(header, col.Name)
	}
	return header
}

// BuildRow maps a record's named outputs into one CSV row.
//
// Resolution order per column: the record output when present, then the
// column default, then the missing-field policy (warn_null writes the
// empty string, error fails, skip_row drops the whole row with
// skip=true).
func (m *CSVMode) BuildRow(fields map[string]any, logger model.Logger) (row []string, skip bool, err error) {
	if logger == nil {
		logger = model.DiscardLogger
	}
	row = make([]string, 0, len(m.Columns))
	for _, col := range m.Columns {
		if value, found := fields[col.From]; found {
			row = append(row, FormatValue(value))
			continue
		}
		if col.Default != "" {
			row = append(row, col.Default)
			continue
		}
		switch m.OnMissing {
		case model.MissingFieldError:
			return nil, false, fmt.Errorf("summary: missing field %q for csv_mode=%s", col.From, m.Name)
		case model.MissingFieldSkipRow:
			logger.Warnf("summary: skipping row: missing field %q for csv_mode=%s", col.From, m.Name)
			return nil, true, nil
		default:
			logger.Warnf("summary: missing field %q for csv_mode=%s; writing empty", col.From, m.Name)
			row = append(row, "")
		}
	}
	return row, false, nil
}

// FormatValue renders a named output as a CSV cell. Non-finite floats
// render as the empty cell, which [parseFloatCell] reads back as NaN.
func FormatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FieldType enumerates the types a result schema can cast to.
type FieldType int

const (
	// FieldTypeString leaves the cell as a string.
	FieldTypeString = FieldType(iota)

	// FieldTypeInt casts the cell to int64.
	FieldTypeInt

	// FieldTypeFloat casts the cell to float64.
	FieldTypeFloat
)

// ParseFieldType maps a configuration string onto a [FieldType]. The
// empty string selects string.
func ParseFieldType(name string) (FieldType, error) {
	switch name {
	case "", "string":
		return FieldTypeString, nil
	case "int":
		return FieldTypeInt, nil
	case "float":
		return FieldTypeFloat, nil
	default:
		return 0, &model.ConfigError{
			Field:  "result_schemas",
			Reason: fmt.Sprintf("unknown field type: %q", name),
		}
	}
}

// SchemaField casts one CSV column into one typed field.
type SchemaField struct {
	// Field is the name of the typed field.
	Field string

	// Column is the CSV column read from.
	Column string

	// Type selects the cast.
	Type FieldType
}

// Schema casts CSV rows into typed objects per a result schema from
// configuration.
type Schema struct {
	// Name is the schema name from configuration.
	Name string

	// Fields contains the field casts.
	Fields []SchemaField
}

// Cast casts one CSV row. A cell that fails to parse yields a nil
// field value rather than an error, mirroring how downstream consumers
// treat unparsable cells as missing data.
func (s *Schema) Cast(row map[string]string) map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, field := range s.Fields {
		raw, found := row[field.Column]
		if !found {
			out[field.Field] = nil
			continue
		}
		switch field.Type {
		case FieldTypeInt:
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				out[field.Field] = nil
				continue
			}
			out[field.Field] = parsed
		case FieldTypeFloat:
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				out[field.Field] = nil
				continue
			}
			out[field.Field] = parsed
		default:
			out[field.Field] = raw
		}
	}
	return out
}
