package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/nanolab/scanpipe/internal/model"
	"github.com/nanolab/scanpipe/internal/pipeline"
)

const goodConfig = `
default_unit: GPa

unit_aliases:
  gigapascal: GPa

unit_conversions:
  - {from: MPa, to: GPa, factor: 0.001}

modes:
  modulus_basic:
    metric_type: modulus
    unit: GPa
    expected_unit: GPa
    on_unit_mismatch: warn
    on_empty_result: blank
    mask:
      combine: and
      on_empty: skip_row
      steps:
        - {method: threshold, direction: above, threshold: 0.5}
        - {method: percentile, low_percentile: 1, high_percentile: 99}
    filter:
      exclude_nonpositive: true
      max_abs_value: 1000

csv_modes:
  default_scalar:
    on_missing_field: warn_null
    columns:
      - {name: source_file, from: source_id}
      - {name: avg_value, from: mean}
      - {name: comment, from: comment, default: n/a}

result_schemas:
  default_scalar:
    fields:
      - {field: source_file, type: string}
      - {field: avg_value, column: avg_value, type: float}

aggregate_modes:
  by_mode:
    group_by: [mode, units]
    allow_mixed_units: true

profiles:
  modulus_suite:
    processing_mode: modulus_basic
    csv_mode: default_scalar
    aggregate_modes: [by_mode]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(goodConfig), yaml.Unmarshal)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("units", func(t *testing.T) {
		if cfg.DefaultUnit != "GPa" {
			t.Fatal("unexpected default unit", cfg.DefaultUnit)
		}
		if got := cfg.Normalizer.Normalize("gigapascal"); got != "GPa" {
			t.Fatal("configured alias not applied, got", got)
		}
		if conv, found := cfg.Conversions["MPa"]; !found || conv.Factor != 0.001 {
			t.Fatal("conversion table not built", cfg.Conversions)
		}
	})

	t.Run("processing mode", func(t *testing.T) {
		mode, err := cfg.Mode("modulus_basic")
		if err != nil {
			t.Fatal(err)
		}
		if mode.MetricType != "modulus" || mode.ExpectedUnit != "GPa" {
			t.Fatal("mode identity fields not mapped")
		}
		if mode.OnUnitMismatch != model.MismatchPolicyWarn {
			t.Fatal("unexpected mismatch policy")
		}
		if mode.OnEmptyResult != model.EmptyPolicyBlank {
			t.Fatal("unexpected empty policy")
		}
		if mode.Mask == nil || len(mode.Mask.Steps) != 2 {
			t.Fatal("mask spec not built")
		}
		if mode.Mask.OnEmpty != model.EmptyPolicySkipRow {
			t.Fatal("unexpected mask policy")
		}
		first := mode.Mask.Steps[0]
		if first.Method != model.MaskMethodThreshold || first.Threshold != 0.5 {
			t.Fatal("threshold step not built")
		}
		if !first.Inclusive {
			t.Fatal("inclusive must default to true")
		}
		if mode.Filter == nil || !mode.Filter.ExcludeNonpositive {
			t.Fatal("filter not built")
		}
		if mode.Filter.MaxAbsValue == nil || *mode.Filter.MaxAbsValue != 1000 {
			t.Fatal("max_abs_value not mapped")
		}
	})

	t.Run("csv mode and schema", func(t *testing.T) {
		csvMode, found := cfg.CSVModes["default_scalar"]
		if !found || len(csvMode.Columns) != 3 {
			t.Fatal("csv mode not built")
		}
		if csvMode.Columns[2].Default != "n/a" {
			t.Fatal("column default not mapped")
		}
		schema, found := cfg.ResultSchemas["default_scalar"]
		if !found || len(schema.Fields) != 2 {
			t.Fatal("schema not built")
		}
		if schema.Fields[0].Column != "source_file" {
			t.Fatal("column must default to the field name")
		}
	})

	t.Run("aggregate mode and profile", func(t *testing.T) {
		aggregate, err := cfg.AggregateMode("by_mode")
		if err != nil {
			t.Fatal(err)
		}
		if !aggregate.AllowMixedUnits || len(aggregate.GroupBy) != 2 {
			t.Fatal("aggregate mode not built")
		}
		profile, found := cfg.Profiles["modulus_suite"]
		if !found || profile.ProcessingMode != "modulus_basic" {
			t.Fatal("profile not built")
		}
	})

	t.Run("pipeline bridge", func(t *testing.T) {
		mode := cfg.Modes["modulus_basic"]
		opts := cfg.PipelineOptions(mode, model.DiscardLogger, pipeline.NewWarnTracker())
		if opts.Mask != mode.Mask || opts.Filter != mode.Filter {
			t.Fatal("mask and filter must pass through")
		}
		if opts.Units.DefaultUnit != "GPa" || opts.Units.ModeUnit != "GPa" {
			t.Fatal("unit fallbacks not bridged")
		}
		if opts.Units.Conversions == nil {
			t.Fatal("conversion table not bridged")
		}
	})
}

func TestParseRejects(t *testing.T) {
	type testcase struct {
		name    string
		input   string
		message string
	}

	cases := []testcase{{
		name: "unknown mask method",
		input: `
modes:
  bad:
    mask:
      steps:
        - {method: fuzzy}
`,
		message: "unknown mask method",
	}, {
		name: "threshold without a value",
		input: `
modes:
  bad:
    mask:
      steps:
        - {method: threshold, direction: above}
`,
		message: "requires a threshold",
	}, {
		name: "threshold with a bad direction",
		input: `
modes:
  bad:
    mask:
      steps:
        - {method: threshold, direction: sideways, threshold: 1}
`,
		message: "unknown threshold direction",
	}, {
		name: "range without bounds",
		input: `
modes:
  bad:
    mask:
      steps:
        - {method: range}
`,
		message: "at least one bound",
	}, {
		name: "percentile out of range",
		input: `
modes:
  bad:
    mask:
      steps:
        - {method: percentile, low_percentile: -1, high_percentile: 99}
`,
		message: "outside [0, 100]",
	}, {
		name: "blank as a mask policy",
		input: `
modes:
  bad:
    mask:
      on_empty: blank
`,
		message: "not a mask policy",
	}, {
		name: "unknown mismatch policy",
		input: `
modes:
  bad:
    on_unit_mismatch: explode
`,
		message: "unknown unit-mismatch policy",
	}, {
		name: "unknown missing-field policy",
		input: `
csv_modes:
  bad:
    on_missing_field: explode
    columns:
      - {name: a, from: mean}
`,
		message: "unknown policy",
	}, {
		name: "csv mode without columns",
		input: `
csv_modes:
  bad:
    on_missing_field: warn_null
`,
		message: "at least one column",
	}, {
		name: "unknown schema field type",
		input: `
result_schemas:
  bad:
    fields:
      - {field: a, type: decimal}
`,
		message: "unknown field type",
	}, {
		name: "aggregate mode without group-by",
		input: `
aggregate_modes:
  bad: {}
`,
		message: "at least one group-by column",
	}, {
		name: "profile naming an unknown mode",
		input: `
csv_modes:
  default_scalar:
    columns:
      - {name: a, from: mean}
profiles:
  bad:
    processing_mode: no_such_mode
    csv_mode: default_scalar
`,
		message: "unknown processing mode",
	}, {
		name: "profile naming an unknown aggregate mode",
		input: `
modes:
  m: {}
csv_modes:
  c:
    columns:
      - {name: a, from: mean}
profiles:
  bad:
    processing_mode: m
    csv_mode: c
    aggregate_modes: [no_such_aggregate]
`,
		message: "unknown aggregate mode",
	}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.input), yaml.Unmarshal)
			if cfg != nil {
				t.Fatal("expected a nil config")
			}
			if !errors.Is(err, model.ErrConfig) {
				t.Fatal("expected a configuration error, got", err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.message)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("yaml by extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		if err := os.WriteFile(path, []byte(goodConfig), 0600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)

		if err != nil {
			t.Fatal(err)
		}
		if _, found := cfg.Modes["modulus_basic"]; !found {
			t.Fatal("mode not loaded")
		}
	})

	t.Run("json by extension", func(t *testing.T) {
		doc := map[string]any{
			"default_unit": "GPa",
			"modes": map[string]any{
				"modulus_basic": map[string]any{
					"metric_type": "modulus",
				},
			},
		}
		data, err := json.Marshal(doc)
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(t.TempDir(), "pipeline.json")
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)

		if err != nil {
			t.Fatal(err)
		}
		if cfg.Modes["modulus_basic"].MetricType != "modulus" {
			t.Fatal("mode not loaded")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "no_such.yaml"))
		if err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		if err := os.WriteFile(path, []byte(":\n  - ["), 0600); err != nil {
			t.Fatal(err)
		}

		_, err := Load(path)

		if !errors.Is(err, model.ErrConfig) {
			t.Fatal("expected a configuration error, got", err)
		}
	})
}
