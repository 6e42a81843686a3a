package summary

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nanolab/scanpipe/internal/model"
)

func testRecord() *model.ScanRecord {
	return &model.ScanRecord{
		GroupKeys: map[string]string{"mode": "modulus_basic", "metric_type": "modulus"},
		Stats: model.ScanStats{
			Mean:   1.23,
			Std:    0.1,
			Min:    0.9,
			Max:    1.6,
			NValid: 512,
		},
		Unit:      "GPa",
		SourceID:  "a.tif",
		Masked:    true,
		MaskKept:  512,
		MaskTotal: 600,
	}
}

func TestBuildRow(t *testing.T) {
	t.Run("maps record outputs onto columns", func(t *testing.T) {
		mode := &CSVMode{
			Name:      "default_scalar",
			OnMissing: model.MissingFieldError,
			Columns: []Column{
				{Name: "source_file", From: model.FieldSourceID},
				{Name: "mode", From: model.GroupKeyFieldPrefix + "mode"},
				{Name: "avg_value", From: model.FieldMean},
				{Name: "n_valid", From: model.FieldNValid},
				{Name: "units", From: model.FieldUnit},
			},
		}

		row, skip, err := mode.BuildRow(testRecord().Fields(), nil)

		if err != nil || skip {
			t.Fatal("unexpected outcome", err, skip)
		}
		expect := []string{"a.tif", "modulus_basic", "1.23", "512", "GPa"}
		if diff := cmp.Diff(expect, row); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("the default wins before the policy", func(t *testing.T) {
		mode := &CSVMode{
			Name:      "with_default",
			OnMissing: model.MissingFieldError,
			Columns: []Column{
				{Name: "comment", From: "no_such_field", Default: "n/a"},
			},
		}

		row, skip, err := mode.BuildRow(testRecord().Fields(), nil)

		if err != nil || skip {
			t.Fatal("unexpected outcome", err, skip)
		}
		if diff := cmp.Diff([]string{"n/a"}, row); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("missing field with warn_null writes the empty cell", func(t *testing.T) {
		mode := &CSVMode{
			Name:      "lenient",
			OnMissing: model.MissingFieldWarnNull,
			Columns: []Column{
				{Name: "avg_value", From: model.FieldMean},
				{Name: "missing", From: "no_such_field"},
			},
		}

		row, skip, err := mode.BuildRow(testRecord().Fields(), nil)

		if err != nil || skip {
			t.Fatal("unexpected outcome", err, skip)
		}
		if diff := cmp.Diff([]string{"1.23", ""}, row); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("missing field with error fails", func(t *testing.T) {
		mode := &CSVMode{
			Name:      "strict",
			OnMissing: model.MissingFieldError,
			Columns:   []Column{{Name: "missing", From: "no_such_field"}},
		}

		_, _, err := mode.BuildRow(testRecord().Fields(), nil)

		if err == nil || !strings.Contains(err.Error(), "no_such_field") {
			t.Fatal("expected an error naming the field, got", err)
		}
	})

	t.Run("missing field with skip_row drops the row", func(t *testing.T) {
		mode := &CSVMode{
			Name:      "dropping",
			OnMissing: model.MissingFieldSkipRow,
			Columns:   []Column{{Name: "missing", From: "no_such_field"}},
		}

		row, skip, err := mode.BuildRow(testRecord().Fields(), nil)

		if err != nil {
			t.Fatal(err)
		}
		if !skip || row != nil {
			t.Fatal("expected the row to be dropped")
		}
	})

	t.Run("mask counters only exist for masked records", func(t *testing.T) {
		mode := &CSVMode{
			Name:      "masked",
			OnMissing: model.MissingFieldWarnNull,
			Columns: []Column{
				{Name: "mask_n_kept", From: model.FieldMaskKept},
			},
		}
		unmasked := testRecord()
		unmasked.Masked = false

		row, _, err := mode.BuildRow(unmasked.Fields(), nil)

		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{""}, row); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestFormatValue(t *testing.T) {
	type testcase struct {
		name   string
		input  any
		expect string
	}

	cases := []testcase{{
		name:   "string",
		input:  "GPa",
		expect: "GPa",
	}, {
		name:   "float",
		input:  0.25,
		expect: "0.25",
	}, {
		name:   "NaN renders empty",
		input:  math.NaN(),
		expect: "",
	}, {
		name:   "infinity renders empty",
		input:  math.Inf(1),
		expect: "",
	}, {
		name:   "int64",
		input:  int64(512),
		expect: "512",
	}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatValue(tc.input); got != tc.expect {
				t.Fatalf("got %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestSchemaCast(t *testing.T) {
	schema := &Schema{
		Name: "default_scalar",
		Fields: []SchemaField{
			{Field: "source_file", Column: "source_file", Type: FieldTypeString},
			{Field: "avg_value", Column: "avg_value", Type: FieldTypeFloat},
			{Field: "n_valid", Column: "n_valid", Type: FieldTypeInt},
		},
	}

	t.Run("casts typed fields", func(t *testing.T) {
		got := schema.Cast(map[string]string{
			"source_file": "a.tif",
			"avg_value":   "1.23",
			"n_valid":     "512",
		})
		expect := map[string]any{
			"source_file": "a.tif",
			"avg_value":   1.23,
			"n_valid":     int64(512),
		}
		if diff := cmp.Diff(expect, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("unparsable cells become nil", func(t *testing.T) {
		got := schema.Cast(map[string]string{
			"source_file": "a.tif",
			"avg_value":   "not-a-number",
		})
		if got["avg_value"] != nil {
			t.Fatal("expected nil for the unparsable cell")
		}
		if got["n_valid"] != nil {
			t.Fatal("expected nil for the missing cell")
		}
	})
}
