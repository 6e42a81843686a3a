// Package config loads and validates the declarative pipeline
// configuration.
//
// Configuration is authored in YAML (JSON is accepted as well, selected
// by file extension) and is validated exactly once at load time: mask
// methods, directions, combine operators, policies, and field types all
// become closed enum values here, and every required numeric parameter
// is checked. Code downstream of [Load] never re-parses a configuration
// string and never sees an invalid spec.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nanolab/scanpipe/internal/model"
	"github.com/nanolab/scanpipe/internal/pipeline"
	"github.com/nanolab/scanpipe/internal/summary"
	"github.com/nanolab/scanpipe/internal/unitx"
)

// Mode is a validated processing mode: the mask, filter, policies, and
// unit expectations applied to every scan processed under the mode.
type Mode struct {
	// Name is the mode name from configuration.
	Name string

	// MetricType labels the physical quantity (e.g. "modulus").
	MetricType string

	// Unit is the mode-level fallback unit for scans without one.
	Unit string

	// ExpectedUnit optionally names the unit expected after conversion.
	ExpectedUnit string

	// OnUnitMismatch resolves expected-unit violations.
	OnUnitMismatch model.MismatchPolicy

	// OnEmptyResult resolves the zero-kept-pixels condition.
	OnEmptyResult model.EmptyPolicy

	// Mask is the optional mask specification.
	Mask *model.MaskSpec

	// Filter is the optional numeric value filter.
	Filter *model.ValueFilter
}

// AggregateMode is a validated dataset-level aggregation request.
type AggregateMode struct {
	// Name is the aggregate mode name from configuration.
	Name string

	// GroupBy lists the summary columns to group by.
	GroupBy []string

	// AllowMixedUnits degrades group unit conflicts to "MIXED".
	AllowMixedUnits bool
}

// Profile is a named bundle choosing a processing mode, a csv mode, and
// zero or more aggregate modes for a whole job.
type Profile struct {
	// Name is the profile name from configuration.
	Name string

	// ProcessingMode names the processing mode to run.
	ProcessingMode string

	// CSVMode names the csv layout for the summary table.
	CSVMode string

	// AggregateModes names the aggregations to run afterwards.
	AggregateModes []string
}

// Config is a fully validated configuration.
type Config struct {
	// DefaultUnit is the global fallback unit for scans without one.
	DefaultUnit string

	// Normalizer canonicalizes unit spellings, extended with the
	// configured unit_aliases.
	Normalizer *unitx.Normalizer

	// Conversions is the unit conversion table.
	Conversions unitx.Table

	// Modes maps mode names to validated processing modes.
	Modes map[string]*Mode

	// CSVModes maps csv mode names to validated column layouts.
	CSVModes map[string]*summary.CSVMode

	// ResultSchemas maps schema names to validated row casts.
	ResultSchemas map[string]*summary.Schema

	// AggregateModes maps aggregate mode names to validated requests.
	AggregateModes map[string]*AggregateMode

	// Profiles maps profile names to validated bundles.
	Profiles map[string]*Profile
}

// PipelineOptions bridges a processing mode into per-scan processing
// options. The logger and warn tracker are per-batch and supplied by
// the caller.
func (c *Config) PipelineOptions(mode *Mode, logger model.Logger, warnings *pipeline.WarnTracker) *pipeline.Options {
	return &pipeline.Options{
		Mask:    mode.Mask,
		Filter:  mode.Filter,
		OnEmpty: mode.OnEmptyResult,
		Units: unitx.ApplyOptions{
			Normalizer:   c.Normalizer,
			Conversions:  c.Conversions,
			ExpectedUnit: mode.ExpectedUnit,
			OnMismatch:   mode.OnUnitMismatch,
			DefaultUnit:  c.DefaultUnit,
			ModeUnit:     mode.Unit,
			Logger:       logger,
		},
		Logger:   logger,
		Warnings: warnings,
	}
}

// Mode returns the named processing mode.
func (c *Config) Mode(name string) (*Mode, error) {
	mode, found := c.Modes[name]
	if !found {
		return nil, &model.ConfigError{
			Field:  "modes",
			Reason: fmt.Sprintf("unknown processing mode: %q", name),
		}
	}
	return mode, nil
}

// AggregateMode returns the named aggregate mode.
func (c *Config) AggregateMode(name string) (*AggregateMode, error) {
	mode, found := c.AggregateModes[name]
	if !found {
		return nil, &model.ConfigError{
			Field:  "aggregate_modes",
			Reason: fmt.Sprintf("unknown aggregate mode: %q", name),
		}
	}
	return mode, nil
}

// Load reads and validates a configuration file. The .yaml and .yml
// extensions select YAML, everything else is read as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Parse(data, yaml.Unmarshal)
	default:
		return Parse(data, json.Unmarshal)
	}
}

// Parse unmarshals raw configuration bytes with the given unmarshal
// function and validates the result.
func Parse(data []byte, unmarshal func([]byte, any) error) (*Config, error) {
	var raw rawConfig
	if err := unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrConfig, err.Error())
	}
	return validate(&raw)
}

//
// Raw (unvalidated) file shapes
//

type rawConfig struct {
	DefaultUnit     string                      `yaml:"default_unit" json:"default_unit"`
	UnitAliases     map[string]string           `yaml:"unit_aliases" json:"unit_aliases"`
	UnitConversions []rawConversion             `yaml:"unit_conversions" json:"unit_conversions"`
	Modes           map[string]rawMode          `yaml:"modes" json:"modes"`
	CSVModes        map[string]rawCSVMode       `yaml:"csv_modes" json:"csv_modes"`
	ResultSchemas   map[string]rawSchema        `yaml:"result_schemas" json:"result_schemas"`
	AggregateModes  map[string]rawAggregateMode `yaml:"aggregate_modes" json:"aggregate_modes"`
	Profiles        map[string]rawProfile       `yaml:"profiles" json:"profiles"`
}

type rawConversion struct {
	From   string  `yaml:"from" json:"from"`
	To     string  `yaml:"to" json:"to"`
	Factor float64 `yaml:"factor" json:"factor"`
}

type rawMode struct {
	MetricType     string     `yaml:"metric_type" json:"metric_type"`
	Unit           string     `yaml:"unit" json:"unit"`
	ExpectedUnit   string     `yaml:"expected_unit" json:"expected_unit"`
	OnUnitMismatch string     `yaml:"on_unit_mismatch" json:"on_unit_mismatch"`
	OnEmptyResult  string     `yaml:"on_empty_result" json:"on_empty_result"`
	Mask           *rawMask   `yaml:"mask" json:"mask"`
	Filter         *rawFilter `yaml:"filter" json:"filter"`
}

type rawMask struct {
	Steps   []rawMaskStep `yaml:"steps" json:"steps"`
	Combine string        `yaml:"combine" json:"combine"`
	OnEmpty string        `yaml:"on_empty" json:"on_empty"`
}

type rawMaskStep struct {
	Method         string   `yaml:"method" json:"method"`
	Direction      string   `yaml:"direction" json:"direction"`
	Threshold      *float64 `yaml:"threshold" json:"threshold"`
	MinValue       *float64 `yaml:"min_value" json:"min_value"`
	MaxValue       *float64 `yaml:"max_value" json:"max_value"`
	LowPercentile  *float64 `yaml:"low_percentile" json:"low_percentile"`
	HighPercentile *float64 `yaml:"high_percentile" json:"high_percentile"`
	Invert         bool     `yaml:"invert" json:"invert"`
	Inclusive      *bool    `yaml:"inclusive" json:"inclusive"`
}

type rawFilter struct {
	MinValue           *float64 `yaml:"min_value" json:"min_value"`
	MaxValue           *float64 `yaml:"max_value" json:"max_value"`
	MaxAbsValue        *float64 `yaml:"max_abs_value" json:"max_abs_value"`
	ExcludeZero        bool     `yaml:"exclude_zero" json:"exclude_zero"`
	ExcludeNonpositive bool     `yaml:"exclude_nonpositive" json:"exclude_nonpositive"`
}

type rawCSVMode struct {
	Columns        []rawColumn `yaml:"columns" json:"columns"`
	OnMissingField string      `yaml:"on_missing_field" json:"on_missing_field"`
}

type rawColumn struct {
	Name    string `yaml:"name" json:"name"`
	From    string `yaml:"from" json:"from"`
	Default string `yaml:"default" json:"default"`
}

type rawSchema struct {
	Fields []rawSchemaField `yaml:"fields" json:"fields"`
}

type rawSchemaField struct {
	Field  string `yaml:"field" json:"field"`
	Column string `yaml:"column" json:"column"`
	Type   string `yaml:"type" json:"type"`
}

type rawAggregateMode struct {
	GroupBy         []string `yaml:"group_by" json:"group_by"`
	AllowMixedUnits bool     `yaml:"allow_mixed_units" json:"allow_mixed_units"`
}

type rawProfile struct {
	ProcessingMode string   `yaml:"processing_mode" json:"processing_mode"`
	CSVMode        string   `yaml:"csv_mode" json:"csv_mode"`
	AggregateModes []string `yaml:"aggregate_modes" json:"aggregate_modes"`
}
