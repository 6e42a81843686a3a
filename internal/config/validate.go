package config

//
// One-time validation of raw configuration
//

import (
	"fmt"

	"github.com/nanolab/scanpipe/internal/model"
	"github.com/nanolab/scanpipe/internal/summary"
	"github.com/nanolab/scanpipe/internal/unitx"
)

func validate(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		DefaultUnit:    "",
		Modes:          make(map[string]*Mode, len(raw.Modes)),
		CSVModes:       make(map[string]*summary.CSVMode, len(raw.CSVModes)),
		ResultSchemas:  make(map[string]*summary.Schema, len(raw.ResultSchemas)),
		AggregateModes: make(map[string]*AggregateMode, len(raw.AggregateModes)),
		Profiles:       make(map[string]*Profile, len(raw.Profiles)),
	}

	cfg.Normalizer = unitx.NewNormalizer(raw.UnitAliases)
	cfg.DefaultUnit = cfg.Normalizer.Normalize(raw.DefaultUnit)

	conversions := make([]model.UnitConversion, 0, len(raw.UnitConversions))
	for _, conv := range raw.UnitConversions {
		conversions = append(conversions, model.UnitConversion{
			SourceUnit: conv.From,
			TargetUnit: conv.To,
			Factor:     conv.Factor,
		})
	}
	table, err := unitx.NewTable(conversions, cfg.Normalizer)
	if err != nil {
		return nil, err
	}
	cfg.Conversions = table

	for name, rawMode := range raw.Modes {
		mode, err := validateMode(name, &rawMode)
		if err != nil {
			return nil, err
		}
		cfg.Modes[name] = mode
	}

	for name, rawMode := range raw.CSVModes {
		mode, err := validateCSVMode(name, &rawMode)
		if err != nil {
			return nil, err
		}
		cfg.CSVModes[name] = mode
	}

	for name, rawSchema := range raw.ResultSchemas {
		schema, err := validateSchema(name, &rawSchema)
		if err != nil {
			return nil, err
		}
		cfg.ResultSchemas[name] = schema
	}

	for name, rawMode := range raw.AggregateModes {
		if len(rawMode.GroupBy) < 1 {
			return nil, &model.ConfigError{
				Field:  fmt.Sprintf("aggregate_modes.%s.group_by", name),
				Reason: "at least one group-by column is required",
			}
		}
		cfg.AggregateModes[name] = &AggregateMode{
			Name:            name,
			GroupBy:         rawMode.GroupBy,
			AllowMixedUnits: rawMode.AllowMixedUnits,
		}
	}

	for name, rawProfile := range raw.Profiles {
		profile, err := validateProfile(cfg, name, &rawProfile)
		if err != nil {
			return nil, err
		}
		cfg.Profiles[name] = profile
	}

	return cfg, nil
}

func validateMode(name string, raw *rawMode) (*Mode, error) {
	mode := &Mode{
		Name:         name,
		MetricType:   raw.MetricType,
		Unit:         raw.Unit,
		ExpectedUnit: raw.ExpectedUnit,
	}

	var err error
	if mode.OnUnitMismatch, err = model.ParseMismatchPolicy(raw.OnUnitMismatch); err != nil {
		return nil, modeError(name, "on_unit_mismatch", err)
	}
	if mode.OnEmptyResult, err = model.ParseEmptyPolicy(raw.OnEmptyResult); err != nil {
		return nil, modeError(name, "on_empty_result", err)
	}

	if raw.Mask != nil {
		if mode.Mask, err = validateMask(name, raw.Mask); err != nil {
			return nil, err
		}
	}

	if raw.Filter != nil {
		filter := &model.ValueFilter{
			MinValue:           raw.Filter.MinValue,
			MaxValue:           raw.Filter.MaxValue,
			MaxAbsValue:        raw.Filter.MaxAbsValue,
			ExcludeZero:        raw.Filter.ExcludeZero,
			ExcludeNonpositive: raw.Filter.ExcludeNonpositive,
		}
		if !filter.IsZero() {
			mode.Filter = filter
		}
	}

	return mode, nil
}

func validateMask(mode string, raw *rawMask) (*model.MaskSpec, error) {
	spec := &model.MaskSpec{}

	var err error
	if spec.Combine, err = model.ParseCombineOp(raw.Combine); err != nil {
		return nil, modeError(mode, "mask.combine", err)
	}
	if spec.OnEmpty, err = model.ParseEmptyPolicy(raw.OnEmpty); err != nil {
		return nil, modeError(mode, "mask.on_empty", err)
	}
	if spec.OnEmpty == model.EmptyPolicyBlank {
		return nil, &model.ConfigError{
			Field:  fmt.Sprintf("modes.%s.mask.on_empty", mode),
			Reason: "blank is a statistics policy, not a mask policy",
		}
	}

	for idx, rawStep := range raw.Steps {
		step, err := validateStep(mode, idx, &rawStep)
		if err != nil {
			return nil, err
		}
		spec.Steps = append(spec.Steps, step)
	}
	return spec, nil
}

func validateStep(mode string, idx int, raw *rawMaskStep) (model.MaskStep, error) {
	field := func(name string) string {
		return fmt.Sprintf("modes.%s.mask.steps[%d].%s", mode, idx, name)
	}

	step := model.MaskStep{
		Invert:    raw.Invert,
		Inclusive: true,
	}
	if raw.Inclusive != nil {
		step.Inclusive = *raw.Inclusive
	}

	var err error
	if step.Method, err = model.ParseMaskMethod(raw.Method); err != nil {
		return model.MaskStep{}, &model.ConfigError{
			Field:  field("method"),
			Reason: fmt.Sprintf("unknown mask method: %q", raw.Method),
		}
	}

	switch step.Method {
	case model.MaskMethodThreshold:
		if raw.Threshold == nil {
			return model.MaskStep{}, &model.ConfigError{
				Field:  field("threshold"),
				Reason: "threshold masking requires a threshold value",
			}
		}
		step.Threshold = *raw.Threshold
		if step.Direction, err = model.ParseThresholdDirection(raw.Direction); err != nil {
			return model.MaskStep{}, &model.ConfigError{
				Field:  field("direction"),
				Reason: fmt.Sprintf("unknown threshold direction: %q", raw.Direction),
			}
		}

	case model.MaskMethodRange:
		if raw.MinValue == nil && raw.MaxValue == nil {
			return model.MaskStep{}, &model.ConfigError{
				Field:  field("min_value"),
				Reason: "range masking requires at least one bound",
			}
		}
		step.MinValue = raw.MinValue
		step.MaxValue = raw.MaxValue

	case model.MaskMethodPercentile:
		if raw.LowPercentile == nil || raw.HighPercentile == nil {
			return model.MaskStep{}, &model.ConfigError{
				Field:  field("low_percentile"),
				Reason: "percentile masking requires both percentile bounds",
			}
		}
		step.LowPercentile = *raw.LowPercentile
		step.HighPercentile = *raw.HighPercentile
		for _, p := range []float64{step.LowPercentile, step.HighPercentile} {
			if p < 0 || p > 100 {
				return model.MaskStep{}, &model.ConfigError{
					Field:  field("low_percentile"),
					Reason: fmt.Sprintf("percentile %v outside [0, 100]", p),
				}
			}
		}

	case model.MaskMethodExternalOutlier:
		// no parameters
	}

	return step, nil
}

func validateCSVMode(name string, raw *rawCSVMode) (*summary.CSVMode, error) {
	mode := &summary.CSVMode{Name: name}

	var err error
	if mode.OnMissing, err = model.ParseMissingFieldPolicy(raw.OnMissingField); err != nil {
		return nil, &model.ConfigError{
			Field:  fmt.Sprintf("csv_modes.%s.on_missing_field", name),
			Reason: fmt.Sprintf("unknown policy: %q", raw.OnMissingField),
		}
	}

	if len(raw.Columns) < 1 {
		return nil, &model.ConfigError{
			Field:  fmt.Sprintf("csv_modes.%s.columns", name),
			Reason: "at least one column is required",
		}
	}
	for idx, col := range raw.Columns {
		if col.Name == "" || col.From == "" {
			return nil, &model.ConfigError{
				Field:  fmt.Sprintf("csv_modes.%s.columns[%d]", name, idx),
				Reason: "both name and from are required",
			}
		}
		mode.Columns = append(mode.Columns, summary.Column{
			Name:    col.Name,
			From:    col.From,
			Default: col.Default,
		})
	}
	return mode, nil
}

func validateSchema(name string, raw *rawSchema) (*summary.Schema, error) {
	schema := &summary.Schema{Name: name}
	for idx, rawField := range raw.Fields {
		if rawField.Field == "" {
			return nil, &model.ConfigError{
				Field:  fmt.Sprintf("result_schemas.%s.fields[%d]", name, idx),
				Reason: "field name is required",
			}
		}
		fieldType, err := summary.ParseFieldType(rawField.Type)
		if err != nil {
			return nil, &model.ConfigError{
				Field:  fmt.Sprintf("result_schemas.%s.fields[%d].type", name, idx),
				Reason: fmt.Sprintf("unknown field type: %q", rawField.Type),
			}
		}
		column := rawField.Column
		if column == "" {
			column = rawField.Field
		}
		schema.Fields = append(schema.Fields, summary.SchemaField{
			Field:  rawField.Field,
			Column: column,
			Type:   fieldType,
		})
	}
	return schema, nil
}

func validateProfile(cfg *Config, name string, raw *rawProfile) (*Profile, error) {
	field := func(sub string) string {
		return fmt.Sprintf("profiles.%s.%s", name, sub)
	}

	if raw.ProcessingMode == "" || raw.CSVMode == "" {
		return nil, &model.ConfigError{
			Field:  field("processing_mode"),
			Reason: "processing_mode and csv_mode are required",
		}
	}
	if _, found := cfg.Modes[raw.ProcessingMode]; !found {
		return nil, &model.ConfigError{
			Field:  field("processing_mode"),
			Reason: fmt.Sprintf("unknown processing mode: %q", raw.ProcessingMode),
		}
	}
	if _, found := cfg.CSVModes[raw.CSVMode]; !found {
		return nil, &model.ConfigError{
			Field:  field("csv_mode"),
			Reason: fmt.Sprintf("unknown csv mode: %q", raw.CSVMode),
		}
	}
	for _, aggregate := range raw.AggregateModes {
		if _, found := cfg.AggregateModes[aggregate]; !found {
			return nil, &model.ConfigError{
				Field:  field("aggregate_modes"),
				Reason: fmt.Sprintf("unknown aggregate mode: %q", aggregate),
			}
		}
	}

	return &Profile{
		Name:           name,
		ProcessingMode: raw.ProcessingMode,
		CSVMode:        raw.CSVMode,
		AggregateModes: raw.AggregateModes,
	}, nil
}

func modeError(mode, field string, err error) error {
	return &model.ConfigError{
		Field:  fmt.Sprintf("modes.%s.%s", mode, field),
		Reason: err.Error(),
	}
}
