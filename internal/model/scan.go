package model

//
// Per-scan data types
//

import (
	"math"
	"strings"
)

// ScanStats contains the summary statistics of a single scan.
//
// Std is always the population standard deviation (denominator n, not n-1).
// Pooled recombination in the aggregate package depends on this convention,
// so code filling this struct MUST NOT switch to the sample formula.
type ScanStats struct {
	// Mean is the arithmetic mean of the kept values.
	Mean float64

	// Std is the population standard deviation of the kept values.
	Std float64

	// Min is the minimum kept value.
	Min float64

	// Max is the maximum kept value.
	Max float64

	// NValid is the number of values that survived masking and filtering.
	NValid int64
}

// HasMean returns whether the stats carry a usable mean. A scan processed
// under the blank zero-kept policy has NValid == 0 and NaN moments.
func (s *ScanStats) HasMean() bool {
	return !math.IsNaN(s.Mean)
}

// UsableForPooling returns whether the stats can contribute to the
// pixel-weighted pooled aggregate.
func (s *ScanStats) UsableForPooling() bool {
	return s.NValid > 0 && !math.IsNaN(s.Mean) && !math.IsNaN(s.Std)
}

// ValueFilter contains optional numeric exclusion rules applied on top of
// the mask. A nil bound or false flag disables the corresponding rule.
type ValueFilter struct {
	// MinValue excludes values strictly below this bound.
	MinValue *float64

	// MaxValue excludes values strictly above this bound.
	MaxValue *float64

	// MaxAbsValue excludes values whose absolute value exceeds this bound.
	MaxAbsValue *float64

	// ExcludeZero excludes exact zeros.
	ExcludeZero bool

	// ExcludeNonpositive excludes zeros and negative values.
	ExcludeNonpositive bool
}

// IsZero returns whether no rule is configured.
func (f *ValueFilter) IsZero() bool {
	return f == nil || (f.MinValue == nil && f.MaxValue == nil &&
		f.MaxAbsValue == nil && !f.ExcludeZero && !f.ExcludeNonpositive)
}

// UnitConversion describes a linear unit conversion. The mean scales by
// Factor and the standard deviation by |Factor|.
type UnitConversion struct {
	// SourceUnit is the canonicalized unit the conversion applies to.
	SourceUnit string

	// TargetUnit is the unit after conversion.
	TargetUnit string

	// Factor is the multiplicative factor.
	Factor float64
}

// ScanRecord is the per-scan output record combining stats, unit, and
// provenance. A record is created once per processed scan and is immutable
// thereafter; the caller that persists it owns it.
type ScanRecord struct {
	// GroupKeys contains the grouping columns (e.g., mode, metric type,
	// grid indices) that the aggregation stage partitions on.
	GroupKeys map[string]string

	// Stats contains the summary statistics.
	Stats ScanStats

	// Unit is the final unit string after normalization and conversion.
	Unit string

	// SourceID identifies the scan (typically the source file name).
	SourceID string

	// MaskTotal is the number of pixels before masking, zero when the
	// scan was processed without a mask.
	MaskTotal int64

	// MaskKept is the number of pixels the mask kept.
	MaskKept int64

	// Masked records whether a mask was applied at all.
	Masked bool
}

// Well-known field names exposed by [ScanRecord.Fields].
const (
	FieldSourceID  = "source_id"
	FieldMean      = "mean"
	FieldStd       = "std"
	FieldMin       = "min"
	FieldMax       = "max"
	FieldNValid    = "n_valid"
	FieldUnit      = "unit"
	FieldMaskTotal = "mask.n_total"
	FieldMaskKept  = "mask.n_kept"
)

// GroupKeyFieldPrefix prefixes group-key columns in [ScanRecord.Fields].
const GroupKeyFieldPrefix = "key."

// Fields exposes the record as named outputs for an external record-to-row
// mapper. Group keys appear with the "key." prefix. Mask counters are only
// present for masked records.
func (r *ScanRecord) Fields() map[string]any {
	out := map[string]any{
		FieldSourceID: r.SourceID,
		FieldMean:     r.Stats.Mean,
		FieldStd:      r.Stats.Std,
		FieldMin:      r.Stats.Min,
		FieldMax:      r.Stats.Max,
		FieldNValid:   r.Stats.NValid,
		FieldUnit:     r.Unit,
	}
	if r.Masked {
		out[FieldMaskTotal] = r.MaskTotal
		out[FieldMaskKept] = r.MaskKept
	}
	for name, value := range r.GroupKeys {
		out[GroupKeyFieldPrefix+name] = value
	}
	return out
}

// GroupKey returns the value of the given grouping column, or the empty
// string when the column is missing.
func (r *ScanRecord) GroupKey(name string) string {
	if r.GroupKeys == nil {
		return ""
	}
	return r.GroupKeys[name]
}

// GroupKeyTuple renders the values at the given columns as a single
// composite key usable as a map key.
func (r *ScanRecord) GroupKeyTuple(columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, name := range columns {
		parts = append(parts, r.GroupKey(name))
	}
	return strings.Join(parts, "\x1f")
}
