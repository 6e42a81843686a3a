// Package statsx computes summary statistics over a value buffer
// honoring an optional inclusion mask and optional numeric-range
// filters.
//
// The implementation is a single pass over the buffer using Welford's
// online algorithm, so the masked and unmasked paths share the same
// numerics: computing stats with an all-true mask is identical to
// computing them with no mask at all.
//
// The standard deviation is always the population standard deviation
// (denominator n, not n-1). Pooled recombination in the aggregate
// package is only exact under this convention.
package statsx

import (
	"fmt"
	"math"

	"github.com/nanolab/scanpipe/internal/model"
	"github.com/nanolab/scanpipe/internal/runtimex"
)

// Breakdown counts why values were excluded. It is a debugging aid and
// not required for correctness.
type Breakdown struct {
	// NTotal is the buffer length.
	NTotal int64

	// NMasked counts values excluded by the mask.
	NMasked int64

	// NNonFinite counts NaN and infinite values.
	NNonFinite int64

	// NZero counts values excluded by the zero-exclusion rule.
	NZero int64

	// NNonpositive counts values excluded by the nonpositive-exclusion rule.
	NNonpositive int64

	// NBelowMin counts values excluded by the lower bound.
	NBelowMin int64

	// NAboveMax counts values excluded by the upper bound.
	NAboveMax int64

	// NAboveMaxAbs counts values excluded by the absolute-value bound.
	NAboveMaxAbs int64
}

// Compute computes mean/std/min/max/count over values.
//
// The mask may be nil to include every value; when non-nil its length
// MUST equal the buffer length (the mask builder guarantees this).
// The filter may be nil. A value contributes iff the mask includes it,
// it is finite, and it passes every configured filter rule, checked in
// the order: zero-exclusion, nonpositive-exclusion, min-bound,
// max-bound, max-abs-bound.
//
// When nothing survived, the policy decides: error returns a wrapped
// [model.ErrEmptyResult]; warn logs and emits zero stats; skip_row
// returns skip=true so the caller drops the scan; blank emits NaN for
// the moments while still reporting n_valid=0.
func Compute(values []float64, mask []bool, filter *model.ValueFilter,
	policy model.EmptyPolicy, logger model.Logger) (stats model.ScanStats,
	breakdown Breakdown, skip bool, err error) {
	runtimex.Assert(mask == nil || len(mask) == len(values),
		"statsx: mask length does not match value buffer length")

	var (
		count int64
		mean  float64
		m2    float64
		min   float64
		max   float64
	)
	breakdown.NTotal = int64(len(values))

	for i, v := range values {
		if mask != nil && !mask[i] {
			breakdown.NMasked++
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			breakdown.NNonFinite++
			continue
		}
		if filter != nil && !passesFilter(v, filter, &breakdown) {
			continue
		}

		count++
		delta := v - mean
		mean += delta / float64(count)
		m2 += delta * (v - mean)
		if count == 1 || v < min {
			min = v
		}
		if count == 1 || v > max {
			max = v
		}
	}

	if count == 0 {
		switch policy {
		case model.EmptyPolicyError:
			return model.ScanStats{}, breakdown, false,
				fmt.Errorf("%w: no values survived masking and filtering", model.ErrEmptyResult)
		case model.EmptyPolicySkipRow:
			return model.ScanStats{}, breakdown, true, nil
		case model.EmptyPolicyBlank:
			return model.ScanStats{
				Mean: math.NaN(),
				Std:  math.NaN(),
				Min:  math.NaN(),
				Max:  math.NaN(),
			}, breakdown, false, nil
		default:
			logger.Warn("statsx: no values survived masking and filtering; emitting zeros")
			return model.ScanStats{}, breakdown, false, nil
		}
	}

	return model.ScanStats{
		Mean:   mean,
		Std:    math.Sqrt(m2 / float64(count)),
		Min:    min,
		Max:    max,
		NValid: count,
	}, breakdown, false, nil
}

func passesFilter(v float64, filter *model.ValueFilter, breakdown *Breakdown) bool {
	if filter.ExcludeZero && v == 0 {
		breakdown.NZero++
		return false
	}
	if filter.ExcludeNonpositive && v <= 0 {
		breakdown.NNonpositive++
		return false
	}
	if filter.MinValue != nil && v < *filter.MinValue {
		breakdown.NBelowMin++
		return false
	}
	if filter.MaxValue != nil && v > *filter.MaxValue {
		breakdown.NAboveMax++
		return false
	}
	if filter.MaxAbsValue != nil && math.Abs(v) > *filter.MaxAbsValue {
		breakdown.NAboveMaxAbs++
		return false
	}
	return true
}
