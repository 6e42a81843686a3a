// Package maskx turns a declarative mask specification into a boolean
// inclusion array over a flat value buffer.
//
// A mask restricts the statistics of a scan to a subset of its pixels.
// Each [model.MaskStep] produces a per-step inclusion array; multiple
// steps combine pairwise with the spec's combine operator. The empty-mask
// policy of the spec resolves what happens when the combined mask keeps
// zero pixels.
//
// The [Build] convenience function is the package entry point.
package maskx

import (
	"fmt"
	"math"
	"sort"

	"github.com/nanolab/scanpipe/internal/model"
	"github.com/nanolab/scanpipe/internal/runtimex"
)

// Mask is a boolean inclusion array over a value buffer.
type Mask struct {
	// Keep has one entry per value; true means the value is included.
	Keep []bool

	// Kept is the number of included values.
	Kept int64

	// Total is the buffer length.
	Total int64
}

// Build applies the given mask spec to the given value buffer.
//
// The outliers buffer is the output of an external outlier-detection
// routine, where nonzero means outlier. It is only consulted by
// external-outlier steps and may be nil, in which case such steps are
// inapplicable and skipped.
//
// Return value:
//
// - on success, a possibly-nil mask: nil means that no step was
// applicable and the caller should compute unmasked statistics;
//
// - skip=true when the combined mask kept zero pixels and the spec's
// policy says to drop the scan rather than fail;
//
// - a non-nil error for configuration errors and for a zero-pixel mask
// under the error policy.
func Build(values []float64, outliers []uint8, spec *model.MaskSpec,
	logger model.Logger) (mask *Mask, skip bool, err error) {
	if spec == nil || len(spec.Steps) == 0 {
		return nil, false, nil
	}

	var combined []bool
	for idx := range spec.Steps {
		step := &spec.Steps[idx]
		keep, err := applyStep(values, outliers, step)
		if err != nil {
			return nil, false, err
		}
		if keep == nil {
			// inapplicable step: skipped, does not affect the combination
			continue
		}
		if step.Invert {
			for i := range keep {
				keep[i] = !keep[i]
			}
		}
		combined = combine(combined, keep, spec.Combine)
	}
	if combined == nil {
		return nil, false, nil
	}

	kept := int64(0)
	for _, flag := range combined {
		if flag {
			kept++
		}
	}
	built := &Mask{
		Keep:  combined,
		Kept:  kept,
		Total: int64(len(values)),
	}
	if kept > 0 {
		return built, false, nil
	}

	// The empty-mask policy applies once, to the final combined mask.
	switch spec.OnEmpty {
	case model.EmptyPolicyError:
		return nil, false, fmt.Errorf("%w: mask kept 0 of %d pixels", model.ErrEmptyResult, built.Total)
	case model.EmptyPolicySkipRow:
		return nil, true, nil
	default:
		logger.Warnf("maskx: mask kept 0 of %d pixels; continuing", built.Total)
		return built, false, nil
	}
}

func combine(combined, keep []bool, op model.CombineOp) []bool {
	if combined == nil {
		return keep
	}
	runtimex.Assert(len(combined) == len(keep), "maskx: step masks with different lengths")
	for i := range combined {
		if op == model.CombineOR {
			combined[i] = combined[i] || keep[i]
		} else {
			combined[i] = combined[i] && keep[i]
		}
	}
	return combined
}

func applyStep(values []float64, outliers []uint8, step *model.MaskStep) ([]bool, error) {
	switch step.Method {
	case model.MaskMethodThreshold:
		return thresholdMask(values, step), nil
	case model.MaskMethodRange:
		return rangeMask(values, step)
	case model.MaskMethodPercentile:
		return percentileMask(values, step), nil
	case model.MaskMethodExternalOutlier:
		return outlierMask(values, outliers)
	default:
		// config validation rejects unknown methods before we get here
		panic(fmt.Sprintf("maskx: unknown mask method: %d", int(step.Method)))
	}
}

func thresholdMask(values []float64, step *model.MaskStep) []bool {
	keep := make([]bool, len(values))
	for i, v := range values {
		if !isFinite(v) {
			continue
		}
		if step.Direction == model.ThresholdAbove {
			keep[i] = above(v, step.Threshold, step.Inclusive)
		} else {
			keep[i] = below(v, step.Threshold, step.Inclusive)
		}
	}
	return keep
}

func rangeMask(values []float64, step *model.MaskStep) ([]bool, error) {
	if step.MinValue == nil && step.MaxValue == nil {
		return nil, &model.ConfigError{
			Field:  "mask.range",
			Reason: "at least one of min_value and max_value is required",
		}
	}
	keep := make([]bool, len(values))
	for i, v := range values {
		keep[i] = isFinite(v) && withinBounds(v, step.MinValue, step.MaxValue, step.Inclusive)
	}
	return keep, nil
}

func percentileMask(values []float64, step *model.MaskStep) []bool {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		// every finite check below fails anyway
		return make([]bool, len(values))
	}
	sort.Float64s(finite)
	low := Percentile(finite, step.LowPercentile)
	high := Percentile(finite, step.HighPercentile)
	if high < low {
		low, high = high, low
	}
	keep := make([]bool, len(values))
	for i, v := range values {
		keep[i] = isFinite(v) && withinBounds(v, &low, &high, step.Inclusive)
	}
	return keep
}

func outlierMask(values []float64, outliers []uint8) ([]bool, error) {
	if outliers == nil {
		return nil, nil
	}
	if len(outliers) != len(values) {
		return nil, fmt.Errorf("maskx: outlier buffer length %d does not match value buffer length %d",
			len(outliers), len(values))
	}
	// invert to the inclusion convention: kept = not-outlier
	keep := make([]bool, len(values))
	for i, flag := range outliers {
		keep[i] = flag == 0
	}
	return keep, nil
}

// Percentile computes the linear-interpolated percentile p (in [0, 100])
// over an already-sorted slice of finite values. The rank is (n-1)*p/100
// and the result interpolates between the floor and ceil ranks, so p=0
// yields the minimum and p=100 the maximum.
func Percentile(sorted []float64, p float64) float64 {
	runtimex.Assert(len(sorted) > 0, "maskx: Percentile with empty input")
	rank := float64(len(sorted)-1) * p / 100.0
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > len(sorted)-1 {
		hi = len(sorted) - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func above(v, threshold float64, inclusive bool) bool {
	if inclusive {
		return v >= threshold
	}
	return v > threshold
}

func below(v, threshold float64, inclusive bool) bool {
	if inclusive {
		return v <= threshold
	}
	return v < threshold
}

func withinBounds(v float64, min, max *float64, inclusive bool) bool {
	if min != nil {
		if inclusive {
			if v < *min {
				return false
			}
		} else if v <= *min {
			return false
		}
	}
	if max != nil {
		if inclusive {
			if v > *max {
				return false
			}
		} else if v >= *max {
			return false
		}
	}
	return true
}
