package model

//
// Mask specification
//

import "fmt"

// MaskMethod enumerates the supported masking methods.
type MaskMethod int

const (
	// MaskMethodThreshold keeps values above or below a threshold.
	MaskMethodThreshold = MaskMethod(iota)

	// MaskMethodRange keeps values within [MinValue, MaxValue].
	MaskMethodRange

	// MaskMethodPercentile keeps values within percentile bounds computed
	// over the sorted finite subset.
	MaskMethodPercentile

	// MaskMethodExternalOutlier consumes a binary classification buffer
	// produced by an external outlier-detection routine.
	MaskMethodExternalOutlier
)

// ParseMaskMethod maps a configuration string onto a [MaskMethod]. An
// unknown name is a configuration error and is always fatal.
func ParseMaskMethod(name string) (MaskMethod, error) {
	switch name {
	case "threshold":
		return MaskMethodThreshold, nil
	case "range":
		return MaskMethodRange, nil
	case "percentile":
		return MaskMethodPercentile, nil
	case "external_outlier":
		return MaskMethodExternalOutlier, nil
	default:
		return 0, &ConfigError{
			Field:  "mask.method",
			Reason: fmt.Sprintf("unknown mask method: %q", name),
		}
	}
}

// String implements fmt.Stringer.
func (m MaskMethod) String() string {
	switch m {
	case MaskMethodThreshold:
		return "threshold"
	case MaskMethodRange:
		return "range"
	case MaskMethodPercentile:
		return "percentile"
	case MaskMethodExternalOutlier:
		return "external_outlier"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ThresholdDirection tells a threshold step which side to keep.
type ThresholdDirection int

const (
	// ThresholdAbove keeps values at or above the threshold.
	ThresholdAbove = ThresholdDirection(iota)

	// ThresholdBelow keeps values at or below the threshold.
	ThresholdBelow
)

// ParseThresholdDirection maps a configuration string onto a
// [ThresholdDirection].
func ParseThresholdDirection(name string) (ThresholdDirection, error) {
	switch name {
	case "above":
		return ThresholdAbove, nil
	case "below":
		return ThresholdBelow, nil
	default:
		return 0, &ConfigError{
			Field:  "mask.direction",
			Reason: fmt.Sprintf("unknown threshold direction: %q", name),
		}
	}
}

// CombineOp tells a multi-step mask how to combine per-step results.
type CombineOp int

const (
	// CombineAND intersects per-step masks (the default).
	CombineAND = CombineOp(iota)

	// CombineOR unions per-step masks.
	CombineOR
)

// ParseCombineOp maps a configuration string onto a [CombineOp]. The empty
// string selects the AND default.
func ParseCombineOp(name string) (CombineOp, error) {
	switch name {
	case "", "and":
		return CombineAND, nil
	case "or":
		return CombineOR, nil
	default:
		return 0, &ConfigError{
			Field:  "mask.combine",
			Reason: fmt.Sprintf("unknown combine operator: %q", name),
		}
	}
}

// MaskStep is a single masking step. Steps are immutable: they are
// constructed from configuration once and consumed once per scan.
type MaskStep struct {
	// Method selects the masking method.
	Method MaskMethod

	// Direction tells a threshold step which side to keep.
	Direction ThresholdDirection

	// Threshold is the threshold value for threshold steps.
	Threshold float64

	// MinValue is the optional lower bound for range steps.
	MinValue *float64

	// MaxValue is the optional upper bound for range steps.
	MaxValue *float64

	// LowPercentile is the lower percentile [0, 100] for percentile steps.
	LowPercentile float64

	// HighPercentile is the upper percentile [0, 100] for percentile steps.
	HighPercentile float64

	// Invert negates the step result after computation.
	Invert bool

	// Inclusive controls boundary inclusion (>=/<= rather than >/<).
	Inclusive bool
}

// MaskSpec is an ordered list of masking steps plus the combine operator
// and the empty-mask policy.
//
// Invariant: when Build succeeds the resulting boolean array has the same
// length as the value buffer.
type MaskSpec struct {
	// Steps contains the ordered masking steps.
	Steps []MaskStep

	// Combine is the pairwise combination operator.
	Combine CombineOp

	// OnEmpty is the policy applied once to the final combined mask when
	// it keeps zero pixels.
	OnEmpty EmptyPolicy
}
