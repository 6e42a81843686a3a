package maskx

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nanolab/scanpipe/internal/model"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestBuild(t *testing.T) {
	type testcase struct {
		name       string
		values     []float64
		outliers   []uint8
		spec       *model.MaskSpec
		expectKeep []bool
		expectKept int64
		expectSkip bool
		expectErr  error
	}

	cases := []testcase{{
		name:       "with nil spec",
		values:     []float64{1, 2, 3},
		spec:       nil,
		expectKeep: nil,
	}, {
		name:       "with no steps",
		values:     []float64{1, 2, 3},
		spec:       &model.MaskSpec{},
		expectKeep: nil,
	}, {
		name:   "threshold above inclusive",
		values: []float64{1, 2, 3, 4, 5},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdAbove,
				Threshold: 3,
				Inclusive: true,
			}},
		},
		expectKeep: []bool{false, false, true, true, true},
		expectKept: 3,
	}, {
		name:   "threshold above exclusive",
		values: []float64{1, 2, 3, 4, 5},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdAbove,
				Threshold: 3,
			}},
		},
		expectKeep: []bool{false, false, false, true, true},
		expectKept: 2,
	}, {
		name:   "threshold below excludes non-finite values",
		values: []float64{1, math.NaN(), math.Inf(1), 4},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdBelow,
				Threshold: 10,
				Inclusive: true,
			}},
		},
		expectKeep: []bool{true, false, false, true},
		expectKept: 2,
	}, {
		name:   "threshold with invert",
		values: []float64{1, 2, 3, 4, 5},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdAbove,
				Threshold: 3,
				Inclusive: true,
				Invert:    true,
			}},
		},
		expectKeep: []bool{true, true, false, false, false},
		expectKept: 2,
	}, {
		name:   "range with both bounds inclusive",
		values: []float64{0, 1, 2, 3, 4},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodRange,
				MinValue:  floatPtr(1),
				MaxValue:  floatPtr(3),
				Inclusive: true,
			}},
		},
		expectKeep: []bool{false, true, true, true, false},
		expectKept: 3,
	}, {
		name:   "range with only a lower bound exclusive",
		values: []float64{0, 1, 2, 3},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:   model.MaskMethodRange,
				MinValue: floatPtr(1),
			}},
		},
		expectKeep: []bool{false, false, true, true},
		expectKept: 2,
	}, {
		name:   "range without bounds is a configuration error",
		values: []float64{0, 1},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method: model.MaskMethodRange,
			}},
		},
		expectErr: model.ErrConfig,
	}, {
		name:   "percentile keeps the central band",
		values: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:         model.MaskMethodPercentile,
				LowPercentile:  0,
				HighPercentile: 50,
				Inclusive:      true,
			}},
		},
		expectKeep: []bool{true, true, true, true, true, false, false, false, false, false},
		expectKept: 5,
	}, {
		name:   "percentile swaps inverted bounds",
		values: []float64{10, 20, 30, 40, 50},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:         model.MaskMethodPercentile,
				LowPercentile:  100,
				HighPercentile: 0,
				Inclusive:      true,
			}},
		},
		expectKeep: []bool{true, true, true, true, true},
		expectKept: 5,
	}, {
		name:     "external outlier buffer inverts to inclusion",
		values:   []float64{1, 2, 3, 4},
		outliers: []uint8{0, 1, 0, 1},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method: model.MaskMethodExternalOutlier,
			}},
		},
		expectKeep: []bool{true, false, true, false},
		expectKept: 2,
	}, {
		name:   "external outlier step without buffer is skipped",
		values: []float64{1, 2, 3},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method: model.MaskMethodExternalOutlier,
			}},
		},
		expectKeep: nil,
	}, {
		name:     "two steps combine with AND by default",
		values:   []float64{1, 2, 3, 4, 5},
		outliers: []uint8{0, 0, 0, 0, 1},
		spec: &model.MaskSpec{
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdAbove,
				Threshold: 3,
				Inclusive: true,
			}, {
				Method: model.MaskMethodExternalOutlier,
			}},
		},
		expectKeep: []bool{false, false, true, true, false},
		expectKept: 2,
	}, {
		name:   "two steps combine with OR",
		values: []float64{1, 2, 3, 4, 5},
		spec: &model.MaskSpec{
			Combine: model.CombineOR,
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdBelow,
				Threshold: 1,
				Inclusive: true,
			}, {
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdAbove,
				Threshold: 5,
				Inclusive: true,
			}},
		},
		expectKeep: []bool{true, false, false, false, true},
		expectKept: 2,
	}, {
		name:   "empty mask with the error policy",
		values: []float64{1, 2, 3},
		spec: &model.MaskSpec{
			OnEmpty: model.EmptyPolicyError,
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdAbove,
				Threshold: 100,
				Inclusive: true,
			}},
		},
		expectErr: model.ErrEmptyResult,
	}, {
		name:   "empty mask with the skip_row policy",
		values: []float64{1, 2, 3},
		spec: &model.MaskSpec{
			OnEmpty: model.EmptyPolicySkipRow,
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdAbove,
				Threshold: 100,
				Inclusive: true,
			}},
		},
		expectSkip: true,
	}, {
		name:   "empty mask with the warn policy keeps zero pixels",
		values: []float64{1, 2, 3},
		spec: &model.MaskSpec{
			OnEmpty: model.EmptyPolicyWarn,
			Steps: []model.MaskStep{{
				Method:    model.MaskMethodThreshold,
				Direction: model.ThresholdAbove,
				Threshold: 100,
				Inclusive: true,
			}},
		},
		expectKeep: []bool{false, false, false},
		expectKept: 0,
	}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mask, skip, err := Build(tc.values, tc.outliers, tc.spec, model.DiscardLogger)

			if tc.expectErr != nil {
				if !errors.Is(err, tc.expectErr) {
					t.Fatal("expected error", tc.expectErr, "got", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if skip != tc.expectSkip {
				t.Fatal("expected skip", tc.expectSkip, "got", skip)
			}
			if tc.expectSkip {
				return
			}

			if tc.expectKeep == nil {
				if mask != nil {
					t.Fatal("expected a nil mask")
				}
				return
			}
			if mask == nil {
				t.Fatal("expected a mask")
			}
			if diff := cmp.Diff(tc.expectKeep, mask.Keep); diff != "" {
				t.Fatal(diff)
			}
			if mask.Kept != tc.expectKept {
				t.Fatal("expected kept", tc.expectKept, "got", mask.Kept)
			}
			if mask.Total != int64(len(tc.values)) {
				t.Fatal("expected total", len(tc.values), "got", mask.Total)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	t.Run("p=0 is the minimum", func(t *testing.T) {
		if got := Percentile(sorted, 0); got != 1 {
			t.Fatal("unexpected value", got)
		}
	})

	t.Run("p=100 is the maximum", func(t *testing.T) {
		if got := Percentile(sorted, 100); got != 10 {
			t.Fatal("unexpected value", got)
		}
	})

	t.Run("p=50 interpolates between the middle ranks", func(t *testing.T) {
		if got := Percentile(sorted, 50); math.Abs(got-5.5) > 1e-12 {
			t.Fatal("unexpected value", got)
		}
	})

	t.Run("interpolation uses rank (n-1)*p/100", func(t *testing.T) {
		// rank = 4*0.1 = 0.4 over [1..5] interpolates 1 and 2
		if got := Percentile([]float64{1, 2, 3, 4, 5}, 10); math.Abs(got-1.4) > 1e-12 {
			t.Fatal("unexpected value", got)
		}
	})

	t.Run("single element", func(t *testing.T) {
		if got := Percentile([]float64{42}, 75); got != 42 {
			t.Fatal("unexpected value", got)
		}
	})
}
