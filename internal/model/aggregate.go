package model

//
// Group aggregates
//

import (
	"strings"

	"github.com/nanolab/scanpipe/internal/optional"
)

// MixedUnitsMarker is the unit emitted for a group whose records carry
// more than one distinct unit when mixed units are allowed.
const MixedUnitsMarker = "MIXED"

// GroupAggregate contains the dataset-level aggregates of one group of
// scan records. It is derived data: each aggregation run is a pure
// reduction over the full input set and a GroupAggregate is recomputable
// at any time from the records in its group, never mutated incrementally.
type GroupAggregate struct {
	// GroupKeys contains the values of the group-by columns, in the
	// order of the group-by request.
	GroupKeys []string

	// NScans is the total number of records in the group.
	NScans int64

	// NScansWithMean is the number of records that contributed to the
	// scan-mean aggregate.
	NScansWithMean int64

	// NScansWithPooled is the number of records that contributed to the
	// pooled aggregate.
	NScansWithPooled int64

	// NValidTotal is the total pixel count over pooled records.
	NValidTotal int64

	// AvgPooled is the pixel-weighted mean, None when no record was
	// eligible for pooling.
	AvgPooled optional.Value[float64]

	// StdPooled is the pixel-weighted population standard deviation
	// recombined from per-scan moments.
	StdPooled optional.Value[float64]

	// AvgScanMean is the unweighted mean of per-scan means.
	AvgScanMean optional.Value[float64]

	// StdScanMean is the population standard deviation of per-scan means.
	StdScanMean optional.Value[float64]

	// Unit is the resolved unit of the group: empty when no record has a
	// unit, the common unit when there is exactly one, and
	// [MixedUnitsMarker] when mixed units are allowed and present.
	Unit string
}

// Well-known field names exposed by [GroupAggregate.Fields].
const (
	FieldNScans           = "n_scans"
	FieldNScansWithMean   = "n_scans_with_mean"
	FieldNScansWithPooled = "n_scans_with_pooled"
	FieldNValidTotal      = "n_valid_total"
	FieldAvgPooled        = "avg_pooled"
	FieldStdPooled        = "std_pooled"
	FieldAvgScanMean      = "avg_scan_mean"
	FieldStdScanMean      = "std_scan_mean"
)

// Fields exposes the aggregate as named outputs for an external tabular
// writer. Count fields are always present; aggregate fields are absent
// when the corresponding value is None. Group keys appear with the "key."
// prefix under the column names passed in groupBy.
func (g *GroupAggregate) Fields(groupBy []string) map[string]any {
	out := map[string]any{
		FieldNScans:           g.NScans,
		FieldNScansWithMean:   g.NScansWithMean,
		FieldNScansWithPooled: g.NScansWithPooled,
		FieldNValidTotal:      g.NValidTotal,
		FieldUnit:             g.Unit,
	}
	putOptional(out, FieldAvgPooled, g.AvgPooled)
	putOptional(out, FieldStdPooled, g.StdPooled)
	putOptional(out, FieldAvgScanMean, g.AvgScanMean)
	putOptional(out, FieldStdScanMean, g.StdScanMean)
	for idx, name := range groupBy {
		if idx < len(g.GroupKeys) {
			out[GroupKeyFieldPrefix+name] = g.GroupKeys[idx]
		}
	}
	return out
}

func putOptional(out map[string]any, name string, value optional.Value[float64]) {
	if value.IsSome() {
		out[name] = value.Unwrap()
	}
}

// KeyString renders the group keys for inclusion in diagnostics.
func (g *GroupAggregate) KeyString() string {
	return "(" + strings.Join(g.GroupKeys, ", ") + ")"
}
