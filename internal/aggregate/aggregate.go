// Package aggregate combines many scans' statistics into dataset-level
// grouped aggregates.
//
// Aggregation is a pure, order-independent reduction: records partition
// into buckets keyed by the values at the group-by columns and each
// bucket reduces to one [model.GroupAggregate] carrying two independent
// views of the group:
//
// - the pooled view weights every scan by its pixel count and exactly
// recombines the per-scan moments, reproducing the statistics that
// recomputing mean/std over the union of all underlying pixels would
// give;
//
// - the scan-mean view treats each scan's mean as a single unweighted
// observation.
//
// Output group order is the insertion order of first-seen keys, so the
// result is deterministic for a given input order while the per-group
// aggregates do not depend on record order at all.
package aggregate

import (
	"fmt"
	"math"
	"strings"

	"github.com/nanolab/scanpipe/internal/model"
	"github.com/nanolab/scanpipe/internal/optional"
)

type bucket struct {
	keys    []string
	records []*model.ScanRecord
}

// Aggregate groups records by the given columns and reduces each group.
//
// A record missing a group-by column contributes the empty string for
// that key component. A group whose records carry more than one distinct
// non-empty unit is a fatal [model.ErrGroupUnitConflict] unless
// allowMixedUnits is set, in which case the group unit degrades to the
// [model.MixedUnitsMarker].
func Aggregate(records []*model.ScanRecord, groupBy []string, allowMixedUnits bool) ([]*model.GroupAggregate, error) {
	buckets := make(map[string]*bucket)
	var order []string

	for _, record := range records {
		tuple := record.GroupKeyTuple(groupBy)
		b := buckets[tuple]
		if b == nil {
			keys := make([]string, 0, len(groupBy))
			for _, column := range groupBy {
				keys = append(keys, record.GroupKey(column))
			}
			b = &bucket{keys: keys}
			buckets[tuple] = b
			order = append(order, tuple)
		}
		b.records = append(b.records, record)
	}

	out := make([]*model.GroupAggregate, 0, len(order))
	for _, tuple := range order {
		group, err := reduce(buckets[tuple], allowMixedUnits)
		if err != nil {
			return nil, err
		}
		out = append(out, group)
	}
	return out, nil
}

func reduce(b *bucket, allowMixedUnits bool) (*model.GroupAggregate, error) {
	group := &model.GroupAggregate{
		GroupKeys: b.keys,
		NScans:    int64(len(b.records)),
	}

	unit, err := resolveUnit(b, allowMixedUnits)
	if err != nil {
		return nil, err
	}
	group.Unit = unit

	reduceScanMean(group, b.records)
	reducePooled(group, b.records)
	return group, nil
}

// resolveUnit resolves the unit of a group from the distinct non-empty
// units of its records.
func resolveUnit(b *bucket, allowMixedUnits bool) (string, error) {
	var distinct []string
	seen := make(map[string]bool)
	for _, record := range b.records {
		if record.Unit == "" || seen[record.Unit] {
			continue
		}
		seen[record.Unit] = true
		distinct = append(distinct, record.Unit)
	}
	switch {
	case len(distinct) == 0:
		return "", nil
	case len(distinct) == 1:
		return distinct[0], nil
	case allowMixedUnits:
		return model.MixedUnitsMarker, nil
	default:
		return "", fmt.Errorf("%w: group (%s) has units %s",
			model.ErrGroupUnitConflict,
			strings.Join(b.keys, ", "),
			strings.Join(distinct, ", "))
	}
}

// reduceScanMean computes the unweighted aggregate treating each usable
// per-scan mean as a single observation. Records without a usable mean
// are excluded here but still counted in NScans.
func reduceScanMean(group *model.GroupAggregate, records []*model.ScanRecord) {
	var (
		count int64
		mean  float64
		m2    float64
	)
	for _, record := range records {
		if !record.Stats.HasMean() {
			continue
		}
		v := record.Stats.Mean
		count++
		delta := v - mean
		mean += delta / float64(count)
		m2 += delta * (v - mean)
	}
	group.NScansWithMean = count
	if count > 0 {
		group.AvgScanMean = optional.Some(mean)
		group.StdScanMean = optional.Some(math.Sqrt(m2 / float64(count)))
	}
}

// reducePooled computes the pixel-weighted aggregate by exact parallel
// recombination of per-scan moments:
//
//	N  = Σ nᵢ
//	μ  = Σ (nᵢ·meanᵢ) / N
//	σ² = Σ [nᵢ·(stdᵢ² + (meanᵢ−μ)²)] / N
//
// The identity only holds because per-scan std is population std.
func reducePooled(group *model.GroupAggregate, records []*model.ScanRecord) {
	var (
		count       int64
		totalN      int64
		weightedSum float64
	)
	for _, record := range records {
		// provenance counter: every record's pixel count, poolable or not
		group.NValidTotal += record.Stats.NValid
		if !record.Stats.UsableForPooling() {
			continue
		}
		count++
		totalN += record.Stats.NValid
		weightedSum += float64(record.Stats.NValid) * record.Stats.Mean
	}
	group.NScansWithPooled = count
	if count == 0 || totalN == 0 {
		return
	}

	mu := weightedSum / float64(totalN)
	var sum float64
	for _, record := range records {
		if !record.Stats.UsableForPooling() {
			continue
		}
		n := float64(record.Stats.NValid)
		dev := record.Stats.Mean - mu
		sum += n * (record.Stats.Std*record.Stats.Std + dev*dev)
	}
	group.AvgPooled = optional.Some(mu)
	group.StdPooled = optional.Some(math.Sqrt(sum / float64(totalN)))
}
