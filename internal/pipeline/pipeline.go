// Package pipeline runs the per-scan stage of the engine: mask
// building, filtered statistics, and unit normalization, in that order.
//
// The stage is purely functional: each scan's result depends only on
// that scan's own buffer and options, so callers are free to distribute
// scans across goroutines and process them in any order.
//
// Results are explicit variants rather than sentinel nils: a scan is
// either kept with a [model.ScanRecord], skipped because masking or
// filtering left no data, or skipped because of a unit mismatch. Only
// genuine errors (configuration errors, policy-as-error conditions)
// surface as Go errors, and those abort the whole batch.
package pipeline

import (
	"fmt"

	"github.com/nanolab/scanpipe/internal/maskx"
	"github.com/nanolab/scanpipe/internal/model"
	"github.com/nanolab/scanpipe/internal/statsx"
	"github.com/nanolab/scanpipe/internal/unitx"
)

// OutcomeKind discriminates the per-scan outcome variants.
type OutcomeKind int

const (
	// OutcomeKept means the scan produced a record.
	OutcomeKept = OutcomeKind(iota)

	// OutcomeSkippedEmpty means masking/filtering left no data and the
	// configured policy was to drop the scan.
	OutcomeSkippedEmpty

	// OutcomeSkippedMismatch means the unit policy dropped the scan.
	OutcomeSkippedMismatch
)

// String implements fmt.Stringer.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeKept:
		return "kept"
	case OutcomeSkippedEmpty:
		return "skipped_empty"
	case OutcomeSkippedMismatch:
		return "skipped_mismatch"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the result of processing one scan.
type Outcome struct {
	// Kind discriminates the variant.
	Kind OutcomeKind

	// Record is the produced record, nil unless Kind is [OutcomeKept].
	Record *model.ScanRecord

	// Breakdown counts exclusion reasons for diagnostics. Only filled
	// when the statistics stage ran.
	Breakdown statsx.Breakdown
}

// Scan is the input of the per-scan stage, supplied in memory by the
// upstream image-processing collaborator.
type Scan struct {
	// Values is the flat value buffer of the scan.
	Values []float64

	// Outliers is the optional binary outlier buffer (nonzero means
	// outlier) produced by an external outlier-detection routine.
	Outliers []uint8

	// DetectedUnit is the unit string reported by the instrument.
	DetectedUnit string

	// SourceID identifies the scan (typically the source file name).
	SourceID string

	// GroupKeys carries the grouping columns for later aggregation.
	GroupKeys map[string]string
}

// Options configures the per-scan stage.
type Options struct {
	// Mask is the optional declarative mask specification.
	Mask *model.MaskSpec

	// Filter is the optional numeric value filter.
	Filter *model.ValueFilter

	// OnEmpty is the zero-kept-pixel policy of the statistics stage.
	OnEmpty model.EmptyPolicy

	// Units configures unit normalization and conversion.
	Units unitx.ApplyOptions

	// Logger logs policy-recovered conditions; nil discards.
	Logger model.Logger

	// Warnings optionally deduplicates repeated warnings across the
	// scans of a batch.
	Warnings *WarnTracker
}

func (opts *Options) logger() model.Logger {
	logger := opts.Logger
	if logger == nil {
		logger = model.DiscardLogger
	}
	if opts.Warnings != nil {
		logger = opts.Warnings.Logger(logger)
	}
	return logger
}

// ProcessScan runs mask building, filtered statistics, and unit
// normalization for a single scan.
func ProcessScan(scan *Scan, opts *Options) (Outcome, error) {
	logger := opts.logger()

	mask, skip, err := maskx.Build(scan.Values, scan.Outliers, opts.Mask, logger)
	if err != nil {
		return Outcome{}, fmt.Errorf("scan %s: %w", scan.SourceID, err)
	}
	if skip {
		logger.Debugf("pipeline: dropping scan %s: empty mask", scan.SourceID)
		return Outcome{Kind: OutcomeSkippedEmpty}, nil
	}

	var keep []bool
	if mask != nil {
		keep = mask.Keep
	}
	stats, breakdown, skip, err := statsx.Compute(scan.Values, keep, opts.Filter, opts.OnEmpty, logger)
	if err != nil {
		return Outcome{}, fmt.Errorf("scan %s: %w", scan.SourceID, err)
	}
	if skip {
		logger.Debugf("pipeline: dropping scan %s: no values survived", scan.SourceID)
		return Outcome{Kind: OutcomeSkippedEmpty, Breakdown: breakdown}, nil
	}

	units := opts.Units
	units.Logger = logger
	stats, unit, skip, err := unitx.Apply(stats, scan.DetectedUnit, &units)
	if err != nil {
		return Outcome{}, fmt.Errorf("scan %s: %w", scan.SourceID, err)
	}
	if skip {
		logger.Debugf("pipeline: dropping scan %s: unit mismatch", scan.SourceID)
		return Outcome{Kind: OutcomeSkippedMismatch, Breakdown: breakdown}, nil
	}

	record := &model.ScanRecord{
		GroupKeys: scan.GroupKeys,
		Stats:     stats,
		Unit:      unit,
		SourceID:  scan.SourceID,
	}
	if mask != nil {
		record.Masked = true
		record.MaskKept = mask.Kept
		record.MaskTotal = mask.Total
	}
	return Outcome{Kind: OutcomeKept, Record: record, Breakdown: breakdown}, nil
}

// ProcessBatch runs [ProcessScan] over a batch. Skipped scans are
// excluded from the result without aborting the batch; errors abort
// immediately because they indicate misconfiguration rather than a data
// condition.
func ProcessBatch(scans []*Scan, opts *Options) ([]*model.ScanRecord, error) {
	records := make([]*model.ScanRecord, 0, len(scans))
	for _, scan := range scans {
		outcome, err := ProcessScan(scan, opts)
		if err != nil {
			return nil, err
		}
		if outcome.Kind != OutcomeKept {
			continue
		}
		records = append(records, outcome.Record)
	}
	return records, nil
}
