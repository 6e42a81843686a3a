// Package scanpipe reduces scanned-probe microscopy images to summary
// statistics and dataset-level aggregates.
package scanpipe

// Version is the scanpipe version.
const Version = "0.1.0"
