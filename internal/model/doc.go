// Package model contains the shared data structures and interfaces.
//
// # Criteria for adding a type to this package
//
// This package should contain two kinds of types:
//
// 1. important pieces of data that flow between the engine stages
// (e.g., the representation of a scan record or a group aggregate);
//
// 2. important interfaces shared by several packages, with the
// objective of separating unrelated pieces of code and making unit
// testing easier.
//
// In general, this package should not contain logic, unless this logic
// is strictly related to the data structures themselves.
//
// # Content of this package
//
// - scan.go: per-scan data types (ScanStats, ScanRecord, ValueFilter,
// UnitConversion) and their named-output mapping;
//
// - mask.go: the declarative mask specification (MaskSpec, MaskStep)
// and the closed enums it is validated into;
//
// - aggregate.go: dataset-level group aggregates;
//
// - policy.go: error-handling policies, parsed once at configuration
// load time;
//
// - errors.go: the error taxonomy shared by the engine stages;
//
// - logger.go: generic definition of an apex/log compatible logger.
package model
