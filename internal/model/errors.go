package model

//
// Error taxonomy
//

import (
	"errors"
	"fmt"
)

// ErrConfig is the sentinel with which every [ConfigError] matches via
// [errors.Is]. Configuration errors are always fatal and never
// policy-controlled: they indicate that the caller misconfigured the
// computation, not a data condition.
var ErrConfig = errors.New("invalid configuration")

// ConfigError is a fatal configuration error carrying enough context for
// diagnosis (the offending key and the reason).
type ConfigError struct {
	// Field names the offending configuration key.
	Field string

	// Reason describes what is wrong with it.
	Reason string
}

var _ error = &ConfigError{}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfig.Error(), e.Field, e.Reason)
}

// Is makes the error match [ErrConfig].
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ErrEmptyResult indicates that masking/filtering excluded all pixels and
// the configured policy was to treat that as an error.
var ErrEmptyResult = errors.New("mask/filter excluded all pixels")

// ErrUnitMismatch indicates that the final unit differed from the expected
// unit and the configured policy was to treat that as an error.
var ErrUnitMismatch = errors.New("unit mismatch")

// ErrGroupUnitConflict indicates that a group contained more than one
// distinct unit and mixed units were not allowed.
var ErrGroupUnitConflict = errors.New("conflicting units within group")
