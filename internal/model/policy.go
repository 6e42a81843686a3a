package model

//
// Error-handling policies
//
// All policies are closed enums parsed and validated once at configuration
// load time, never re-parsed per scan.
//

import "fmt"

// EmptyPolicy resolves the condition where a mask or filter excluded every
// pixel of a scan.
type EmptyPolicy int

const (
	// EmptyPolicyError aborts the current operation.
	EmptyPolicyError = EmptyPolicy(iota)

	// EmptyPolicyWarn logs a warning and proceeds with zero kept pixels.
	EmptyPolicyWarn

	// EmptyPolicySkipRow signals the caller to drop the scan entirely.
	EmptyPolicySkipRow

	// EmptyPolicyBlank emits NaN for mean/std but still reports n_valid=0.
	EmptyPolicyBlank
)

// ParseEmptyPolicy maps a configuration string onto an [EmptyPolicy]. The
// empty string selects the warn default.
func ParseEmptyPolicy(name string) (EmptyPolicy, error) {
	switch name {
	case "error":
		return EmptyPolicyError, nil
	case "", "warn":
		return EmptyPolicyWarn, nil
	case "skip_row":
		return EmptyPolicySkipRow, nil
	case "blank":
		return EmptyPolicyBlank, nil
	default:
		return 0, &ConfigError{
			Field:  "on_empty",
			Reason: fmt.Sprintf("unknown empty-result policy: %q", name),
		}
	}
}

// String implements fmt.Stringer.
func (p EmptyPolicy) String() string {
	switch p {
	case EmptyPolicyError:
		return "error"
	case EmptyPolicyWarn:
		return "warn"
	case EmptyPolicySkipRow:
		return "skip_row"
	case EmptyPolicyBlank:
		return "blank"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// MismatchPolicy resolves the condition where the final unit of a scan
// differs from the expected unit.
type MismatchPolicy int

const (
	// MismatchPolicyError aborts the current operation.
	MismatchPolicyError = MismatchPolicy(iota)

	// MismatchPolicyWarn logs a warning and keeps the record.
	MismatchPolicyWarn

	// MismatchPolicySkipRow signals the caller to drop the scan.
	MismatchPolicySkipRow
)

// ParseMismatchPolicy maps a configuration string onto a [MismatchPolicy].
// The empty string selects the warn default.
func ParseMismatchPolicy(name string) (MismatchPolicy, error) {
	switch name {
	case "error":
		return MismatchPolicyError, nil
	case "", "warn":
		return MismatchPolicyWarn, nil
	case "skip_row":
		return MismatchPolicySkipRow, nil
	default:
		return 0, &ConfigError{
			Field:  "on_unit_mismatch",
			Reason: fmt.Sprintf("unknown unit-mismatch policy: %q", name),
		}
	}
}

// String implements fmt.Stringer.
func (p MismatchPolicy) String() string {
	switch p {
	case MismatchPolicyError:
		return "error"
	case MismatchPolicyWarn:
		return "warn"
	case MismatchPolicySkipRow:
		return "skip_row"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// MissingFieldPolicy resolves the condition where a declarative CSV column
// references a field absent from a record's named outputs.
type MissingFieldPolicy int

const (
	// MissingFieldWarnNull logs a warning and writes the empty string.
	MissingFieldWarnNull = MissingFieldPolicy(iota)

	// MissingFieldError aborts the current operation.
	MissingFieldError

	// MissingFieldSkipRow drops the whole row.
	MissingFieldSkipRow
)

// ParseMissingFieldPolicy maps a configuration string onto a
// [MissingFieldPolicy]. The empty string selects the warn_null default.
func ParseMissingFieldPolicy(name string) (MissingFieldPolicy, error) {
	switch name {
	case "", "warn_null":
		return MissingFieldWarnNull, nil
	case "error":
		return MissingFieldError, nil
	case "skip_row":
		return MissingFieldSkipRow, nil
	default:
		return 0, &ConfigError{
			Field:  "on_missing_field",
			Reason: fmt.Sprintf("unknown missing-field policy: %q", name),
		}
	}
}
