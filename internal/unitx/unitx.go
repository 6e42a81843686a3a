// Package unitx canonicalizes unit strings, applies configured linear
// conversions to scan statistics, and enforces expected-unit policies.
//
// Instruments and file formats disagree on unit spelling ("µm", "um",
// "Pa·s", "Pa s"). [Normalize] folds these onto one canonical spelling
// so a conversion table keyed by canonical units matches reliably.
package unitx

import (
	"fmt"
	"strings"

	"github.com/nanolab/scanpipe/internal/model"
)

// builtinAliases maps spelling variants onto the canonical spelling.
// Keys are matched after whitespace collapsing and rune folding.
var builtinAliases = map[string]string{
	"micron":  "um",
	"microns": "um",
	"Å":       "A",
	"Ang":     "A",
	"deg":     "deg",
	"°":       "deg",
	"a.u":     "a.u.",
	"au":      "a.u.",
	"arb":     "a.u.",
	"arb.u.":  "a.u.",
}

// runeFolds maps single runes onto ASCII-friendly replacements applied
// before alias lookup.
var runeFolds = map[rune]string{
	'µ': "u", // micro sign
	'μ': "u", // greek mu
	'²': "^2",
	'³': "^3",
	'⁻': "^-",
	'¹': "1",
	'·': "*",
}

// Normalizer canonicalizes unit strings. The zero value uses only the
// builtin aliases; configuration may add more.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer creates a [Normalizer] whose alias table is the builtin
// table extended (and possibly overridden) by extra.
func NewNormalizer(extra map[string]string) *Normalizer {
	aliases := make(map[string]string, len(builtinAliases)+len(extra))
	for k, v := range builtinAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		aliases[k] = v
	}
	return &Normalizer{aliases: aliases}
}

// Normalize canonicalizes a unit string: it collapses whitespace, folds
// superscript and micro-sign runes, and maps known aliases onto one
// canonical spelling. The empty string stays empty.
func (n *Normalizer) Normalize(unit string) string {
	folded := fold(unit)
	if folded == "" {
		return ""
	}
	aliases := n.aliases
	if aliases == nil {
		aliases = builtinAliases
	}
	if canonical, ok := aliases[folded]; ok {
		return canonical
	}
	return folded
}

// Normalize canonicalizes a unit string using only the builtin aliases.
func Normalize(unit string) string {
	return (&Normalizer{}).Normalize(unit)
}

func fold(unit string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(unit) {
		if replacement, ok := runeFolds[r]; ok {
			sb.WriteString(replacement)
			continue
		}
		sb.WriteRune(r)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Table is a conversion table keyed by canonicalized source unit.
type Table map[string]model.UnitConversion

// NewTable builds a [Table] from configured conversions, canonicalizing
// the source units with the given normalizer. A duplicate source unit or
// an empty target unit is a configuration error.
func NewTable(conversions []model.UnitConversion, n *Normalizer) (Table, error) {
	table := make(Table, len(conversions))
	for _, conv := range conversions {
		source := n.Normalize(conv.SourceUnit)
		if source == "" {
			return nil, &model.ConfigError{
				Field:  "unit_conversions",
				Reason: "empty source unit",
			}
		}
		if conv.TargetUnit == "" {
			return nil, &model.ConfigError{
				Field:  "unit_conversions",
				Reason: fmt.Sprintf("conversion for %q has no target unit", conv.SourceUnit),
			}
		}
		if _, found := table[source]; found {
			return nil, &model.ConfigError{
				Field:  "unit_conversions",
				Reason: fmt.Sprintf("duplicate conversion for source unit %q", conv.SourceUnit),
			}
		}
		conv.SourceUnit = source
		table[source] = conv
	}
	return table, nil
}

// ApplyOptions configures [Apply].
type ApplyOptions struct {
	// Normalizer canonicalizes unit strings; nil uses builtin aliases.
	Normalizer *Normalizer

	// Conversions is the optional conversion table.
	Conversions Table

	// ExpectedUnit optionally names the unit the caller expects after
	// conversion.
	ExpectedUnit string

	// OnMismatch resolves expected-unit violations and empty units
	// without any fallback.
	OnMismatch model.MismatchPolicy

	// DefaultUnit is the configured fallback for a missing unit.
	DefaultUnit string

	// ModeUnit is the mode-level fallback consulted after DefaultUnit.
	ModeUnit string

	// Logger logs policy-recovered conditions; nil discards.
	Logger model.Logger
}

func (opts *ApplyOptions) normalizer() *Normalizer {
	if opts.Normalizer != nil {
		return opts.Normalizer
	}
	return &Normalizer{}
}

func (opts *ApplyOptions) logger() model.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return model.DiscardLogger
}

// Apply canonicalizes the detected unit, applies a configured conversion
// when one matches, and enforces the expected-unit policy.
//
// When the detected unit is empty it falls back to DefaultUnit then
// ModeUnit; when neither is configured the empty-unit condition follows
// the same three-way policy as a unit mismatch.
//
// Return value: the (possibly scaled) stats and final unit; skip=true
// when the policy says to drop the scan; an error when the policy says
// to fail.
func Apply(stats model.ScanStats, detectedUnit string, opts *ApplyOptions) (model.ScanStats, string, bool, error) {
	norm := opts.normalizer()
	logger := opts.logger()

	unit := norm.Normalize(detectedUnit)
	if unit == "" {
		unit = norm.Normalize(opts.DefaultUnit)
	}
	if unit == "" {
		unit = norm.Normalize(opts.ModeUnit)
	}
	if unit == "" {
		switch opts.OnMismatch {
		case model.MismatchPolicyError:
			return stats, "", false, fmt.Errorf("%w: no unit detected and no fallback configured", model.ErrUnitMismatch)
		case model.MismatchPolicySkipRow:
			return stats, "", true, nil
		default:
			logger.Warn("unitx: no unit detected and no fallback configured")
			return stats, "", false, nil
		}
	}

	if conv, found := opts.Conversions[unit]; found {
		stats.Mean *= conv.Factor
		stats.Std *= abs(conv.Factor)
		unit = conv.TargetUnit
	}

	if expected := opts.ExpectedUnit; expected != "" && unit != expected {
		switch opts.OnMismatch {
		case model.MismatchPolicyError:
			return stats, unit, false, fmt.Errorf("%w: got %q, expected %q", model.ErrUnitMismatch, unit, expected)
		case model.MismatchPolicySkipRow:
			return stats, unit, true, nil
		default:
			logger.Warnf("unitx: unit %q does not match expected %q; keeping record", unit, expected)
		}
	}
	return stats, unit, false, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
