package observations

import "fmt"

// Threshold selects how aggressively flagged measurements are redacted.
type Threshold string

const (
	// ThresholdNone leaves every value in place.
	ThresholdNone Threshold = "none"
	// ThresholdSoft nulls values whose flag is advisory: 0 < flag < soft ceiling.
	ThresholdSoft Threshold = "soft"
	// ThresholdAll nulls values with any nonzero flag.
	ThresholdAll Threshold = "all"
)

// SoftFlagCeiling separates advisory QC flags from hard failures. The flag
// severity taxonomy is owned by the QC pipeline, not this service; the value
// is kept as a tunable default rather than an inferred rule.
const SoftFlagCeiling int16 = 50

// ParseThreshold maps a request parameter to a Threshold.
func ParseThreshold(value string) (Threshold, error) {
	switch Threshold(value) {
	case ThresholdNone, ThresholdSoft, ThresholdAll:
		return Threshold(value), nil
	case "":
		return ThresholdNone, nil
	default:
		return "", fmt.Errorf("unknown threshold %q", value)
	}
}

// FlagPair binds one measurement field to its companion QC flag. Pairs are
// declared statically per entity type; flags without a measurement
// counterpart (coordinate-quality markers) simply have no pair and are
// never redacted.
type FlagPair[T any] struct {
	Field string
	Flag  func(*T) *int16
	Clear func(*T)
}

// Redactor nulls measurement values whose paired flag crosses the chosen
// threshold. Redaction is independent per row and per field.
type Redactor[T any] struct {
	pairs       []FlagPair[T]
	softCeiling int16
}

// RedactorOption configures a Redactor.
type RedactorOption[T any] func(*Redactor[T])

// WithSoftCeiling overrides the advisory-flag upper bound.
func WithSoftCeiling[T any](ceiling int16) RedactorOption[T] {
	return func(r *Redactor[T]) {
		if ceiling > 0 {
			r.softCeiling = ceiling
		}
	}
}

// NewRedactor builds a redactor over the entity's declared flag pairs.
func NewRedactor[T any](pairs []FlagPair[T], opts ...RedactorOption[T]) *Redactor[T] {
	redactor := &Redactor[T]{pairs: pairs, softCeiling: SoftFlagCeiling}
	for _, opt := range opts {
		opt(redactor)
	}
	return redactor
}

// Redact scrubs rows in place and returns them. The count of nulled values
// is reported back for instrumentation.
func (r *Redactor[T]) Redact(rows []T, threshold Threshold) ([]T, int) {
	if r == nil || threshold == ThresholdNone {
		return rows, 0
	}

	redacted := 0
	for i := range rows {
		for _, pair := range r.pairs {
			flag := pair.Flag(&rows[i])
			if flag == nil {
				continue
			}
			switch threshold {
			case ThresholdSoft:
				if *flag > 0 && *flag < r.softCeiling {
					pair.Clear(&rows[i])
					redacted++
				}
			case ThresholdAll:
				if *flag > 0 {
					pair.Clear(&rows[i])
					redacted++
				}
			}
		}
	}
	return rows, redacted
}
