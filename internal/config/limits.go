package config

import "runtime"

// Default resource ceilings. Inputs exceeding MaxBytes or datasets that
// would materialize more than MaxRows rows are bounded up front; the limits
// exist to keep a single profiling request predictable in memory and time.
const (
	// DefaultMaxBytes is the hard upload size ceiling (50 MB).
	DefaultMaxBytes = 50 << 20

	// DefaultMaxRows caps how many rows are materialized in memory for
	// column profiles. Rows beyond the cap still count toward totals and
	// duplicate detection.
	DefaultMaxRows = 100_000

	// DefaultPreviewRows is the number of leading rows included in the
	// returned profile.
	DefaultPreviewRows = 100

	// DefaultSampleValues is the number of example values kept per column.
	DefaultSampleValues = 5

	// DefaultInferSampleCap bounds how many non-null values each type
	// detector examines per column.
	DefaultInferSampleCap = 1000
)

// Limits bundles the per-request resource ceilings.
//
// The zero value is not usable; call Normalize (or start from Defaults) so
// every field carries a sane positive value.
type Limits struct {
	// MaxBytes rejects inputs larger than this before any parsing.
	MaxBytes int

	// MaxRows caps materialized rows (totals are still counted beyond it).
	MaxRows int

	// PreviewRows bounds the row preview embedded in the profile.
	PreviewRows int

	// SampleValues bounds per-column example values.
	SampleValues int

	// InferSampleCap bounds values examined by type detectors.
	InferSampleCap int

	// Workers is the per-column concurrency during profiling.
	Workers int
}

// Defaults returns the standard limit set.
func Defaults() Limits {
	return Limits{
		MaxBytes:       DefaultMaxBytes,
		MaxRows:        DefaultMaxRows,
		PreviewRows:    DefaultPreviewRows,
		SampleValues:   DefaultSampleValues,
		InferSampleCap: DefaultInferSampleCap,
		Workers:        runtime.GOMAXPROCS(0),
	}
}

// Normalize replaces non-positive fields with their defaults and returns
// the result. MaxRows overrides above the configured ceiling are clamped
// by callers, not here; Normalize only guards against zero values.
func (l Limits) Normalize() Limits {
	d := Defaults()
	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}
	if l.MaxRows <= 0 {
		l.MaxRows = d.MaxRows
	}
	if l.PreviewRows <= 0 {
		l.PreviewRows = d.PreviewRows
	}
	if l.SampleValues <= 0 {
		l.SampleValues = d.SampleValues
	}
	if l.InferSampleCap <= 0 {
		l.InferSampleCap = d.InferSampleCap
	}
	if l.Workers <= 0 {
		l.Workers = d.Workers
	}
	return l
}
