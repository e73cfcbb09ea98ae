// Package metrics defines the minimal metrics surface the profiler
// emits through. Backends live in subpackages; the core and the server
// depend only on this interface.
package metrics

// Labels tag a single observation.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe
// for concurrent use.
type Backend interface {
	// IncCounter adds delta to a named counter. Non-positive deltas
	// are ignored.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered observations.
	Flush() error

	// Close flushes once more and releases resources.
	Close() error
}

// Metric names shared between the server and the backends.
const (
	// Counters.
	ProfilesTotal        = "profiler_profiles_total"         // labels: format, status
	RowsTotal            = "profiler_rows_total"             // labels: kind (total|materialized|duplicate)
	UploadsRejectedTotal = "profiler_uploads_rejected_total" // labels: reason

	// Histograms.
	ProfileDurationSeconds = "profiler_profile_duration_seconds" // labels: format, status
	UploadBytes            = "profiler_upload_bytes"             // labels: format
)

// Nop discards everything. The default when no backend is configured.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
