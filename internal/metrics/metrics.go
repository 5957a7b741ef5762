// Package metrics defines the minimal metrics surface the fiche runner
// emits. The runner depends only on Backend; concrete backends live in
// subpackages so no vendor SDK leaks into generation code.
package metrics

// Labels are free-form metric dimensions (e.g. {"status": "ok"}).
type Labels map[string]string

// Backend receives counters and histogram observations from a run.
//
// Implementations must be safe for concurrent use: the runner's workers call
// IncCounter and ObserveHistogram from multiple goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits anything buffered. Safe to call at any time.
	Flush() error
	// Close stops background work and performs a final Flush.
	Close() error
}

// Metric names emitted by the runner.
const (
	MetricFilesTotal   = "fichegen.files.total"          // labels: status=ok|failed
	MetricCellsWritten = "fichegen.cells.written"        // no labels
	MetricSlotsFilled  = "fichegen.slots.filled"         // no labels
	MetricPopulateMS   = "fichegen.populate.duration_ms" // histogram
)

// Noop is the disabled backend.
type Noop struct{}

func (Noop) IncCounter(string, float64, Labels)       {}
func (Noop) ObserveHistogram(string, float64, Labels) {}
func (Noop) Flush() error                             { return nil }
func (Noop) Close() error                             { return nil }

var _ Backend = Noop{}
