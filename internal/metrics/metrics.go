// Package metrics defines the minimal metrics abstraction used across
// the synthesis pipeline.
//
// The core packages emit counters and histogram observations through a
// package-level Backend. The default backend discards everything;
// commands that want real metrics install one (see internal/metrics/datadog)
// at startup. Keeping the abstraction this small means no backend types
// leak into fit/generate/eval code.
package metrics

import "sync"

// Labels are the tag dimensions attached to one observation.
type Labels map[string]string

// Backend receives metric observations.
//
// Implementations must be safe for concurrent use: the pipeline emits
// from whatever goroutine is doing the work.
type Backend interface {
	// IncCounter adds delta to a monotonically increasing counter.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of a distribution.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush pushes buffered observations to the sink.
	Flush() error

	// Close flushes and releases backend resources.
	Close() error
}

// Metric names understood by the bundled backends. Unknown names are
// dropped silently so call sites never need feature checks.
const (
	MetricRunsTotal    = "synth_runs_total"      // labels: status
	MetricRowsTotal    = "synth_rows_total"      // labels: kind
	MetricStepDuration = "step_duration_seconds" // labels: step
)

// nopBackend drops everything.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
func (nopBackend) Close() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Passing nil restores the
// discarding default.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

// IncCounter forwards to the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	mu.RLock()
	b := backend
	mu.RUnlock()
	b.IncCounter(name, delta, labels)
}

// ObserveHistogram forwards to the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	mu.RLock()
	b := backend
	mu.RUnlock()
	b.ObserveHistogram(name, value, labels)
}

// Flush forwards to the installed backend.
func Flush() error {
	mu.RLock()
	b := backend
	mu.RUnlock()
	return b.Flush()
}

// Close closes the installed backend and restores the discarding
// default.
func Close() error {
	mu.Lock()
	b := backend
	backend = nopBackend{}
	mu.Unlock()
	return b.Close()
}
