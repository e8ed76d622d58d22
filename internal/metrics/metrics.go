// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics of an import run.
//
// A global backend defaults to a no-op, so the Record functions are always
// safe to call. Concrete systems live in subpackages (prompush, datadog) and
// are installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by all backends.
const (
	StepTotal       = "wpimport_step_total"
	StepDuration    = "wpimport_step_duration_seconds"
	StatementsTotal = "wpimport_statements_total"
	DroppedTotal    = "wpimport_dropped_total"
	BatchesTotal    = "wpimport_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one step (a dump file import, key creation, ...) and
// its duration, labelled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordStatements counts executed INSERT statements per table.
func RecordStatements(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(StatementsTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}

// RecordDrop counts one undecodable line, row or statement. kind is one
// of "line", "row" or "statement".
func RecordDrop(job, kind string) {
	current().IncCounter(DroppedTotal, 1, Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the executed batch counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
