// Package metrics is a small, backend-agnostic layer for recording
// operational metrics from the migration pipeline. The global backend
// defaults to a no-op so instrumentation is always safe to call; a concrete
// backend (Prometheus Pushgateway) can be installed at startup. Concrete
// metric systems stay isolated in subpackages.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveDuration records a duration-style value.
	ObserveDuration(name string, value float64, labels Labels)
	// Flush pushes metrics if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)      {}
func (nopBackend) ObserveDuration(string, float64, Labels) {}
func (nopBackend) Flush() error                            { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the current one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStage records one stage execution: its duration and whether it
// succeeded.
func RecordStage(stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"stage": stage, "status": status}
	backend.IncCounter("migration_stage_total", 1, lbls)
	backend.ObserveDuration("migration_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordRecords increments a record-level counter for a stage. Typical kinds
// mirror the stage stats: "processed", "created", "adopted", "skipped",
// "warnings".
func RecordRecords(stage, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("migration_records_total", float64(delta), Labels{
		"stage": stage,
		"kind":  kind,
	})
}

// RecordBatches counts committed batches for a stage.
func RecordBatches(stage string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("migration_batches_total", float64(delta), Labels{"stage": stage})
}
