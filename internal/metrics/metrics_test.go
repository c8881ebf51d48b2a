package metrics

import (
	"errors"
	"testing"
	"time"
)

type captureBackend struct {
	counters  map[string]float64
	durations int
	flushed   bool
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	if c.counters == nil {
		c.counters = map[string]float64{}
	}
	c.counters[name+"/"+labels["stage"]+"/"+labels["kind"]+labels["status"]] += delta
}

func (c *captureBackend) ObserveDuration(string, float64, Labels) { c.durations++ }
func (c *captureBackend) Flush() error                            { c.flushed = true; return nil }

func TestNopBackendIsSafe(t *testing.T) {
	SetBackend(nil) // keeps nop
	RecordStage("users", nil, time.Second)
	RecordRecords("users", "processed", 10)
	if err := Flush(); err != nil {
		t.Fatalf("nop flush: %v", err)
	}
}

func TestRecordHelpers(t *testing.T) {
	cap := &captureBackend{}
	SetBackend(cap)
	defer SetBackend(nopBackend{})

	RecordStage("orders", errors.New("boom"), 2*time.Second)
	RecordRecords("orders", "skipped", 3)
	RecordRecords("orders", "skipped", 0) // no-op
	RecordBatches("orders", 2)

	if got := cap.counters["migration_stage_total/orders/failure"]; got != 1 {
		t.Fatalf("stage counter = %v, want 1", got)
	}
	if got := cap.counters["migration_records_total/orders/skipped"]; got != 3 {
		t.Fatalf("record counter = %v, want 3", got)
	}
	if got := cap.counters["migration_batches_total/orders/"]; got != 2 {
		t.Fatalf("batch counter = %v, want 2", got)
	}
	if cap.durations != 1 {
		t.Fatalf("durations = %d, want 1", cap.durations)
	}
}
