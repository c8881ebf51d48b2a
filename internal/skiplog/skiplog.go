// Package skiplog writes a per-run CSV report of every record the pipeline
// refused, with the reason and the legacy identifier, so data-quality
// follow-up does not depend on grepping log output.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Report accumulates skip rows and reason tallies for one run.
type Report struct {
	reasons map[string]int
	w       *csv.Writer
	f       *os.File
}

// New creates the report file (directories included) and writes the header.
// The returned close function flushes and closes the file.
func New(path string) (*Report, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"stage", "reason", "legacy_id", "detail"}); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("write header: %w", err)
	}
	r := &Report{reasons: make(map[string]int), w: w, f: f}
	return r, func() {
		w.Flush()
		_ = f.Close()
	}, nil
}

// Add records one skipped record.
func (r *Report) Add(stage, reason, legacyID, detail string) {
	r.reasons[reason]++
	_ = r.w.Write([]string{stage, reason, legacyID, detail})
}

// Reasons returns reason → count, for the end-of-run summary.
func (r *Report) Reasons() map[string]int {
	out := make(map[string]int, len(r.reasons))
	for k, v := range r.reasons {
		out[k] = v
	}
	return out
}

// Summary renders the tallies as "reason=count" pairs in stable order.
func (r *Report) Summary() []string {
	keys := make([]string, 0, len(r.reasons))
	for k := range r.reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s=%d", k, r.reasons[k])
	}
	return out
}
