// Package pipeline implements the four-stage migration from the legacy
// denormalized store to the normalized target schema. Stages run in
// dependency order (categories, users, products, orders) and each stage
// commits fully before the next one starts, so cross-stage lookups only ever
// see committed data.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"shopmigrate/internal/identity"
	"shopmigrate/internal/legacy"
	"shopmigrate/internal/metrics"
	"shopmigrate/internal/skiplog"
	"shopmigrate/internal/target"
)

// Stats accumulates per-stage counters. Addresses is only populated by the
// users stage.
type Stats struct {
	Processed int64
	Created   int64
	Adopted   int64
	Skipped   int64
	Warnings  int64
	Addresses int64
}

func (s Stats) String() string {
	return fmt.Sprintf("processed=%s created=%s adopted=%s skipped=%s warnings=%s",
		humanize.Comma(s.Processed), humanize.Comma(s.Created),
		humanize.Comma(s.Adopted), humanize.Comma(s.Skipped),
		humanize.Comma(s.Warnings))
}

// Options configures a Runner. Zero values fall back to sane defaults.
type Options struct {
	BatchSize int
	Skips     *skiplog.Report
	Logger    *logrus.Logger

	// Now is the clock used for defaulted dates. Overridden in tests.
	Now func() time.Time
}

// Runner drives the record-at-a-time migration.
type Runner struct {
	src       legacy.Source
	store     target.Writer
	ids       *identity.Map
	log       *logrus.Logger
	batchSize int
	skips     *skiplog.Report
	now       func() time.Time
}

// NewRunner wires a runner over a legacy source and a target writer. The
// identity map is created fresh: it is scoped to a single run.
func NewRunner(src legacy.Source, store target.Writer, opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		src:       src,
		store:     store,
		ids:       identity.NewMap(),
		log:       opts.Logger,
		batchSize: opts.BatchSize,
		skips:     opts.Skips,
		now:       opts.Now,
	}
}

// IdentityMap exposes the run's mapping tables, mainly for tests and the
// end-of-run report.
func (r *Runner) IdentityMap() *identity.Map { return r.ids }

// Run executes the four stages in dependency order and returns per-stage
// stats. The first fatal error aborts the run; everything committed so far
// stays committed.
func (r *Runner) Run(ctx context.Context) (map[string]Stats, error) {
	stages := []struct {
		name string
		fn   func(context.Context) (Stats, error)
	}{
		{"categories", r.migrateCategories},
		{"users", r.migrateUsers},
		{"products", r.migrateProducts},
		{"orders", r.migrateOrders},
	}

	results := make(map[string]Stats, len(stages))
	for _, stage := range stages {
		log := r.log.WithField("stage", stage.name)
		log.Info("stage starting")

		start := time.Now()
		st, err := stage.fn(ctx)
		metrics.RecordStage(stage.name, err, time.Since(start))
		metrics.RecordRecords(stage.name, "created", st.Created)
		metrics.RecordRecords(stage.name, "adopted", st.Adopted)
		metrics.RecordRecords(stage.name, "skipped", st.Skipped)
		results[stage.name] = st

		if err != nil {
			log.WithError(err).Error("stage failed")
			return results, fmt.Errorf("stage %s: %w", stage.name, err)
		}
		log.WithField("duration", time.Since(start).Round(time.Millisecond)).
			Infof("stage done: %s", st)
	}

	if r.skips != nil {
		if summary := r.skips.Summary(); len(summary) > 0 {
			r.log.WithField("skips", strings.Join(summary, " ")).Info("skip report written")
		}
	}
	return results, nil
}

// Reset empties every target table. Only invoked when the operator asks for
// it explicitly; a normal re-run relies on idempotent stages instead.
func (r *Runner) Reset(ctx context.Context) error {
	r.log.Warn("resetting target database, all migrated data will be deleted")
	return r.store.DeleteAll(ctx)
}

func (r *Runner) skip(stage, reason string, legacyID int64, detail string) {
	if r.skips != nil {
		r.skips.Add(stage, reason, fmt.Sprintf("%d", legacyID), detail)
	}
}
