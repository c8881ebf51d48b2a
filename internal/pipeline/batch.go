package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"shopmigrate/internal/metrics"
	"shopmigrate/internal/target"
)

// batcher groups record writes into batch transactions. Each record runs
// inside a savepoint so a failing record rolls back alone; the batch commits
// every size successful records and on Flush.
type batcher struct {
	store target.Writer
	size  int
	stage string
	log   *logrus.Entry

	tx      target.Tx
	pending int
	batches int64
}

func newBatcher(store target.Writer, size int, stage string, log *logrus.Logger) *batcher {
	return &batcher{
		store: store,
		size:  size,
		stage: stage,
		log:   log.WithField("stage", stage),
	}
}

// do runs fn inside a per-record savepoint on the current batch transaction.
// Record-local failures (uniqueness conflicts the adopt path could not
// recover, bad data rejected by the database) are logged and absorbed;
// ok reports whether the record went through. A non-nil error means the run
// cannot continue and the batch has been rolled back.
func (b *batcher) do(ctx context.Context, key string, fn func(tx target.Tx) error) (ok bool, err error) {
	if b.tx == nil {
		b.tx, err = b.store.Begin(ctx)
		if err != nil {
			return false, err
		}
	}

	sp, err := b.tx.Savepoint(ctx)
	if err != nil {
		return false, b.abort(ctx, err)
	}

	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		if !target.IsRecordError(err) {
			return false, b.abort(ctx, err)
		}
		b.log.WithField("legacy_id", key).WithError(err).Warn("record failed, rolled back")
		return false, nil
	}
	if err := sp.Commit(ctx); err != nil {
		if !target.IsRecordError(err) {
			return false, b.abort(ctx, err)
		}
		b.log.WithField("legacy_id", key).WithError(err).Warn("record failed at savepoint release")
		return false, nil
	}

	b.pending++
	if b.pending >= b.size {
		b.commit(ctx)
	}
	return true, nil
}

// flush commits whatever the last partial batch holds.
func (b *batcher) flush(ctx context.Context) {
	b.commit(ctx)
}

// commit finishes the open batch. A commit failure loses the batch's records
// but not the run: it is logged and the stage continues on a fresh
// transaction.
func (b *batcher) commit(ctx context.Context) {
	if b.tx == nil {
		return
	}
	tx, n := b.tx, b.pending
	b.tx, b.pending = nil, 0

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		b.log.WithError(err).WithField("lost_records", n).
			Error("batch commit failed, records in this batch were rolled back")
		return
	}
	b.batches++
	metrics.RecordBatches(b.stage, 1)
	b.log.WithField("batch_size", n).Debug("batch committed")
}

// abort rolls back the open batch after a fatal error.
func (b *batcher) abort(ctx context.Context, cause error) error {
	if b.tx != nil {
		_ = b.tx.Rollback(ctx)
		b.tx, b.pending = nil, 0
	}
	return cause
}
