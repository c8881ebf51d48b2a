package target

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate signals a uniqueness conflict on insert: the record already
// exists in the target store, typically from a prior run of the same
// migration. Callers recover through the identity map's adoption path.
var ErrDuplicate = errors.New("duplicate record")

// wrapInsert maps a Postgres unique violation onto ErrDuplicate so callers
// can branch without importing pgconn.
func wrapInsert(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRecordError reports whether an error is local to a single record: a
// uniqueness conflict, or a data/integrity violation (SQLSTATE classes 22
// and 23). Anything else (connection loss, cancellation, syntax errors) is
// treated as fatal to the run.
func IsRecordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}
