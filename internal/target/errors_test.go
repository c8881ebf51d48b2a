package target

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestWrapInsertMapsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	err := wrapInsert("insert user", pgErr)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("23505 should map to ErrDuplicate, got %v", err)
	}

	other := &pgconn.PgError{Code: "42601"}
	if errors.Is(wrapInsert("insert user", other), ErrDuplicate) {
		t.Fatal("non-unique violation must not map to ErrDuplicate")
	}
	if wrapInsert("insert user", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}

func TestIsRecordError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"duplicate", fmt.Errorf("insert: %w", ErrDuplicate), true},
		{"not null violation", &pgconn.PgError{Code: "23502"}, true},
		{"bad numeric", &pgconn.PgError{Code: "22P02"}, true},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecordError(tt.err); got != tt.want {
				t.Errorf("IsRecordError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
