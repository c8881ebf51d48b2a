// Package identity implements the run-scoped mapping tables that bridge
// legacy keys to target identifiers. The map is an explicit object handed to
// each pipeline stage, never package-level state, and it is what makes every
// create path idempotent across re-runs.
package identity

import (
	"errors"
	"fmt"

	"shopmigrate/internal/target"
)

// Kind partitions the map per entity kind.
type Kind string

const (
	KindCategory    Kind = "category"
	KindUser        Kind = "user"
	KindProduct     Kind = "product"
	KindProductName Kind = "product_name"
	KindOrder       Kind = "order"
)

// Outcome reports how ResolveOrCreate produced an identifier.
type Outcome int

const (
	// Cached means the legacy key was already mapped in this run.
	Cached Outcome = iota
	// Created means a new target record was inserted.
	Created
	// Adopted means the record already existed in the target store from a
	// prior run and its identifier was recovered by natural-key lookup.
	Adopted
)

// CreateFunc inserts the target record and returns its assigned identifier.
// A uniqueness conflict must surface as target.ErrDuplicate.
type CreateFunc func() (int64, error)

// AdoptFunc looks the record up by its natural unique key. found=false means
// the conflict could not be recovered.
type AdoptFunc func() (id int64, found bool, err error)

// Map holds legacy-key → target-id tables per entity kind for one run.
type Map struct {
	ids map[Kind]map[string]int64
}

// NewMap returns an empty identity map scoped to a single migration run.
func NewMap() *Map {
	return &Map{ids: make(map[Kind]map[string]int64)}
}

// Peek returns the mapped target id, if any, without side effects.
func (m *Map) Peek(kind Kind, key string) (int64, bool) {
	id, ok := m.ids[kind][key]
	return id, ok
}

// Alias stores an additional key for an already-resolved identifier.
// Categories are mapped under both their raw and normalized names so later
// lookups succeed regardless of which form the caller holds.
func (m *Map) Alias(kind Kind, key string, id int64) {
	if m.ids[kind] == nil {
		m.ids[kind] = make(map[string]int64)
	}
	m.ids[kind][key] = id
}

// Len reports how many keys are mapped for a kind.
func (m *Map) Len(kind Kind) int {
	return len(m.ids[kind])
}

// ResolveOrCreate returns the target id for a legacy key, creating the
// target record on first sight. A uniqueness conflict from create is
// recovered by adopt: the existing record's identifier is looked up by its
// natural unique key and mapped instead of failing the entity.
func (m *Map) ResolveOrCreate(kind Kind, key string, create CreateFunc, adopt AdoptFunc) (int64, Outcome, error) {
	if id, ok := m.Peek(kind, key); ok {
		return id, Cached, nil
	}

	id, err := create()
	switch {
	case err == nil:
		m.Alias(kind, key, id)
		return id, Created, nil

	case errors.Is(err, target.ErrDuplicate):
		existing, found, lookupErr := adopt()
		if lookupErr != nil {
			return 0, Adopted, fmt.Errorf("adopt %s %q: %w", kind, key, lookupErr)
		}
		if !found {
			return 0, Adopted, fmt.Errorf("adopt %s %q: conflict but no record by natural key: %w", kind, key, err)
		}
		m.Alias(kind, key, existing)
		return existing, Adopted, nil

	default:
		return 0, Created, err
	}
}
