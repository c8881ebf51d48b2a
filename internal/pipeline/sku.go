package pipeline

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// hashLegacyID gives a stable 64-bit digest of a legacy row id. Both SKUs
// and synthesized stock derive from it so the record-at-a-time and columnar
// variants produce identical rows.
func hashLegacyID(id int64) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return xxh3.Hash(buf[:])
}

// ProductSKU derives the target SKU for a legacy product. The legacy store
// tracks no SKUs, so one is synthesized: unique per legacy id and stable
// across runs, which is what lets the products stage adopt by SKU on re-run.
func ProductSKU(legacyID int64) string {
	return fmt.Sprintf("SKU-%05d-%06X", legacyID, hashLegacyID(legacyID)&0xFFFFFF)
}

// SyntheticStock derives a stable stock quantity in [0, 100] for a legacy
// product. The legacy store tracks no stock at all.
func SyntheticStock(legacyID int64) int {
	return int(hashLegacyID(legacyID) % 101)
}
