// Package storage holds the small, widely shared identifier types that
// every layer of modsnap - the page codec, the buffer pool adapter, the
// commit map, the cache and the reconstruction engine - keys its data on.
package storage

import (
	"github.com/google/uuid"
)

// FileID uniquely names a physical data file independently of its path
// on disk. A fixed-width 16-byte identifier, consistent with the
// pack's prevailing convention for this exact concern in a storage
// engine (see DESIGN.md).
type FileID uuid.UUID

// NewFileID generates a fresh random FileID.
func NewFileID() FileID {
	return FileID(uuid.New())
}

// ParseFileID parses the canonical string form of a FileID.
func ParseFileID(s string) (FileID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return FileID{}, err
	}
	return FileID(u), nil
}

func (f FileID) String() string {
	return uuid.UUID(f).String()
}

// PageNo is a page number within a file, starting at 0.
type PageNo int64

// TxID is an internal, non-unique transaction sequence number as
// assigned by the buffer pool / log layer (distinct from UTXNID, the
// externally unique identifier the commit map keys on).
type TxID int64

// UTXNID is the externally unique 64-bit transaction identifier the
// commit map is keyed on. 0 is reserved for internal transactions and
// is never recorded in the commit map.
type UTXNID uint64

// InternalUTXNID is the reserved value meaning "no externally visible
// transaction" - never recorded in the commit map.
const InternalUTXNID UTXNID = 0

// PageKey identifies a single physical page, the outer key of the
// version cache and the buffer pool's lookup table.
type PageKey struct {
	FileID FileID
	PageNo PageNo
}
