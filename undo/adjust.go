package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// adjustField names which single scalar metadata field a btree-adjust
// record touched. B-tree internal-node maintenance routinely nudges
// one boundary value at a time (a separator's split point, a shared
// prefix length, a free-list head after a neighbor reorganizes) rather
// than rewriting a whole page, so a single tagged-field record covers
// the family without one type per field.
type adjustField uint8

const (
	adjustSplitPoint adjustField = iota
	adjustPrefixLen
	adjustFreeListHead
)

// btreeAdjustRecord is the btree-adjust family: a single boundary
// metadata field - separator/boundary bookkeeping updated as a side
// effect of a child-page operation - was changed.
type btreeAdjustRecord struct {
	base
	field    adjustField
	oldValue int64
}

func decodeBTreeAdjust(b base, r *logrecord.Reader) (Record, error) {
	field, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	oldValue, err := r.ReadInt64()
	if err != nil {
		return nil, err
	}
	return &btreeAdjustRecord{base: b, field: adjustField(field), oldValue: oldValue}, nil
}

func (rec *btreeAdjustRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	switch rec.field {
	case adjustSplitPoint:
		pf.setSplitPoint(uint16(rec.oldValue))
	case adjustPrefixLen:
		pf.setPrefixLen(uint16(rec.oldValue))
	case adjustFreeListHead:
		pf.setFreeListHead(storage.PageNo(rec.oldValue))
	}

	im.SetLSN(rec.prevLSN)
	return nil
}

// btreeCountAdjustRecord is the btree-count-adjust family: the page's
// live entry count changed by delta without any slot data moving, e.g.
// a batched counter correction during recovery of a prior operation.
type btreeCountAdjustRecord struct {
	base
	delta int64
}

func decodeBTreeCountAdjust(b base, r *logrecord.Reader) (Record, error) {
	delta, err := r.ReadInt64()
	if err != nil {
		return nil, err
	}
	return &btreeCountAdjustRecord{base: b, delta: delta}, nil
}

func (rec *btreeCountAdjustRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setSlotCount(uint16(int64(pf.slotCount()) - rec.delta))

	im.SetLSN(rec.prevLSN)
	return nil
}
