package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// btreeCursorDeleteRecord is the btree-cursor-delete family: a cursor
// tombstoned a single slot in place (sets the page's delete-mark flag
// and drops the live count) without any neighbor redistribution or
// physical slot removal - the non-propagating interpretation this
// engine settled on where the real storage engine's cursor-delete can
// cascade into a rebalance (recorded as a decision in DESIGN.md, since
// a cascading delete is several of these compound operations plus a
// reverse-split, not one record family on its own).
type btreeCursorDeleteRecord struct {
	base
	slot            uint16
	oldDeleteMark   bool
	oldSlotCount    uint16
}

func decodeBTreeCursorDelete(b base, r *logrecord.Reader) (Record, error) {
	slot, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	oldDeleteMark, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	oldSlotCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &btreeCursorDeleteRecord{
		base:          b,
		slot:          uint16(slot),
		oldDeleteMark: oldDeleteMark,
		oldSlotCount:  uint16(oldSlotCount),
	}, nil
}

func (rec *btreeCursorDeleteRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setDeleteMark(rec.oldDeleteMark)
	pf.setSlotCount(rec.oldSlotCount)

	im.SetLSN(rec.prevLSN)
	return nil
}
