package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// btreeReplaceRecord is the btree-replace family: a slot's value was
// overwritten in place without changing the entry count (an update, as
// distinct from the add/remove family's insert/delete). Same
// save-old-value-then-restore shape as addRemoveRecord, but narrower:
// it never touches slotCount.
type btreeReplaceRecord struct {
	base
	slot     uint16
	oldValue [slotWidth]byte
}

func decodeBTreeReplace(b base, r *logrecord.Reader) (Record, error) {
	slot, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	oldValue, err := r.ReadVarBytes()
	if err != nil {
		return nil, err
	}

	rec := &btreeReplaceRecord{base: b, slot: uint16(slot)}
	copy(rec.oldValue[:], oldValue)
	return rec, nil
}

func (rec *btreeReplaceRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setSlot(rec.slot, rec.oldValue[:])

	im.SetLSN(rec.prevLSN)
	return nil
}
