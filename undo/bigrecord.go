package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// bigRecordRecord is the big-record family: a value at a slot crossed
// the inline/overflow threshold, either spilling out to an overflow
// page or being pulled back inline. A value too large for a page
// spills to a chain of overflow pages addressed by page number.
type bigRecordRecord struct {
	base
	slot            uint16
	wasOverflow     bool
	oldOverflowPage storage.PageNo
	oldInline       [slotWidth]byte
}

func decodeBigRecord(b base, r *logrecord.Reader) (Record, error) {
	slot, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	wasOverflow, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	overflowPage, err := r.ReadPageNo()
	if err != nil {
		return nil, err
	}
	oldInline, err := r.ReadVarBytes()
	if err != nil {
		return nil, err
	}

	rec := &bigRecordRecord{
		base:            b,
		slot:            uint16(slot),
		wasOverflow:     wasOverflow,
		oldOverflowPage: overflowPage,
	}
	copy(rec.oldInline[:], oldInline)
	return rec, nil
}

// Undo restores whichever representation the slot held before the
// spill/recall: an overflow page number, or the inline bytes.
func (rec *bigRecordRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	if rec.wasOverflow {
		// Encode the overflow page number into the slot the same way
		// the forward op would have: the first 8 bytes of the slot
		// carry the overflow page number.
		var buf [slotWidth]byte
		encodePageNo(buf[:], rec.oldOverflowPage)
		pf.setSlot(rec.slot, buf[:])
	} else {
		pf.setSlot(rec.slot, rec.oldInline[:])
	}

	im.SetLSN(rec.prevLSN)
	return nil
}
