package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// addRemoveRecord is the add/remove family: a single slot was either
// populated or cleared. Undo saves the prior value at log time and
// writes it back verbatim, addressed by an explicit slot index.
type addRemoveRecord struct {
	base
	slot    uint16
	added   bool
	oldValue [slotWidth]byte
}

func decodeAddRemove(b base, r *logrecord.Reader) (Record, error) {
	slot, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	added, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	oldValue, err := r.ReadVarBytes()
	if err != nil {
		return nil, err
	}

	rec := &addRemoveRecord{base: b, slot: uint16(slot), added: added}
	copy(rec.oldValue[:], oldValue)
	return rec, nil
}

// Undo inverts whichever direction the forward op ran: if it added the
// slot, undo clears it; if it removed the slot, undo restores the
// saved value and re-marks the slot live.
func (rec *addRemoveRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	if rec.added {
		pf.clearSlot(rec.slot)
		if n := pf.slotCount(); n > 0 {
			pf.setSlotCount(n - 1)
		}
	} else {
		pf.setSlot(rec.slot, rec.oldValue[:])
		pf.setSlotCount(pf.slotCount() + 1)
	}

	im.SetLSN(rec.prevLSN)
	return nil
}
