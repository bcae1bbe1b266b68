package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// overflowRefcountRecord is the overflow-refcount family: an overflow
// page's reference count changed by delta (an overflow chain shared by
// more than one key gains or loses a referencing key). delta is
// signed, so Undo is a single subtraction.
type overflowRefcountRecord struct {
	base
	delta int64
}

func decodeOverflowRefcount(b base, r *logrecord.Reader) (Record, error) {
	delta, err := r.ReadInt64()
	if err != nil {
		return nil, err
	}
	return &overflowRefcountRecord{base: b, delta: delta}, nil
}

func (rec *overflowRefcountRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setRefCount(pf.refCount() - rec.delta)

	im.SetLSN(rec.prevLSN)
	return nil
}
