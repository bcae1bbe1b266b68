package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// btreeSplitRecord is the btree-split family: a full page was split,
// handing half its entries to a new right sibling. The moved entries
// themselves are recovered by replaying the add/remove records the
// split operation also emits for each relocated slot, since a split is
// logged as a sequence of simpler records; this record only restores
// the split page's own bookkeeping - its entry count and right-sibling
// link - to their pre-split values.
type btreeSplitRecord struct {
	base
	oldSlotCount  uint16
	oldSplitPoint uint16
	oldLinkNext   storage.PageNo
}

func decodeBTreeSplit(b base, r *logrecord.Reader) (Record, error) {
	oldSlotCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	oldSplitPoint, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	oldLinkNext, err := r.ReadPageNo()
	if err != nil {
		return nil, err
	}
	return &btreeSplitRecord{
		base:          b,
		oldSlotCount:  uint16(oldSlotCount),
		oldSplitPoint: uint16(oldSplitPoint),
		oldLinkNext:   oldLinkNext,
	}, nil
}

func (rec *btreeSplitRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setSlotCount(rec.oldSlotCount)
	pf.setSplitPoint(rec.oldSplitPoint)
	pf.setLinkNext(rec.oldLinkNext)

	im.SetLSN(rec.prevLSN)
	return nil
}

// btreeReverseSplitRecord is the btree-reverse-split family: two pages
// were merged back together (the inverse of a split, triggered by
// underflow after deletes). Same bookkeeping shape as
// btreeSplitRecord, restoring the pre-merge entry count and both
// sibling links.
type btreeReverseSplitRecord struct {
	base
	oldSlotCount uint16
	oldLinkPrev  storage.PageNo
	oldLinkNext  storage.PageNo
}

func decodeBTreeReverseSplit(b base, r *logrecord.Reader) (Record, error) {
	oldSlotCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	oldLinkPrev, err := r.ReadPageNo()
	if err != nil {
		return nil, err
	}
	oldLinkNext, err := r.ReadPageNo()
	if err != nil {
		return nil, err
	}
	return &btreeReverseSplitRecord{
		base:         b,
		oldSlotCount: uint16(oldSlotCount),
		oldLinkPrev:  oldLinkPrev,
		oldLinkNext:  oldLinkNext,
	}, nil
}

func (rec *btreeReverseSplitRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setSlotCount(rec.oldSlotCount)
	pf.setLinkPrev(rec.oldLinkPrev)
	pf.setLinkNext(rec.oldLinkNext)

	im.SetLSN(rec.prevLSN)
	return nil
}
