package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// pageAllocRecord is the page-alloc family: a page was popped off the
// free list and put into service, the page-level analogue of a buffer
// pool's frame free-list, threaded through link-next. Undo pushes the
// page back: its free-list-chain pointer and slot count revert to what
// they were before the pop.
type pageAllocRecord struct {
	base
	oldNextFree  storage.PageNo
	oldSlotCount uint16
}

func decodePageAlloc(b base, r *logrecord.Reader) (Record, error) {
	oldNextFree, err := r.ReadPageNo()
	if err != nil {
		return nil, err
	}
	oldSlotCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &pageAllocRecord{base: b, oldNextFree: oldNextFree, oldSlotCount: uint16(oldSlotCount)}, nil
}

func (rec *pageAllocRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setLinkNext(rec.oldNextFree)
	pf.setSlotCount(rec.oldSlotCount)

	im.SetLSN(rec.prevLSN)
	return nil
}

// pageFreeRecord is the page-free family: the inverse direction, a
// page was pushed onto the free list. Same shape as pageAllocRecord,
// kept as a distinct type since the two are logged by different
// operations and treated as separate families.
type pageFreeRecord struct {
	base
	oldNextFree  storage.PageNo
	oldSlotCount uint16
}

func decodePageFree(b base, r *logrecord.Reader) (Record, error) {
	oldNextFree, err := r.ReadPageNo()
	if err != nil {
		return nil, err
	}
	oldSlotCount, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &pageFreeRecord{base: b, oldNextFree: oldNextFree, oldSlotCount: uint16(oldSlotCount)}, nil
}

func (rec *pageFreeRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setLinkNext(rec.oldNextFree)
	pf.setSlotCount(rec.oldSlotCount)

	im.SetLSN(rec.prevLSN)
	return nil
}

// pageFreeDataRecord is the page-freedata family: a page's payload was
// wiped wholesale (e.g. compaction reclaiming dead slot space). Unlike
// the slot-level families, this one is not cheaply invertible field by
// field, so the record carries a full pre-image of the payload and
// Undo restores it verbatim.
type pageFreeDataRecord struct {
	base
	oldPayload []byte
}

func decodePageFreeData(b base, r *logrecord.Reader) (Record, error) {
	oldPayload, err := r.ReadVarBytes()
	if err != nil {
		return nil, err
	}
	return &pageFreeDataRecord{base: b, oldPayload: oldPayload}, nil
}

func (rec *pageFreeDataRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	n := len(rec.oldPayload)
	if n > len(im.Payload()) {
		n = len(im.Payload())
	}
	im.SetBytes(0, rec.oldPayload[:n])

	im.SetLSN(rec.prevLSN)
	return nil
}
