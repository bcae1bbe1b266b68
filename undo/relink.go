package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// relinkRecord is the relink family: a page's sibling-chain pointers
// (previous and next) were rewritten, e.g. when a neighboring page was
// unlinked or spliced in.
type relinkRecord struct {
	base
	oldPrev storage.PageNo
	oldNext storage.PageNo
}

func decodeRelink(b base, r *logrecord.Reader) (Record, error) {
	oldPrev, err := r.ReadPageNo()
	if err != nil {
		return nil, err
	}
	oldNext, err := r.ReadPageNo()
	if err != nil {
		return nil, err
	}
	return &relinkRecord{base: b, oldPrev: oldPrev, oldNext: oldNext}, nil
}

func (rec *relinkRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setLinkPrev(rec.oldPrev)
	pf.setLinkNext(rec.oldNext)

	im.SetLSN(rec.prevLSN)
	return nil
}
