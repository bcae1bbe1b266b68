package undo

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/page"
)

// btreePrefixRecord is the btree-prefix family: a leaf page's shared
// key prefix length changed, typically when prefix compression is
// recomputed after an insert or delete shifts the page's key range.
type btreePrefixRecord struct {
	base
	oldPrefixLen uint16
}

func decodeBTreePrefix(b base, r *logrecord.Reader) (Record, error) {
	oldPrefixLen, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &btreePrefixRecord{base: b, oldPrefixLen: uint16(oldPrefixLen)}, nil
}

func (rec *btreePrefixRecord) Undo(im *page.Image, ownerFileID storage.FileID, opts Options) error {
	if err := matchOrFatal(im.PageNo(), rec.pageNo); err != nil {
		return err
	}
	if err := verifyFileID(opts, rec.fileID, ownerFileID, rec.fileIDLogging); err != nil {
		return err
	}

	pf := pageFields{im: im}
	pf.setPrefixLen(rec.oldPrefixLen)

	im.SetLSN(rec.prevLSN)
	return nil
}
