// Package undo implements the per-log-record-family undo handlers:
// given a post-image page and a decoded log record, mutate the page so
// it becomes the pre-image, and set its page-LSN to the record's
// prior-LSN for that page. Undo handlers never perform I/O - they
// mutate a private page.Image directly and return.
//
// Since the real B-tree/heap page format is an external collaborator
// out of this engine's scope, each handler reads and writes a small
// set of generic fields on page.Image (see pagefields.go) that stand
// in for the real format's slot arrays, free lists and link pointers,
// well enough to exercise the invert-the-edit and
// match-the-target-page invariants every handler must satisfy.
package undo

import (
	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
)

// Options carries the configuration bits an undo handler needs but
// that are not part of the record bytes themselves - currently just
// the file-id verification toggle.
type Options struct {
	VerifyFileID bool
}

// Record is a decoded, undo-able log record. One value is produced per
// call to Decode, and its Undo method is the undo handler for its
// family.
type Record interface {
	// Op returns the record's family.
	Op() logrecord.RecType
	// TxID returns the internal (non-unique) transaction number that
	// wrote this record.
	TxID() storage.TxID
	// UTXNID returns the externally unique transaction id the commit
	// map is keyed on.
	UTXNID() storage.UTXNID
	// Undo mutates page in place so it becomes the pre-image, and
	// overwrites its page-LSN with the prior-LSN this record carries
	// for page.PageNo(). ownerFileID is the file the page belongs to,
	// used only by handlers that support the optional file-id
	// correspondence check. Returns a Fatal-wrapped error if page
	// names no page recorded by this record.
	Undo(page *page.Image, ownerFileID storage.FileID, opts Options) error
}

// matchOrFatal returns a Fatal error if got does not equal any of
// wanted, used by every handler to enforce "the dispatcher aborts when
// a record names no page matching page.number".
func matchOrFatal(got storage.PageNo, wanted ...storage.PageNo) error {
	for _, w := range wanted {
		if got == w {
			return nil
		}
	}
	return modsnaperr.Wrapf(modsnaperr.Fatal, "undo: page %d is not named by this record (expected one of %v)", got, wanted)
}

// base carries the common header fields every record embeds, and
// implements the Op/TxID/UTXNID methods of Record so each per-family
// type only needs to implement Undo.
type base struct {
	op            logrecord.RecType
	txID          storage.TxID
	utxnid        storage.UTXNID
	prevLSN       lsn.LSN
	pageNo        storage.PageNo
	fileID        storage.FileID
	fileIDLogging bool
}

func (b base) Op() logrecord.RecType     { return b.op }
func (b base) TxID() storage.TxID        { return b.txID }
func (b base) UTXNID() storage.UTXNID    { return b.utxnid }

// verifyFileID optionally checks that the page's owning file matches
// the file-id the record was logged against: required only when
// opts.VerifyFileID is set, ignored otherwise.
func verifyFileID(opts Options, recorded, owner storage.FileID, fileIDLogging bool) error {
	if !opts.VerifyFileID || !fileIDLogging {
		return nil
	}
	if recorded != owner {
		return modsnaperr.Wrapf(modsnaperr.Fatal, "undo: file-id mismatch: record carries %s, page belongs to %s", recorded, owner)
	}
	return nil
}
