package undo_test

import (
	"testing"

	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
	"github.com/luigitni/modsnap/undo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHeader(w *logrecord.Writer, rt logrecord.RecType, utxnid storage.UTXNID, prevLSN lsn.LSN) {
	logrecord.WriteHeader(w, logrecord.Header{
		Type:    rt,
		TxID:    storage.TxID(1),
		PrevLSN: prevLSN,
		UTXNID:  utxnid,
	})
}

func newTestPage(pageNo storage.PageNo) *page.Image {
	im := page.New(256)
	im.SetPageNo(pageNo)
	im.SetPageType(page.TypeLeafBTree)
	im.SetLSN(lsn.LSN{File: 3, Offset: 100})
	return im
}

func TestDecodeAddRemoveUndoRestoresValue(t *testing.T) {
	prev := lsn.LSN{File: 1, Offset: 5}
	w := &logrecord.Writer{}
	writeHeader(w, logrecord.AddRemove, storage.UTXNID(1), prev)
	w.WritePageNo(storage.PageNo(7))
	w.WriteUint32(2) // slot
	w.WriteBool(false) // was a remove, so undo restores
	w.WriteVarBytes([]byte("hello"))

	rec, err := undo.Decode(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, logrecord.AddRemove, rec.Op())
	assert.Equal(t, storage.UTXNID(1), rec.UTXNID())

	im := newTestPage(storage.PageNo(7))
	require.NoError(t, rec.Undo(im, storage.FileID{}, undo.Options{}))
	assert.Equal(t, prev, im.LSN())
	// slot 2 starts at payload offset 64 + 2*16; slot count is at 0.
	assert.Equal(t, []byte("hello"), im.GetBytes(96, 5))
	assert.EqualValues(t, 1, im.GetUint16(0))
}

func TestDecodeAddRemoveUndoClearsAddedSlot(t *testing.T) {
	prev := lsn.LSN{File: 1, Offset: 5}
	w := &logrecord.Writer{}
	writeHeader(w, logrecord.AddRemove, storage.UTXNID(1), prev)
	w.WritePageNo(storage.PageNo(7))
	w.WriteUint32(2)
	w.WriteBool(true) // op added the slot, undo must clear it
	w.WriteVarBytes(nil)

	rec, err := undo.Decode(w.Bytes())
	require.NoError(t, err)

	im := newTestPage(storage.PageNo(7))
	im.SetBytes(96, []byte("added")) // slot 2, as the forward op left it
	require.NoError(t, rec.Undo(im, storage.FileID{}, undo.Options{}))
	assert.Equal(t, prev, im.LSN())
	assert.Equal(t, make([]byte, 16), im.GetBytes(96, 16))
}

func TestDecodeOverflowRefcountSubtractsDelta(t *testing.T) {
	prev := lsn.LSN{File: 2, Offset: 1}
	w := &logrecord.Writer{}
	writeHeader(w, logrecord.OverflowRefcount, storage.UTXNID(9), prev)
	w.WritePageNo(storage.PageNo(4))
	w.WriteInt64(3)

	rec, err := undo.Decode(w.Bytes())
	require.NoError(t, err)

	im := newTestPage(storage.PageNo(4))
	im.SetInt64(8, 10) // fieldRefCount offset, pre-existing count of 10

	require.NoError(t, rec.Undo(im, storage.FileID{}, undo.Options{}))
	assert.Equal(t, int64(7), im.GetInt64(8))
}

func TestDecodeRelinkRestoresPointers(t *testing.T) {
	prev := lsn.LSN{File: 1, Offset: 1}
	w := &logrecord.Writer{}
	writeHeader(w, logrecord.Relink, storage.UTXNID(2), prev)
	w.WritePageNo(storage.PageNo(1))
	w.WritePageNo(storage.PageNo(10))
	w.WritePageNo(storage.PageNo(20))

	rec, err := undo.Decode(w.Bytes())
	require.NoError(t, err)

	im := newTestPage(storage.PageNo(1))
	require.NoError(t, rec.Undo(im, storage.FileID{}, undo.Options{}))
	assert.Equal(t, prev, im.LSN())
	assert.EqualValues(t, 10, im.GetInt64(16)) // fieldLinkPrev offset
	assert.EqualValues(t, 20, im.GetInt64(24)) // fieldLinkNext offset
}

func TestDecodeRejectsZeroUTXNID(t *testing.T) {
	w := &logrecord.Writer{}
	writeHeader(w, logrecord.AddRemove, storage.InternalUTXNID, lsn.LSN{})
	w.WritePageNo(storage.PageNo(1))
	w.WriteUint32(0)
	w.WriteBool(false)
	w.WriteVarBytes(nil)

	_, err := undo.Decode(w.Bytes())
	require.Error(t, err)
	assert.True(t, modsnaperr.Is(err, modsnaperr.LogCorrupt))
}

func TestDecodeUnknownRecordType(t *testing.T) {
	w := &logrecord.Writer{}
	logrecord.WriteHeader(w, logrecord.Header{Type: logrecord.RecType(9999), UTXNID: 1})

	_, err := undo.Decode(w.Bytes())
	require.Error(t, err)
	assert.True(t, modsnaperr.Is(err, modsnaperr.UnknownRecord))
}

func TestUndoWrongPageIsFatal(t *testing.T) {
	w := &logrecord.Writer{}
	writeHeader(w, logrecord.AddRemove, storage.UTXNID(1), lsn.LSN{File: 1, Offset: 1})
	w.WritePageNo(storage.PageNo(7))
	w.WriteUint32(0)
	w.WriteBool(false)
	w.WriteVarBytes(nil)

	rec, err := undo.Decode(w.Bytes())
	require.NoError(t, err)

	im := newTestPage(storage.PageNo(999)) // wrong page
	err = rec.Undo(im, storage.FileID{}, undo.Options{})
	require.Error(t, err)
	assert.True(t, modsnaperr.Is(err, modsnaperr.Fatal))
}

func TestDecodeFileIDLoggingRoundTrip(t *testing.T) {
	owner := storage.NewFileID()
	prev := lsn.LSN{File: 1, Offset: 1}

	w := &logrecord.Writer{}
	logrecord.WriteHeader(w, logrecord.Header{
		Type:          logrecord.BTreePrefix,
		TxID:          1,
		PrevLSN:       prev,
		UTXNID:        storage.UTXNID(5),
		FileIDLogging: true,
	})
	w.WritePageNo(storage.PageNo(2))
	w.WriteFileID(owner)
	w.WriteUint32(3)

	rec, err := undo.Decode(w.Bytes())
	require.NoError(t, err)

	im := newTestPage(storage.PageNo(2))
	require.NoError(t, rec.Undo(im, owner, undo.Options{VerifyFileID: true}))

	wrongOwner := storage.NewFileID()
	err = rec.Undo(im, wrongOwner, undo.Options{VerifyFileID: true})
	require.Error(t, err)
	assert.True(t, modsnaperr.Is(err, modsnaperr.Fatal))
}
