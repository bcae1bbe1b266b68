// Package logrecord implements the log record framing and the closed
// record-type table: decoding a record's header (type, writing
// transaction, prior-LSN chain link, unique transaction id) so that a
// dispatcher can route the remaining bytes to the right undo handler.
//
// Fields are read and written sequentially over a flat []byte, with a
// file-id-logging convention encoded as type codes above 1000.
package logrecord

import (
	"encoding/binary"
	"fmt"

	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/lsn"
	"github.com/pkg/errors"
)

// RecType enumerates the closed set of undo-able log record families.
// The dispatcher fails UnknownRecord on anything outside this table.
type RecType int32

const (
	AddRemove RecType = iota + 1
	BigRecord
	OverflowRefcount
	Relink
	PageAlloc
	PageFree
	PageFreeData
	BTreeSplit
	BTreeReverseSplit
	BTreeReplace
	BTreeAdjust
	BTreeCountAdjust
	BTreeCursorDelete
	BTreePrefix
)

func (t RecType) String() string {
	switch t {
	case AddRemove:
		return "add/remove"
	case BigRecord:
		return "big-record"
	case OverflowRefcount:
		return "overflow-refcount"
	case Relink:
		return "relink"
	case PageAlloc:
		return "page-alloc"
	case PageFree:
		return "page-free"
	case PageFreeData:
		return "page-freedata"
	case BTreeSplit:
		return "btree-split"
	case BTreeReverseSplit:
		return "btree-reverse-split"
	case BTreeReplace:
		return "btree-replace"
	case BTreeAdjust:
		return "btree-adjust"
	case BTreeCountAdjust:
		return "btree-count-adjust"
	case BTreeCursorDelete:
		return "btree-cursor-delete"
	case BTreePrefix:
		return "btree-prefix"
	default:
		return fmt.Sprintf("rectype(%d)", int32(t))
	}
}

// knownTypes is the closed dispatch table's domain. Kept separate from
// the RecType constants so Decode's membership test stays a single map
// lookup instead of a long case list duplicated from the handlers.
var knownTypes = map[RecType]bool{
	AddRemove: true, BigRecord: true, OverflowRefcount: true, Relink: true,
	PageAlloc: true, PageFree: true, PageFreeData: true, BTreeSplit: true,
	BTreeReverseSplit: true, BTreeReplace: true, BTreeAdjust: true,
	BTreeCountAdjust: true, BTreeCursorDelete: true, BTreePrefix: true,
}

// IsKnown reports whether t is in the closed dispatch table.
func IsKnown(t RecType) bool {
	return knownTypes[t]
}

// fileIDLoggingBias is the file-id-logging convention: a type code
// above this value indicates file-id-logging mode; the canonical type
// is the code minus the bias.
const fileIDLoggingBias = 1000

// Header is the common prefix every log record carries: { rectype,
// txnid, prev_lsn, utxnid, ... }.
type Header struct {
	Type          RecType
	TxID          storage.TxID
	PrevLSN       lsn.LSN
	UTXNID        storage.UTXNID
	FileIDLogging bool
}

// minHeaderSize is u32 + u32 + u32 + u32 + u64 = 24 bytes.
const minHeaderSize = 24

// Reader reads fields sequentially from a record's byte slice: LSNs,
// FileIDs, and length-prefixed blobs, in addition to plain integers.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps buf for sequential reads starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) need(n int) error {
	if r.off+n > len(r.buf) {
		return modsnaperr.Wrapf(modsnaperr.LogCorrupt, "logrecord: need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
	}
	return nil
}

// ReadUint32 reads a 4-byte little-endian unsigned integer.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// ReadUint64 reads an 8-byte little-endian unsigned integer.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// ReadInt64 reads an 8-byte little-endian signed integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadLSN reads a (u32,u32) file/offset pair.
func (r *Reader) ReadLSN() (lsn.LSN, error) {
	file, err := r.ReadUint32()
	if err != nil {
		return lsn.LSN{}, err
	}
	offset, err := r.ReadUint32()
	if err != nil {
		return lsn.LSN{}, err
	}
	return lsn.LSN{File: int32(file), Offset: int64(offset)}, nil
}

// ReadPageNo reads an 8-byte page number.
func (r *Reader) ReadPageNo() (storage.PageNo, error) {
	v, err := r.ReadInt64()
	return storage.PageNo(v), err
}

// ReadFileID reads a fixed 16-byte file identifier.
func (r *Reader) ReadFileID() (storage.FileID, error) {
	if err := r.need(16); err != nil {
		return storage.FileID{}, err
	}
	var id storage.FileID
	copy(id[:], r.buf[r.off:r.off+16])
	r.off += 16
	return id, nil
}

// ReadBool reads a single-byte boolean flag.
func (r *Reader) ReadBool() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	v := r.buf[r.off] != 0
	r.off++
	return v, nil
}

// ReadVarBytes reads a length-prefixed byte blob: an 8-byte length
// followed by that many bytes.
func (r *Reader) ReadVarBytes() ([]byte, error) {
	n, err := r.ReadInt64()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+int(n)])
	r.off += int(n)
	return out, nil
}

// Remaining returns the bytes not yet consumed.
func (r *Reader) Remaining() []byte {
	return r.buf[r.off:]
}

// Writer is the write-side counterpart of Reader, used by tests (and
// any future producer) to build well-formed record bytes.
type Writer struct {
	buf []byte
}

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteLSN(l lsn.LSN) {
	w.WriteUint32(uint32(l.File))
	w.WriteUint32(uint32(l.Offset))
}

func (w *Writer) WritePageNo(p storage.PageNo) { w.WriteInt64(int64(p)) }

func (w *Writer) WriteFileID(id storage.FileID) { w.buf = append(w.buf, id[:]...) }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteVarBytes(b []byte) {
	w.WriteInt64(int64(len(b)))
	w.buf = append(w.buf, b...)
}

// Bytes returns the accumulated record bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteHeader writes the common header (with rectype biased by +1000
// when fileIDLogging is requested) that ParseHeader expects to find at
// the start of every record.
func WriteHeader(w *Writer, h Header) {
	raw := uint32(h.Type)
	if h.FileIDLogging {
		raw += fileIDLoggingBias
	}
	w.WriteUint32(raw)
	w.WriteUint32(uint32(h.TxID))
	w.WriteLSN(h.PrevLSN)
	w.WriteUint64(uint64(h.UTXNID))
}

// ParseHeader decodes the common record header and normalizes the
// type code: a raw type above 1000 indicates file-id-logging mode,
// with the canonical type underneath it.
// Returns the header and a Reader positioned right after it, so the
// caller (the undo package's per-family decoders) can keep reading the
// family-specific payload from the same buffer.
func ParseHeader(raw []byte) (Header, *Reader, error) {
	if len(raw) < minHeaderSize {
		return Header{}, nil, modsnaperr.Wrapf(modsnaperr.LogCorrupt, "logrecord: record too short: %d bytes", len(raw))
	}

	r := NewReader(raw)

	rawType, err := r.ReadUint32()
	if err != nil {
		return Header{}, nil, errors.WithStack(err)
	}

	fileIDLogging := rawType > fileIDLoggingBias
	if fileIDLogging {
		rawType -= fileIDLoggingBias
	}

	txID, err := r.ReadUint32()
	if err != nil {
		return Header{}, nil, errors.WithStack(err)
	}

	prevLSN, err := r.ReadLSN()
	if err != nil {
		return Header{}, nil, errors.WithStack(err)
	}

	utxnid, err := r.ReadUint64()
	if err != nil {
		return Header{}, nil, errors.WithStack(err)
	}

	h := Header{
		Type:          RecType(rawType),
		TxID:          storage.TxID(txID),
		PrevLSN:       prevLSN,
		UTXNID:        storage.UTXNID(utxnid),
		FileIDLogging: fileIDLogging,
	}

	if !IsKnown(h.Type) {
		return Header{}, nil, modsnaperr.Wrapf(modsnaperr.UnknownRecord, "logrecord: unknown record type %d", int32(h.Type))
	}

	return h, r, nil
}
