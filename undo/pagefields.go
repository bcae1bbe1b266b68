package undo

import (
	"encoding/binary"

	"github.com/luigitni/modsnap/internal/storage"
)

// encodePageNo writes a page number as an 8-byte little-endian value
// at the start of buf, the convention a handful of families use to
// stash a page number inside a fixed-width slot.
func encodePageNo(buf []byte, p storage.PageNo) {
	binary.LittleEndian.PutUint64(buf, uint64(int64(p)))
}

// decodePageNo is the read-side counterpart of encodePageNo.
func decodePageNo(buf []byte) storage.PageNo {
	return storage.PageNo(int64(binary.LittleEndian.Uint64(buf)))
}

// The real B-tree/heap page format is an external collaborator out of
// this engine's scope: modsnap never parses slot arrays or overflow
// chains itself, it only ever inverts edits a record
// already describes. The fields below are a small, fixed-offset
// stand-in vocabulary - a slot count, a generic refcount, two link
// pointers, a free-list head, a split point, a prefix length, a delete
// mark and a fixed-width slot array - that gives every handler
// somewhere concrete to read and write so the invert-the-edit and
// match-the-target-page invariants are actually exercised, without
// committing to a full slotted-page implementation that is explicitly
// not this engine's job.
const (
	fieldSlotCount    = 0  // uint16: number of live slots
	fieldRefCount     = 8  // int64: generic reference / overflow count
	fieldLinkPrev     = 16 // int64 storage.PageNo: previous sibling / free-list prev
	fieldLinkNext     = 24 // int64 storage.PageNo: next sibling / free-list next
	fieldFreeListHead = 32 // int64 storage.PageNo: per-page free-list head
	fieldSplitPoint   = 40 // uint16: split point slot index
	fieldPrefixLen    = 42 // uint16: shared key prefix length
	fieldDeleteMark   = 44 // uint16: 0 = live, 1 = tombstoned

	// slotWidth bounds each fixed-width slot value; a longer value in a
	// record is truncated to this width when the record is decoded
	// (record producers, which this engine never implements, are
	// responsible for respecting it).
	slotWidth  = 16
	slotsStart = 64
)

func slotOffset(slot uint16) int {
	return slotsStart + int(slot)*slotWidth
}

type pageFields struct {
	im interface {
		GetUint16(int) uint16
		SetUint16(int, uint16)
		GetInt64(int) int64
		SetInt64(int, int64)
		GetBytes(int, int) []byte
		SetBytes(int, []byte)
	}
}

func (p pageFields) slotCount() uint16          { return p.im.GetUint16(fieldSlotCount) }
func (p pageFields) setSlotCount(n uint16)       { p.im.SetUint16(fieldSlotCount, n) }
func (p pageFields) refCount() int64            { return p.im.GetInt64(fieldRefCount) }
func (p pageFields) setRefCount(v int64)        { p.im.SetInt64(fieldRefCount, v) }
func (p pageFields) linkPrev() storage.PageNo   { return storage.PageNo(p.im.GetInt64(fieldLinkPrev)) }
func (p pageFields) setLinkPrev(n storage.PageNo) { p.im.SetInt64(fieldLinkPrev, int64(n)) }
func (p pageFields) linkNext() storage.PageNo   { return storage.PageNo(p.im.GetInt64(fieldLinkNext)) }
func (p pageFields) setLinkNext(n storage.PageNo) { p.im.SetInt64(fieldLinkNext, int64(n)) }
func (p pageFields) freeListHead() storage.PageNo { return storage.PageNo(p.im.GetInt64(fieldFreeListHead)) }
func (p pageFields) setFreeListHead(n storage.PageNo) {
	p.im.SetInt64(fieldFreeListHead, int64(n))
}
func (p pageFields) splitPoint() uint16       { return p.im.GetUint16(fieldSplitPoint) }
func (p pageFields) setSplitPoint(v uint16)   { p.im.SetUint16(fieldSplitPoint, v) }
func (p pageFields) prefixLen() uint16        { return p.im.GetUint16(fieldPrefixLen) }
func (p pageFields) setPrefixLen(v uint16)    { p.im.SetUint16(fieldPrefixLen, v) }
func (p pageFields) deleteMark() bool         { return p.im.GetUint16(fieldDeleteMark) != 0 }
func (p pageFields) setDeleteMark(v bool) {
	if v {
		p.im.SetUint16(fieldDeleteMark, 1)
	} else {
		p.im.SetUint16(fieldDeleteMark, 0)
	}
}

func (p pageFields) slot(n uint16) []byte {
	return p.im.GetBytes(slotOffset(n), slotWidth)
}

func (p pageFields) setSlot(n uint16, value []byte) {
	var buf [slotWidth]byte
	copy(buf[:], value)
	p.im.SetBytes(slotOffset(n), buf[:])
}

func (p pageFields) clearSlot(n uint16) {
	p.im.SetBytes(slotOffset(n), make([]byte, slotWidth))
}
