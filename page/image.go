// Package page implements a typed page-image container: one allocation
// exposing a fixed header (page number, page type, page LSN) and the
// raw payload bytes as two distinct views, in place of stepping from a
// raw pointer back to its buffer header by subtracting an offset.
package page

import (
	"encoding/binary"
	"fmt"

	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/lsn"
)

// Type enumerates the page types a reconstructed image can carry.
type Type uint16

const (
	TypeInternalBTree Type = iota
	TypeLeafBTree
	TypeLeafDup
	TypeOverflow
	TypeMetadata
)

func (t Type) String() string {
	switch t {
	case TypeInternalBTree:
		return "internal-btree"
	case TypeLeafBTree:
		return "leaf-btree"
	case TypeLeafDup:
		return "leaf-dup"
	case TypeOverflow:
		return "overflow"
	case TypeMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("type(%d)", uint16(t))
	}
}

const (
	offPageNo     = 0
	offPageType   = offPageNo + 8
	offLSNFile    = offPageType + 2
	offLSNOffset  = offLSNFile + 4
	// HeaderSize is the number of bytes reserved for the well-known
	// header fields; payload bytes start here.
	HeaderSize = offLSNOffset + 8
)

// Image is a fixed-size page buffer: HeaderSize bytes of well-known
// header fields followed by the page's payload. Undo handlers operate
// on an *Image in place and always overwrite its page-LSN with the
// value they restore.
type Image struct {
	buf []byte
}

// New allocates a zeroed image of the given total size (header +
// payload).
func New(size int) *Image {
	if size < HeaderSize {
		size = HeaderSize
	}
	return &Image{buf: make([]byte, size)}
}

// FromBytes wraps an existing buffer without copying it. Callers that
// need an owned copy should call Clone on the result.
func FromBytes(b []byte) *Image {
	return &Image{buf: b}
}

// Clone returns a deep copy of the image, the private buffer the
// reconstruction engine allocates before invoking undo handlers.
func (im *Image) Clone() *Image {
	cp := make([]byte, len(im.buf))
	copy(cp, im.buf)
	return &Image{buf: cp}
}

// Bytes returns the whole backing buffer, header included.
func (im *Image) Bytes() []byte {
	return im.buf
}

// Payload returns the bytes following the header, the region undo
// handlers mutate to invert slot/link/overflow edits.
func (im *Image) Payload() []byte {
	return im.buf[HeaderSize:]
}

func (im *Image) Size() int {
	return len(im.buf)
}

// PageNo returns the page's well-known page-number field.
func (im *Image) PageNo() storage.PageNo {
	return storage.PageNo(int64(binary.LittleEndian.Uint64(im.buf[offPageNo:])))
}

// SetPageNo overwrites the page-number field.
func (im *Image) SetPageNo(no storage.PageNo) {
	binary.LittleEndian.PutUint64(im.buf[offPageNo:], uint64(int64(no)))
}

// PageType returns the page's type tag.
func (im *Image) PageType() Type {
	return Type(binary.LittleEndian.Uint16(im.buf[offPageType:]))
}

// SetPageType overwrites the page's type tag.
func (im *Image) SetPageType(t Type) {
	binary.LittleEndian.PutUint16(im.buf[offPageType:], uint16(t))
}

// LSN returns the page's page-LSN: the LSN of the most recent log
// record that modified it.
func (im *Image) LSN() lsn.LSN {
	file := int32(binary.LittleEndian.Uint32(im.buf[offLSNFile:]))
	offset := int64(binary.LittleEndian.Uint64(im.buf[offLSNOffset:]))
	return lsn.LSN{File: file, Offset: offset}
}

// SetLSN overwrites the page-LSN. Every undo handler calls this with
// the record's prior-LSN-for-this-page as its last act.
func (im *Image) SetLSN(l lsn.LSN) {
	binary.LittleEndian.PutUint32(im.buf[offLSNFile:], uint32(l.File))
	binary.LittleEndian.PutUint64(im.buf[offLSNOffset:], uint64(l.Offset))
}

// --- generic payload accessors used by undo handlers ---

func (im *Image) assertPayloadBounds(offset, size int) {
	if offset < 0 || HeaderSize+offset+size > len(im.buf) {
		panic(fmt.Sprintf("page: payload access out of bounds: offset %d size %d, payload len %d", offset, size, len(im.buf)-HeaderSize))
	}
}

// GetInt64 reads an 8-byte little-endian integer at the given payload
// offset.
func (im *Image) GetInt64(offset int) int64 {
	im.assertPayloadBounds(offset, 8)
	return int64(binary.LittleEndian.Uint64(im.buf[HeaderSize+offset:]))
}

// SetInt64 writes an 8-byte little-endian integer at the given payload
// offset.
func (im *Image) SetInt64(offset int, v int64) {
	im.assertPayloadBounds(offset, 8)
	binary.LittleEndian.PutUint64(im.buf[HeaderSize+offset:], uint64(v))
}

// GetUint16 reads a 2-byte little-endian integer at the given payload
// offset, used for slot counts and small flags.
func (im *Image) GetUint16(offset int) uint16 {
	im.assertPayloadBounds(offset, 2)
	return binary.LittleEndian.Uint16(im.buf[HeaderSize+offset:])
}

// SetUint16 writes a 2-byte little-endian integer at the given payload
// offset.
func (im *Image) SetUint16(offset int, v uint16) {
	im.assertPayloadBounds(offset, 2)
	binary.LittleEndian.PutUint16(im.buf[HeaderSize+offset:], v)
}

// GetBytes returns a copy of length bytes at the given payload offset.
func (im *Image) GetBytes(offset, length int) []byte {
	im.assertPayloadBounds(offset, length)
	out := make([]byte, length)
	copy(out, im.buf[HeaderSize+offset:HeaderSize+offset+length])
	return out
}

// SetBytes writes data at the given payload offset.
func (im *Image) SetBytes(offset int, data []byte) {
	im.assertPayloadBounds(offset, len(data))
	copy(im.buf[HeaderSize+offset:], data)
}
