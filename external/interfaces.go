// Package external names the collaborators that already exist outside
// this engine: the write-ahead log, the live buffer pool, and the
// on-disk page codec. The reconstruction engine only ever consumes
// these through the interfaces here; it never reads a logfile or a
// data file itself, and takes them as constructor-injected narrow
// interfaces rather than concrete types so it can be decoupled from
// whatever storage engine hosts it.
package external

import (
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
)

// Log is the write-ahead log this engine reads undo records from. It
// is a pure accessor: modsnap never appends to the log, only fetches
// records the host engine already wrote.
type Log interface {
	// Fetch returns the raw record bytes stored at l, the record
	// logrecord.ParseHeader/undo.Decode expect. Fails with
	// modsnaperr.LogCorrupt if l names no record, and with
	// modsnaperr.NotFound if l.File has already been reclaimed.
	Fetch(l lsn.LSN) ([]byte, error)
}

// BufferPool is the live page cache this engine borrows pages from:
// Pin hands back the page currently resident for key, Unpin releases
// it. A page stays pinned for the rest of a single reconstruction
// call, or, when Fget returns it as a pinned handle, until the
// matching Fput.
type BufferPool interface {
	// Pin blocks, for a bounded time, until the page is not being
	// concurrently written, then returns it.
	// Callers must treat the returned Image as read-only and call Unpin
	// exactly once when done.
	Pin(key storage.PageKey) (*page.Image, error)
	// Unpin releases a page obtained from Pin.
	Unpin(key storage.PageKey)
}

// PageCodec translates between a page's on-disk byte representation
// and the in-memory Image this engine operates on. Kept as its own
// narrow interface (rather than folded into BufferPool) because a host
// engine's on-disk format is independent of how it chooses to cache
// pages in memory.
type PageCodec interface {
	Encode(im *page.Image) []byte
	Decode(raw []byte) *page.Image
}
