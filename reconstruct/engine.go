// Package reconstruct implements the reconstruction engine: given a
// page key and a target snapshot LSN, produce the page image as it
// existed at that point in the log, by walking its undo chain
// backward from the buffer pool's current resident copy. The walk
// mutates a private copy of the page, never the live buffer-pooled
// page, so concurrent readers are never disturbed.
package reconstruct

import (
	"sync"

	"github.com/luigitni/modsnap/commitmap"
	"github.com/luigitni/modsnap/external"
	"github.com/luigitni/modsnap/internal/config"
	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
	"github.com/luigitni/modsnap/undo"
	"github.com/luigitni/modsnap/versioncache"
	"github.com/rs/zerolog"
)

// Engine is the reconstruction engine. Zero value is not usable; use
// New.
type Engine struct {
	cfg     config.Tunables
	log     zerolog.Logger
	wal     external.Log
	pool    external.BufferPool
	commits *commitmap.Map
	cache   *versioncache.Cache

	statsMu sync.Mutex
	hits    uint64
	misses  uint64
	total   uint64
}

// New wires an engine from its four collaborators: the log and buffer
// pool, the commit map, and a cache sized per cfg.
func New(cfg config.Tunables, log zerolog.Logger, wal external.Log, pool external.BufferPool, commits *commitmap.Map) *Engine {
	return &Engine{
		cfg:     cfg,
		log:     log,
		wal:     wal,
		pool:    pool,
		commits: commits,
		cache:   versioncache.New(cfg.CacheCapacity, log),
	}
}

// HandleKind distinguishes the two variants Fget can return.
type HandleKind int

const (
	// HandlePinned wraps the buffer pool's own resident copy of the
	// page, still pinned. Fput releases the pin.
	HandlePinned HandleKind = iota
	// HandleOwned wraps a private buffer the caller owns outright.
	// Fput has nothing to release; the buffer is simply dropped.
	HandleOwned
)

// PageHandle is the result of Fget: either the live, pinned page (when
// it is already the guaranteed target) or a privately owned copy
// reconstructed from the undo chain. Callers must pass every handle to
// Fput exactly once.
type PageHandle struct {
	kind HandleKind
	key  storage.PageKey
	im   *page.Image
}

// Image returns the page image the handle wraps. Valid regardless of
// kind; callers must treat it as read-only.
func (h *PageHandle) Image() *page.Image {
	return h.im
}

// Kind reports whether the handle wraps a pinned buffer-pool page or a
// privately owned copy.
func (h *PageHandle) Kind() HandleKind {
	return h.kind
}

// IsGuaranteedTarget reports whether a page carrying pageLSN cannot
// have anything left to undo for the given targetLSN, true when any
// of:
//   - pageLSN is the not-logged sentinel,
//   - pageLSN.File < smallestLogfile (the commit map cannot answer
//     questions older than its own retained history, and by
//     construction no uncommitted work exists below that frontier),
//   - targetLSN >= ckptCommitFrontier >= pageLSN (the page is at or
//     before the last relevant checkpoint and the snapshot is at or
//     after it, so no intervening edit could be younger than the
//     target).
//
// The zero LSN (never written) is excluded from every clause: it is
// not a real log position, so reaching it must always fall through to
// the rollback loop's explicit not-reconstructible check rather than
// being waved through by a frontier comparison that happens to hold
// against zero. smallestLogfile of -1 means the commit map is empty
// and the second clause never fires.
func IsGuaranteedTarget(pageLSN, targetLSN, ckptCommitFrontier lsn.LSN, smallestLogfile int32) bool {
	if pageLSN.IsZero() {
		return false
	}
	if pageLSN.IsNotLogged() {
		return true
	}
	if smallestLogfile != -1 && pageLSN.File < smallestLogfile {
		return true
	}
	return targetLSN.GreaterOrEqual(ckptCommitFrontier) && ckptCommitFrontier.GreaterOrEqual(pageLSN)
}

// Fget reconstructs the page named by key as it existed at targetLSN,
// given ckptCommitFrontier (the caller's most recent known checkpoint
// commit-LSN, or the zero LSN if none is tracked). Every returned
// handle must be released via Fput exactly once.
func (e *Engine) Fget(key storage.PageKey, targetLSN, ckptCommitFrontier lsn.LSN) (*PageHandle, error) {
	e.bumpTotal()

	current, err := e.pool.Pin(key)
	if err != nil {
		return nil, err
	}

	// A single atomic snapshot of smallestLogfile for the whole call,
	// per the ordering guarantee with the commit map.
	smallestLogfile := e.commits.SmallestLogfile()

	if IsGuaranteedTarget(current.LSN(), targetLSN, ckptCommitFrontier, smallestLogfile) {
		return &PageHandle{kind: HandlePinned, key: key, im: current}, nil
	}

	if cached, err := e.cache.Get(key, targetLSN); err == nil {
		e.bumpHits()
		e.pool.Unpin(key)
		return &PageHandle{kind: HandleOwned, im: cached.Clone()}, nil
	}
	e.bumpMisses()

	b := current.Clone()
	e.pool.Unpin(key)

	result, err := e.rollback(key, b, targetLSN, ckptCommitFrontier, smallestLogfile)
	if err != nil {
		return nil, err
	}

	e.cache.Put(key, targetLSN, result.Clone())
	return &PageHandle{kind: HandleOwned, im: result}, nil
}

// Fput releases a handle obtained from Fget: unpinning the buffer
// pool's page for a pinned handle, or simply dropping an owned one.
func (e *Engine) Fput(handle *PageHandle) {
	if handle == nil {
		return
	}
	if handle.kind == HandlePinned {
		e.pool.Unpin(handle.key)
	}
}

// rollback walks im's undo chain backward from its current LSN,
// applying undo handlers for every record written by a transaction
// that had not committed at or before targetLSN, until the page
// reaches a guaranteed target or the chain bottoms out at the zero
// LSN sentinel, which fails with NonReconstructible.
func (e *Engine) rollback(key storage.PageKey, im *page.Image, targetLSN, ckptCommitFrontier lsn.LSN, smallestLogfile int32) (*page.Image, error) {
	opts := undo.Options{VerifyFileID: e.cfg.VerifyFileID}

	for {
		pageLSN := im.LSN()
		if IsGuaranteedTarget(pageLSN, targetLSN, ckptCommitFrontier, smallestLogfile) {
			return im, nil
		}

		if pageLSN.IsZero() {
			return nil, modsnaperr.Wrapf(modsnaperr.NonReconstructible, "reconstruct: page %s/%d has no version at or before %s", key.FileID, key.PageNo, targetLSN)
		}

		raw, err := e.wal.Fetch(pageLSN)
		if err != nil {
			return nil, err
		}

		rec, err := undo.Decode(raw)
		if err != nil {
			return nil, err
		}

		stop, err := e.alreadyAtTarget(rec.UTXNID(), targetLSN)
		if err != nil {
			return nil, err
		}

		if stop {
			// This record's writer is still in progress, or committed
			// at or before targetLSN: im, as it stands, is the target.
			return im, nil
		}

		e.log.Trace().
			Str("file_id", key.FileID.String()).
			Int64("page_no", int64(key.PageNo)).
			Stringer("record_lsn", pageLSN).
			Msg("reconstruct: undoing record")

		if err := rec.Undo(im, key.FileID, opts); err != nil {
			return nil, err
		}
	}
}

// alreadyAtTarget reports whether utxnid's transaction is either still
// in progress (absent from the commit map) or committed at or before
// targetLSN - both cases mean the edit this record describes is
// already part of the snapshot the caller asked for, so the rollback
// loop must stop without undoing it.
func (e *Engine) alreadyAtTarget(utxnid storage.UTXNID, targetLSN lsn.LSN) (bool, error) {
	commitLSN, err := e.commits.Get(utxnid)
	if err != nil {
		if modsnaperr.Is(err, modsnaperr.NotFound) {
			return true, nil
		}
		return false, err
	}
	return commitLSN.LessOrEqual(targetLSN), nil
}

func (e *Engine) bumpTotal()  { e.bump(&e.total) }
func (e *Engine) bumpHits()   { e.bump(&e.hits) }
func (e *Engine) bumpMisses() { e.bump(&e.misses) }

// bump increments a stats counter, resetting all three counters
// together once any of them would reach cfg.StatsWrapThreshold, so
// hit/miss/total stay comparable to each other across the reset.
func (e *Engine) bump(counter *uint64) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	if *counter+1 >= e.cfg.StatsWrapThreshold {
		e.hits, e.misses, e.total = 0, 0, 0
		return
	}
	*counter++
}

// Stats is a point-in-time snapshot of the engine's hit/miss/total
// counters.
type Stats struct {
	Hits   uint64
	Misses uint64
	Total  uint64
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return Stats{Hits: e.hits, Misses: e.misses, Total: e.total}
}
