package reconstruct_test

import (
	"testing"

	"github.com/luigitni/modsnap/commitmap"
	"github.com/luigitni/modsnap/external/memadapter"
	"github.com/luigitni/modsnap/internal/config"
	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/internal/telemetry"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
	"github.com/luigitni/modsnap/reconstruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	wal     *memadapter.Log
	pool    *memadapter.BufferPool
	commits *commitmap.Map
	engine  *reconstruct.Engine
	key     storage.PageKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := telemetry.New("test")
	wal := memadapter.NewLog(log)
	pool := memadapter.NewBufferPool(config.Default(), log)
	commits := commitmap.New(log)
	engine := reconstruct.New(config.Default(), log, wal, pool, commits)

	return &harness{
		wal:     wal,
		pool:    pool,
		commits: commits,
		engine:  engine,
		key:     storage.PageKey{FileID: storage.NewFileID(), PageNo: 1},
	}
}

// writeAddRemoveRecord appends an add/remove record to logfile 1 and
// returns its LSN, mirroring the on-disk shape undo.decodeAddRemove
// expects. Every record in a test lands in the same logfile as every
// other, so LSNs stay comparable by (file, offset) the way a single
// growing log would order them.
func writeAddRemoveRecord(h *harness, utxnid storage.UTXNID, prevLSN lsn.LSN, pageNo storage.PageNo, slot uint32, added bool, value []byte) lsn.LSN {
	w := &logrecord.Writer{}
	logrecord.WriteHeader(w, logrecord.Header{
		Type:    logrecord.AddRemove,
		TxID:    storage.TxID(1),
		PrevLSN: prevLSN,
		UTXNID:  utxnid,
	})
	w.WritePageNo(pageNo)
	w.WriteUint32(slot)
	w.WriteBool(added)
	w.WriteVarBytes(value)

	return h.wal.Append(1, w.Bytes())
}

// TestFgetTrivialHit covers a page whose edits predate logging
// discipline entirely: the not-logged sentinel always satisfies
// IsGuaranteedTarget, so Fget must return the buffer pool's own pinned
// page untouched, without ever consulting the version cache.
func TestFgetTrivialHit(t *testing.T) {
	h := newHarness(t)

	im := page.New(128)
	im.SetPageNo(h.key.PageNo)
	im.SetLSN(lsn.NotLogged)
	h.pool.Put(h.key, im)

	got, err := h.engine.Fget(h.key, lsn.LSN{File: 1, Offset: 999_999}, lsn.Zero)
	require.NoError(t, err)
	defer h.engine.Fput(got)

	assert.Equal(t, reconstruct.HandlePinned, got.Kind())
	assert.Equal(t, h.key.PageNo, got.Image().PageNo())

	stats := h.engine.Stats()
	assert.EqualValues(t, 1, stats.Total)
	assert.EqualValues(t, 0, stats.Hits)
	assert.EqualValues(t, 0, stats.Misses)
}

// TestFgetCheckpointFrontierShortcut exercises the checkpoint-frontier
// clause of IsGuaranteedTarget directly: a page logged well before the
// last completed checkpoint, asked about a snapshot at or after that
// checkpoint, is guaranteed current without ever walking its undo
// chain - so the WAL never needs a record at the page's LSN.
func TestFgetCheckpointFrontierShortcut(t *testing.T) {
	h := newHarness(t)

	im := page.New(128)
	im.SetPageNo(h.key.PageNo)
	im.SetLSN(lsn.LSN{File: 6, Offset: 500})
	h.pool.Put(h.key, im)

	ckptCommitFrontier := lsn.LSN{File: 7, Offset: 0}
	target := lsn.LSN{File: 8, Offset: 0}

	got, err := h.engine.Fget(h.key, target, ckptCommitFrontier)
	require.NoError(t, err)
	defer h.engine.Fput(got)

	assert.Equal(t, reconstruct.HandlePinned, got.Kind())
	assert.Equal(t, lsn.LSN{File: 6, Offset: 500}, got.Image().LSN())

	stats := h.engine.Stats()
	assert.EqualValues(t, 1, stats.Total)
	assert.EqualValues(t, 0, stats.Hits)
	assert.EqualValues(t, 0, stats.Misses)
}

// TestFgetReclaimedLogfileGuard covers a page whose current LSN lands
// in a logfile older than the commit map's retained history: the
// smallest-logfile clause must fire before anything tries to fetch a
// WAL record for that LSN, since the record may already be reclaimed.
func TestFgetReclaimedLogfileGuard(t *testing.T) {
	h := newHarness(t)

	// Only logfile 5 and up are indexed; the page's own LSN sits in
	// logfile 3, which the commit map can no longer answer questions
	// about.
	h.commits.Add(storage.UTXNID(1), lsn.LSN{File: 5, Offset: 0})

	im := page.New(128)
	im.SetPageNo(h.key.PageNo)
	im.SetLSN(lsn.LSN{File: 3, Offset: 40})
	h.pool.Put(h.key, im)

	got, err := h.engine.Fget(h.key, lsn.LSN{File: 10, Offset: 0}, lsn.Zero)
	require.NoError(t, err)
	defer h.engine.Fput(got)

	assert.Equal(t, reconstruct.HandlePinned, got.Kind())
	assert.Equal(t, lsn.LSN{File: 3, Offset: 40}, got.Image().LSN())
}

// TestFgetUndoStopsAtCommittedBoundary writes two edits to the same
// page from two different transactions, each taken to have committed
// at its own write position. Asking for a snapshot at the first
// transaction's commit point must undo the second edit and stop,
// leaving the page at the first edit's LSN.
func TestFgetUndoStopsAtCommittedBoundary(t *testing.T) {
	h := newHarness(t)

	utxnidA := storage.UTXNID(2)
	recA := writeAddRemoveRecord(h, utxnidA, lsn.Zero, h.key.PageNo, 0, true, nil)
	h.commits.Add(utxnidA, recA)

	utxnidB := storage.UTXNID(7)
	recB := writeAddRemoveRecord(h, utxnidB, recA, h.key.PageNo, 1, true, nil)
	h.commits.Add(utxnidB, recB)

	im := page.New(128)
	im.SetPageNo(h.key.PageNo)
	im.SetLSN(recB)
	h.pool.Put(h.key, im)

	got, err := h.engine.Fget(h.key, recA, lsn.Zero)
	require.NoError(t, err)
	defer h.engine.Fput(got)

	assert.Equal(t, reconstruct.HandleOwned, got.Kind())
	assert.Equal(t, recA, got.Image().LSN())
}

// TestFgetTreatsCommitMissAsInProgress asks for a snapshot below an
// edit whose transaction never appears in the commit map: a lookup
// miss always means "still in progress", which - same as a commit-LSN
// at or before the target - stops the rollback loop immediately rather
// than undoing the record. The page comes back exactly as it stood,
// at the in-progress edit's own LSN.
func TestFgetTreatsCommitMissAsInProgress(t *testing.T) {
	h := newHarness(t)

	utxnidA := storage.UTXNID(2)
	recA := writeAddRemoveRecord(h, utxnidA, lsn.Zero, h.key.PageNo, 0, true, nil)
	h.commits.Add(utxnidA, recA)

	// utxnid 99 is never added to the commit map: still in progress.
	recB := writeAddRemoveRecord(h, storage.UTXNID(99), recA, h.key.PageNo, 1, true, nil)

	im := page.New(128)
	im.SetPageNo(h.key.PageNo)
	im.SetLSN(recB)
	h.pool.Put(h.key, im)

	got, err := h.engine.Fget(h.key, recA, lsn.Zero)
	require.NoError(t, err)
	defer h.engine.Fput(got)

	assert.Equal(t, recB, got.Image().LSN())
}

func TestFgetCacheHitOnRepeat(t *testing.T) {
	h := newHarness(t)

	utxnidA := storage.UTXNID(2)
	recA := writeAddRemoveRecord(h, utxnidA, lsn.Zero, h.key.PageNo, 0, true, nil)
	h.commits.Add(utxnidA, recA)

	utxnidB := storage.UTXNID(7)
	recB := writeAddRemoveRecord(h, utxnidB, recA, h.key.PageNo, 1, true, nil)
	h.commits.Add(utxnidB, recB)

	im := page.New(128)
	im.SetPageNo(h.key.PageNo)
	im.SetLSN(recB)
	h.pool.Put(h.key, im)

	got1, err := h.engine.Fget(h.key, recA, lsn.Zero)
	require.NoError(t, err)
	defer h.engine.Fput(got1)

	got2, err := h.engine.Fget(h.key, recA, lsn.Zero)
	require.NoError(t, err)
	defer h.engine.Fput(got2)

	// A cache hit clones the cached bytes rather than handing back the
	// same image, so the handles are distinct copies of equal content.
	assert.Equal(t, reconstruct.HandleOwned, got2.Kind())
	assert.Equal(t, got1.Image().Bytes(), got2.Image().Bytes())
	assert.NotSame(t, got1.Image(), got2.Image())

	stats := h.engine.Stats()
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

// TestFgetNonReconstructible asks for a snapshot earlier than any
// recorded history on the page: the rollback loop must bottom out at
// the zero LSN sentinel and fail, rather than loop forever or return
// a wrong answer.
func TestFgetNonReconstructible(t *testing.T) {
	h := newHarness(t)

	utxnid := storage.UTXNID(1)
	recA := writeAddRemoveRecord(h, utxnid, lsn.Zero, h.key.PageNo, 0, true, nil)
	h.commits.Add(utxnid, recA)

	im := page.New(128)
	im.SetPageNo(h.key.PageNo)
	im.SetLSN(recA)
	h.pool.Put(h.key, im)

	_, err := h.engine.Fget(h.key, lsn.Zero, lsn.Zero)
	require.Error(t, err)
	assert.True(t, modsnaperr.Is(err, modsnaperr.NonReconstructible))
}

// TestFputReleasesOnlyPinnedHandles checks that Fput's two code paths
// match each handle's kind: a pinned handle (the guaranteed-target
// fast path) still needs releasing, while an owned handle (a
// reconstructed or cached copy) has nothing for the buffer pool to do.
// Fput must accept both without error, and a nil handle must be a
// no-op.
func TestFputReleasesOnlyPinnedHandles(t *testing.T) {
	h := newHarness(t)

	im := page.New(128)
	im.SetPageNo(h.key.PageNo)
	im.SetLSN(lsn.NotLogged)
	h.pool.Put(h.key, im)

	pinned, err := h.engine.Fget(h.key, lsn.LSN{File: 1, Offset: 0}, lsn.Zero)
	require.NoError(t, err)
	assert.Equal(t, reconstruct.HandlePinned, pinned.Kind())
	h.engine.Fput(pinned)

	utxnid := storage.UTXNID(1)
	recA := writeAddRemoveRecord(h, utxnid, lsn.Zero, h.key.PageNo, 0, true, nil)
	h.commits.Add(utxnid, recA)

	loggedKey := storage.PageKey{FileID: storage.NewFileID(), PageNo: 2}
	logged := page.New(128)
	logged.SetPageNo(loggedKey.PageNo)
	logged.SetLSN(recA)
	h.pool.Put(loggedKey, logged)

	owned, err := h.engine.Fget(loggedKey, recA, lsn.Zero)
	require.NoError(t, err)
	assert.Equal(t, reconstruct.HandleOwned, owned.Kind())
	h.engine.Fput(owned)

	h.engine.Fput(nil)
}
