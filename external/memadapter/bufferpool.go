package memadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/luigitni/modsnap/internal/config"
	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/page"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const shardCount = 16

// BufferPool is an in-memory stand-in for a live buffer pool. Pages
// are kept in a hash-sharded lookup table, split into shardCount
// independently locked buckets for less contention under concurrent
// Pin/Unpin, hashed with xxhash.
//
// Pin never waits for a free frame - this pool never evicts pages - it
// only waits on a per-key weighted semaphore for a bounded number of
// drain iterations when the requested page is currently held by an
// in-flight writer.
type BufferPool struct {
	shards [shardCount]*shard
	cfg    config.Tunables
	log    zerolog.Logger
}

type shard struct {
	mu    sync.Mutex
	pages map[storage.PageKey]*page.Image
	// sems holds one weight-1 semaphore per key that has ever been
	// marked as written-to: MarkWriting acquires it, ClearWriting
	// releases it, and Pin's bounded wait acquires-then-immediately-
	// releases it with a per-attempt timeout to prove the writer has
	// finished.
	sems map[storage.PageKey]*semaphore.Weighted
}

func (sh *shard) semFor(key storage.PageKey) *semaphore.Weighted {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sems[key]
	if !ok {
		s = semaphore.NewWeighted(1)
		sh.sems[key] = s
	}
	return s
}

// NewBufferPool creates an empty pool with no resident pages.
func NewBufferPool(cfg config.Tunables, log zerolog.Logger) *BufferPool {
	bp := &BufferPool{cfg: cfg, log: log}
	for i := range bp.shards {
		bp.shards[i] = &shard{
			pages: make(map[storage.PageKey]*page.Image),
			sems:  make(map[storage.PageKey]*semaphore.Weighted),
		}
	}
	return bp
}

func (bp *BufferPool) shardFor(key storage.PageKey) *shard {
	h := xxhash.Sum64String(fmt.Sprintf("%s:%d", key.FileID, key.PageNo))
	return bp.shards[h%shardCount]
}

// Put installs or overwrites the resident page for key, the test/demo
// setup hook standing in for "the host engine already has this page in
// its buffer pool".
func (bp *BufferPool) Put(key storage.PageKey, im *page.Image) {
	sh := bp.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.pages[key] = im
}

// MarkWriting simulates an in-flight writer holding the page, causing
// concurrent Pin calls for the same key to block (bounded) until
// ClearWriting is called. Exercised by the concurrency tests in
// memadapter_test.go. Must not be called twice for the same key
// without an intervening ClearWriting.
func (bp *BufferPool) MarkWriting(key storage.PageKey) {
	bp.shardFor(key).semFor(key).TryAcquire(1)
}

// ClearWriting releases the simulated writer claim on key.
func (bp *BufferPool) ClearWriting(key storage.PageKey) {
	bp.shardFor(key).semFor(key).Release(1)
}

// Pin implements external.BufferPool. It retries up to
// cfg.PinDrainIterations times, each attempt blocking on the key's
// semaphore for up to cfg.PinDrainInterval, while the key is claimed by
// a simulated in-flight writer, then fails with modsnaperr.IoError.
func (bp *BufferPool) Pin(key storage.PageKey) (*page.Image, error) {
	sem := bp.shardFor(key).semFor(key)

	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), bp.cfg.PinDrainInterval)
		err := sem.Acquire(ctx, 1)
		cancel()

		if err == nil {
			sem.Release(1)
			break
		}

		if attempt+1 >= bp.cfg.PinDrainIterations {
			return nil, modsnaperr.Wrapf(modsnaperr.IoError, "memadapter: page %s/%d still pinned by a writer after %d attempts", key.FileID, key.PageNo, attempt+1)
		}
	}

	sh := bp.shardFor(key)
	sh.mu.Lock()
	im, ok := sh.pages[key]
	sh.mu.Unlock()
	if !ok {
		return nil, modsnaperr.Wrapf(modsnaperr.NotFound, "memadapter: page %s/%d not resident", key.FileID, key.PageNo)
	}
	return im, nil
}

// Unpin implements external.BufferPool. The in-memory adapter holds no
// reference count of its own - pages are never evicted - so this is a
// no-op kept to satisfy the interface and to log at trace level.
func (bp *BufferPool) Unpin(key storage.PageKey) {
	bp.log.Trace().Str("file_id", key.FileID.String()).Int64("page_no", int64(key.PageNo)).Msg("memadapter: unpin")
}
