// Package versioncache implements a bounded two-level LRU: a cache
// from (FileID, PageNo, snapshot LSN) to a materialized page image, at
// most one entry per version, evicted under a single cross-bucket LRU
// ordering once capacity is exceeded.
package versioncache

import (
	"container/list"
	"sync"

	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
	"github.com/rs/zerolog"
)

// entry is the payload held at each node of the LRU list.
type entry struct {
	key     storage.PageKey
	snapLSN lsn.LSN
	im      *page.Image
}

// Cache is the bounded two-level version cache. Zero value is not
// usable; use New.
type Cache struct {
	mu       sync.RWMutex
	log      zerolog.Logger
	capacity int

	// outer maps a page to its cached snapshot versions; inner maps a
	// snapshot LSN to the list element holding the materialized page.
	outer map[storage.PageKey]map[lsn.LSN]*list.Element

	// order is the single LRU chain shared across every page and
	// version: Front is most recently used, Back is next to evict.
	order *list.List
}

// New creates an empty cache bounded at capacity entries.
func New(capacity int, log zerolog.Logger) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		log:      log,
		capacity: capacity,
		outer:    make(map[storage.PageKey]map[lsn.LSN]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached materialized page for (key, snapshotLSN), or
// modsnaperr.NotFound on a miss. A hit moves the entry to the front of
// the LRU chain.
func (c *Cache) Get(key storage.PageKey, snapshotLSN lsn.LSN) (*page.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	versions, ok := c.outer[key]
	if !ok {
		return nil, modsnaperr.NotFound
	}

	el, ok := versions[snapshotLSN]
	if !ok {
		return nil, modsnaperr.NotFound
	}

	c.order.MoveToFront(el)
	return el.Value.(*entry).im, nil
}

// Put inserts the cached page for (key, snapshotLSN), evicting the
// least-recently-used entry across the whole cache (not just this
// page's versions) if capacity would be exceeded. Overwrite on
// duplicate key is prohibited: if the version is already cached, the
// call coalesces into a no-op rather than replacing the stored image.
func (c *Cache) Put(key storage.PageKey, snapshotLSN lsn.LSN, im *page.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	versions, ok := c.outer[key]
	if !ok {
		versions = make(map[lsn.LSN]*list.Element)
		c.outer[key] = versions
	}

	if _, exists := versions[snapshotLSN]; exists {
		return
	}

	e := &entry{key: key, snapLSN: snapshotLSN, im: im}
	el := c.order.PushFront(e)
	versions[snapshotLSN] = el

	if c.order.Len() > c.capacity {
		c.evictOldest()
	}
}

func (c *Cache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}

	e := oldest.Value.(*entry)
	c.order.Remove(oldest)

	versions := c.outer[e.key]
	delete(versions, e.snapLSN)
	if len(versions) == 0 {
		delete(c.outer, e.key)
	}

	c.log.Debug().
		Str("file_id", e.key.FileID.String()).
		Int64("page_no", int64(e.key.PageNo)).
		Stringer("snapshot_lsn", e.snapLSN).
		Msg("version cache: evicted entry")
}

// Len returns the number of cached versions across every page.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
