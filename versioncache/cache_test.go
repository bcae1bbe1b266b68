package versioncache_test

import (
	"testing"

	"github.com/luigitni/modsnap/internal/modsnaperr"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/internal/telemetry"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
	"github.com/luigitni/modsnap/versioncache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(capacity int) *versioncache.Cache {
	return versioncache.New(capacity, telemetry.New("test"))
}

func TestGetMiss(t *testing.T) {
	c := newCache(10)
	key := storage.PageKey{FileID: storage.NewFileID(), PageNo: 1}
	_, err := c.Get(key, lsn.LSN{File: 1, Offset: 1})
	assert.True(t, modsnaperr.Is(err, modsnaperr.NotFound))
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newCache(10)
	key := storage.PageKey{FileID: storage.NewFileID(), PageNo: 1}
	snap := lsn.LSN{File: 1, Offset: 1}
	im := page.New(64)
	im.SetPageNo(1)

	c.Put(key, snap, im)

	got, err := c.Get(key, snap)
	require.NoError(t, err)
	assert.Same(t, im, got)
	assert.Equal(t, 1, c.Len())
}

func TestDistinctVersionsOfSamePageCoexist(t *testing.T) {
	c := newCache(10)
	key := storage.PageKey{FileID: storage.NewFileID(), PageNo: 1}

	snapA := lsn.LSN{File: 1, Offset: 1}
	snapB := lsn.LSN{File: 1, Offset: 2}
	imA, imB := page.New(64), page.New(64)

	c.Put(key, snapA, imA)
	c.Put(key, snapB, imB)

	gotA, err := c.Get(key, snapA)
	require.NoError(t, err)
	assert.Same(t, imA, gotA)

	gotB, err := c.Get(key, snapB)
	require.NoError(t, err)
	assert.Same(t, imB, gotB)

	assert.Equal(t, 2, c.Len())
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c := newCache(2)
	key := storage.PageKey{FileID: storage.NewFileID(), PageNo: 1}

	l1 := lsn.LSN{File: 1, Offset: 1}
	l2 := lsn.LSN{File: 1, Offset: 2}
	l3 := lsn.LSN{File: 1, Offset: 3}

	c.Put(key, l1, page.New(64))
	c.Put(key, l2, page.New(64))

	// touch l1 so it is more recently used than l2
	_, err := c.Get(key, l1)
	require.NoError(t, err)

	c.Put(key, l3, page.New(64))

	assert.Equal(t, 2, c.Len())

	_, err = c.Get(key, l2)
	assert.True(t, modsnaperr.Is(err, modsnaperr.NotFound), "l2 should have been evicted as least recently used")

	_, err = c.Get(key, l1)
	assert.NoError(t, err)
	_, err = c.Get(key, l3)
	assert.NoError(t, err)
}

func TestPutDuplicateVersionKeepsExistingImage(t *testing.T) {
	c := newCache(10)
	key := storage.PageKey{FileID: storage.NewFileID(), PageNo: 1}
	snap := lsn.LSN{File: 1, Offset: 1}

	im1 := page.New(64)
	im1.SetPageNo(1)
	c.Put(key, snap, im1)

	im2 := page.New(64)
	im2.SetPageNo(2)
	c.Put(key, snap, im2)

	got, err := c.Get(key, snap)
	require.NoError(t, err)
	assert.Same(t, im1, got)
	assert.Equal(t, 1, c.Len())
}
