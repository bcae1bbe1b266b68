package page_test

import (
	"testing"

	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	im := page.New(128)

	im.SetPageNo(storage.PageNo(42))
	im.SetPageType(page.TypeLeafBTree)
	target := lsn.LSN{File: 3, Offset: 128}
	im.SetLSN(target)

	assert.Equal(t, storage.PageNo(42), im.PageNo())
	assert.Equal(t, page.TypeLeafBTree, im.PageType())
	assert.Equal(t, target, im.LSN())
}

func TestPayloadAccessors(t *testing.T) {
	im := page.New(64)
	im.SetInt64(0, -7)
	im.SetUint16(8, 1234)
	im.SetBytes(16, []byte("hello"))

	assert.EqualValues(t, -7, im.GetInt64(0))
	assert.EqualValues(t, 1234, im.GetUint16(8))
	assert.Equal(t, []byte("hello"), im.GetBytes(16, 5))
}

func TestCloneIsIndependent(t *testing.T) {
	im := page.New(32)
	im.SetPageNo(1)

	clone := im.Clone()
	clone.SetPageNo(2)

	assert.EqualValues(t, 1, im.PageNo())
	assert.EqualValues(t, 2, clone.PageNo())
}

func TestOutOfBoundsPanics(t *testing.T) {
	im := page.New(32)
	require.Panics(t, func() {
		im.GetInt64(1000)
	})
}
