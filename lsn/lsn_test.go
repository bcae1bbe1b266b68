package lsn_test

import (
	"testing"

	"github.com/luigitni/modsnap/lsn"
	"github.com/stretchr/testify/assert"
)

func TestOrdering(t *testing.T) {
	a := lsn.LSN{File: 3, Offset: 100}
	b := lsn.LSN{File: 3, Offset: 200}
	c := lsn.LSN{File: 4, Offset: 0}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.True(t, a.Less(c))
	assert.False(t, b.Less(a))
	assert.True(t, a.LessOrEqual(a))
	assert.True(t, c.GreaterOrEqual(a))
}

func TestSentinels(t *testing.T) {
	assert.True(t, lsn.Zero.IsZero())
	assert.False(t, lsn.Zero.IsNotLogged())
	assert.True(t, lsn.NotLogged.IsNotLogged())
	assert.False(t, lsn.NotLogged.IsZero())
}

func TestCompare(t *testing.T) {
	a := lsn.LSN{File: 1, Offset: 1}
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, -1, a.Compare(lsn.LSN{File: 1, Offset: 2}))
	assert.Equal(t, 1, a.Compare(lsn.LSN{File: 0, Offset: 999}))
}
