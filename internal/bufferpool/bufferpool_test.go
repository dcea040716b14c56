package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/disk"
)

const testFile common.FileID = 1

func TestNewPage_FetchPage_RoundTrip(t *testing.T) {
	dm := disk.NewInMemoryManager()
	bp := New(2, 2, dm)

	ident, pg, ok := bp.NewPage(testFile)
	require.True(t, ok)
	copy(pg.GetData(), []byte("hello"))
	require.True(t, bp.UnpinPage(ident, true))

	fetched, ok := bp.FetchPage(ident)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), fetched.GetData()[:5])
	require.True(t, bp.UnpinPage(ident, false))
}

func TestFetchPage_Unknown_LoadsFromDisk(t *testing.T) {
	dm := disk.NewInMemoryManager()
	bp := New(2, 2, dm)

	ident, pg, ok := bp.NewPage(testFile)
	require.True(t, ok)
	copy(pg.GetData(), []byte("persisted"))
	require.True(t, bp.FlushPage(ident))
	require.True(t, bp.UnpinPage(ident, false))

	// a second pool over the same disk manager has nothing resident, so the
	// fetch must read the page back from disk
	bp2 := New(1, 2, dm)
	fetched, ok := bp2.FetchPage(ident)
	require.True(t, ok)
	assert.Equal(t, []byte("persisted"), fetched.GetData()[:9])
}

func TestEviction_PicksUnpinnedVictim(t *testing.T) {
	dm := disk.NewInMemoryManager()
	bp := New(1, 2, dm)

	identA, _, ok := bp.NewPage(testFile)
	require.True(t, ok)
	require.True(t, bp.UnpinPage(identA, false))

	identB, _, ok := bp.NewPage(testFile)
	require.True(t, ok)
	require.True(t, bp.UnpinPage(identB, false))

	assert.NotEqual(t, identA, identB)
}

func TestNewPage_NoSpaceWhenAllPinned(t *testing.T) {
	dm := disk.NewInMemoryManager()
	bp := New(1, 2, dm)

	_, _, ok := bp.NewPage(testFile)
	require.True(t, ok)

	_, _, ok = bp.NewPage(testFile)
	assert.False(t, ok, "sole frame is still pinned, nothing can be evicted")
}

func TestUnpinPage_UnknownIdentIsFalse(t *testing.T) {
	dm := disk.NewInMemoryManager()
	bp := New(1, 2, dm)
	ok := bp.UnpinPage(common.PageIdentity{FileID: testFile, PageID: 99}, false)
	assert.False(t, ok)
}

func TestDeletePage_RefusesWhilePinned(t *testing.T) {
	dm := disk.NewInMemoryManager()
	bp := New(1, 2, dm)

	ident, _, ok := bp.NewPage(testFile)
	require.True(t, ok)

	assert.False(t, bp.DeletePage(ident))

	require.True(t, bp.UnpinPage(ident, false))
	assert.True(t, bp.DeletePage(ident))
}

func TestDeletePage_UnknownIsNoOpTrue(t *testing.T) {
	dm := disk.NewInMemoryManager()
	bp := New(1, 2, dm)
	assert.True(t, bp.DeletePage(common.PageIdentity{FileID: testFile, PageID: 7}))
}

func TestFlushAllPages(t *testing.T) {
	dm := disk.NewInMemoryManager()
	bp := New(2, 2, dm)

	identA, pgA, ok := bp.NewPage(testFile)
	require.True(t, ok)
	copy(pgA.GetData(), []byte("A"))
	require.True(t, bp.UnpinPage(identA, true))

	bp.FlushAllPages()

	var readBack common.PageIdentity = identA
	out, ok := bp.FetchPage(readBack)
	require.True(t, ok)
	assert.Equal(t, byte('A'), out.GetData()[0])
}
