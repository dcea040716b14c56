package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagedb/pagedb/internal/bufferpool"
	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/disk"
)

const testFile common.FileID = 1

func newTestTree(t *testing.T, internalMax, leafMax int) *Tree[uint64] {
	t.Helper()
	dm := disk.NewInMemoryManager()
	bp := bufferpool.New(64, 2, dm)
	return New[uint64](bp, testFile, internalMax, leafMax)
}

func rid(n uint64) common.RID { return common.RID{PageID: common.PageID(n), SlotID: 0} }

// TestScenario_SplitOnInsert is spec.md §8 scenario 3, verbatim.
func TestScenario_SplitOnInsert(t *testing.T) {
	tr := newTestTree(t, 4, 4)

	for i := uint64(1); i <= 4; i++ {
		ok := tr.Insert(i, rid(i))
		require.True(t, ok)
	}

	for i := uint64(1); i <= 4; i++ {
		v, ok := tr.Get(i)
		require.True(t, ok, "key %d", i)
		assert.Equal(t, rid(i), v)
	}

	it := tr.Begin()
	var got []uint64
	for it.Valid() {
		k, _ := it.Entry()
		got = append(got, k)
		it.Next()
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, got)
}

// TestScenario_CoalesceOnDelete is spec.md §8 scenario 4, continuing
// scenario 3: delete 1, 2; left leaf underflows and merges with right;
// root collapses to a single leaf.
func TestScenario_CoalesceOnDelete(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	for i := uint64(1); i <= 4; i++ {
		require.True(t, tr.Insert(i, rid(i)))
	}

	require.True(t, tr.Remove(1))
	require.True(t, tr.Remove(2))

	_, ok := tr.Get(1)
	assert.False(t, ok)
	_, ok = tr.Get(2)
	assert.False(t, ok)

	v, ok := tr.Get(3)
	require.True(t, ok)
	assert.Equal(t, rid(3), v)
	v, ok = tr.Get(4)
	require.True(t, ok)
	assert.Equal(t, rid(4), v)

	it := tr.Begin()
	var got []uint64
	for it.Valid() {
		k, _ := it.Entry()
		got = append(got, k)
		it.Next()
	}
	assert.Equal(t, []uint64{3, 4}, got)
}

func TestInsert_DuplicateReturnsFalse(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	require.True(t, tr.Insert(1, rid(1)))
	assert.False(t, tr.Insert(1, rid(99)))

	v, ok := tr.Get(1)
	require.True(t, ok)
	assert.Equal(t, rid(1), v)
}

func TestRemove_AbsentKeyIsNoOp(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	require.True(t, tr.Insert(1, rid(1)))
	assert.False(t, tr.Remove(99))

	v, ok := tr.Get(1)
	require.True(t, ok)
	assert.Equal(t, rid(1), v)
}

func TestBeginAt_PositionsAtFirstKeyGreaterOrEqual(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	for _, k := range []uint64{10, 20, 30, 40, 50, 60} {
		require.True(t, tr.Insert(k, rid(k)))
	}

	it := tr.BeginAt(25)
	require.True(t, it.Valid())
	k, _ := it.Entry()
	assert.Equal(t, uint64(30), k)
}

func TestLargeSequentialInsertAndDelete(t *testing.T) {
	tr := newTestTree(t, 4, 4)
	const n = 200

	for i := uint64(0); i < n; i++ {
		require.True(t, tr.Insert(i, rid(i)))
	}
	for i := uint64(0); i < n; i++ {
		v, ok := tr.Get(i)
		require.True(t, ok, "key %d", i)
		assert.Equal(t, rid(i), v)
	}

	it := tr.Begin()
	var got []uint64
	for it.Valid() {
		k, _ := it.Entry()
		got = append(got, k)
		it.Next()
	}
	require.Len(t, got, n)
	for i := uint64(0); i < n; i++ {
		assert.Equal(t, i, got[i])
	}

	for i := uint64(0); i < n; i += 2 {
		require.True(t, tr.Remove(i))
	}
	for i := uint64(0); i < n; i++ {
		_, ok := tr.Get(i)
		if i%2 == 0 {
			assert.False(t, ok, "key %d should have been removed", i)
		} else {
			assert.True(t, ok, "key %d should remain", i)
		}
	}
}
