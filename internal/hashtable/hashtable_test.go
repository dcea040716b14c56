package hashtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_ExtendibleHashSplit is spec.md §8 scenario 1, verbatim.
func TestScenario_ExtendibleHashSplit(t *testing.T) {
	tbl := New[uint64, string](2, HashUint64)

	tbl.Insert(4, "a")
	tbl.Insert(12, "b")
	require.Equal(t, 0, tbl.GlobalDepth())
	require.Equal(t, 1, tbl.NumBuckets())

	tbl.Insert(16, "c")
	assert.GreaterOrEqual(t, tbl.GlobalDepth(), 1)

	v, ok := tbl.Find(4)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = tbl.Find(12)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = tbl.Find(16)
	require.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestInsert_OverwritesExistingKey(t *testing.T) {
	tbl := New[uint64, string](4, HashUint64)
	tbl.Insert(1, "a")
	tbl.Insert(1, "b")

	v, ok := tbl.Find(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, 1, tbl.NumBuckets())
}

func TestRemove(t *testing.T) {
	tbl := New[uint64, string](4, HashUint64)
	tbl.Insert(1, "a")

	assert.True(t, tbl.Remove(1))
	_, ok := tbl.Find(1)
	assert.False(t, ok)

	assert.False(t, tbl.Remove(1))
}

func TestManyInserts_AllFindable(t *testing.T) {
	tbl := New[uint64, int](2, HashUint64)
	const n = 500
	for i := uint64(0); i < n; i++ {
		tbl.Insert(i, int(i))
	}
	for i := uint64(0); i < n; i++ {
		v, ok := tbl.Find(i)
		require.True(t, ok, "key %d", i)
		assert.Equal(t, int(i), v)
	}

	for i := 0; i < len(tbl.dir); i++ {
		assert.LessOrEqual(t, tbl.LocalDepth(i), tbl.GlobalDepth())
	}
}

func TestLocalDepth_NeverExceedsGlobalDepth(t *testing.T) {
	tbl := New[uint64, int](1, HashUint64)
	for i := uint64(0); i < 64; i++ {
		tbl.Insert(i, int(i))
		for d := 0; d < len(tbl.dir); d++ {
			assert.LessOrEqual(t, tbl.LocalDepth(d), tbl.GlobalDepth())
		}
	}
}
