package replacer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_LRUKEviction is spec.md §8 scenario 2, verbatim.
func TestScenario_LRUKEviction(t *testing.T) {
	r := New(2)

	r.RecordAccess(1)
	r.RecordAccess(2)
	r.RecordAccess(3)

	r.SetEvictable(1, true)
	r.SetEvictable(2, true)
	r.SetEvictable(3, true)
	require.Equal(t, 3, r.Size())

	r.RecordAccess(1) // frame 1 now has 2 accesses, migrates to the cache list

	f, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(2), f, "oldest history entry beats any cache entry")

	f, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(3), f)

	f, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(1), f)

	_, ok = r.Evict()
	assert.False(t, ok)
}

func TestSetEvictable_UnknownFrameNoOp(t *testing.T) {
	r := New(2)
	r.RecordAccess(1)
	r.SetEvictable(1, true)
	require.Equal(t, 1, r.Size())

	// touching an unrelated frame id doesn't corrupt bookkeeping for frame 1
	r.SetEvictable(99, true)
	assert.Equal(t, 1, r.Size())
}

func TestSetEvictable_TogglesSize(t *testing.T) {
	r := New(2)
	r.RecordAccess(1)
	assert.Equal(t, 0, r.Size())

	r.SetEvictable(1, true)
	assert.Equal(t, 1, r.Size())

	r.SetEvictable(1, false)
	assert.Equal(t, 0, r.Size())
}

func TestRemove_RequiresEvictable(t *testing.T) {
	r := New(2)
	r.RecordAccess(1)
	r.SetEvictable(1, true)

	r.Remove(1)
	assert.Equal(t, 0, r.Size())

	// removing again (now unknown) is a no-op, not a panic
	r.Remove(1)
}

func TestEvict_NeverReturnsNonEvictable(t *testing.T) {
	r := New(2)
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.SetEvictable(2, true)

	f, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(2), f)
}
