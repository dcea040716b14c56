package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/engine"
	"github.com/pagedb/pagedb/internal/txns"
)

// TestNewEngineHandle_RegistersFile exercises newEngineHandle's real wiring
// (disk.New over the OS filesystem, not disk.NewInMemoryManager) end to end:
// the table file must already be registered by the time a page is
// allocated, or NewPage fails and NewLeaf panics deep inside internal/btree.
func TestNewEngineHandle_RegistersFile(t *testing.T) {
	t.Setenv("PAGEDB_DATA_DIR", t.TempDir())

	h, err := newEngineHandle()
	require.NoError(t, err)
	defer h.Close()

	txn := engine.BeginTxn(h.locks, 1, txns.RepeatableRead)

	ok, err := h.table.Insert(txn, 1, common.RID{PageID: 10})
	require.NoError(t, err)
	require.True(t, ok)

	got, found, err := h.table.Get(txn, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, common.PageID(10), got.PageID)
}
