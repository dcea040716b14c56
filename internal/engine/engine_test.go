package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagedb/pagedb/internal/bufferpool"
	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/disk"
	"github.com/pagedb/pagedb/internal/txns"
)

func newTestTable(t *testing.T) (*Table, *txns.LockManager) {
	t.Helper()
	bp := bufferpool.New(64, 2, disk.NewInMemoryManager())
	locks := txns.NewLockManager()
	tbl := NewTable(1, bp, common.FileID(1), locks, 4, 4)
	return tbl, locks
}

func TestInsertAndGet(t *testing.T) {
	tbl, locks := newTestTable(t)
	txn := BeginTxn(locks, 1, txns.RepeatableRead)

	ok, err := tbl.Insert(txn, 42, common.RID{PageID: 42})
	require.NoError(t, err)
	assert.True(t, ok)

	v, found, err := tbl.Get(txn, 42)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, common.PageID(42), v.PageID)
}

func TestInsert_DuplicateFails(t *testing.T) {
	tbl, locks := newTestTable(t)
	txn := BeginTxn(locks, 1, txns.RepeatableRead)

	ok, err := tbl.Insert(txn, 7, common.RID{PageID: 7})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tbl.Insert(txn, 7, common.RID{PageID: 7})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	tbl, locks := newTestTable(t)
	txn := BeginTxn(locks, 1, txns.RepeatableRead)

	_, err := tbl.Insert(txn, 9, common.RID{PageID: 9})
	require.NoError(t, err)

	ok, err := tbl.Delete(txn, 9)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := tbl.Get(txn, 9)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestScan_VisitsAllInOrder(t *testing.T) {
	tbl, locks := newTestTable(t)
	txn := BeginTxn(locks, 1, txns.RepeatableRead)

	for _, k := range []uint64{5, 1, 3, 2, 4} {
		_, err := tbl.Insert(txn, k, common.RID{PageID: common.PageID(k)})
		require.NoError(t, err)
	}

	var seen []uint64
	err := tbl.Scan(txn, func(r ScanResult) bool {
		seen = append(seen, r.Key)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, seen)
}

func TestScan_ReadCommittedReleasesRowLockImmediately(t *testing.T) {
	tbl, locks := newTestTable(t)
	writer := BeginTxn(locks, 1, txns.RepeatableRead)
	_, err := tbl.Insert(writer, 1, common.RID{PageID: 1})
	require.NoError(t, err)
	require.NoError(t, locks.UnlockRow(writer.inner, tbl.OID, common.RID{PageID: 1}))
	require.NoError(t, locks.UnlockTable(writer.inner, tbl.OID))

	reader := BeginTxn(locks, 2, txns.ReadCommitted)
	err = tbl.Scan(reader, func(ScanResult) bool { return true })
	require.NoError(t, err)

	_, held := reader.inner.RowLockMode(tbl.OID, common.RID{PageID: 1})
	assert.False(t, held, "RC scan must release each row lock after visiting it")
}

func TestScan_StopsWhenYieldReturnsFalse(t *testing.T) {
	tbl, locks := newTestTable(t)
	txn := BeginTxn(locks, 1, txns.RepeatableRead)

	for _, k := range []uint64{1, 2, 3} {
		_, err := tbl.Insert(txn, k, common.RID{PageID: common.PageID(k)})
		require.NoError(t, err)
	}

	var seen []uint64
	err := tbl.Scan(txn, func(r ScanResult) bool {
		seen = append(seen, r.Key)
		return r.Key < 2
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, seen)
}
