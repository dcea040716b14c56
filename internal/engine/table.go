// Package engine is the thin consumer wiring spec.md §4.6 describes:
// enough of a table/transaction surface to exercise the buffer pool, the
// B+ tree index, and the lock manager together, without reimplementing
// SQL parsing, planning, or a general volcano executor framework (those
// remain external collaborators per spec.md §2).
package engine

import (
	"github.com/pagedb/pagedb/internal/btree"
	"github.com/pagedb/pagedb/internal/bufferpool"
	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/txns"
)

// Table is a heap-free façade over one B+ tree index: every row is
// identified by its own key, and the "value" stored is an RID the caller
// interprets (spec.md §4.6: executors pin/unpin strictly through the
// buffer pool and never touch disk directly — this package never imports
// internal/disk).
type Table struct {
	OID txns.ObjectID

	bp    *bufferpool.Manager
	index *btree.Tree[uint64]
	locks *txns.LockManager
}

// NewTable wires a B+ tree index over bp into the lock manager's
// namespace under oid.
func NewTable(oid txns.ObjectID, bp *bufferpool.Manager, fileID common.FileID, locks *txns.LockManager, internalMaxSize, leafMaxSize int) *Table {
	return &Table{
		OID:   oid,
		bp:    bp,
		index: btree.New[uint64](bp, fileID, internalMaxSize, leafMaxSize),
		locks: locks,
	}
}

// Get reads the value for key under an S row lock (spec.md §4.6). A table
// or row lock the transaction already holds is reused rather than
// requested again in a weaker mode.
func (tb *Table) Get(txn *Txn, key uint64) (common.RID, bool, error) {
	rid := common.RID{PageID: common.PageID(key)}
	if _, held := txn.inner.TableLockMode(tb.OID); !held {
		if err := tb.locks.LockTable(txn.inner, txns.ModeIS, tb.OID); err != nil {
			return common.RID{}, false, err
		}
		txn.noteTableLock(tb.OID)
	}
	_, rowHeld := txn.inner.RowLockMode(tb.OID, rid)
	if !rowHeld {
		if err := tb.locks.LockRow(txn.inner, txns.ModeS, tb.OID, rid); err != nil {
			return common.RID{}, false, err
		}
		txn.noteRowLock(tb.OID, rid)
	}

	v, ok := tb.index.Get(key)

	if !rowHeld && txn.Isolation() == txns.ReadCommitted {
		if err := tb.locks.UnlockRow(txn.inner, tb.OID, rid); err == nil {
			txn.forgetRowLock(tb.OID, rid)
		}
	}
	return v, ok, nil
}

// Insert adds (key, value) under an X row lock.
func (tb *Table) Insert(txn *Txn, key uint64, value common.RID) (bool, error) {
	rid := common.RID{PageID: common.PageID(key)}
	if err := tb.locks.LockTable(txn.inner, txns.ModeIX, tb.OID); err != nil {
		return false, err
	}
	txn.noteTableLock(tb.OID)
	if err := tb.locks.LockRow(txn.inner, txns.ModeX, tb.OID, rid); err != nil {
		return false, err
	}
	txn.noteRowLock(tb.OID, rid)
	return tb.index.Insert(key, value), nil
}

// Delete removes key under an X row lock.
func (tb *Table) Delete(txn *Txn, key uint64) (bool, error) {
	rid := common.RID{PageID: common.PageID(key)}
	if err := tb.locks.LockTable(txn.inner, txns.ModeIX, tb.OID); err != nil {
		return false, err
	}
	txn.noteTableLock(tb.OID)
	if err := tb.locks.LockRow(txn.inner, txns.ModeX, tb.OID, rid); err != nil {
		return false, err
	}
	txn.noteRowLock(tb.OID, rid)
	return tb.index.Remove(key), nil
}

// Check validates the underlying index's leaf chain ordering invariant.
func (tb *Table) Check() error { return tb.index.Check() }

// ScanResult is one row produced by Scan.
type ScanResult struct {
	Key   uint64
	Value common.RID
}

// Scan iterates the table in ascending key order under an IS table lock,
// taking and (under READ_COMMITTED) immediately releasing an S row lock
// per entry — the "volcano-style iterator" surface spec.md §4.6 calls for.
// As in Get, a table or row lock the transaction already holds is reused.
func (tb *Table) Scan(txn *Txn, yield func(ScanResult) bool) error {
	if _, held := txn.inner.TableLockMode(tb.OID); !held {
		if err := tb.locks.LockTable(txn.inner, txns.ModeIS, tb.OID); err != nil {
			return err
		}
		txn.noteTableLock(tb.OID)
	}

	it := tb.index.Begin()
	defer it.Close()

	for it.Valid() {
		k, v := it.Entry()
		rid := common.RID{PageID: common.PageID(k)}

		_, rowHeld := txn.inner.RowLockMode(tb.OID, rid)
		if !rowHeld {
			if err := tb.locks.LockRow(txn.inner, txns.ModeS, tb.OID, rid); err != nil {
				return err
			}
			txn.noteRowLock(tb.OID, rid)
		}
		cont := yield(ScanResult{Key: k, Value: v})
		if !rowHeld && txn.Isolation() == txns.ReadCommitted {
			if err := tb.locks.UnlockRow(txn.inner, tb.OID, rid); err == nil {
				txn.forgetRowLock(tb.OID, rid)
			}
		}
		if !cont {
			return nil
		}
		it.Next()
	}
	return nil
}
