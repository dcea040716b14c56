package engine

import (
	"errors"
	"sync"

	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/txns"
)

// Txn is the consumer-facing handle to a transaction. spec.md §4.6 treats
// the transaction record as an external collaborator specified only
// through the lock sets and phase it exposes; internal/txns.Transaction
// already is that record end to end, so Txn wraps it rather than
// duplicating its bookkeeping. It additionally remembers which tables and
// rows it has locked, purely so Commit can release them without the
// caller having to track that itself.
type Txn struct {
	inner *txns.Transaction
	locks *txns.LockManager

	mu         sync.Mutex
	lockedRows map[txns.ObjectID]map[common.RID]struct{}
	lockedOIDs map[txns.ObjectID]struct{}
}

// BeginTxn starts a transaction against locks and hands back the handle
// Table's methods expect.
func BeginTxn(locks *txns.LockManager, id common.TxnID, isolation txns.IsolationLevel) *Txn {
	return &Txn{
		inner:      locks.Begin(id, isolation),
		locks:      locks,
		lockedRows: map[txns.ObjectID]map[common.RID]struct{}{},
		lockedOIDs: map[txns.ObjectID]struct{}{},
	}
}

func (t *Txn) ID() common.TxnID { return t.inner.ID() }

func (t *Txn) State() txns.TxnState { return t.inner.State() }

func (t *Txn) Isolation() txns.IsolationLevel { return t.inner.Isolation() }

func (t *Txn) noteTableLock(oid txns.ObjectID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lockedOIDs[oid] = struct{}{}
}

func (t *Txn) noteRowLock(oid txns.ObjectID, rid common.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lockedRows[oid] == nil {
		t.lockedRows[oid] = map[common.RID]struct{}{}
	}
	t.lockedRows[oid][rid] = struct{}{}
}

func (t *Txn) forgetRowLock(oid txns.ObjectID, rid common.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lockedRows[oid], rid)
}

// Commit releases every row lock and then every table lock this
// transaction acquired through a Table, in that order (spec.md §4.5
// "Unlock" preconditions: a table lock cannot be released while its rows
// are still held). It keeps unlocking everything in its snapshot even if
// one release fails, so a single stale lock never strands the rest.
func (t *Txn) Commit() error {
	t.mu.Lock()
	rows := t.lockedRows
	oids := t.lockedOIDs
	t.lockedRows = map[txns.ObjectID]map[common.RID]struct{}{}
	t.lockedOIDs = map[txns.ObjectID]struct{}{}
	t.mu.Unlock()

	var errs []error
	for oid, rids := range rows {
		for rid := range rids {
			if err := t.locks.UnlockRow(t.inner, oid, rid); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for oid := range oids {
		if err := t.locks.UnlockTable(t.inner, oid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
