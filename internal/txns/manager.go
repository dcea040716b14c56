package txns

import (
	"sync"

	"github.com/pagedb/pagedb/internal/assert"
	"github.com/pagedb/pagedb/internal/common"
)

// LockManager owns the table and row lock request queues (spec.md §4.5):
// table_lock_map and row_lock_map, each guarded by its own map-level
// mutex, with FIFO-plus-upgrade-priority grant inside each queue.
type LockManager struct {
	tableMu     sync.RWMutex
	tableQueues map[ObjectID]*Queue

	rowMu     sync.RWMutex
	rowQueues map[common.RID]*Queue

	txnMu sync.Mutex
	txns  map[common.TxnID]*Transaction
}

// NewLockManager returns an empty lock manager.
func NewLockManager() *LockManager {
	return &LockManager{
		tableQueues: map[ObjectID]*Queue{},
		rowQueues:   map[common.RID]*Queue{},
		txns:        map[common.TxnID]*Transaction{},
	}
}

// Begin starts and registers a new transaction so the deadlock detector
// can look it up by id.
func (lm *LockManager) Begin(id common.TxnID, isolation IsolationLevel) *Transaction {
	txn := NewTransaction(id, isolation)
	lm.txnMu.Lock()
	lm.txns[id] = txn
	lm.txnMu.Unlock()
	return txn
}

func (lm *LockManager) getOrCreateTableQueue(oid ObjectID) *Queue {
	lm.tableMu.RLock()
	q, ok := lm.tableQueues[oid]
	lm.tableMu.RUnlock()
	if ok {
		return q
	}

	lm.tableMu.Lock()
	defer lm.tableMu.Unlock()
	if q, ok := lm.tableQueues[oid]; ok {
		return q
	}
	q = newQueue()
	lm.tableQueues[oid] = q
	return q
}

func (lm *LockManager) getOrCreateRowQueue(rid common.RID) *Queue {
	lm.rowMu.RLock()
	q, ok := lm.rowQueues[rid]
	lm.rowMu.RUnlock()
	if ok {
		return q
	}

	lm.rowMu.Lock()
	defer lm.rowMu.Unlock()
	if q, ok := lm.rowQueues[rid]; ok {
		return q
	}
	q = newQueue()
	lm.rowQueues[rid] = q
	return q
}

// validateLock implements spec.md §4.5's isolation-level validation.
func validateLock(txn *Transaction, mode LockMode) error {
	iso := txn.Isolation()

	if iso == ReadUncommitted && (mode == ModeS || mode == ModeIS || mode == ModeSIX) {
		return lockErr(ReasonLockSharedOnReadUncommitted, ErrLockSharedOnReadUncommitted)
	}

	if txn.State() != StateShrinking {
		return nil
	}

	switch iso {
	case ReadUncommitted:
		if mode == ModeX || mode == ModeIX {
			return lockErr(ReasonLockOnShrinking, ErrLockOnShrinking)
		}
	case ReadCommitted:
		if mode != ModeS && mode != ModeIS {
			return lockErr(ReasonLockOnShrinking, ErrLockOnShrinking)
		}
	case RepeatableRead:
		return lockErr(ReasonLockOnShrinking, ErrLockOnShrinking)
	}
	return nil
}

// waitForGrantLocked blocks until req can be granted or txn is aborted.
// Caller holds q.mu (q.cond shares it).
func (lm *LockManager) waitForGrantLocked(q *Queue, txn *Transaction, req *request) error {
	for !q.canGrantLocked(req) {
		if txn.State() == StateAborted {
			q.removeLocked(req)
			q.cond.Broadcast()
			return ErrDeadlockVictim
		}
		q.cond.Wait()
	}
	req.granted = true
	if req.mode != ModeX {
		q.cond.Broadcast()
	}
	return nil
}

// upgradeLocked implements spec.md §4.5's upgrade algorithm. Caller holds
// q.mu.
func (lm *LockManager) upgradeLocked(q *Queue, txn *Transaction, from, to LockMode) error {
	if from == to {
		return nil
	}
	if q.upgrading != common.InvalidTxnID && q.upgrading != txn.ID() {
		txn.setState(StateAborted)
		return lockErr(ReasonUpgradeConflict, ErrUpgradeConflict)
	}
	if !CanUpgrade(from, to) {
		txn.setState(StateAborted)
		return lockErr(ReasonIncompatibleUpgrade, ErrIncompatibleUpgrade)
	}

	old := q.findLocked(txn.ID())
	assert.Assert(old != nil && old.granted, "txns: upgrade of a request not currently granted")
	q.removeLocked(old)

	newReq := &request{txnID: txn.ID(), mode: to}
	insertIdx := 0
	for insertIdx < len(q.requests) && q.requests[insertIdx].granted {
		insertIdx++
	}
	q.requests = append(q.requests, nil)
	copy(q.requests[insertIdx+1:], q.requests[insertIdx:])
	q.requests[insertIdx] = newReq

	q.upgrading = txn.ID()
	err := lm.waitForGrantLocked(q, txn, newReq)
	q.upgrading = common.InvalidTxnID
	return err
}

// acquire is the shared lock-or-upgrade path for both table and row
// queues.
func (lm *LockManager) acquire(q *Queue, txn *Transaction, mode LockMode, hasCurrent bool, currentMode LockMode) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if hasCurrent {
		return lm.upgradeLocked(q, txn, currentMode, mode)
	}

	req := &request{txnID: txn.ID(), mode: mode}
	q.requests = append(q.requests, req)
	return lm.waitForGrantLocked(q, txn, req)
}

func (lm *LockManager) release(q *Queue, txn *Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req := q.findLocked(txn.ID())
	if req == nil {
		return
	}
	q.removeLocked(req)
	q.cond.Broadcast()
}

// LockTable acquires or upgrades mode on oid for txn (spec.md §4.5).
func (lm *LockManager) LockTable(txn *Transaction, mode LockMode, oid ObjectID) error {
	if err := validateLock(txn, mode); err != nil {
		txn.setState(StateAborted)
		return err
	}

	currentMode, hasCurrent := txn.TableLockMode(oid)
	if hasCurrent && currentMode == mode {
		return nil
	}

	q := lm.getOrCreateTableQueue(oid)
	if err := lm.acquire(q, txn, mode, hasCurrent, currentMode); err != nil {
		return err
	}

	if hasCurrent {
		txn.removeTableLock(oid, currentMode)
	}
	txn.addTableLock(oid, mode)
	return nil
}

// LockRow acquires or upgrades mode on (oid, rid) for txn (spec.md §4.5
// row-lock preconditions).
func (lm *LockManager) LockRow(txn *Transaction, mode LockMode, oid ObjectID, rid common.RID) error {
	if mode != ModeS && mode != ModeX {
		txn.setState(StateAborted)
		return lockErr(ReasonAttemptedIntentionLockOnRow, ErrAttemptedIntentionLockOnRow)
	}
	if err := validateLock(txn, mode); err != nil {
		txn.setState(StateAborted)
		return err
	}

	tableMode, hasTable := txn.TableLockMode(oid)
	if !hasTable {
		txn.setState(StateAborted)
		return lockErr(ReasonTableLockNotPresent, ErrTableLockNotPresent)
	}
	if mode == ModeX && !(tableMode == ModeX || tableMode == ModeIX || tableMode == ModeSIX) {
		txn.setState(StateAborted)
		return lockErr(ReasonTableLockNotPresent, ErrTableLockNotPresent)
	}

	currentMode, hasCurrent := txn.RowLockMode(oid, rid)
	if hasCurrent && currentMode == mode {
		return nil
	}

	q := lm.getOrCreateRowQueue(rid)
	if err := lm.acquire(q, txn, mode, hasCurrent, currentMode); err != nil {
		return err
	}

	if hasCurrent {
		txn.removeRowLock(oid, rid, currentMode)
	}
	txn.addRowLock(oid, rid, mode)
	return nil
}

// maybeTransitionToShrinking applies spec.md §4.5's unlock-triggered
// GROWING→SHRINKING transition table.
func maybeTransitionToShrinking(txn *Transaction, mode LockMode) {
	if txn.State() != StateGrowing {
		return
	}

	var transitions bool
	switch txn.Isolation() {
	case RepeatableRead:
		transitions = mode == ModeS || mode == ModeX
	case ReadCommitted, ReadUncommitted:
		transitions = mode == ModeX
	}
	if transitions {
		txn.setState(StateShrinking)
	}
}

// UnlockTable releases txn's lock on oid.
func (lm *LockManager) UnlockTable(txn *Transaction, oid ObjectID) error {
	mode, ok := txn.TableLockMode(oid)
	if !ok {
		txn.setState(StateAborted)
		return lockErr(ReasonAttemptedUnlockButNoLockHeld, ErrAttemptedUnlockButNoLockHeld)
	}
	if txn.hasAnyRowLock(oid) {
		txn.setState(StateAborted)
		return lockErr(ReasonTableUnlockedBeforeUnlockingRows, ErrTableUnlockedBeforeUnlockingRows)
	}

	q := lm.getOrCreateTableQueue(oid)
	lm.release(q, txn)
	txn.removeTableLock(oid, mode)
	maybeTransitionToShrinking(txn, mode)
	return nil
}

// UnlockRow releases txn's lock on (oid, rid).
func (lm *LockManager) UnlockRow(txn *Transaction, oid ObjectID, rid common.RID) error {
	mode, ok := txn.RowLockMode(oid, rid)
	if !ok {
		txn.setState(StateAborted)
		return lockErr(ReasonAttemptedUnlockButNoLockHeld, ErrAttemptedUnlockButNoLockHeld)
	}

	q := lm.getOrCreateRowQueue(rid)
	lm.release(q, txn)
	txn.removeRowLock(oid, rid, mode)
	maybeTransitionToShrinking(txn, mode)
	return nil
}

// buildWaitForGraph snapshots every queue's waiter/holder edges for the
// deadlock detector (spec.md §4.5 "Deadlock detection").
func (lm *LockManager) buildWaitForGraph() (map[common.TxnID]map[common.TxnID]bool, map[common.TxnID][]*Queue) {
	graph := map[common.TxnID]map[common.TxnID]bool{}
	waitingQueues := map[common.TxnID][]*Queue{}

	addEdges := func(q *Queue) {
		q.mu.Lock()
		waiters := q.waitersLocked()
		holders := q.grantedHoldersLocked()
		q.mu.Unlock()

		for _, w := range waiters {
			waitingQueues[w] = append(waitingQueues[w], q)
			if graph[w] == nil {
				graph[w] = map[common.TxnID]bool{}
			}
			for _, h := range holders {
				if h != w {
					graph[w][h] = true
				}
			}
		}
	}

	lm.tableMu.RLock()
	tableQueues := make([]*Queue, 0, len(lm.tableQueues))
	for _, q := range lm.tableQueues {
		tableQueues = append(tableQueues, q)
	}
	lm.tableMu.RUnlock()
	for _, q := range tableQueues {
		addEdges(q)
	}

	lm.rowMu.RLock()
	rowQueues := make([]*Queue, 0, len(lm.rowQueues))
	for _, q := range lm.rowQueues {
		rowQueues = append(rowQueues, q)
	}
	lm.rowMu.RUnlock()
	for _, q := range rowQueues {
		addEdges(q)
	}

	return graph, waitingQueues
}

// abort marks txnID ABORTED and wakes every queue it is waiting in so it
// can remove itself (spec.md §4.5 "Wakeup discipline").
func (lm *LockManager) abort(txnID common.TxnID, queues []*Queue) {
	lm.txnMu.Lock()
	txn := lm.txns[txnID]
	lm.txnMu.Unlock()
	if txn == nil {
		return
	}

	txn.setState(StateAborted)
	for _, q := range queues {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}
