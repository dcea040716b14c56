package txns

import (
	"sync"

	"github.com/pagedb/pagedb/internal/common"
)

// Transaction is the external shape spec.md §3 names: phase, isolation,
// five table lock sets (one per mode) and two row lock sets (S, X) keyed
// by table oid.
type Transaction struct {
	mu sync.Mutex

	id        common.TxnID
	state     TxnState
	isolation IsolationLevel

	tableLocks map[LockMode]map[ObjectID]struct{}
	rowLocksS  map[ObjectID]map[common.RID]struct{}
	rowLocksX  map[ObjectID]map[common.RID]struct{}
}

// NewTransaction starts a transaction in the GROWING phase.
func NewTransaction(id common.TxnID, isolation IsolationLevel) *Transaction {
	return &Transaction{
		id:        id,
		state:     StateGrowing,
		isolation: isolation,
		tableLocks: map[LockMode]map[ObjectID]struct{}{
			ModeIS: {}, ModeIX: {}, ModeS: {}, ModeX: {}, ModeSIX: {},
		},
		rowLocksS: map[ObjectID]map[common.RID]struct{}{},
		rowLocksX: map[ObjectID]map[common.RID]struct{}{},
	}
}

func (t *Transaction) ID() common.TxnID { return t.id }

func (t *Transaction) State() TxnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(s TxnState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Transaction) Isolation() IsolationLevel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isolation
}

// HasTableLock reports whether the transaction already holds oid in mode.
func (t *Transaction) HasTableLock(oid ObjectID, mode LockMode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tableLocks[mode][oid]
	return ok
}

// TableLockMode returns the mode currently held on oid, if any.
func (t *Transaction) TableLockMode(oid ObjectID) (LockMode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, mode := range []LockMode{ModeIS, ModeIX, ModeS, ModeX, ModeSIX} {
		if _, ok := t.tableLocks[mode][oid]; ok {
			return mode, true
		}
	}
	return 0, false
}

func (t *Transaction) addTableLock(oid ObjectID, mode LockMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tableLocks[mode][oid] = struct{}{}
}

func (t *Transaction) removeTableLock(oid ObjectID, mode LockMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tableLocks[mode], oid)
}

func (t *Transaction) hasAnyRowLock(oid ObjectID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rowLocksS[oid]) > 0 || len(t.rowLocksX[oid]) > 0
}

func (t *Transaction) rowSet(mode LockMode) map[ObjectID]map[common.RID]struct{} {
	if mode == ModeS {
		return t.rowLocksS
	}
	return t.rowLocksX
}

func (t *Transaction) addRowLock(oid ObjectID, rid common.RID, mode LockMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.rowSet(mode)
	if set[oid] == nil {
		set[oid] = map[common.RID]struct{}{}
	}
	set[oid][rid] = struct{}{}
}

func (t *Transaction) removeRowLock(oid ObjectID, rid common.RID, mode LockMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rowSet(mode)[oid], rid)
}

func (t *Transaction) hasRowLock(oid ObjectID, rid common.RID, mode LockMode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.rowSet(mode)[oid][rid]
	return ok
}

// RowLockMode returns the mode (S or X) this transaction currently holds
// on (oid, rid), if any.
func (t *Transaction) RowLockMode(oid ObjectID, rid common.RID) (LockMode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rowLocksS[oid][rid]; ok {
		return ModeS, true
	}
	if _, ok := t.rowLocksX[oid][rid]; ok {
		return ModeX, true
	}
	return 0, false
}
