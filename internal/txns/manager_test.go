package txns

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagedb/pagedb/internal/common"
)

const testOID ObjectID = 1

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Fail(t, "condition never became true")
}

// TestScenario_LockFIFOAndUpgrade is spec.md §8 scenario 5, verbatim.
func TestScenario_LockFIFOAndUpgrade(t *testing.T) {
	lm := NewLockManager()
	t1 := lm.Begin(1, RepeatableRead)
	t2 := lm.Begin(2, RepeatableRead)

	require.NoError(t, lm.LockTable(t1, ModeS, testOID))

	t2Granted := make(chan struct{})
	go func() {
		require.NoError(t, lm.LockTable(t2, ModeX, testOID))
		close(t2Granted)
	}()

	waitUntil(t, func() bool {
		q := lm.getOrCreateTableQueue(testOID)
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.requests) == 2
	})

	select {
	case <-t2Granted:
		t.Fatal("T2 must still be waiting behind T1's S lock")
	default:
	}

	require.NoError(t, lm.LockTable(t1, ModeX, testOID))
	mode, ok := t1.TableLockMode(testOID)
	require.True(t, ok)
	assert.Equal(t, ModeX, mode)

	select {
	case <-t2Granted:
		t.Fatal("T2 must not be granted while T1 still holds X")
	default:
	}

	require.NoError(t, lm.UnlockTable(t1, testOID))

	select {
	case <-t2Granted:
	case <-time.After(time.Second):
		t.Fatal("T2 was never granted X after T1 unlocked")
	}

	mode, ok = t2.TableLockMode(testOID)
	require.True(t, ok)
	assert.Equal(t, ModeX, mode)
}

// TestScenario_DeadlockDetection is spec.md §8 scenario 6, verbatim.
func TestScenario_DeadlockDetection(t *testing.T) {
	lm := NewLockManager()
	t1 := lm.Begin(10, RepeatableRead)
	t2 := lm.Begin(20, RepeatableRead)

	r1 := common.RID{PageID: 1, SlotID: 0}
	r2 := common.RID{PageID: 2, SlotID: 0}

	require.NoError(t, lm.LockTable(t1, ModeIX, testOID))
	require.NoError(t, lm.LockTable(t2, ModeIX, testOID))
	require.NoError(t, lm.LockRow(t1, ModeX, testOID, r1))
	require.NoError(t, lm.LockRow(t2, ModeX, testOID, r2))

	var wg sync.WaitGroup
	wg.Add(2)
	var t1Err, t2Err error
	t2Done := make(chan struct{})
	go func() {
		defer wg.Done()
		t1Err = lm.LockRow(t1, ModeX, testOID, r2)
	}()
	go func() {
		defer wg.Done()
		defer close(t2Done)
		t2Err = lm.LockRow(t2, ModeX, testOID, r1)
	}()

	waitUntil(t, func() bool {
		graph, _ := lm.buildWaitForGraph()
		return len(graph) == 2
	})

	detector := NewDetector(lm, time.Hour)
	detector.Sweep()

	// The detector only marks the victim ABORTED; the victim's held row
	// lock is released here, as rolling back an aborted transaction would,
	// so the survivor's wait can end.
	<-t2Done
	require.NoError(t, lm.UnlockRow(t2, testOID, r2))

	wg.Wait()

	aborted := t1Err != nil || t2Err != nil
	assert.True(t, aborted, "one of the two deadlocked transactions must have aborted")

	if t1Err != nil {
		assert.Equal(t, StateAborted, t1.State())
		assert.NoError(t, t2Err)
	} else {
		assert.Equal(t, StateAborted, t2.State())
	}

	// the larger id (20) is the youngest and must be the one aborted
	assert.Equal(t, StateAborted, t2.State())
}

func TestLockTable_ReadUncommittedRejectsSharedModes(t *testing.T) {
	lm := NewLockManager()
	txn := lm.Begin(1, ReadUncommitted)

	err := lm.LockTable(txn, ModeS, testOID)
	assert.ErrorIs(t, err, ErrLockSharedOnReadUncommitted)
	assert.Equal(t, StateAborted, txn.State())
}

func TestLockRow_RejectsIntentionModes(t *testing.T) {
	lm := NewLockManager()
	txn := lm.Begin(1, RepeatableRead)
	require.NoError(t, lm.LockTable(txn, ModeIX, testOID))

	err := lm.LockRow(txn, ModeIX, testOID, common.RID{PageID: 1})
	assert.ErrorIs(t, err, ErrAttemptedIntentionLockOnRow)
}

func TestLockRow_RequiresTableLock(t *testing.T) {
	lm := NewLockManager()
	txn := lm.Begin(1, RepeatableRead)

	err := lm.LockRow(txn, ModeS, testOID, common.RID{PageID: 1})
	assert.ErrorIs(t, err, ErrTableLockNotPresent)
}

func TestUnlockTable_RequiresRowsUnlockedFirst(t *testing.T) {
	lm := NewLockManager()
	txn := lm.Begin(1, RepeatableRead)
	require.NoError(t, lm.LockTable(txn, ModeIX, testOID))
	require.NoError(t, lm.LockRow(txn, ModeX, testOID, common.RID{PageID: 1}))

	err := lm.UnlockTable(txn, testOID)
	assert.ErrorIs(t, err, ErrTableUnlockedBeforeUnlockingRows)
}

func TestUnlockTable_TransitionsToShrinking(t *testing.T) {
	lm := NewLockManager()
	txn := lm.Begin(1, RepeatableRead)
	require.NoError(t, lm.LockTable(txn, ModeS, testOID))
	assert.Equal(t, StateGrowing, txn.State())

	require.NoError(t, lm.UnlockTable(txn, testOID))
	assert.Equal(t, StateShrinking, txn.State())
}

func TestUnlockTable_NoLockHeld(t *testing.T) {
	lm := NewLockManager()
	txn := lm.Begin(1, RepeatableRead)
	err := lm.UnlockTable(txn, testOID)
	assert.ErrorIs(t, err, ErrAttemptedUnlockButNoLockHeld)
}

func TestLockError_CarriesReason(t *testing.T) {
	lm := NewLockManager()
	txn := lm.Begin(1, ReadUncommitted)

	err := lm.LockTable(txn, ModeS, testOID)

	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, ReasonLockSharedOnReadUncommitted, lockErr.Reason)
}

// TestDeadlockDetection_ReturnsErrDeadlockVictim confirms the transaction
// the detector aborts sees ErrDeadlockVictim, not one of the LockError
// reasons a self-inflicted validation failure returns.
func TestDeadlockDetection_ReturnsErrDeadlockVictim(t *testing.T) {
	lm := NewLockManager()
	t1 := lm.Begin(10, RepeatableRead)
	t2 := lm.Begin(20, RepeatableRead)

	r1 := common.RID{PageID: 1, SlotID: 0}
	r2 := common.RID{PageID: 2, SlotID: 0}

	require.NoError(t, lm.LockTable(t1, ModeIX, testOID))
	require.NoError(t, lm.LockTable(t2, ModeIX, testOID))
	require.NoError(t, lm.LockRow(t1, ModeX, testOID, r1))
	require.NoError(t, lm.LockRow(t2, ModeX, testOID, r2))

	var wg sync.WaitGroup
	wg.Add(2)
	var t1Err, t2Err error
	t2Done := make(chan struct{})
	go func() {
		defer wg.Done()
		t1Err = lm.LockRow(t1, ModeX, testOID, r2)
	}()
	go func() {
		defer wg.Done()
		defer close(t2Done)
		t2Err = lm.LockRow(t2, ModeX, testOID, r1)
	}()

	waitUntil(t, func() bool {
		graph, _ := lm.buildWaitForGraph()
		return len(graph) == 2
	})

	NewDetector(lm, time.Hour).Sweep()
	// release the victim's held row lock, as rolling back the aborted
	// transaction would, so t1's wait can end
	<-t2Done
	require.NoError(t, lm.UnlockRow(t2, testOID, r2))
	wg.Wait()

	require.Error(t, t2Err, "t2 (id 20) is the youngest and must be the detector's victim")
	assert.ErrorIs(t, t2Err, ErrDeadlockVictim)
	assert.NoError(t, t1Err)
}
