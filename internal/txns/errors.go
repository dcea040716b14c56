package txns

import "errors"

// Reason enumerates the named lock abort causes spec.md §7 lists (the
// isolation-level/upgrade/precondition violations a LockTable/LockRow call
// can hit and the unlock violations of UnlockTable/UnlockRow, as opposed to
// a transaction aborted out from under a waiter by the deadlock detector).
type Reason int

const (
	ReasonLockSharedOnReadUncommitted Reason = iota
	ReasonLockOnShrinking
	ReasonAttemptedIntentionLockOnRow
	ReasonTableLockNotPresent
	ReasonUpgradeConflict
	ReasonIncompatibleUpgrade
	ReasonTableUnlockedBeforeUnlockingRows
	ReasonAttemptedUnlockButNoLockHeld
)

func (r Reason) String() string {
	switch r {
	case ReasonLockSharedOnReadUncommitted:
		return "LOCK_SHARED_ON_READ_UNCOMMITTED"
	case ReasonLockOnShrinking:
		return "LOCK_ON_SHRINKING"
	case ReasonAttemptedIntentionLockOnRow:
		return "ATTEMPTED_INTENTION_LOCK_ON_ROW"
	case ReasonTableLockNotPresent:
		return "TABLE_LOCK_NOT_PRESENT"
	case ReasonUpgradeConflict:
		return "UPGRADE_CONFLICT"
	case ReasonIncompatibleUpgrade:
		return "INCOMPATIBLE_UPGRADE"
	case ReasonTableUnlockedBeforeUnlockingRows:
		return "TABLE_UNLOCKED_BEFORE_UNLOCKING_ROWS"
	case ReasonAttemptedUnlockButNoLockHeld:
		return "ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD"
	default:
		return "UNKNOWN"
	}
}

// LockError pairs a Reason with the sentinel it wraps, so callers can match
// either the specific sentinel (errors.Is) or the enum (for logging/metrics
// without a string compare).
type LockError struct {
	Reason Reason
	Err    error
}

func (e *LockError) Error() string { return e.Err.Error() }
func (e *LockError) Unwrap() error { return e.Err }

// Sentinels underlying the Reason values above (spec.md §4.5, §7). Returned
// wrapped in a *LockError; matched directly via errors.Is.
var (
	ErrLockSharedOnReadUncommitted      = errors.New("txns: LOCK_SHARED_ON_READ_UNCOMMITTED")
	ErrLockOnShrinking                  = errors.New("txns: LOCK_ON_SHRINKING")
	ErrAttemptedIntentionLockOnRow      = errors.New("txns: ATTEMPTED_INTENTION_LOCK_ON_ROW")
	ErrTableLockNotPresent              = errors.New("txns: TABLE_LOCK_NOT_PRESENT")
	ErrUpgradeConflict                  = errors.New("txns: UPGRADE_CONFLICT")
	ErrIncompatibleUpgrade              = errors.New("txns: INCOMPATIBLE_UPGRADE")
	ErrTableUnlockedBeforeUnlockingRows = errors.New("txns: TABLE_UNLOCKED_BEFORE_UNLOCKING_ROWS")
	ErrAttemptedUnlockButNoLockHeld     = errors.New("txns: ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD")
)

// ErrDeadlockVictim is returned to a waiter whose transaction was marked
// ABORTED by the background deadlock detector while the request was queued
// (spec.md §4.5 "Wakeup discipline"), distinct from the reasons above,
// which are all self-inflicted by the calling transaction's own request.
var ErrDeadlockVictim = errors.New("txns: transaction aborted by deadlock detector")

func lockErr(reason Reason, err error) error {
	return &LockError{Reason: reason, Err: err}
}
