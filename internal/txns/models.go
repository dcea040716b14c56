// Package txns implements the hierarchical, multi-granularity lock
// manager (spec.md §4.5): table and row lock request queues under
// map-level mutexes, strict two-phase locking with isolation-level
// validation, FIFO grant with upgrade priority, and a background
// deadlock detector. Shaped after the teacher's src/txns package (a
// locker composed of per-resource queues feeding a lock manager) but
// with the grant/wait algorithm replaced end to end: the teacher's
// txnqueue implements wait-die prevention (abort the younger of two
// conflicting txns on contact); this package instead queues FIFO and
// detects cycles after the fact, aborting the youngest transaction in
// any cycle found. See DESIGN.md.
package txns

import "fmt"

// LockMode is a lock granularity (spec.md §3 "Lock request").
type LockMode int

const (
	ModeIS LockMode = iota
	ModeIX
	ModeS
	ModeX
	ModeSIX
)

func (m LockMode) String() string {
	switch m {
	case ModeIS:
		return "IS"
	case ModeIX:
		return "IX"
	case ModeS:
		return "S"
	case ModeX:
		return "X"
	case ModeSIX:
		return "SIX"
	default:
		return fmt.Sprintf("LockMode(%d)", int(m))
	}
}

// compatible[held][requested] (spec.md §4.5 compatibility matrix).
var compatible = [5][5]bool{
	ModeIS:  {ModeIS: true, ModeIX: true, ModeS: true, ModeX: false, ModeSIX: true},
	ModeIX:  {ModeIS: true, ModeIX: true, ModeS: false, ModeX: false, ModeSIX: false},
	ModeS:   {ModeIS: true, ModeIX: false, ModeS: true, ModeX: false, ModeSIX: false},
	ModeX:   {ModeIS: false, ModeIX: false, ModeS: false, ModeX: false, ModeSIX: false},
	ModeSIX: {ModeIS: true, ModeIX: false, ModeS: false, ModeX: false, ModeSIX: false},
}

// Compatible reports whether a requester may hold requested while held is
// already granted to some other transaction.
func Compatible(held, requested LockMode) bool { return compatible[held][requested] }

// upgradeTargets[held] is the set of modes held may upgrade to (spec.md
// §4.5 upgrade matrix).
var upgradeTargets = map[LockMode]map[LockMode]bool{
	ModeIS:  {ModeS: true, ModeX: true, ModeIX: true, ModeSIX: true},
	ModeS:   {ModeX: true, ModeSIX: true},
	ModeIX:  {ModeX: true, ModeSIX: true},
	ModeSIX: {ModeX: true},
	ModeX:   {},
}

// CanUpgrade reports whether from may be upgraded to to.
func CanUpgrade(from, to LockMode) bool { return upgradeTargets[from][to] }

// TxnState is strict-2PL phase plus terminal states (spec.md §3).
type TxnState int

const (
	StateGrowing TxnState = iota
	StateShrinking
	StateCommitted
	StateAborted
)

// IsolationLevel (spec.md §3).
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

// ObjectID identifies a lockable table (spec.md §4.5 "oid").
type ObjectID uint64
