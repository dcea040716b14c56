package txns

import (
	"sync"

	"github.com/pagedb/pagedb/internal/common"
)

// request is one entry in a LockRequestQueue (spec.md §3 "Lock request").
type request struct {
	txnID   common.TxnID
	mode    LockMode
	granted bool
}

// Queue is a FIFO lock request queue for one resource (spec.md §3 "Lock
// request queue"): a mutex, a condition variable, and the single txn
// currently promoted to the front of the waitline by an upgrade.
type Queue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	requests  []*request
	upgrading common.TxnID
}

func newQueue() *Queue {
	q := &Queue{upgrading: common.InvalidTxnID}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// canGrantLocked implements spec.md §4.5's grant algorithm: scan from the
// front, denying on any incompatible granted request, and granting only
// if target is the first not-yet-granted request. Caller holds q.mu.
func (q *Queue) canGrantLocked(target *request) bool {
	for _, r := range q.requests {
		if r == target {
			return true
		}
		if !r.granted {
			return false // FIFO: no jumping the waitline
		}
		if !Compatible(r.mode, target.mode) {
			return false
		}
	}
	return false
}

// grantedHoldersLocked returns the txn ids with a granted request in this
// queue, for the deadlock detector's wait-for graph. Caller holds q.mu.
func (q *Queue) grantedHoldersLocked() []common.TxnID {
	var out []common.TxnID
	for _, r := range q.requests {
		if r.granted {
			out = append(out, r.txnID)
		}
	}
	return out
}

// waitersLocked returns the txn ids with a pending (not granted) request.
// Caller holds q.mu.
func (q *Queue) waitersLocked() []common.TxnID {
	var out []common.TxnID
	for _, r := range q.requests {
		if !r.granted {
			out = append(out, r.txnID)
		}
	}
	return out
}

func (q *Queue) removeLocked(target *request) {
	for i, r := range q.requests {
		if r == target {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
}

func (q *Queue) findLocked(txnID common.TxnID) *request {
	for _, r := range q.requests {
		if r.txnID == txnID {
			return r
		}
	}
	return nil
}
