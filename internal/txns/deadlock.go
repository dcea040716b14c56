package txns

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pagedb/pagedb/internal/applog"
	"github.com/pagedb/pagedb/internal/common"
)

// Detector runs the background deadlock sweep (spec.md §4.5 "Deadlock
// detection"): every interval it builds the wait-for graph from every
// queue's waiters and granted holders, finds cycles by DFS, and aborts
// the youngest transaction in each one found, looping until none remain.
type Detector struct {
	lm       *LockManager
	interval time.Duration
	logger   applog.Logger
}

// NewDetector returns a detector sweeping lm every interval.
func NewDetector(lm *LockManager, interval time.Duration) *Detector {
	return &Detector{lm: lm, interval: interval, logger: applog.Noop()}
}

// SetLogger overrides the default no-op logger.
func (d *Detector) SetLogger(l applog.Logger) { d.logger = l }

// Run drives the detector until ctx is cancelled, through an errgroup so
// callers get a clean shutdown signal (mirroring the teacher's
// ants/errgroup-supervised background workers).
func (d *Detector) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				d.Sweep()
			}
		}
	})
	return g.Wait()
}

// Sweep runs one detection pass. Exported so tests can trigger detection
// deterministically instead of waiting on the ticker.
func (d *Detector) Sweep() {
	graph, waitingQueues := d.lm.buildWaitForGraph()

	for {
		victim, found := findCycleVictim(graph)
		if !found {
			return
		}
		d.logger.Warnw("deadlock detected, aborting transaction", "txn", victim)
		d.lm.abort(victim, waitingQueues[victim])

		delete(graph, victim)
		for _, edges := range graph {
			delete(edges, victim)
		}
	}
}

// findCycleVictim runs spec.md §4.5's DFS: waiters visited in ascending
// id order, children visited in ascending id order, and on a back edge
// the youngest id on the active stack is the victim.
func findCycleVictim(graph map[common.TxnID]map[common.TxnID]bool) (common.TxnID, bool) {
	ids := make([]common.TxnID, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	visited := map[common.TxnID]bool{}
	onStack := map[common.TxnID]bool{}
	var stack []common.TxnID

	var dfs func(common.TxnID) (common.TxnID, bool)
	dfs = func(u common.TxnID) (common.TxnID, bool) {
		visited[u] = true
		onStack[u] = true
		stack = append(stack, u)

		children := make([]common.TxnID, 0, len(graph[u]))
		for v := range graph[u] {
			children = append(children, v)
		}
		sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })

		for _, v := range children {
			if onStack[v] {
				return youngestOnStack(stack, v), true
			}
			if !visited[v] {
				if victim, found := dfs(v); found {
					return victim, true
				}
			}
		}

		onStack[u] = false
		stack = stack[:len(stack)-1]
		return 0, false
	}

	for _, id := range ids {
		if !visited[id] {
			if victim, found := dfs(id); found {
				return victim, true
			}
		}
	}
	return 0, false
}

// youngestOnStack returns the largest id among stack entries from the
// first occurrence of from onward (the cycle's members).
func youngestOnStack(stack []common.TxnID, from common.TxnID) common.TxnID {
	started := false
	youngest := from
	for _, s := range stack {
		if s == from {
			started = true
		}
		if started && s > youngest {
			youngest = s
		}
	}
	return youngest
}
