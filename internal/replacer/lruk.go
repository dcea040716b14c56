// Package replacer implements the LRU-K eviction policy the buffer pool
// uses to pick a victim frame (spec.md §4.2). The teacher's bufferpool
// package only exposes the Replacer it needs (Pin/Unpin/ChooseVictim/
// GetSize) and its concrete LRU implementation is not part of this
// retrieval; this package fills that gap with spec.md's richer LRU-K
// contract, using two container/list queues the way the teacher's own
// txns package prefers intrusive linked lists over slices for O(1)
// mid-list removal.
package replacer

import (
	"container/list"
	"sync"

	"github.com/pagedb/pagedb/internal/assert"
)

// FrameID is a buffer pool frame slot, 0..pool_size.
type FrameID int

type entry struct {
	frameID     FrameID
	accessCount int
	evictable   bool
}

// LRUK selects a victim frame among evictable frames using backward
// k-distance (spec.md §4.2). Frames with fewer than K recorded accesses
// have infinite backward distance and are preferred for eviction, LRU
// among themselves; frames with K or more accesses are evicted by
// ordinary LRU recency.
type LRUK struct {
	k int

	mu          sync.Mutex
	historyList *list.List // front = least-recently-first-seen; entries with < k accesses
	cacheList   *list.List // front = least-recently-used; entries with >= k accesses
	elems       map[FrameID]*list.Element
	numEvict    int
}

// New returns an LRU-K replacer tracking up to k accesses per frame.
func New(k int) *LRUK {
	if k <= 0 {
		k = 1
	}
	return &LRUK{
		k:           k,
		historyList: list.New(),
		cacheList:   list.New(),
		elems:       map[FrameID]*list.Element{},
	}
}

// RecordAccess appends a timestamp for frameID. On reaching K accesses the
// frame migrates from the history list to the cache list. An unknown
// frameID always starts a new history entry: the replacer has no capacity
// of its own and does not bound how many frames it tracks.
func (r *LRUK) RecordAccess(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.elems[frameID]; ok {
		e := el.Value.(*entry)
		e.accessCount++
		if e.accessCount == r.k {
			r.historyList.Remove(el)
			r.elems[frameID] = r.cacheList.PushBack(e)
		} else if e.accessCount > r.k {
			// already in cacheList: move to the MRU end.
			r.cacheList.MoveToBack(el)
		}
		return
	}

	e := &entry{frameID: frameID, accessCount: 1}
	r.elems[frameID] = r.historyList.PushBack(e)
}

// SetEvictable toggles whether frameID may be chosen as a victim. No-op if
// frameID is unknown.
func (r *LRUK) SetEvictable(frameID FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.elems[frameID]
	if !ok {
		return
	}
	e := el.Value.(*entry)
	if e.evictable == evictable {
		return
	}
	e.evictable = evictable
	if evictable {
		r.numEvict++
	} else {
		r.numEvict--
	}
}

// Remove drops frameID from the replacer. frameID must currently be
// evictable; Remove on an unknown frame is a no-op.
func (r *LRUK) Remove(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.elems[frameID]
	if !ok {
		return
	}
	e := el.Value.(*entry)
	assert.Assert(e.evictable, "replacer: removing a non-evictable frame %d", frameID)

	if e.accessCount < r.k {
		r.historyList.Remove(el)
	} else {
		r.cacheList.Remove(el)
	}
	delete(r.elems, frameID)
	r.numEvict--
}

// Evict returns the evictable frame with the largest backward k-distance:
// the least-recently-seen frame in the history list if one exists, else
// the least-recently-used frame in the cache list. ok is false if no
// evictable frame exists.
func (r *LRUK) Evict() (frameID FrameID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for el := r.historyList.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if e.evictable {
			r.historyList.Remove(el)
			delete(r.elems, e.frameID)
			r.numEvict--
			return e.frameID, true
		}
	}

	for el := r.cacheList.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if e.evictable {
			r.cacheList.Remove(el)
			delete(r.elems, e.frameID)
			r.numEvict--
			return e.frameID, true
		}
	}

	return 0, false
}

// Size returns the number of evictable frames.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.numEvict
}
