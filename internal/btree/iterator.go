package btree

import (
	"sort"

	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/page"
)

// Iterator walks leaf entries in ascending key order, pinning at most one
// leaf at a time (spec.md §4.4 Iterator).
type Iterator[K Key] struct {
	t       *Tree[K]
	leafID  common.PageID
	leafPg  *page.Page
	idx     int
	atEnd   bool
}

// Begin returns an iterator positioned at the smallest key in the tree.
func (t *Tree[K]) Begin() *Iterator[K] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.beginLocked()
}

func (t *Tree[K]) beginLocked() *Iterator[K] {
	if t.rootPageID == common.InvalidPageID {
		return &Iterator[K]{t: t, atEnd: true}
	}

	id := t.rootPageID
	var pg *page.Page
	var n page.Node
	for {
		pg, n = t.fetch(id)
		if n.IsLeaf() {
			break
		}
		iv := internalView[K]{n}
		child := iv.at(0).child
		t.unpin(id, false)
		id = child
	}

	if n.Size() == 0 {
		t.unpin(id, false)
		return &Iterator[K]{t: t, atEnd: true}
	}
	return &Iterator[K]{t: t, leafID: id, leafPg: pg, idx: 0}
}

// BeginAt returns an iterator positioned at the first entry with key >= k.
func (t *Tree[K]) BeginAt(k K) *Iterator[K] {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rootPageID == common.InvalidPageID {
		return &Iterator[K]{t: t, atEnd: true}
	}

	leafID, leafPg, _ := t.descend(k)
	lv := leafView[K]{page.Node{Raw: leafPg.GetData()}}
	entries := lv.all()
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].key >= k })

	if idx >= len(entries) {
		next := page.Node{Raw: leafPg.GetData()}.NextPageID()
		t.unpin(leafID, false)
		if next == common.InvalidPageID {
			return &Iterator[K]{t: t, atEnd: true}
		}
		pg, _ := t.fetch(next)
		return &Iterator[K]{t: t, leafID: next, leafPg: pg, idx: 0}
	}

	return &Iterator[K]{t: t, leafID: leafID, leafPg: leafPg, idx: idx}
}

// End reports the sentinel position; it is never Valid.
func (t *Tree[K]) End() *Iterator[K] { return &Iterator[K]{t: t, atEnd: true} }

// Valid reports whether the iterator has a current entry.
func (it *Iterator[K]) Valid() bool { return !it.atEnd }

// Entry returns the key and RID the iterator currently points at. Valid
// must be true.
func (it *Iterator[K]) Entry() (K, common.RID) {
	n := page.Node{Raw: it.leafPg.GetData()}
	e := leafView[K]{n}.at(it.idx)
	return e.key, e.rid
}

// Next advances the iterator, releasing the current leaf and pinning the
// next one if the leaf is exhausted (spec.md §4.4: "releases it on
// increment to the next leaf").
func (it *Iterator[K]) Next() {
	if it.atEnd {
		return
	}

	n := page.Node{Raw: it.leafPg.GetData()}
	it.idx++
	if it.idx < n.Size() {
		return
	}

	next := n.NextPageID()
	it.t.mu.Lock()
	it.t.unpin(it.leafID, false)
	it.t.mu.Unlock()

	if next == common.InvalidPageID {
		it.atEnd = true
		it.leafPg = nil
		return
	}

	it.t.mu.Lock()
	pg, nn := it.t.fetch(next)
	it.t.mu.Unlock()

	if nn.Size() == 0 {
		it.t.mu.Lock()
		it.t.unpin(next, false)
		it.t.mu.Unlock()
		it.atEnd = true
		it.leafPg = nil
		return
	}

	it.leafID = next
	it.leafPg = pg
	it.idx = 0
}

// Close releases any pinned leaf without exhausting the iterator. Callers
// that abandon an iterator before reaching End must call Close.
func (it *Iterator[K]) Close() {
	if it.atEnd || it.leafPg == nil {
		return
	}
	it.t.mu.Lock()
	it.t.unpin(it.leafID, false)
	it.t.mu.Unlock()
	it.atEnd = true
	it.leafPg = nil
}
