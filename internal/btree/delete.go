package btree

import (
	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/page"
)

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// Remove deletes k if present, rebalancing via redistribution or coalesce
// as needed (spec.md §4.4 Deletion). Returns whether k was present.
func (t *Tree[K]) Remove(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rootPageID == common.InvalidPageID {
		return false
	}

	leafID, leafPage, path := t.descend(k)
	lv := leafView[K]{page.Node{Raw: leafPage.GetData()}}
	entries := lv.all()

	idx := -1
	for i, e := range entries {
		if e.key == k {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.unpin(leafID, false)
		return false
	}
	entries = append(entries[:idx], entries[idx+1:]...)
	lv.setAll(entries)

	if len(path) == 0 {
		if len(entries) == 0 {
			t.unpin(leafID, false)
			t.bp.DeletePage(t.ident(leafID))
			t.rootPageID = common.InvalidPageID
		} else {
			t.unpin(leafID, true)
		}
		return true
	}

	minLeaf := ceilDiv(t.leafMax-1, 2)
	t.unpin(leafID, true)
	if len(entries) >= minLeaf {
		return true
	}

	t.fixLeafUnderflow(leafID, path)
	return true
}

// fixLeafUnderflow rebalances a leaf with too few entries by redistributing
// from a sibling sharing the same parent, or coalescing into one
// (spec.md §4.4 Deletion steps 2-3).
func (t *Tree[K]) fixLeafUnderflow(nodeID common.PageID, path []common.PageID) {
	parentID := path[len(path)-1]
	_, parentNode := t.fetch(parentID)
	piv := internalView[K]{parentNode}
	pentries := piv.all()

	myIdx := childIndex(pentries, nodeID)
	minLeaf := ceilDiv(t.leafMax-1, 2)

	if myIdx > 0 {
		leftID := pentries[myIdx-1].child
		_, leftNode := t.fetch(leftID)
		lv := leafView[K]{leftNode}
		leftEntries := lv.all()
		if len(leftEntries) > minLeaf {
			moved := leftEntries[len(leftEntries)-1]
			lv.setAll(leftEntries[:len(leftEntries)-1])
			t.unpin(leftID, true)

			_, nodeNode := t.fetch(nodeID)
			nv := leafView[K]{nodeNode}
			nodeEntries := append([]leafEntry[K]{moved}, nv.all()...)
			nv.setAll(nodeEntries)
			t.unpin(nodeID, true)

			pentries[myIdx].key = moved.key
			piv.setAll(pentries)
			t.unpin(parentID, true)
			return
		}
		t.unpin(leftID, false)
	}

	if myIdx < len(pentries)-1 {
		rightID := pentries[myIdx+1].child
		_, rightNode := t.fetch(rightID)
		rv := leafView[K]{rightNode}
		rightEntries := rv.all()
		if len(rightEntries) > minLeaf {
			moved := rightEntries[0]
			newRight := rightEntries[1:]
			rv.setAll(newRight)
			t.unpin(rightID, true)

			_, nodeNode := t.fetch(nodeID)
			nv := leafView[K]{nodeNode}
			nodeEntries := append(nv.all(), moved)
			nv.setAll(nodeEntries)
			t.unpin(nodeID, true)

			pentries[myIdx+1].key = newRight[0].key
			piv.setAll(pentries)
			t.unpin(parentID, true)
			return
		}
		t.unpin(rightID, false)
	}

	if myIdx > 0 {
		leftID := pentries[myIdx-1].child
		_, leftNode := t.fetch(leftID)
		_, nodeNode := t.fetch(nodeID)
		lv := leafView[K]{leftNode}
		nv := leafView[K]{nodeNode}
		merged := append(lv.all(), nv.all()...)
		lv.setAll(merged)
		leftNode.SetNextPageID(nodeNode.NextPageID())
		t.unpin(leftID, true)
		t.unpin(nodeID, false)
		t.bp.DeletePage(t.ident(nodeID))

		pentries = append(pentries[:myIdx], pentries[myIdx+1:]...)
		piv.setAll(pentries)
		t.unpin(parentID, true)
		t.fixParentAfterRemoval(parentID, path[:len(path)-1])
		return
	}

	rightID := pentries[myIdx+1].child
	_, rightNode := t.fetch(rightID)
	_, nodeNode := t.fetch(nodeID)
	nv := leafView[K]{nodeNode}
	rv := leafView[K]{rightNode}
	merged := append(nv.all(), rv.all()...)
	nv.setAll(merged)
	nodeNode.SetNextPageID(rightNode.NextPageID())
	t.unpin(nodeID, true)
	t.unpin(rightID, false)
	t.bp.DeletePage(t.ident(rightID))

	pentries = append(pentries[:myIdx+1], pentries[myIdx+2:]...)
	piv.setAll(pentries)
	t.unpin(parentID, true)
	t.fixParentAfterRemoval(parentID, path[:len(path)-1])
}

// fixParentAfterRemoval collapses the root if it has fallen to a single
// child, or rebalances an internal node that has underflowed after a
// child coalesce (spec.md §4.4 Deletion step 4).
func (t *Tree[K]) fixParentAfterRemoval(nodeID common.PageID, path []common.PageID) {
	_, n := t.fetch(nodeID)
	size := n.Size()

	if len(path) == 0 {
		if size == 1 {
			iv := internalView[K]{n}
			onlyChild := iv.at(0).child
			t.unpin(nodeID, false)
			t.bp.DeletePage(t.ident(nodeID))
			t.rootPageID = onlyChild

			_, childNode := t.fetch(onlyChild)
			childNode.SetParentPageID(common.InvalidPageID)
			t.unpin(onlyChild, true)
			return
		}
		t.unpin(nodeID, false)
		return
	}

	minInternal := ceilDiv(t.internalMax, 2)
	t.unpin(nodeID, false)
	if size >= minInternal {
		return
	}
	t.fixInternalUnderflow(nodeID, path)
}

// fixInternalUnderflow rebalances an internal node with too few children,
// mirroring fixLeafUnderflow's redistribute/coalesce shape but rotating a
// separator key through the parent instead of shifting a raw entry.
func (t *Tree[K]) fixInternalUnderflow(nodeID common.PageID, path []common.PageID) {
	parentID := path[len(path)-1]
	_, parentNode := t.fetch(parentID)
	piv := internalView[K]{parentNode}
	pentries := piv.all()

	myIdx := childIndex(pentries, nodeID)
	minInternal := ceilDiv(t.internalMax, 2)

	if myIdx > 0 {
		leftID := pentries[myIdx-1].child
		_, leftNode := t.fetch(leftID)
		lv := internalView[K]{leftNode}
		leftEntries := lv.all()
		if len(leftEntries) > minInternal {
			moved := leftEntries[len(leftEntries)-1]
			lv.setAll(leftEntries[:len(leftEntries)-1])
			t.unpin(leftID, true)

			down := pentries[myIdx].key
			_, nodeNode := t.fetch(nodeID)
			niv := internalView[K]{nodeNode}
			nodeEntries := append([]internalEntry[K]{{child: moved.child}}, niv.all()...)
			if len(nodeEntries) > 1 {
				nodeEntries[1].key = down
			}
			niv.setAll(nodeEntries)
			t.setParent(moved.child, nodeID)
			t.unpin(nodeID, true)

			pentries[myIdx].key = moved.key
			piv.setAll(pentries)
			t.unpin(parentID, true)
			return
		}
		t.unpin(leftID, false)
	}

	if myIdx < len(pentries)-1 {
		rightID := pentries[myIdx+1].child
		_, rightNode := t.fetch(rightID)
		rv := internalView[K]{rightNode}
		rightEntries := rv.all()
		if len(rightEntries) > minInternal {
			moved := rightEntries[0]
			down := pentries[myIdx+1].key

			_, nodeNode := t.fetch(nodeID)
			niv := internalView[K]{nodeNode}
			nodeEntries := append(niv.all(), internalEntry[K]{key: down, child: moved.child})
			niv.setAll(nodeEntries)
			t.setParent(moved.child, nodeID)
			t.unpin(nodeID, true)

			newRight := rightEntries[1:]
			newSeparator := down
			if len(newRight) > 0 {
				newSeparator = newRight[0].key
				newRight[0].key = zeroKey[K]()
			}
			rv.setAll(newRight)
			t.unpin(rightID, true)

			pentries[myIdx+1].key = newSeparator
			piv.setAll(pentries)
			t.unpin(parentID, true)
			return
		}
		t.unpin(rightID, false)
	}

	if myIdx > 0 {
		leftID := pentries[myIdx-1].child
		_, leftNode := t.fetch(leftID)
		_, nodeNode := t.fetch(nodeID)
		lv := internalView[K]{leftNode}
		niv := internalView[K]{nodeNode}
		nodeEntries := niv.all()
		if len(nodeEntries) > 0 {
			nodeEntries[0].key = pentries[myIdx].key
		}
		merged := append(lv.all(), nodeEntries...)
		lv.setAll(merged)
		for _, e := range nodeEntries {
			t.setParent(e.child, leftID)
		}
		t.unpin(leftID, true)
		t.unpin(nodeID, false)
		t.bp.DeletePage(t.ident(nodeID))

		pentries = append(pentries[:myIdx], pentries[myIdx+1:]...)
		piv.setAll(pentries)
		t.unpin(parentID, true)
		t.fixParentAfterRemoval(parentID, path[:len(path)-1])
		return
	}

	rightID := pentries[myIdx+1].child
	_, rightNode := t.fetch(rightID)
	_, nodeNode := t.fetch(nodeID)
	niv := internalView[K]{nodeNode}
	riv := internalView[K]{rightNode}
	rightEntries := riv.all()
	if len(rightEntries) > 0 {
		rightEntries[0].key = pentries[myIdx+1].key
	}
	merged := append(niv.all(), rightEntries...)
	niv.setAll(merged)
	for _, e := range rightEntries {
		t.setParent(e.child, nodeID)
	}
	t.unpin(nodeID, true)
	t.unpin(rightID, false)
	t.bp.DeletePage(t.ident(rightID))

	pentries = append(pentries[:myIdx+1], pentries[myIdx+2:]...)
	piv.setAll(pentries)
	t.unpin(parentID, true)
	t.fixParentAfterRemoval(parentID, path[:len(path)-1])
}

func childIndex[K Key](entries []internalEntry[K], id common.PageID) int {
	for i, e := range entries {
		if e.child == id {
			return i
		}
	}
	return -1
}
