package btree

import (
	"sort"
	"sync"

	"github.com/pagedb/pagedb/internal/assert"
	"github.com/pagedb/pagedb/internal/bufferpool"
	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/page"
)

// Tree is a disk-resident B+ tree index over one file in the buffer pool
// (spec.md §4.4). A single tree-wide mutex guards every operation — the
// spec permits but does not mandate crabbing ("at minimum a tree-wide
// mutex is a correct implementation").
type Tree[K Key] struct {
	mu sync.Mutex

	bp     *bufferpool.Manager
	fileID common.FileID

	rootPageID  common.PageID
	internalMax int
	leafMax     int
}

// New returns an empty tree. internalMax bounds an internal node's child
// count; leafMax bounds a leaf's entry count plus one overflow slot
// (spec.md §3: "Leaf max entries is max-1").
func New[K Key](bp *bufferpool.Manager, fileID common.FileID, internalMax, leafMax int) *Tree[K] {
	assert.Assert(internalMax >= 3, "btree: internal_max_size must be at least 3")
	assert.Assert(leafMax >= 2, "btree: leaf_max_size must be at least 2")
	return &Tree[K]{
		bp:          bp,
		fileID:      fileID,
		rootPageID:  common.InvalidPageID,
		internalMax: internalMax,
		leafMax:     leafMax,
	}
}

func (t *Tree[K]) ident(id common.PageID) common.PageIdentity {
	return common.PageIdentity{FileID: t.fileID, PageID: id}
}

func (t *Tree[K]) fetch(id common.PageID) (*page.Page, page.Node) {
	pg, ok := t.bp.FetchPage(t.ident(id))
	assert.Assert(ok, "btree: failed to fetch page %d", id)
	return pg, page.Node{Raw: pg.GetData()}
}

func (t *Tree[K]) unpin(id common.PageID, dirty bool) {
	t.bp.UnpinPage(t.ident(id), dirty)
}

func (t *Tree[K]) newLeaf(parent common.PageID) (common.PageID, *page.Page, page.Node) {
	ident, pg, ok := t.bp.NewPage(t.fileID)
	assert.Assert(ok, "btree: buffer pool exhausted allocating a leaf")
	n := page.Node{Raw: pg.GetData()}
	n.InitLeaf(ident.PageID, parent, t.leafMax)
	return ident.PageID, pg, n
}

func (t *Tree[K]) newInternal(parent common.PageID) (common.PageID, *page.Page, page.Node) {
	ident, pg, ok := t.bp.NewPage(t.fileID)
	assert.Assert(ok, "btree: buffer pool exhausted allocating an internal node")
	n := page.Node{Raw: pg.GetData()}
	n.InitInternal(ident.PageID, parent, t.internalMax)
	return ident.PageID, pg, n
}

// descend walks from the root to the leaf that would contain k, returning
// the leaf pinned in the buffer pool and the chain of internal page ids
// visited above it (root first).
func (t *Tree[K]) descend(k K) (leafID common.PageID, leafPage *page.Page, path []common.PageID) {
	id := t.rootPageID
	for {
		pg, n := t.fetch(id)
		if n.IsLeaf() {
			return id, pg, path
		}
		iv := internalView[K]{n}
		child := iv.findChild(k)
		t.unpin(id, false)
		path = append(path, id)
		id = child
	}
}

// Get returns the value mapped to k, if present.
func (t *Tree[K]) Get(k K) (common.RID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rootPageID == common.InvalidPageID {
		return common.RID{}, false
	}

	leafID, leafPage, _ := t.descend(k)
	lv := leafView[K]{page.Node{Raw: leafPage.GetData()}}
	entries := lv.all()
	i := sort.Search(len(entries), func(i int) bool { return entries[i].key >= k })
	defer t.unpin(leafID, false)

	if i < len(entries) && entries[i].key == k {
		return entries[i].rid, true
	}
	return common.RID{}, false
}

// Insert adds (k, v). Returns false without modifying the tree if k is
// already present (spec.md §4.4 "Duplicate policy").
func (t *Tree[K]) Insert(k K, v common.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rootPageID == common.InvalidPageID {
		id, pg, _ := t.newLeaf(common.InvalidPageID)
		lv := leafView[K]{page.Node{Raw: pg.GetData()}}
		lv.setAll([]leafEntry[K]{{key: k, rid: v}})
		t.rootPageID = id
		t.unpin(id, true)
		return true
	}

	leafID, leafPage, path := t.descend(k)
	n := page.Node{Raw: leafPage.GetData()}
	lv := leafView[K]{n}
	entries := lv.all()

	i := sort.Search(len(entries), func(i int) bool { return entries[i].key >= k })
	if i < len(entries) && entries[i].key == k {
		t.unpin(leafID, false)
		return false
	}

	entries = append(entries, leafEntry[K]{})
	copy(entries[i+1:], entries[i:])
	entries[i] = leafEntry[K]{key: k, rid: v}

	if len(entries) <= t.leafMax-1 {
		lv.setAll(entries)
		t.unpin(leafID, true)
		return true
	}

	t.splitLeaf(leafID, n, entries, path)
	return true
}

// splitLeaf divides an overflowing leaf's entries (already containing the
// newly inserted key) between the original page and a new right sibling,
// then propagates a separator up to the parent (spec.md §4.4 Insertion
// steps 3-4), grounded on original_source's MoveHalfTo.
func (t *Tree[K]) splitLeaf(leafID common.PageID, n page.Node, entries []leafEntry[K], path []common.PageID) {
	mid := len(entries) / 2
	left, right := entries[:mid], entries[mid:]

	rightID, _, rightNode := t.newLeaf(n.ParentPageID())
	rightNode.SetNextPageID(n.NextPageID())
	n.SetNextPageID(rightID)

	leafView[K]{n}.setAll(left)
	leafView[K]{rightNode}.setAll(right)

	separator := right[0].key

	t.unpin(leafID, true)
	t.unpin(rightID, true)

	t.insertIntoParent(path, leafID, separator, rightID)
}

// insertIntoParent inserts the separator key produced by splitting
// leftID into the node at the top of path, recursing upward through
// further splits as needed (spec.md §4.4 step 4). An empty path means
// leftID was the root; a new root is allocated.
func (t *Tree[K]) insertIntoParent(path []common.PageID, leftID common.PageID, separator K, rightID common.PageID) {
	if len(path) == 0 {
		rootID, _, rootNode := t.newInternal(common.InvalidPageID)
		iv := internalView[K]{rootNode}
		iv.setAll([]internalEntry[K]{{child: leftID}, {key: separator, child: rightID}})
		t.unpin(rootID, true)

		t.setParent(leftID, rootID)
		t.setParent(rightID, rootID)
		t.rootPageID = rootID
		return
	}

	parentID := path[len(path)-1]
	parentPage, parentNode := t.fetch(parentID)
	iv := internalView[K]{parentNode}
	entries := iv.all()

	idx := iv.insertIndex(separator)
	entries = append(entries, internalEntry[K]{})
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = internalEntry[K]{key: separator, child: rightID}

	if len(entries) <= t.internalMax {
		iv.setAll(entries)
		t.unpin(parentID, true)
		t.setParent(rightID, parentID)
		return
	}

	t.splitInternal(parentID, parentNode, entries, path[:len(path)-1])
	_ = parentPage
}

// splitInternal divides an overflowing internal node's children between
// itself and a new right sibling, promoting the first key of the right
// half up to the grandparent (spec.md §4.4 step 4).
func (t *Tree[K]) splitInternal(nodeID common.PageID, n page.Node, entries []internalEntry[K], path []common.PageID) {
	mid := len(entries) / 2
	left, right := entries[:mid], entries[mid:]
	promoted := right[0].key
	right[0].key = zeroKey[K]() // slot 0's key is always unused

	rightID, _, rightNode := t.newInternal(n.ParentPageID())
	internalView[K]{n}.setAll(left)
	internalView[K]{rightNode}.setAll(right)

	for _, e := range right {
		t.setParent(e.child, rightID)
	}

	t.unpin(nodeID, true)
	t.unpin(rightID, true)

	t.insertIntoParent(path, nodeID, promoted, rightID)
}

func zeroKey[K Key]() K { var z K; return z }

// setParent updates a child's stored parent_page_id.
func (t *Tree[K]) setParent(childID, parentID common.PageID) {
	pg, n := t.fetch(childID)
	n.SetParentPageID(parentID)
	_ = pg
	t.unpin(childID, true)
}
