// Package btree implements a disk-resident B+ tree index (spec.md §4.4)
// keyed by a fixed-width generic key, every node access routed through the
// buffer pool the way the teacher's original_source leaf page
// (b_plus_tree_leaf_page.cpp) routes every mutation through its own
// frame's latch. Node headers reuse internal/page's 24-byte layout
// (spec.md §6); this package owns only the entry-array codec and the
// tree-shaped algorithms (search, split, redistribute, coalesce).
package btree

import (
	"encoding/binary"

	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/page"
)

// Key is a fixed-width, totally ordered key. Restricting to integer types
// keeps the on-disk encoding a plain 8-byte little-endian word, matching
// spec.md §3's "fixed-width generic keys" without reflection.
type Key interface {
	~int64 | ~uint64 | ~int32 | ~uint32
}

const (
	leafEntrySize     = 8 + 8 // key + RID
	internalEntrySize = 8 + 4 // key + child page id (4 bytes, matching the header's page_id width)
)

type leafEntry[K Key] struct {
	key K
	rid common.RID
}

type internalEntry[K Key] struct {
	key   K // unused at index 0
	child common.PageID
}

func encodeKey[K Key](k K) uint64 { return uint64(k) }
func decodeKey[K Key](u uint64) K { return K(u) }

// leafView interprets a node's raw bytes as a leaf's (key, RID) array.
type leafView[K Key] struct{ n page.Node }

func (l leafView[K]) entryOffset(i int) int {
	return l.n.EntriesOffset() + i*leafEntrySize
}

func (l leafView[K]) at(i int) leafEntry[K] {
	off := l.entryOffset(i)
	key := decodeKey[K](binary.LittleEndian.Uint64(l.n.Raw[off:]))
	var ridBytes [8]byte
	copy(ridBytes[:], l.n.Raw[off+8:off+16])
	return leafEntry[K]{key: key, rid: common.RIDFromBytes(ridBytes)}
}

func (l leafView[K]) setAt(i int, e leafEntry[K]) {
	off := l.entryOffset(i)
	binary.LittleEndian.PutUint64(l.n.Raw[off:], encodeKey(e.key))
	ridBytes := e.rid.Bytes()
	copy(l.n.Raw[off+8:off+16], ridBytes[:])
}

func (l leafView[K]) all() []leafEntry[K] {
	out := make([]leafEntry[K], l.n.Size())
	for i := range out {
		out[i] = l.at(i)
	}
	return out
}

func (l leafView[K]) setAll(entries []leafEntry[K]) {
	l.n.SetSize(len(entries))
	for i, e := range entries {
		l.setAt(i, e)
	}
}

// internalView interprets a node's raw bytes as an internal node's
// (key, child_page_id) array; the key at index 0 is unused.
type internalView[K Key] struct{ n page.Node }

func (iv internalView[K]) entryOffset(i int) int {
	return iv.n.EntriesOffset() + i*internalEntrySize
}

func (iv internalView[K]) at(i int) internalEntry[K] {
	off := iv.entryOffset(i)
	key := decodeKey[K](binary.LittleEndian.Uint64(iv.n.Raw[off:]))
	child := common.PageID(int32(binary.LittleEndian.Uint32(iv.n.Raw[off+8:])))
	return internalEntry[K]{key: key, child: child}
}

func (iv internalView[K]) setAt(i int, e internalEntry[K]) {
	off := iv.entryOffset(i)
	binary.LittleEndian.PutUint64(iv.n.Raw[off:], encodeKey(e.key))
	binary.LittleEndian.PutUint32(iv.n.Raw[off+8:], uint32(int32(e.child)))
}

func (iv internalView[K]) all() []internalEntry[K] {
	out := make([]internalEntry[K], iv.n.Size())
	for i := range out {
		out[i] = iv.at(i)
	}
	return out
}

func (iv internalView[K]) setAll(entries []internalEntry[K]) {
	iv.n.SetSize(len(entries))
	for i, e := range entries {
		iv.setAt(i, e)
	}
}

// findChild returns the child page id to follow for key k: the rightmost
// entry whose key is <= k, or entry 0 if k is smaller than every separator
// (spec.md §4.4 Search: "binary-search the first key strictly greater than
// k; follow the child immediately to its left").
func (iv internalView[K]) findChild(k K) common.PageID {
	entries := iv.all()
	childIdx := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].key > k {
			break
		}
		childIdx = i
	}
	return entries[childIdx].child
}

// insertIndex returns the sorted position for key k among entries[1:]
// (entry 0's key slot is unused).
func (iv internalView[K]) insertIndex(k K) int {
	entries := iv.all()
	i := 1
	for i < len(entries) && entries[i].key < k {
		i++
	}
	return i
}
