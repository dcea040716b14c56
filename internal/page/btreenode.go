package page

import (
	"encoding/binary"

	"github.com/pagedb/pagedb/internal/common"
)

// NodeType discriminates the B+ tree page variants sharing one header
// (spec.md §6: "Every page starts with a 24-byte header shared by B+ tree
// nodes"; spec.md §9: "model as a tagged variant discriminated by
// page_type").
type NodeType uint32

const (
	NodeInvalid NodeType = iota
	NodeInternal
	NodeLeaf
)

// Header layout, spec.md §6:
//
//	page_type (4), size (4), max_size (4), parent_page_id (4), page_id (4), reserved (4)
//
// Leaf pages add next_page_id (4) at offset 24.
const (
	offPageType   = 0
	offSize       = 4
	offMaxSize    = 8
	offParentID   = 12
	offPageID     = 16
	offReserved   = 20
	HeaderSize    = 24
	offNextPageID = HeaderSize
	LeafHeaderSize = HeaderSize + 4
)

// Node is a thin view over a page's raw bytes, exposing the shared header.
// Internal and leaf pages embed a Node and interpret the remaining bytes as
// their own entry array (spec.md §9: "Template-parameterize on key width
// only").
type Node struct {
	Raw []byte
}

func (n Node) PageType() NodeType {
	return NodeType(binary.LittleEndian.Uint32(n.Raw[offPageType:]))
}

func (n Node) SetPageType(t NodeType) {
	binary.LittleEndian.PutUint32(n.Raw[offPageType:], uint32(t))
}

func (n Node) Size() int {
	return int(int32(binary.LittleEndian.Uint32(n.Raw[offSize:])))
}

func (n Node) SetSize(s int) {
	binary.LittleEndian.PutUint32(n.Raw[offSize:], uint32(int32(s)))
}

func (n Node) MaxSize() int {
	return int(int32(binary.LittleEndian.Uint32(n.Raw[offMaxSize:])))
}

func (n Node) SetMaxSize(s int) {
	binary.LittleEndian.PutUint32(n.Raw[offMaxSize:], uint32(int32(s)))
}

func (n Node) ParentPageID() common.PageID {
	return common.PageID(int32(binary.LittleEndian.Uint32(n.Raw[offParentID:])))
}

func (n Node) SetParentPageID(id common.PageID) {
	binary.LittleEndian.PutUint32(n.Raw[offParentID:], uint32(int32(id)))
}

func (n Node) PageID() common.PageID {
	return common.PageID(int32(binary.LittleEndian.Uint32(n.Raw[offPageID:])))
}

func (n Node) SetPageID(id common.PageID) {
	binary.LittleEndian.PutUint32(n.Raw[offPageID:], uint32(int32(id)))
}

func (n Node) IsLeaf() bool {
	return n.PageType() == NodeLeaf
}

func (n Node) NextPageID() common.PageID {
	return common.PageID(int32(binary.LittleEndian.Uint32(n.Raw[offNextPageID:])))
}

func (n Node) SetNextPageID(id common.PageID) {
	binary.LittleEndian.PutUint32(n.Raw[offNextPageID:], uint32(int32(id)))
}

// InitLeaf tags a fresh page as an empty leaf by writing its header; the
// entry bytes are left as they are.
func (n Node) InitLeaf(pageID, parentID common.PageID, maxSize int) {
	n.SetPageType(NodeLeaf)
	n.SetSize(0)
	n.SetMaxSize(maxSize)
	n.SetParentPageID(parentID)
	n.SetPageID(pageID)
	n.SetNextPageID(common.InvalidPageID)
}

// InitInternal tags a fresh page as an empty internal node by writing its
// header; the entry bytes are left as they are.
func (n Node) InitInternal(pageID, parentID common.PageID, maxSize int) {
	n.SetPageType(NodeInternal)
	n.SetSize(0)
	n.SetMaxSize(maxSize)
	n.SetParentPageID(parentID)
	n.SetPageID(pageID)
}

// EntriesOffset returns the byte offset at which the (key, value) array
// begins for this node's variant.
func (n Node) EntriesOffset() int {
	if n.IsLeaf() {
		return LeafHeaderSize
	}
	return HeaderSize
}
