// Package common holds the identifiers and narrow interfaces shared by the
// disk manager, buffer pool, B+ tree, and lock manager, mirroring the
// teacher's pkg/common package: small value types with no behavior, kept in
// one place so every subsystem shares one definition of each.
package common

import "fmt"

// PageID identifies a page within one file. INVALID_PAGE_ID (spec.md §6)
// marks an unbound page.
type PageID int64

// InvalidPageID is the sentinel for "no page" (spec.md §6: INVALID_PAGE_ID = -1).
const InvalidPageID PageID = -1

// FileID identifies the file (table heap or index) a page belongs to.
type FileID uint64

// PageIdentity names a page uniquely across every file the engine manages.
type PageIdentity struct {
	FileID FileID
	PageID PageID
}

func (p PageIdentity) String() string {
	return fmt.Sprintf("{file:%d page:%d}", p.FileID, p.PageID)
}

// TxnID identifies a transaction. INVALID_TXN_ID (spec.md §6) marks "no
// transaction".
type TxnID int64

// InvalidTxnID is the sentinel transaction id (spec.md §6: INVALID_TXN_ID = -1).
const InvalidTxnID TxnID = -1

// RID is an opaque 8-byte row identifier (spec.md §4.4: "RIDs are opaque
// 8-byte values"). The slot/page split mirrors the teacher's RID shape in
// src/storage/indexes/hash/hash.go.
type RID struct {
	PageID PageID
	SlotID uint32
}

func (r RID) Bytes() [8]byte {
	var b [8]byte
	putUint32(b[0:4], uint32(r.PageID))
	putUint32(b[4:8], r.SlotID)
	return b
}

func RIDFromBytes(b [8]byte) RID {
	return RID{
		PageID: PageID(getUint32(b[0:4])),
		SlotID: getUint32(b[4:8]),
	}
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Page is the narrow behavior the disk manager and buffer pool need from a
// page, mirroring the teacher's common.Page interface.
type Page interface {
	GetData() []byte
	SetData(d []byte)
}

// DiskManager is consumed by the buffer pool (spec.md §6). T is the
// concrete page type so callers avoid a type assertion on every read.
type DiskManager[T Page] interface {
	ReadPage(page T, pageIdent PageIdentity) error
	WritePage(page T, pageIdent PageIdentity) error
	AllocatePage(fileID FileID) (PageID, error)
	DeallocatePage(pageIdent PageIdentity) error
}
