// Package bufferpool implements the fixed-size page cache over a disk
// manager (spec.md §4.3), adapted from the teacher's src/bufferpool
// package: one mutex guarding a frame array, a page table, a free list,
// and a replacer. The teacher's WAL-aware members (dirty page table,
// active transaction table, log-aware MarkDirty helpers) are dropped —
// they exist to support ARIES recovery, an explicit spec.md Non-goal; see
// DESIGN.md. The page table itself is an internal/hashtable.Table, per
// spec.md §1/§2's "the extendible hash table is used internally as the
// page table."
package bufferpool

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/maphash"
	"sync"

	"github.com/pagedb/pagedb/internal/applog"
	"github.com/pagedb/pagedb/internal/assert"
	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/hashtable"
	"github.com/pagedb/pagedb/internal/page"
	"github.com/pagedb/pagedb/internal/replacer"
)

// ErrNoSpaceLeft is returned when every frame is pinned and no victim can
// be evicted (spec.md §7: "Resource exhaustion").
var ErrNoSpaceLeft = errors.New("bufferpool: no free frame available")

// pageTableBuckets is the extendible hash table's per-bucket capacity for
// the page table. The directory grows on its own as pages are added, so
// this only bounds how eagerly it splits.
const pageTableBuckets = 4

func hashPageIdentity(seed maphash.Seed, ident common.PageIdentity) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ident.FileID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ident.PageID))
	return hashtable.HashBytes(seed, buf[:])
}

// Manager is the buffer pool (spec.md §4.3). All public methods acquire mu.
type Manager struct {
	mu sync.Mutex

	poolSize    int
	frames      []page.Page
	pinCounts   []int
	frameIdent  []common.PageIdentity
	pageTable   *hashtable.Table[common.PageIdentity, replacer.FrameID]
	freeList    []replacer.FrameID
	replacer    *replacer.LRUK
	diskManager common.DiskManager[*page.Page]

	nextPageID map[common.FileID]common.PageID

	logger applog.Logger
}

// New creates a buffer pool of poolSize frames over diskManager, evicting
// via an LRU-K replacer with history depth k.
func New(poolSize int, k int, diskManager common.DiskManager[*page.Page]) *Manager {
	assert.Assert(poolSize > 0, "bufferpool: pool size must be positive")

	free := make([]replacer.FrameID, poolSize)
	for i := range free {
		free[i] = replacer.FrameID(i)
	}

	return &Manager{
		poolSize:    poolSize,
		frames:      make([]page.Page, poolSize),
		pinCounts:   make([]int, poolSize),
		frameIdent:  make([]common.PageIdentity, poolSize),
		pageTable:   hashtable.New[common.PageIdentity, replacer.FrameID](pageTableBuckets, hashPageIdentity),
		freeList:    free,
		replacer:    replacer.New(k),
		diskManager: diskManager,
		nextPageID:  map[common.FileID]common.PageID{},
		logger:      applog.Noop(),
	}
}

// SetLogger overrides the default no-op logger.
func (m *Manager) SetLogger(l applog.Logger) { m.logger = l }

// reserveFrame returns a frame to bind a new page to: a free frame if one
// exists, else an evicted victim (written back first if dirty). It returns
// ErrNoSpaceLeft if no frame is evictable, or the write-back error.
func (m *Manager) reserveFrame() (replacer.FrameID, error) {
	if len(m.freeList) > 0 {
		f := m.freeList[len(m.freeList)-1]
		m.freeList = m.freeList[:len(m.freeList)-1]
		return f, nil
	}

	victimFrame, ok := m.replacer.Evict()
	if !ok {
		return 0, ErrNoSpaceLeft
	}

	victimIdent := m.identityOf(victimFrame)
	assert.Assert(m.pinCounts[victimFrame] == 0, "bufferpool: victim frame %d is pinned", victimFrame)

	victimPage := &m.frames[victimFrame]
	if victimPage.IsDirty() {
		if err := m.diskManager.WritePage(victimPage, victimIdent); err != nil {
			return 0, fmt.Errorf("bufferpool: flushing victim %v: %w", victimIdent, err)
		}
	}

	m.pageTable.Remove(victimIdent)
	victimPage.Reset()
	m.logger.Debugw("evicted page", "page", victimIdent, "frame", victimFrame)
	return victimFrame, nil
}

// identityOf returns the page identity bound to frame, tracked alongside
// pinCounts since the page table itself is only keyed the other way
// around.
func (m *Manager) identityOf(frame replacer.FrameID) common.PageIdentity {
	return m.frameIdent[frame]
}

// NewPage allocates a fresh page_id in fileID and pins it into a frame.
// Returns ok=false if no frame could be freed (spec.md §4.3).
func (m *Manager) NewPage(fileID common.FileID) (common.PageIdentity, *page.Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame, err := m.reserveFrame()
	if err != nil {
		return common.PageIdentity{}, nil, false
	}

	pageID, err := m.diskManager.AllocatePage(fileID)
	if err != nil {
		m.freeList = append(m.freeList, frame)
		return common.PageIdentity{}, nil, false
	}

	ident := common.PageIdentity{FileID: fileID, PageID: pageID}
	pg := &m.frames[frame]
	pg.Reset()

	m.pageTable.Insert(ident, frame)
	m.frameIdent[frame] = ident
	m.pinCounts[frame] = 1
	m.replacer.RecordAccess(frame)
	m.replacer.SetEvictable(frame, false)

	return ident, pg, true
}

// FetchPage returns the page, resident or loaded from disk, pinned for the
// caller. Returns ok=false if it is absent and no frame could be freed.
func (m *Manager) FetchPage(ident common.PageIdentity) (*page.Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame, ok := m.pageTable.Find(ident); ok {
		m.pinCounts[frame]++
		m.replacer.RecordAccess(frame)
		m.replacer.SetEvictable(frame, false)
		return &m.frames[frame], true
	}

	frame, err := m.reserveFrame()
	if err != nil {
		return nil, false
	}

	pg := &m.frames[frame]
	if err := m.diskManager.ReadPage(pg, ident); err != nil {
		m.freeList = append(m.freeList, frame)
		return nil, false
	}

	m.pageTable.Insert(ident, frame)
	m.frameIdent[frame] = ident
	m.pinCounts[frame] = 1
	m.replacer.RecordAccess(frame)
	m.replacer.SetEvictable(frame, false)

	return pg, true
}

// UnpinPage decrements pin_count, ORs in dirty, and marks the frame
// evictable once the count reaches zero. Returns false if ident is
// unknown or already at zero pins (spec.md §4.3/§7).
func (m *Manager) UnpinPage(ident common.PageIdentity, dirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame, ok := m.pageTable.Find(ident)
	if !ok || m.pinCounts[frame] == 0 {
		return false
	}

	m.pinCounts[frame]--

	pg := &m.frames[frame]
	pg.SetDirty(dirty)

	if m.pinCounts[frame] == 0 {
		m.replacer.SetEvictable(frame, true)
	}
	return true
}

// FlushPage writes the page through to disk unconditionally and clears its
// dirty bit. Returns false if ident is not resident.
func (m *Manager) FlushPage(ident common.PageIdentity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked(ident)
}

func (m *Manager) flushLocked(ident common.PageIdentity) bool {
	frame, ok := m.pageTable.Find(ident)
	if !ok {
		return false
	}
	pg := &m.frames[frame]
	if err := m.diskManager.WritePage(pg, ident); err != nil {
		m.logger.Warnw("flush failed", "page", ident, "err", err)
		return false
	}
	pg.ClearDirty()
	return true
}

// FlushAllPages flushes every resident page.
func (m *Manager) FlushAllPages() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var idents []common.PageIdentity
	m.pageTable.Range(func(ident common.PageIdentity, _ replacer.FrameID) bool {
		idents = append(idents, ident)
		return true
	})
	for _, ident := range idents {
		m.flushLocked(ident)
	}
}

// DeletePage removes ident from the pool and deallocates it on disk.
// Returns true if absent already; false if currently pinned (spec.md
// §4.3).
func (m *Manager) DeletePage(ident common.PageIdentity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame, ok := m.pageTable.Find(ident)
	if !ok {
		return true
	}
	if m.pinCounts[frame] > 0 {
		return false
	}

	m.replacer.SetEvictable(frame, true)
	m.replacer.Remove(frame)
	m.pageTable.Remove(ident)
	m.frameIdent[frame] = common.PageIdentity{}

	pg := &m.frames[frame]
	pg.Reset()
	m.freeList = append(m.freeList, frame)

	if err := m.diskManager.DeallocatePage(ident); err != nil {
		m.logger.Warnw("deallocate failed", "page", ident, "err", err)
	}
	return true
}

// PoolSize returns the number of frames the pool manages.
func (m *Manager) PoolSize() int { return m.poolSize }
