package disk

import (
	"fmt"
	"sync"

	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/page"
)

// InMemoryManager is a common.DiskManager with no backing filesystem, used
// by unit tests that want to exercise the buffer pool's eviction/flush path
// without touching afero, mirroring the teacher's disk.InMemoryManager.
type InMemoryManager struct {
	mu    sync.Mutex
	pages map[common.PageIdentity][page.Size]byte

	nextPageID map[common.FileID]common.PageID
	freeList   map[common.FileID][]common.PageID
}

var _ common.DiskManager[*page.Page] = (*InMemoryManager)(nil)

func NewInMemoryManager() *InMemoryManager {
	return &InMemoryManager{
		pages:      map[common.PageIdentity][page.Size]byte{},
		nextPageID: map[common.FileID]common.PageID{},
		freeList:   map[common.FileID][]common.PageID{},
	}
}

func (m *InMemoryManager) ReadPage(pg *page.Page, pageIdent common.PageIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.pages[pageIdent]
	if !ok {
		return fmt.Errorf("disk: %w: %v", ErrNoSuchPage, pageIdent)
	}
	pg.SetData(data[:])
	return nil
}

func (m *InMemoryManager) WritePage(pg *page.Page, pageIdent common.PageIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var buf [page.Size]byte
	copy(buf[:], pg.GetData())
	m.pages[pageIdent] = buf
	return nil
}

func (m *InMemoryManager) AllocatePage(fileID common.FileID) (common.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if free := m.freeList[fileID]; len(free) > 0 {
		id := free[len(free)-1]
		m.freeList[fileID] = free[:len(free)-1]
		return id, nil
	}

	id := m.nextPageID[fileID]
	m.nextPageID[fileID] = id + 1
	return id, nil
}

func (m *InMemoryManager) DeallocatePage(pageIdent common.PageIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pages, pageIdent)
	m.freeList[pageIdent.FileID] = append(m.freeList[pageIdent.FileID], pageIdent.PageID)
	return nil
}
