// Package disk implements the disk manager consumed by the buffer pool
// (spec.md §6): page-granular reads and writes against files, plus
// allocation/deallocation bookkeeping. It is adapted from the teacher's
// storage/disk package, swapping direct os.* calls for an afero.Fs so tests
// can run against an in-memory filesystem.
package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/pagedb/pagedb/internal/assert"
	"github.com/pagedb/pagedb/internal/common"
	"github.com/pagedb/pagedb/internal/page"
)

// ErrNoSuchPage is returned when a page past the allocated extent of a file
// is requested.
var ErrNoSuchPage = errors.New("disk: no such page")

// Manager is a common.DiskManager backed by an afero filesystem, one file
// per common.FileID.
type Manager struct {
	fs  afero.Fs
	dir string

	mu           sync.RWMutex
	fileIDToPath map[common.FileID]string
	nextPageID   map[common.FileID]common.PageID
	freeList     map[common.FileID][]common.PageID
}

var _ common.DiskManager[*page.Page] = (*Manager)(nil)

// New creates a disk manager rooted at dir; every registered file lives at
// dir/<name>, the name given to RegisterFile.
func New(fs afero.Fs, dir string) (*Manager, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("disk: creating data dir: %w", err)
	}
	return &Manager{
		fs:           fs,
		dir:          dir,
		fileIDToPath: map[common.FileID]string{},
		nextPageID:   map[common.FileID]common.PageID{},
		freeList:     map[common.FileID][]common.PageID{},
	}, nil
}

const fileFlags = os.O_RDWR | os.O_CREATE

// RegisterFile associates fileID with name, a file under the manager's data
// directory, creating the backing file if it does not exist.
func (m *Manager) RegisterFile(fileID common.FileID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fileIDToPath[fileID]; ok {
		return nil
	}

	path := filepath.Join(m.dir, name)
	f, err := m.fs.OpenFile(path, fileFlags, 0o644)
	if err != nil {
		return fmt.Errorf("disk: registering file %q: %w", name, err)
	}
	_ = f.Close()

	m.fileIDToPath[fileID] = path
	return nil
}

func (m *Manager) ReadPage(pg *page.Page, pageIdent common.PageIdentity) error {
	m.mu.RLock()
	path, ok := m.fileIDToPath[pageIdent.FileID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("disk: fileID %d not registered", pageIdent.FileID)
	}

	f, err := m.fs.Open(path)
	if err != nil {
		return fmt.Errorf("disk: opening %q: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, page.Size)
	offset := int64(pageIdent.PageID) * int64(page.Size)
	// io.ReaderAt guarantees err == nil only when n == len(buf); a short
	// read (e.g. a truncated file) must not be treated as a full page.
	if _, err := f.ReadAt(buf, offset); err != nil {
		return errors.Join(err, ErrNoSuchPage)
	}

	pg.SetData(buf)
	return nil
}

func (m *Manager) WritePage(pg *page.Page, pageIdent common.PageIdentity) error {
	m.mu.RLock()
	path, ok := m.fileIDToPath[pageIdent.FileID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("disk: fileID %d not registered", pageIdent.FileID)
	}

	f, err := m.fs.OpenFile(path, fileFlags, 0o644)
	if err != nil {
		return fmt.Errorf("disk: opening %q: %w", path, err)
	}
	defer f.Close()

	offset := int64(pageIdent.PageID) * int64(page.Size)
	if _, err := f.WriteAt(pg.GetData(), offset); err != nil {
		return fmt.Errorf("disk: writing %q at %d: %w", path, offset, err)
	}
	return nil
}

// AllocatePage hands out the next page id for a file, reusing a
// deallocated one if the free list is non-empty.
func (m *Manager) AllocatePage(fileID common.FileID) (common.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fileIDToPath[fileID]; !ok {
		return common.InvalidPageID, fmt.Errorf("disk: fileID %d not registered", fileID)
	}

	if free := m.freeList[fileID]; len(free) > 0 {
		id := free[len(free)-1]
		m.freeList[fileID] = free[:len(free)-1]
		return id, nil
	}

	id := m.nextPageID[fileID]
	m.nextPageID[fileID] = id + 1
	return id, nil
}

// DeallocatePage returns a page id to its file's free list for reuse.
func (m *Manager) DeallocatePage(pageIdent common.PageIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fileIDToPath[pageIdent.FileID]; !ok {
		return fmt.Errorf("disk: fileID %d not registered", pageIdent.FileID)
	}
	assert.Assert(pageIdent.PageID >= 0, "deallocating invalid page id")
	m.freeList[pageIdent.FileID] = append(m.freeList[pageIdent.FileID], pageIdent.PageID)
	return nil
}
