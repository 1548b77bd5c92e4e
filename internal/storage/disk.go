package storage

import (
	"fmt"
	"os"
	"sync"

	"minidb/pkg/types"
)

// DiskManager reads and writes pages for a single table's file. There is no
// file header: file offset k*PageSize always stores the page with
// page_id == k, and the page count is derived from the file size.
type DiskManager struct {
	mu       sync.Mutex
	file     *os.File
	filePath string
}

// NewDiskManager opens (creating if necessary) the backing file for one
// table.
func NewDiskManager(path string) (*DiskManager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open table file %s: %w", path, err)
	}
	return &DiskManager{file: file, filePath: path}, nil
}

func (dm *DiskManager) pageOffset(pageID types.PageID) int64 {
	return int64(pageID) * int64(PageSize)
}

// NumPages returns how many whole pages are currently stored in the file.
func (dm *DiskManager) NumPages() (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	info, err := dm.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat table file %s: %w", dm.filePath, err)
	}
	return uint32(info.Size() / PageSize), nil
}

// ReadPage reads one page from disk. It returns an error (not necessarily
// fatal to the caller) if pageID is past the end of the file.
func (dm *DiskManager) ReadPage(pageID types.PageID) (*Page, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	data := make([]byte, PageSize)
	n, err := dm.file.ReadAt(data, dm.pageOffset(pageID))
	if err != nil || n != PageSize {
		return nil, fmt.Errorf("read page %d from %s: %w", pageID, dm.filePath, err)
	}
	return DeserializePage(data)
}

// WritePage writes a page back to its slot in the file.
func (dm *DiskManager) WritePage(page *Page) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	data := page.Serialize()
	n, err := dm.file.WriteAt(data, dm.pageOffset(page.PageID()))
	if err != nil || n != PageSize {
		return fmt.Errorf("write page %d to %s: %w", page.PageID(), dm.filePath, err)
	}
	return nil
}

// Sync flushes pending writes to disk.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.Sync()
}

// Close closes the backing file.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.Close()
}
