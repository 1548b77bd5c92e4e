package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"minidb/pkg/types"
)

// MaxPages bounds the page_id search space used by GetFreePage, which
// iterates page_id 0..MaxPages looking for a page with room. The sequential
// scan is bounded by PageCount instead.
const MaxPages = 1000

// ErrNoFreePage is returned by GetFreePage when every page_id in
// 0..MaxPages is full.
var ErrNoFreePage = errors.New("no free page available")

type bufferKey struct {
	table string
	id    types.PageID
}

// BufferPool is the unbounded (table, page_id) -> *Page cache described in
// the data model: it loads pages from disk on miss and writes them back on
// demand. It never evicts; capacity is bounded only by process memory.
type BufferPool struct {
	mu      sync.Mutex
	dataDir string
	disks   map[string]*DiskManager
	pages   map[bufferKey]*Page
}

// NewBufferPool creates a pool rooted at dataDir; table files are opened
// lazily as <dataDir>/<table>.table on first access.
func NewBufferPool(dataDir string) *BufferPool {
	return &BufferPool{
		dataDir: dataDir,
		disks:   make(map[string]*DiskManager),
		pages:   make(map[bufferKey]*Page),
	}
}

func (bp *BufferPool) diskFor(table string) (*DiskManager, error) {
	if dm, ok := bp.disks[table]; ok {
		return dm, nil
	}
	path := filepath.Join(bp.dataDir, table+".table")
	dm, err := NewDiskManager(path)
	if err != nil {
		return nil, err
	}
	bp.disks[table] = dm
	return dm, nil
}

// GetPage loads a page, checking the cache first. A cache miss triggers a
// disk read; if the page has never been written, the read fails and the
// error propagates. GetFreePage does not go through GetPage (it reads the
// disk itself and creates the missing page), and the sequential scan only
// requests ids below PageCount.
func (bp *BufferPool) GetPage(table string, id types.PageID) (*Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := bufferKey{table, id}
	if page, ok := bp.pages[key]; ok {
		return page, nil
	}

	dm, err := bp.diskFor(table)
	if err != nil {
		return nil, err
	}
	page, err := dm.ReadPage(id)
	if err != nil {
		return nil, err
	}
	bp.pages[key] = page
	return page, nil
}

// GetFreePage returns a page with at least neededBytes+ItemPointerSize of
// free space, scanning page_id 0..MaxPages. Cached pages are checked
// directly; an uncached id is loaded from disk, and a load failure (e.g.
// past EOF) is treated as "page does not exist yet" rather than fatal: a
// fresh Table page is created and cached at that id instead. That fresh
// page is returned without comparing its free space to neededBytes, so a
// request larger than an empty page still gets a page back.
func (bp *BufferPool) GetFreePage(table string, neededBytes int) (*Page, error) {
	needed := neededBytes + ItemPointerSize

	bp.mu.Lock()
	defer bp.mu.Unlock()

	dm, err := bp.diskFor(table)
	if err != nil {
		return nil, err
	}

	for id := types.PageID(0); id < MaxPages; id++ {
		key := bufferKey{table, id}
		if page, ok := bp.pages[key]; ok {
			if page.FreeSpace() >= needed {
				return page, nil
			}
			continue
		}

		page, err := dm.ReadPage(id)
		if err != nil {
			page = NewPage(id, PageTypeTable)
			bp.pages[key] = page
			return page, nil
		}
		bp.pages[key] = page
		if page.FreeSpace() >= needed {
			return page, nil
		}
	}

	return nil, ErrNoFreePage
}

// SavePage writes a cached page back to its slot in its table's file.
func (bp *BufferPool) SavePage(table string, id types.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := bufferKey{table, id}
	page, ok := bp.pages[key]
	if !ok {
		return fmt.Errorf("save page %d of %q: not cached", id, table)
	}
	dm, err := bp.diskFor(table)
	if err != nil {
		return err
	}
	return dm.WritePage(page)
}

// PageCount returns how many page_id slots a table currently spans: the
// greater of what's been synced to disk and what's been allocated in the
// cache but not yet saved, so a sequential scan sees pages written this
// session even before SavePage flushes them.
func (bp *BufferPool) PageCount(table string) (uint32, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	dm, err := bp.diskFor(table)
	if err != nil {
		return 0, err
	}
	n, err := dm.NumPages()
	if err != nil {
		return 0, err
	}
	for key := range bp.pages {
		if key.table == table && uint32(key.id)+1 > n {
			n = uint32(key.id) + 1
		}
	}
	return n, nil
}

// Close closes every backing file the pool has opened.
func (bp *BufferPool) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	var firstErr error
	for _, dm := range bp.disks {
		if err := dm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
