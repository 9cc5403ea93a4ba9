// Package bufferpool implements the page cache for the column-store tree.
// Pages are pinned while referenced; an unpinned page may be evicted by the
// clock replacer when a frame is needed.
package bufferpool

import (
	"sync"

	"github.com/pkg/errors"
)

// FrameID is the type for frame id
type FrameID int

// PageID is the type for page id
type PageID int64

var (
	ErrPageNotFound     = errors.New("bufferpool: page not found")
	ErrNoVictimsAvail   = errors.New("bufferpool: no victims available")
	ErrPagePinned       = errors.New("bufferpool: pin count greater than 0")
	ErrOffsetOutOfRange = errors.New("bufferpool: offset out of range")
	ErrChecksumMismatch = errors.New("bufferpool: page checksum mismatch")
)

var pageSyncPool = sync.Pool{
	New: func() any {
		pg := new(Page)
		pg.id = INVALID_PAGE
		pg.isDirty = false
		pg.pinCount = 0
		return pg
	},
}

// BufferPool represents a buffer pool of pages
type BufferPool struct {
	mu sync.Mutex

	// the underlying storage
	diskManager DiskManager
	// the actual pages in the buffer pool
	pages []*Page
	// the replacer elects replacements when the buffer pool is full
	replacer *ClockReplacer
	// the list of free frames
	freeList []FrameID
	// maps page ids to frame ids; frame ids are the offset into pages
	pageTable map[PageID]FrameID
}

// NewBufferPool returns a buffer pool with maxSize frames over diskManager.
func NewBufferPool(maxSize int, diskManager DiskManager) *BufferPool {
	freeList := make([]FrameID, 0, maxSize)
	pages := make([]*Page, maxSize)
	for i := 0; i < maxSize; i++ {
		freeList = append(freeList, FrameID(i))
	}
	return &BufferPool{
		diskManager: diskManager,
		pages:       pages,
		replacer:    NewClockReplacer(maxSize),
		freeList:    freeList,
		pageTable:   make(map[PageID]FrameID),
	}
}

// FetchPage fetches the requested page from the buffer pool, pinning it.
// Every successful fetch must be paired with an UnpinPage.
func (b *BufferPool) FetchPage(pageID PageID) (*Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// if it is in the buffer pool already then just return it
	if frameID, ok := b.pageTable[pageID]; ok {
		page := b.pages[frameID]
		page.pinCount++
		b.replacer.Pin(frameID)
		return page, nil
	}

	// not in the buffer pool so try the free list or
	// the replacer will vote a page off the island
	frameID, isFromFreeList, err := b.getFrameID()
	if err != nil {
		return nil, err
	}

	if !isFromFreeList {
		// remove the page in the current frame, writing it out if dirty
		currentPage := b.pages[frameID]
		if currentPage != nil {
			if currentPage.isDirty {
				b.diskManager.WritePage(currentPage)
			}
			delete(b.pageTable, currentPage.id)
		}
	}

	// if we got to here, sorry, have to do an I/O
	page, err := b.diskManager.ReadPage(pageID)
	if err != nil {
		b.freeList = append(b.freeList, frameID)
		return nil, err
	}
	page.pinCount = 1
	b.pageTable[pageID] = frameID
	if b.pages[frameID] != nil {
		pageSyncPool.Put(b.pages[frameID])
	}
	b.pages[frameID] = page
	b.replacer.Pin(frameID)

	return page, nil
}

// UnpinPage unpins the target page from the buffer pool
func (b *BufferPool) UnpinPage(pageID PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return ErrPageNotFound
	}
	page := b.pages[frameID]
	page.DecPinCount()

	if page.pinCount <= 0 {
		b.replacer.Unpin(frameID)
	}
	return nil
}

// FlushPage flushes the target page to disk
func (b *BufferPool) FlushPage(pageID PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	page := b.pages[frameID]
	if err := b.diskManager.WritePage(page); err != nil {
		return false
	}
	page.isDirty = false
	return true
}

// NewPage allocates a new page in the buffer pool with the disk manager's help.
// The returned page is pinned.
func (b *BufferPool) NewPage() (*Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// get a free frame
	frameID, isFromFreeList, err := b.getFrameID()
	if err != nil {
		return nil, err
	}

	if !isFromFreeList {
		// remove the page in the current frame
		currentPage := b.pages[frameID]
		if currentPage != nil {
			if currentPage.isDirty {
				b.diskManager.WritePage(currentPage)
			}
			delete(b.pageTable, currentPage.id)
		}
	}

	// allocate a new page
	pageID, err := b.diskManager.AllocatePage()
	if err != nil {
		b.freeList = append(b.freeList, frameID)
		return nil, err
	}
	page := &Page{id: pageID, pinCount: 1}
	page.WritePageNumber(int64(pageID))
	page.WriteFreeSpaceOffset(int16(PAGE_SIZE))
	page.WriteNextPointer(INVALID_PAGE)
	page.WritePrevPointer(INVALID_PAGE)

	// update the frame table
	b.pageTable[pageID] = frameID
	if b.pages[frameID] != nil {
		pageSyncPool.Put(b.pages[frameID])
	}
	b.pages[frameID] = page

	return page, nil
}

// DeletePage deletes a page from the buffer pool
func (b *BufferPool) DeletePage(pageID PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return nil
	}
	page := b.pages[frameID]
	if page.pinCount > 0 {
		return ErrPagePinned
	}
	delete(b.pageTable, page.id)
	b.replacer.Pin(frameID)
	if err := b.diskManager.DeallocatePage(pageID); err != nil {
		return err
	}
	b.freeList = append(b.freeList, frameID)
	return nil
}

// FlushAllPages flushes all the pages in the buffer pool to disk.
func (b *BufferPool) FlushAllPages() {
	b.mu.Lock()
	ids := make([]PageID, 0, len(b.pageTable))
	for pageID := range b.pageTable {
		ids = append(ids, pageID)
	}
	b.mu.Unlock()
	for _, pageID := range ids {
		b.FlushPage(pageID)
	}
}

func (b *BufferPool) getFrameID() (FrameID, bool, error) {
	if len(b.freeList) > 0 {
		frameID, newFreeList := b.freeList[0], b.freeList[1:]
		b.freeList = newFreeList
		return frameID, true, nil
	}

	victim, err := b.replacer.Victim()
	return victim, false, err
}

// OnDiskSize exposes the on disk size of the backing store
// behind this buffer pool
func (b *BufferPool) OnDiskSize() int64 {
	return b.diskManager.FileSize()
}

// Close closes the buffer pool
func (b *BufferPool) Close() {
	b.diskManager.Close()
}
