package bufferpool

import (
	"os"

	"github.com/cespare/xxhash"
	"github.com/pkg/errors"
)

// OnDiskDiskManager is a file-backed implementation of the DiskManager
// interface. Every page carries an xxhash checksum in its header, stamped on
// write and verified on read.
type OnDiskDiskManager struct {
	fd       *os.File
	numPages int
}

// NewOnDiskDiskManager opens or creates the backing file at path.
func NewOnDiskDiskManager(path string) (*OnDiskDiskManager, error) {
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening data file")
	}
	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, errors.Wrap(err, "stat data file")
	}
	return &OnDiskDiskManager{
		fd:       fd,
		numPages: int(fi.Size()) / PAGE_SIZE,
	}, nil
}

// pageChecksum computes the checksum of a page image with the checksum
// field itself zeroed.
func pageChecksum(page *Page) uint64 {
	saved := page.ReadChecksum()
	page.WriteChecksum(0)
	sum := xxhash.Sum64(page.data[:])
	page.WriteChecksum(saved)
	return sum
}

// ReadPage reads a page from the file and verifies its checksum.
func (d *OnDiskDiskManager) ReadPage(pageID PageID) (*Page, error) {
	if pageID < 0 || int(pageID) >= d.numPages {
		return nil, errors.Wrapf(ErrPageNotFound, "page %d", pageID)
	}
	page := pageSyncPool.Get().(*Page)
	if page == (*Page)(nil) {
		page = pageSyncPool.New().(*Page)
	}
	page.id = pageID
	page.pinCount = 0
	page.isDirty = false
	page.writeGen = 0

	offset := int64(pageID) * int64(PAGE_SIZE)
	if _, err := d.fd.ReadAt(page.data[:], offset); err != nil {
		return nil, errors.Wrapf(err, "reading page %d", pageID)
	}
	if page.ReadChecksum() != pageChecksum(page) {
		return nil, errors.Wrapf(ErrChecksumMismatch, "page %d", pageID)
	}
	return page, nil
}

// WritePage stamps the page checksum and writes the page to the file.
func (d *OnDiskDiskManager) WritePage(page *Page) error {
	if page.ID() < 0 || int(page.ID()) >= d.numPages {
		return errors.Wrapf(ErrPageNotFound, "page %d", page.ID())
	}
	page.WriteChecksum(pageChecksum(page))
	offset := int64(page.ID()) * int64(PAGE_SIZE)
	if _, err := d.fd.WriteAt(page.data[:], offset); err != nil {
		return errors.Wrapf(err, "writing page %d", page.ID())
	}
	return nil
}

// AllocatePage extends the file by one checksummed zero page.
func (d *OnDiskDiskManager) AllocatePage() (PageID, error) {
	pageID := PageID(d.numPages)
	page := NewPage(pageID, 0)
	page.WriteChecksum(pageChecksum(page))
	offset := int64(pageID) * int64(PAGE_SIZE)
	if _, err := d.fd.WriteAt(page.data[:], offset); err != nil {
		return INVALID_PAGE, errors.Wrap(err, "extending data file")
	}
	d.numPages++
	return pageID, nil
}

// DeallocatePage is a no-op; page slots are not reused.
func (d *OnDiskDiskManager) DeallocatePage(pageID PageID) error {
	return nil
}

// FileSize returns the size of the backing file.
func (d *OnDiskDiskManager) FileSize() int64 {
	fi, err := d.fd.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

// Close closes the backing file.
func (d *OnDiskDiskManager) Close() {
	d.fd.Close()
}
