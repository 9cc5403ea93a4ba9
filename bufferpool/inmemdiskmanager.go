package bufferpool

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// InMemDiskSpillingDiskManager is a memory implementation of the DiskManager
// interface that spills to a temp file when a page threshold is reached.
type InMemDiskSpillingDiskManager struct {
	// tracks the number of allocated pages
	numPages int

	// the number of pages we can hold before spilling
	thresholdPages int
	hasSpilled     bool
	fd             *os.File

	// the data buffer used until we spill
	data []byte
}

// NewInMemDiskSpillingDiskManager returns an in-memory disk manager that
// spills to disk past thresholdPages.
func NewInMemDiskSpillingDiskManager(thresholdPages int) *InMemDiskSpillingDiskManager {
	return &InMemDiskSpillingDiskManager{
		thresholdPages: thresholdPages,
		data:           make([]byte, 0),
	}
}

// ReadPage reads a page from the store
func (d *InMemDiskSpillingDiskManager) ReadPage(pageID PageID) (*Page, error) {
	if pageID < 0 || int(pageID) >= d.numPages {
		return nil, errors.Wrapf(ErrPageNotFound, "page %d", pageID)
	}
	offset := int(pageID) * PAGE_SIZE

	page := pageSyncPool.Get().(*Page)
	// if -cpuprofile is set for go test the line above can return a
	// weird nil-ish thing
	if page == (*Page)(nil) {
		page = pageSyncPool.New().(*Page)
	}
	page.id = pageID
	page.pinCount = 0
	page.isDirty = false
	page.writeGen = 0

	if !d.hasSpilled {
		if offset+PAGE_SIZE > len(d.data) {
			return nil, ErrOffsetOutOfRange
		}
		copy(page.data[:], d.data[offset:offset+PAGE_SIZE])
	} else {
		if _, err := d.fd.ReadAt(page.data[:], int64(offset)); err != nil {
			return nil, errors.Wrapf(err, "reading page %d", pageID)
		}
	}
	return page, nil
}

// WritePage writes a page back to the store
func (d *InMemDiskSpillingDiskManager) WritePage(page *Page) error {
	if page.ID() < 0 || int(page.ID()) >= d.numPages {
		return errors.Wrapf(ErrPageNotFound, "page %d", page.ID())
	}
	offset := int(page.ID()) * PAGE_SIZE
	if !d.hasSpilled {
		if offset+PAGE_SIZE > len(d.data) {
			return ErrOffsetOutOfRange
		}
		copy(d.data[offset:], page.data[:])
	} else {
		if _, err := d.fd.WriteAt(page.data[:], int64(offset)); err != nil {
			return errors.Wrapf(err, "writing page %d", page.ID())
		}
	}
	return nil
}

// AllocatePage allocates a new page, spilling the buffer to a temp file if
// the threshold has been passed.
func (d *InMemDiskSpillingDiskManager) AllocatePage() (PageID, error) {
	pageID := PageID(d.numPages)
	d.numPages++

	if !d.hasSpilled {
		if d.numPages <= d.thresholdPages {
			d.data = append(d.data, make([]byte, PAGE_SIZE)...)
			return pageID, nil
		}
		if err := d.spill(); err != nil {
			d.numPages--
			return INVALID_PAGE, err
		}
	}
	if err := d.fd.Truncate(int64(d.numPages * PAGE_SIZE)); err != nil {
		d.numPages--
		return INVALID_PAGE, errors.Wrap(err, "extending spill file")
	}
	return pageID, nil
}

func (d *InMemDiskSpillingDiskManager) spill() error {
	name := filepath.Join(os.TempDir(), fmt.Sprintf("coltree-spill-%s", uuid.NewV4().String()))
	fd, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return errors.Wrap(err, "creating spill file")
	}
	if _, err := fd.WriteAt(d.data, 0); err != nil {
		fd.Close()
		os.Remove(name)
		return errors.Wrap(err, "spilling to disk")
	}
	d.fd = fd
	d.hasSpilled = true
	d.data = nil
	return nil
}

// DeallocatePage is a no-op; the store does not reuse page slots.
func (d *InMemDiskSpillingDiskManager) DeallocatePage(pageID PageID) error {
	return nil
}

// FileSize returns the logical size of the store
func (d *InMemDiskSpillingDiskManager) FileSize() int64 {
	return int64(d.numPages * PAGE_SIZE)
}

// Close cleans up the spill file if there is one
func (d *InMemDiskSpillingDiskManager) Close() {
	if d.fd != nil {
		name := d.fd.Name()
		d.fd.Close()
		os.Remove(name)
		d.fd = nil
	}
}
