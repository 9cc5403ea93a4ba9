package coltree

import (
	"github.com/pkg/errors"

	"github.com/coltreedb/coltree/bufferpool"
)

// Cursor is a caller-owned search cursor. Seek positions it on the leaf
// page and in-page (or in-overlay) position that holds, or would hold, a
// target record number. On success the cursor owns exactly one pinned page,
// released by Close; on failure no page stays pinned.
type Cursor struct {
	tree *Tree

	// resolved position
	recno uint64
	page  *bufferpool.Page
	slot  int16

	// overlay state
	mods        *leafModify
	insHead     *insertHead
	ins         *Insert
	insStack    insertStack
	appendEntry bool

	// overlay entry contents copied out under the overlay lock
	insMatch     bool
	insValue     []byte
	insTombstone bool

	compare  int
	writeGen uint64
}

// searchClear resets all per-search state. The pinned page, if any, is the
// caller's to release first.
func (c *Cursor) searchClear() {
	c.recno = 0
	c.page = nil
	c.slot = 0
	c.mods = nil
	c.insHead = nil
	c.ins = nil
	c.insStack.clear()
	c.appendEntry = false
	c.insMatch = false
	c.insValue = nil
	c.insTombstone = false
	c.compare = CompareEqual
	c.writeGen = 0
}

// Recno returns the resolved record number: the target on an exact match,
// otherwise the record number of the nearest found position.
func (c *Cursor) Recno() uint64 { return c.recno }

// Compare returns the comparison outcome of the last Seek: CompareBefore,
// CompareEqual or CompareAfter, describing the resolved position relative
// to the requested record number.
func (c *Cursor) Compare() int { return c.compare }

// Slot returns the matched leaf slot index. It is meaningful only when the
// search resolved to an on-page position.
func (c *Cursor) Slot() int16 { return c.slot }

// Page returns the pinned leaf page, or nil if the cursor is not
// positioned.
func (c *Cursor) Page() *bufferpool.Page { return c.page }

// Found returns the nearest overlay entry the search found, if any.
func (c *Cursor) Found() *Insert { return c.ins }

// Close releases the cursor's pinned page. It is safe to call on an
// unpositioned cursor.
func (c *Cursor) Close() error {
	if c.page == nil {
		return nil
	}
	pgno := c.page.ID()
	c.page = nil
	return c.tree.pool.UnpinPage(pgno)
}

// Seek searches the tree for recno. It descends the internal pages, holding
// exactly one pinned page at any instant (the parent is released only after
// its child is pinned), dispatches on the leaf encoding, then refines the
// position against the leaf's insert overlay. When modify is set the leaf's
// write generation is captured before any page content is read so a caller
// about to mutate can detect a concurrent structural change.
//
// On a page pin failure the currently held page is released and the error
// returned; the cursor holds no pin in that case.
func (c *Cursor) Seek(recno uint64, modify bool) error {
	if err := c.Close(); err != nil {
		return err
	}
	c.searchClear()
	c.recno = recno

	pool := c.tree.pool

	// Search the internal pages of the tree.
	page, err := pool.FetchPage(c.tree.root)
	if err != nil {
		return errors.Wrap(err, "coltree: pinning root page")
	}
	for page.ReadPageType() == bufferpool.PAGE_TYPE_COL_INTERNAL {
		n := int(page.ReadSlotCount())
		assert(n > 0)

		// Binary search for the last entry whose startRecno <= recno. On a
		// non-exact result the candidate is index-1; index cannot be 0
		// because the first entry's startRecno equals the page's own start,
		// which never exceeds a target that legitimately reached this page.
		index, exact := search(n, func(i int) int {
			key := readInternalCellKey(page, int16(i))
			if recno == key {
				return 0
			} else if recno < key {
				return -1
			}
			return 1
		})
		if !exact {
			assert(index > 0)
			index--
		}

		// Swap the parent pin for the child pin. The parent is not released
		// until the child pin succeeds, so the error path has exactly one
		// page to release.
		child, err := pool.FetchPage(readInternalCellChild(page, int16(index)))
		if err != nil {
			pool.UnpinPage(page.ID())
			return errors.Wrapf(err, "coltree: pinning child of page %d", page.ID())
		}
		pool.UnpinPage(page.ID())
		page = child
	}

	// Copy the leaf's write generation before reading any page content; the
	// acquire load orders the capture ahead of the content reads below.
	if modify {
		c.writeGen = page.WriteGeneration()
	}
	c.page = page
	c.compare = CompareEqual
	c.mods = c.tree.modsFor(page.ID())

	// Search the leaf page. The search path does not check for a record
	// past the maximum record in the tree, so the target may be impossibly
	// large for the page; that is the append case.
	startRecno := page.ReadStartRecno()
	pageType := page.ReadPageType()
	switch pageType {
	case bufferpool.PAGE_TYPE_COL_FIX:
		slotCount := uint64(page.ReadSlotCount())
		if recno >= startRecno+slotCount {
			c.recno = startRecno + slotCount
			c.compare = CompareBefore
			c.appendEntry = true
		} else {
			c.slot = int16(recno - startRecno)
		}

	case bufferpool.PAGE_TYPE_COL_VAR:
		if slot, ok := colVarSearch(page, recno); !ok {
			// A variable-length page's last record number is not derivable
			// arithmetically, so the append case anchors at the page's
			// last materialized record.
			c.recno = lastRecno(page)
			c.compare = CompareBefore
			c.appendEntry = true
		} else {
			c.slot = slot
		}

	default:
		pool.UnpinPage(page.ID())
		c.page = nil
		return errors.Wrapf(ErrInvalidPageType, "page %d type %d", page.ID(), pageType)
	}

	// Search the insert or append list covering the resolved position. List
	// selection and search happen under the overlay lock; writers create
	// and splice lists under the same lock. An overlay match overrides the
	// leaf-level position.
	if c.mods != nil {
		c.mods.mu.Lock()
		if c.appendEntry {
			c.insHead = c.mods.appendList
		} else if pageType == bufferpool.PAGE_TYPE_COL_FIX {
			c.insHead = c.mods.updateSingle
		} else {
			c.insHead = c.mods.updates[c.slot]
		}
		if ins := c.insHead.search(recno, &c.insStack); ins != nil {
			c.ins = ins
			c.recno = ins.recno
			if recno == ins.recno {
				c.compare = CompareEqual
				c.insMatch = true
				c.insValue = ins.value
				c.insTombstone = ins.tombstone
			} else if recno < ins.recno {
				c.compare = CompareAfter
			} else {
				c.compare = CompareBefore
			}
		}
		c.mods.mu.Unlock()
	}

	return nil
}
