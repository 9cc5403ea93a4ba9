package coltree

import (
	"sync"

	"github.com/benbjohnson/immutable"
	"github.com/pkg/errors"

	"github.com/coltreedb/coltree/bufferpool"
	"github.com/coltreedb/coltree/logger"
)

// Tree is a record-number indexed column-store b-tree rooted at a single
// page in a buffer pool. The tree never mutates page content; pending
// modifications accumulate in per-page insert overlays tracked by the
// modification registry until reconciliation (elsewhere) merges them.
type Tree struct {
	mu   sync.RWMutex
	pool *bufferpool.BufferPool
	root bufferpool.PageID
	log  logger.Logger

	// mods maps leaf page ids to their pending modifications. The map is
	// immutable; readers take a snapshot and writers swap in a new map, so
	// searches never block on registry growth.
	mods *immutable.Map[bufferpool.PageID, *leafModify]
}

type pageIDHasher struct{}

func (h *pageIDHasher) Hash(id bufferpool.PageID) uint32 {
	return uint32(id) ^ uint32(uint64(id)>>32)
}

func (h *pageIDHasher) Equal(a, b bufferpool.PageID) bool {
	return a == b
}

// NewTree returns a tree rooted at root. A nil log disables logging.
func NewTree(pool *bufferpool.BufferPool, root bufferpool.PageID, log logger.Logger) *Tree {
	if log == nil {
		log = logger.NopLogger
	}
	return &Tree{
		pool: pool,
		root: root,
		log:  log,
		mods: immutable.NewMap[bufferpool.PageID, *leafModify](&pageIDHasher{}),
	}
}

// Root returns the root page id.
func (t *Tree) Root() bufferpool.PageID {
	return t.root
}

// Cursor returns a new search cursor over the tree.
func (t *Tree) Cursor() *Cursor {
	return &Cursor{tree: t}
}

// modsFor returns the pending modifications of the given leaf page, or nil.
func (t *Tree) modsFor(pgno bufferpool.PageID) *leafModify {
	t.mu.RLock()
	mods := t.mods
	t.mu.RUnlock()
	lm, _ := mods.Get(pgno)
	return lm
}

// ensureMods returns the pending-modification record for the given leaf
// page, registering an empty one if none exists yet.
func (t *Tree) ensureMods(pgno bufferpool.PageID) *leafModify {
	t.mu.Lock()
	defer t.mu.Unlock()
	if lm, ok := t.mods.Get(pgno); ok {
		return lm
	}
	lm := &leafModify{}
	t.mods = t.mods.Set(pgno, lm)
	return lm
}

// Insert records a pending insert or update of recno.
func (t *Tree) Insert(recno uint64, value []byte) error {
	return t.modify(recno, append([]byte(nil), value...), false)
}

// Delete records a pending tombstone for recno.
func (t *Tree) Delete(recno uint64) error {
	return t.modify(recno, nil, true)
}

// modify searches for the position of recno and splices a pending entry
// into the overlay the search selected. The search captures the leaf's
// write generation; if the generation moved before the overlay lock was
// acquired, another modification raced us and the whole search retries, so
// the predecessor stack is never applied to a list it no longer describes.
func (t *Tree) modify(recno uint64, value []byte, tombstone bool) error {
	cur := t.Cursor()
	for {
		if err := cur.Seek(recno, true); err != nil {
			return err
		}

		lm := cur.mods
		if lm == nil {
			lm = t.ensureMods(cur.page.ID())
		}

		lm.mu.Lock()
		if cur.page.WriteGeneration() != cur.writeGen {
			lm.mu.Unlock()
			if err := cur.Close(); err != nil {
				return err
			}
			t.log.Debugf("coltree: write generation moved under modify of recno %d, retrying", recno)
			continue
		}

		if cur.ins != nil && cur.compare == CompareEqual {
			// a pending entry for this exact recno already exists
			cur.ins.value = value
			cur.ins.tombstone = tombstone
		} else {
			head := cur.insHead
			if head == nil {
				// no overlay existed when the search ran; the empty
				// predecessor stack is correct for a fresh list
				if cur.appendEntry {
					head = lm.appendFor()
				} else {
					head = lm.updateFor(cur.page.ReadPageType(), cur.slot)
				}
			}
			ins := &Insert{
				recno:     recno,
				value:     value,
				tombstone: tombstone,
				depth:     chooseDepth(),
			}
			head.insert(ins, &cur.insStack)
		}
		cur.page.BumpWriteGeneration()
		lm.mu.Unlock()

		return cur.Close()
	}
}

// Get returns the current value of recno, resolving the insert overlay over
// the persisted page image. ok is false when the record does not exist or
// is tombstoned.
func (t *Tree) Get(recno uint64) (value []byte, ok bool, err error) {
	cur := t.Cursor()
	defer cur.Close()

	if err := cur.Seek(recno, false); err != nil {
		return nil, false, err
	}

	// An overlay entry for the exact recno always wins. Otherwise the
	// on-page slot holds the value, unless the search fell past the page
	// content onto the append path; a nearby overlay entry moving the
	// comparison off "equal" does not invalidate an exact on-page hit.
	if cur.insMatch {
		if cur.insTombstone {
			return nil, false, nil
		}
		return cur.insValue, true, nil
	}
	if cur.appendEntry {
		return nil, false, nil
	}
	switch cur.page.ReadPageType() {
	case bufferpool.PAGE_TYPE_COL_FIX:
		return append([]byte(nil), readFixedRecord(cur.page, cur.slot)...), true, nil
	case bufferpool.PAGE_TYPE_COL_VAR:
		return append([]byte(nil), readVarCellValue(cur.page, cur.slot)...), true, nil
	default:
		return nil, false, errors.Wrapf(ErrInvalidPageType, "page %d", cur.page.ID())
	}
}
