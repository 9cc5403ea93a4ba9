package coltree

import (
	"math/rand"
	"sync"

	"github.com/coltreedb/coltree/bufferpool"
)

// Insert is one pending modification of a record: an insert, an update of an
// existing record, or a tombstone. Entries live in a skip structured list
// keyed by record number; keys are unique within one list.
type Insert struct {
	recno     uint64
	value     []byte
	tombstone bool
	depth     int
	next      [MaxSkipDepth]*Insert
}

// Recno returns the record number of the entry.
func (ins *Insert) Recno() uint64 { return ins.recno }

// Value returns the pending value; ok is false for a tombstone.
func (ins *Insert) Value() (value []byte, ok bool) {
	if ins.tombstone {
		return nil, false
	}
	return ins.value, true
}

// insertStack records, per level, the last entry whose recno is less than
// the search target (nil meaning the list head). An insertion at the
// searched position splices its new entry after each recorded predecessor.
type insertStack struct {
	prev [MaxSkipDepth]*Insert
}

func (s *insertStack) clear() {
	*s = insertStack{}
}

// insertHead is one insert overlay: a skip list of pending entries.
type insertHead struct {
	head  [MaxSkipDepth]*Insert
	count int
}

func (h *insertHead) isEmpty() bool {
	return h == nil || h.head[0] == nil
}

func (h *insertHead) nextAt(prev *Insert, level int) *Insert {
	if prev == nil {
		return h.head[level]
	}
	return prev.next[level]
}

// search walks the list from the highest level downward, advancing past
// entries whose keys are less than recno and recording the predecessor at
// every level in stack. It returns the first entry with key >= recno when
// one exists, otherwise the last entry (whose key is then < recno), and nil
// only when the list is empty.
func (h *insertHead) search(recno uint64, stack *insertStack) *Insert {
	if h.isEmpty() {
		return nil
	}
	var prev *Insert
	for level := MaxSkipDepth - 1; level >= 0; level-- {
		for next := h.nextAt(prev, level); next != nil && next.recno < recno; next = h.nextAt(prev, level) {
			prev = next
		}
		stack.prev[level] = prev
	}
	if next := h.nextAt(prev, 0); next != nil {
		return next
	}
	return prev
}

// insert splices ins after the predecessors recorded in stack at every
// level up to the entry's depth. The stack must come from a search for
// ins.recno on this same list with no intervening mutation.
func (h *insertHead) insert(ins *Insert, stack *insertStack) {
	assert(ins.depth >= 1 && ins.depth <= MaxSkipDepth)
	for level := 0; level < ins.depth; level++ {
		prev := stack.prev[level]
		if prev == nil {
			ins.next[level] = h.head[level]
			h.head[level] = ins
		} else {
			ins.next[level] = prev.next[level]
			prev.next[level] = ins
		}
	}
	h.count++
}

// chooseDepth picks a skip level count: each extra level with probability
// 1/4.
func chooseDepth() int {
	depth := 1
	for depth < MaxSkipDepth && rand.Intn(4) == 0 {
		depth++
	}
	return depth
}

// leafModify holds the pending modifications of one leaf page: the append
// list for record numbers beyond the page content and, depending on the leaf
// encoding, update lists for records the page already holds. Fixed-length
// leaves use a single page-level update list (the record position inside the
// page is arithmetic anyway); variable-length leaves keep one update list
// per run slot.
type leafModify struct {
	mu           sync.Mutex
	appendList   *insertHead
	updateSingle *insertHead
	updates      map[int16]*insertHead
}

// appendFor returns the append list, creating it if necessary. Callers hold
// mu.
func (lm *leafModify) appendFor() *insertHead {
	if lm.appendList == nil {
		lm.appendList = &insertHead{}
	}
	return lm.appendList
}

// updateFor returns the update list covering the given leaf slot, creating
// it if necessary. Callers hold mu.
func (lm *leafModify) updateFor(pageType int16, slot int16) *insertHead {
	if pageType == bufferpool.PAGE_TYPE_COL_FIX {
		if lm.updateSingle == nil {
			lm.updateSingle = &insertHead{}
		}
		return lm.updateSingle
	}
	if lm.updates == nil {
		lm.updates = make(map[int16]*insertHead)
	}
	h, ok := lm.updates[slot]
	if !ok {
		h = &insertHead{}
		lm.updates[slot] = h
	}
	return h
}
