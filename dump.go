package coltree

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/coltreedb/coltree/bufferpool"
)

// Dump writes a human readable walk of the tree to w, for debugging. Pages
// are pinned one at a time during the walk.
func (t *Tree) Dump(w io.Writer) error {
	fmt.Fprintf(w, "tree root=%d\n", t.root)
	return t.dumpPage(w, t.root, 0)
}

func (t *Tree) dumpPage(w io.Writer, pgno bufferpool.PageID, depth int) error {
	page, err := t.pool.FetchPage(pgno)
	if err != nil {
		return errors.Wrapf(err, "coltree: pinning page %d for dump", pgno)
	}

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "    "
	}

	pageType := page.ReadPageType()
	n := page.ReadSlotCount()
	start := page.ReadStartRecno()

	switch pageType {
	case bufferpool.PAGE_TYPE_COL_INTERNAL:
		fmt.Fprintf(w, "%sinternal page=%d start=%d entries=%d\n", indent, pgno, start, n)
		children := make([]bufferpool.PageID, 0, n)
		for slot := int16(0); slot < n; slot++ {
			fmt.Fprintf(w, "%s  [%d] key=%d child=%d\n", indent, slot,
				readInternalCellKey(page, slot), readInternalCellChild(page, slot))
			children = append(children, readInternalCellChild(page, slot))
		}
		t.pool.UnpinPage(pgno)
		for _, child := range children {
			if err := t.dumpPage(w, child, depth+1); err != nil {
				return err
			}
		}
		return nil

	case bufferpool.PAGE_TYPE_COL_FIX:
		fmt.Fprintf(w, "%sfixed leaf page=%d start=%d records=%d recordSize=%d\n",
			indent, pgno, start, n, page.ReadRecordSize())

	case bufferpool.PAGE_TYPE_COL_VAR:
		fmt.Fprintf(w, "%svar leaf page=%d start=%d runs=%d\n", indent, pgno, start, n)
		for slot := int16(0); slot < n; slot++ {
			fmt.Fprintf(w, "%s  [%d] key=%d repeat=%d valueLen=%d\n", indent, slot,
				readVarCellKey(page, slot), readVarCellRepeat(page, slot),
				len(readVarCellValue(page, slot)))
		}

	default:
		t.pool.UnpinPage(pgno)
		return errors.Wrapf(ErrInvalidPageType, "page %d type %d", pgno, pageType)
	}

	t.dumpOverlay(w, indent, pgno)
	return t.pool.UnpinPage(pgno)
}

// dumpOverlay prints the pending modifications of a leaf page, if any.
func (t *Tree) dumpOverlay(w io.Writer, indent string, pgno bufferpool.PageID) {
	lm := t.modsFor(pgno)
	if lm == nil {
		return
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	dumpList := func(label string, h *insertHead) {
		if h.isEmpty() {
			return
		}
		fmt.Fprintf(w, "%s  %s (%d entries):\n", indent, label, h.count)
		for ins := h.head[0]; ins != nil; ins = ins.next[0] {
			if ins.tombstone {
				fmt.Fprintf(w, "%s    recno=%d tombstone depth=%d\n", indent, ins.recno, ins.depth)
			} else {
				fmt.Fprintf(w, "%s    recno=%d valueLen=%d depth=%d\n", indent, ins.recno, len(ins.value), ins.depth)
			}
		}
	}

	dumpList("append list", lm.appendList)
	dumpList("update list", lm.updateSingle)
	for slot, h := range lm.updates {
		dumpList(fmt.Sprintf("update list slot %d", slot), h)
	}
}
