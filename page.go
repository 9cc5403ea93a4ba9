package coltree

import (
	"github.com/coltreedb/coltree/bufferpool"
)

// Cell layouts, written into the slotted payload area of a page.
//
// internal cell:
//   startRecno (uint64)
//   childPage  (int64)
//
// variable-length leaf cell (one run):
//   startRecno (uint64)
//   repeat     (uint32)
//   valueLen   (uint16)
//   valueBytes
//
// Fixed-length leaf pages have no cells; records are packed at
// PAGE_SLOTS_START_OFFSET and addressed by slotCount/recordSize arithmetic.

const internalCellSize = 8 + 8
const varCellHeaderSize = 8 + 4 + 2

// maxInternalEntries is the child-entry fanout of an internal page.
const maxInternalEntries = (bufferpool.PAGE_SIZE - bufferpool.PAGE_SLOTS_START_OFFSET) /
	(bufferpool.PAGE_SLOT_LENGTH + internalCellSize)

// writeInternalCell appends a (startRecno, child) entry into the given slot,
// claiming payload space from the free space area.
func writeInternalCell(page *bufferpool.Page, slot int16, startRecno uint64, child bufferpool.PageID) error {
	if int(internalCellSize+bufferpool.PAGE_SLOT_LENGTH) > int(page.FreeSpaceOnPage()) {
		return ErrPageFull
	}
	offset := page.ReadFreeSpaceOffset() - internalCellSize
	page.WriteUint64At(offset, startRecno)
	page.WriteUint64At(offset+8, uint64(child))
	page.WriteFreeSpaceOffset(offset)
	page.WritePageSlot(slot, bufferpool.PageSlot{PayloadOffset: offset})
	return nil
}

func readInternalCellKey(page *bufferpool.Page, slot int16) uint64 {
	s := page.ReadPageSlot(slot)
	return page.ReadUint64At(s.PayloadOffset)
}

func readInternalCellChild(page *bufferpool.Page, slot int16) bufferpool.PageID {
	s := page.ReadPageSlot(slot)
	return bufferpool.PageID(page.ReadUint64At(s.PayloadOffset + 8))
}

// writeVarCell appends a run cell into the given slot.
func writeVarCell(page *bufferpool.Page, slot int16, startRecno uint64, repeat uint32, value []byte) error {
	size := varCellHeaderSize + len(value)
	if size+bufferpool.PAGE_SLOT_LENGTH > int(page.FreeSpaceOnPage()) {
		return ErrPageFull
	}
	offset := page.ReadFreeSpaceOffset() - int16(size)
	page.WriteUint64At(offset, startRecno)
	page.WriteUint32At(offset+8, repeat)
	page.WriteUint16At(offset+12, uint16(len(value)))
	page.WriteBytesAt(offset+varCellHeaderSize, value)
	page.WriteFreeSpaceOffset(offset)
	page.WritePageSlot(slot, bufferpool.PageSlot{PayloadOffset: offset})
	return nil
}

func readVarCellKey(page *bufferpool.Page, slot int16) uint64 {
	s := page.ReadPageSlot(slot)
	return page.ReadUint64At(s.PayloadOffset)
}

func readVarCellRepeat(page *bufferpool.Page, slot int16) uint32 {
	s := page.ReadPageSlot(slot)
	return page.ReadUint32At(s.PayloadOffset + 8)
}

func readVarCellValue(page *bufferpool.Page, slot int16) []byte {
	s := page.ReadPageSlot(slot)
	length := int(page.ReadUint16At(s.PayloadOffset + 12))
	return page.ReadBytesAt(s.PayloadOffset+varCellHeaderSize, length)
}

// fixedLeafCapacity returns the number of records of the given size that fit
// on one fixed-length leaf page.
func fixedLeafCapacity(recordSize int) int {
	return (bufferpool.PAGE_SIZE - bufferpool.PAGE_SLOTS_START_OFFSET) / recordSize
}

// appendFixedRecord packs one record after the last one on a fixed-length
// leaf. The record length must equal the page's record size.
func appendFixedRecord(page *bufferpool.Page, record []byte) error {
	recordSize := int(page.ReadRecordSize())
	if len(record) != recordSize {
		return ErrRecordSizeWrong
	}
	n := int(page.ReadSlotCount())
	if n >= fixedLeafCapacity(recordSize) {
		return ErrPageFull
	}
	offset := int16(bufferpool.PAGE_SLOTS_START_OFFSET + n*recordSize)
	page.WriteBytesAt(offset, record)
	page.WriteSlotCount(int16(n + 1))
	return nil
}

// readFixedRecord returns the record bytes in the given slot of a
// fixed-length leaf.
func readFixedRecord(page *bufferpool.Page, slot int16) []byte {
	recordSize := int(page.ReadRecordSize())
	offset := int16(bufferpool.PAGE_SLOTS_START_OFFSET + int(slot)*recordSize)
	return page.ReadBytesAt(offset, recordSize)
}

// lastRecno returns the highest record number materialized on a
// variable-length leaf page. A run cell covers
// [startRecno, startRecno+repeat).
func lastRecno(page *bufferpool.Page) uint64 {
	n := page.ReadSlotCount()
	if n == 0 {
		return page.ReadStartRecno()
	}
	key := readVarCellKey(page, n-1)
	repeat := readVarCellRepeat(page, n-1)
	return key + uint64(repeat) - 1
}

// colVarSearch finds the slot on a variable-length leaf whose run covers
// recno. ok is false when the target lies beyond the page's last record.
func colVarSearch(page *bufferpool.Page, recno uint64) (slot int16, ok bool) {
	n := int(page.ReadSlotCount())
	index, exact := search(n, func(i int) int {
		key := readVarCellKey(page, int16(i))
		if recno == key {
			return 0
		} else if recno < key {
			return -1
		}
		return 1
	})
	if exact {
		return int16(index), true
	}
	if index == 0 {
		// The first run's startRecno equals the page's startRecno, so a
		// target below it cannot legitimately reach this page.
		return 0, false
	}
	i := int16(index - 1)
	key := readVarCellKey(page, i)
	repeat := readVarCellRepeat(page, i)
	if recno < key+uint64(repeat) {
		return i, true
	}
	return 0, false
}
