package bufferpool

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

const PAGE_SIZE int = 8192

const INVALID_PAGE PageID = -1

// Page types for the column-store tree.
const PAGE_TYPE_COL_INTERNAL = 10
const PAGE_TYPE_COL_FIX = 11
const PAGE_TYPE_COL_VAR = 12

// SLOTTED PAGE
// page size 8192 bytes
// byte aligned, big endian
//
// |====================================================|
// | offset | length        |                           |
// |----------------------------------------------------|
// | header                                             |
// |====================================================|
// | 0      | 8             |  pageNumber (int64)       |
// | 8      | 2             |  pageType (int16)         |
// | 10     | 2             |  slotCount (int16)        |
// | 12     | 2             |  recordSize (int16)       | // fixed-length leaves only
// | 14     | 2             |  freeSpaceOffset (int16)  |
// | 16     | 8             |  startRecno (uint64)      |
// | 24     | 8             |  prevPointer (int64)      |
// | 32     | 8             |  nextPointer (int64)      |
// | 40     | 8             |  checksum (uint64)        | // maintained by the disk manager
// |====================================================|
// | <start of slot array 1..slotCount>                 |
// |----------------------------------------------------|
// | 48     | slotCount     |  slot entry is an int16   |
// |        |  * slotwidth  |  payloadOffset            |
// |----------------------------------------------------|
// | <free space>                                       |
// |----------------------------------------------------|
// | <payload starting at freeSpaceOffset>              |
// |====================================================|
//
// Fixed-length leaf pages do not use the slot array or the free space
// offset; records are packed at PAGE_SLOTS_START_OFFSET and addressed
// arithmetically by recordSize.

const PAGE_NUMBER_OFFSET = 0        // offset 0, length 8, end 8
const PAGE_TYPE_OFFSET = 8          // offset 8, length 2, end 10
const PAGE_SLOT_COUNT_OFFSET = 10   // offset 10, length 2, end 12
const PAGE_RECORD_SIZE_OFFSET = 12  // offset 12, length 2, end 14
const PAGE_FREE_SPACE_OFFSET = 14   // offset 14, length 2, end 16
const PAGE_START_RECNO_OFFSET = 16  // offset 16, length 8, end 24
const PAGE_PREV_POINTER_OFFSET = 24 // offset 24, length 8, end 32
const PAGE_NEXT_POINTER_OFFSET = 32 // offset 32, length 8, end 40
const PAGE_CHECKSUM_OFFSET = 40     // offset 40, length 8, end 48
const PAGE_SLOTS_START_OFFSET = 48  // offset 48

// PAGE_SLOT_LENGTH is the size of the page slot offset value.
const PAGE_SLOT_LENGTH = 2

// Page represents a column-store data page on disk and in memory.
//
// The write generation is an in-memory counter, not part of the on-disk
// image. It is bumped after any structural mutation of the page's logical
// content (reconciliation, overlay growth) and captured by searching
// cursors that intend to modify. WriteGeneration is an acquire load so a
// captured generation is ordered before any subsequent content read.
type Page struct {
	id       PageID
	pinCount int
	isDirty  bool
	writeGen uint64
	data     [PAGE_SIZE]byte
}

func NewPage(pageID PageID, pinCount int) *Page {
	return &Page{
		id:       pageID,
		pinCount: pinCount,
		isDirty:  false,
		data:     [PAGE_SIZE]byte{},
	}
}

// ID returns the page id for this page
func (p *Page) ID() PageID {
	return p.id
}

// PinCount returns the pin count for this page
func (p *Page) PinCount() int {
	return p.pinCount
}

// DecPinCount decrements the pin count for this page
func (p *Page) DecPinCount() {
	if p.pinCount > 0 {
		p.pinCount--
	}
}

// IsDirty returns true if the page has been written to since it was read
func (p *Page) IsDirty() bool {
	return p.isDirty
}

// WriteGeneration returns the page's current write generation using an
// acquire-ordered load.
func (p *Page) WriteGeneration() uint64 {
	return atomic.LoadUint64(&p.writeGen)
}

// BumpWriteGeneration increments the write generation. Mutators call this
// after the content change is complete.
func (p *Page) BumpWriteGeneration() uint64 {
	return atomic.AddUint64(&p.writeGen, 1)
}

// routines to read and write page header information

func (p *Page) WritePageNumber(pageNumber int64) {
	p.id = PageID(pageNumber)
	binary.BigEndian.PutUint64(p.data[PAGE_NUMBER_OFFSET:], uint64(pageNumber))
	p.isDirty = true
}

func (p *Page) ReadPageNumber() int64 {
	return int64(binary.BigEndian.Uint64(p.data[PAGE_NUMBER_OFFSET:]))
}

func (p *Page) WritePageType(pageType int16) {
	binary.BigEndian.PutUint16(p.data[PAGE_TYPE_OFFSET:], uint16(pageType))
	p.isDirty = true
}

func (p *Page) ReadPageType() int16 {
	return int16(binary.BigEndian.Uint16(p.data[PAGE_TYPE_OFFSET:]))
}

func (p *Page) WriteSlotCount(slotCount int16) {
	binary.BigEndian.PutUint16(p.data[PAGE_SLOT_COUNT_OFFSET:], uint16(slotCount))
	p.isDirty = true
}

func (p *Page) ReadSlotCount() int16 {
	return int16(binary.BigEndian.Uint16(p.data[PAGE_SLOT_COUNT_OFFSET:]))
}

func (p *Page) WriteRecordSize(recordSize int16) {
	binary.BigEndian.PutUint16(p.data[PAGE_RECORD_SIZE_OFFSET:], uint16(recordSize))
	p.isDirty = true
}

func (p *Page) ReadRecordSize() int16 {
	return int16(binary.BigEndian.Uint16(p.data[PAGE_RECORD_SIZE_OFFSET:]))
}

func (p *Page) WriteFreeSpaceOffset(offset int16) {
	binary.BigEndian.PutUint16(p.data[PAGE_FREE_SPACE_OFFSET:], uint16(offset))
	p.isDirty = true
}

func (p *Page) ReadFreeSpaceOffset() int16 {
	return int16(binary.BigEndian.Uint16(p.data[PAGE_FREE_SPACE_OFFSET:]))
}

func (p *Page) WriteStartRecno(recno uint64) {
	binary.BigEndian.PutUint64(p.data[PAGE_START_RECNO_OFFSET:], recno)
	p.isDirty = true
}

func (p *Page) ReadStartRecno() uint64 {
	return binary.BigEndian.Uint64(p.data[PAGE_START_RECNO_OFFSET:])
}

func (p *Page) WritePrevPointer(pageID PageID) {
	binary.BigEndian.PutUint64(p.data[PAGE_PREV_POINTER_OFFSET:], uint64(pageID))
	p.isDirty = true
}

func (p *Page) ReadPrevPointer() PageID {
	return PageID(binary.BigEndian.Uint64(p.data[PAGE_PREV_POINTER_OFFSET:]))
}

func (p *Page) WriteNextPointer(pageID PageID) {
	binary.BigEndian.PutUint64(p.data[PAGE_NEXT_POINTER_OFFSET:], uint64(pageID))
	p.isDirty = true
}

func (p *Page) ReadNextPointer() PageID {
	return PageID(binary.BigEndian.Uint64(p.data[PAGE_NEXT_POINTER_OFFSET:]))
}

// WriteChecksum stamps the header checksum without dirtying the page; only
// disk managers call this.
func (p *Page) WriteChecksum(sum uint64) {
	binary.BigEndian.PutUint64(p.data[PAGE_CHECKSUM_OFFSET:], sum)
}

func (p *Page) ReadChecksum() uint64 {
	return binary.BigEndian.Uint64(p.data[PAGE_CHECKSUM_OFFSET:])
}

// PageSlot represents a slot in the page slot array.
type PageSlot struct {
	PayloadOffset int16
}

// ReadPageSlot reads a slot at the given position on the page.
func (p *Page) ReadPageSlot(slot int16) PageSlot {
	offset := PAGE_SLOTS_START_OFFSET + int(slot)*PAGE_SLOT_LENGTH
	return PageSlot{
		PayloadOffset: int16(binary.BigEndian.Uint16(p.data[offset:])),
	}
}

// WritePageSlot writes a slot at the given position on the page.
func (p *Page) WritePageSlot(slot int16, value PageSlot) {
	offset := PAGE_SLOTS_START_OFFSET + int(slot)*PAGE_SLOT_LENGTH
	binary.BigEndian.PutUint16(p.data[offset:], uint16(value.PayloadOffset))
	p.isDirty = true
}

// FreeSpaceOnPage returns the bytes available between the end of the slot
// array and the start of the payload area.
func (p *Page) FreeSpaceOnPage() int16 {
	slotsEnd := int16(PAGE_SLOTS_START_OFFSET) + p.ReadSlotCount()*PAGE_SLOT_LENGTH
	return p.ReadFreeSpaceOffset() - slotsEnd
}

// typed at-offset accessors used by the cell codecs

func (p *Page) ReadUint64At(offset int16) uint64 {
	return binary.BigEndian.Uint64(p.data[offset:])
}

func (p *Page) WriteUint64At(offset int16, value uint64) {
	binary.BigEndian.PutUint64(p.data[offset:], value)
	p.isDirty = true
}

func (p *Page) ReadUint32At(offset int16) uint32 {
	return binary.BigEndian.Uint32(p.data[offset:])
}

func (p *Page) WriteUint32At(offset int16, value uint32) {
	binary.BigEndian.PutUint32(p.data[offset:], value)
	p.isDirty = true
}

func (p *Page) ReadUint16At(offset int16) uint16 {
	return binary.BigEndian.Uint16(p.data[offset:])
}

func (p *Page) WriteUint16At(offset int16, value uint16) {
	binary.BigEndian.PutUint16(p.data[offset:], value)
	p.isDirty = true
}

func (p *Page) ReadBytesAt(offset int16, length int) []byte {
	return p.data[int(offset) : int(offset)+length]
}

func (p *Page) WriteBytesAt(offset int16, value []byte) {
	copy(p.data[int(offset):], value)
	p.isDirty = true
}

// PageSlotIterator iterates over the slots on a page.
type PageSlotIterator struct {
	page      *Page
	slotCount int16
	cursor    int16
}

func NewPageSlotIterator(page *Page, fromSlot int16) *PageSlotIterator {
	return &PageSlotIterator{
		page:      page,
		slotCount: page.ReadSlotCount(),
		cursor:    fromSlot,
	}
}

func (i *PageSlotIterator) Next() *PageSlot {
	if i.cursor < i.slotCount {
		s := i.page.ReadPageSlot(i.cursor)
		i.cursor++
		return &s
	}
	return nil
}

func (i *PageSlotIterator) Cursor() int16 {
	return i.cursor
}

// Dump prints the page header for debugging.
func (p *Page) Dump(label string) {
	fmt.Printf("%spage(%d) type: %d, slotCount: %d, startRecno: %d, pinCount: %d, dirty: %v\n",
		label, p.ReadPageNumber(), p.ReadPageType(), p.ReadSlotCount(), p.ReadStartRecno(), p.pinCount, p.isDirty)
}
