package coltree

import (
	"github.com/pkg/errors"

	"github.com/coltreedb/coltree/bufferpool"
	"github.com/coltreedb/coltree/logger"
)

// VarRun describes one run of a variable-length leaf: a value repeated for
// repeat consecutive record numbers.
type VarRun struct {
	Value  []byte
	Repeat uint32
}

type childEntry struct {
	startRecno uint64
	pgno       bufferpool.PageID
}

// Builder constructs a persisted tree bottom-up through the buffer pool:
// leaves are added in ascending record-number order, then Finish stacks
// internal levels until a single root remains. Loaders and tests use it;
// incremental growth of a live tree goes through the insert overlay instead.
type Builder struct {
	pool    *bufferpool.BufferPool
	log     logger.Logger
	leaves  []childEntry
	nextMin uint64 // lowest startRecno the next leaf may use
}

// NewBuilder returns a builder writing pages through pool. A nil log
// disables logging.
func NewBuilder(pool *bufferpool.BufferPool, log logger.Logger) *Builder {
	if log == nil {
		log = logger.NopLogger
	}
	return &Builder{pool: pool, log: log, nextMin: 1}
}

func (b *Builder) newLeaf(pageType int16, startRecno uint64) (*bufferpool.Page, error) {
	if startRecno < b.nextMin {
		return nil, errors.Wrapf(ErrBadLeafOrder, "startRecno %d, minimum %d", startRecno, b.nextMin)
	}
	page, err := b.pool.NewPage()
	if err != nil {
		return nil, errors.Wrap(err, "coltree: allocating leaf page")
	}
	page.WritePageType(pageType)
	page.WriteStartRecno(startRecno)
	return page, nil
}

// finishPage links the page into the leaf level, flushes it and drops the
// allocation pin.
func (b *Builder) finishPage(page *bufferpool.Page, startRecno, nextMin uint64) (bufferpool.PageID, error) {
	pgno := page.ID()
	if len(b.leaves) > 0 {
		prev := b.leaves[len(b.leaves)-1].pgno
		page.WritePrevPointer(prev)
	}
	b.pool.FlushPage(pgno)
	if err := b.pool.UnpinPage(pgno); err != nil {
		return bufferpool.INVALID_PAGE, err
	}
	b.leaves = append(b.leaves, childEntry{startRecno: startRecno, pgno: pgno})
	b.nextMin = nextMin
	b.log.Debugf("coltree: built leaf page %d covering [%d, %d)", pgno, startRecno, nextMin)
	return pgno, nil
}

// AddFixedLeaf appends a fixed-length leaf holding the given records, which
// must all be recordSize bytes.
func (b *Builder) AddFixedLeaf(startRecno uint64, recordSize int, records [][]byte) (bufferpool.PageID, error) {
	if recordSize <= 0 || recordSize > bufferpool.PAGE_SIZE-bufferpool.PAGE_SLOTS_START_OFFSET {
		return bufferpool.INVALID_PAGE, errors.Wrapf(ErrRecordTooLarge, "record size %d", recordSize)
	}
	page, err := b.newLeaf(bufferpool.PAGE_TYPE_COL_FIX, startRecno)
	if err != nil {
		return bufferpool.INVALID_PAGE, err
	}
	page.WriteRecordSize(int16(recordSize))
	for i, rec := range records {
		if err := appendFixedRecord(page, rec); err != nil {
			b.pool.UnpinPage(page.ID())
			return bufferpool.INVALID_PAGE, errors.Wrapf(err, "record %d", i)
		}
	}
	return b.finishPage(page, startRecno, startRecno+uint64(len(records)))
}

// AddVarLeaf appends a variable-length leaf holding the given runs;
// consecutive runs cover consecutive record-number ranges.
func (b *Builder) AddVarLeaf(startRecno uint64, runs []VarRun) (bufferpool.PageID, error) {
	page, err := b.newLeaf(bufferpool.PAGE_TYPE_COL_VAR, startRecno)
	if err != nil {
		return bufferpool.INVALID_PAGE, err
	}
	recno := startRecno
	for i, run := range runs {
		if run.Repeat == 0 {
			b.pool.UnpinPage(page.ID())
			return bufferpool.INVALID_PAGE, errors.Errorf("coltree: run %d has zero repeat", i)
		}
		if err := writeVarCell(page, int16(i), recno, run.Repeat, run.Value); err != nil {
			b.pool.UnpinPage(page.ID())
			return bufferpool.INVALID_PAGE, errors.Wrapf(err, "run %d", i)
		}
		recno += uint64(run.Repeat)
	}
	page.WriteSlotCount(int16(len(runs)))
	return b.finishPage(page, startRecno, recno)
}

// Finish builds the internal levels over the added leaves and returns the
// root page id. A single leaf becomes the root itself.
func (b *Builder) Finish() (bufferpool.PageID, error) {
	if len(b.leaves) == 0 {
		return bufferpool.INVALID_PAGE, errors.New("coltree: no leaves added")
	}

	level := b.leaves
	for len(level) > 1 {
		next := make([]childEntry, 0, (len(level)+maxInternalEntries-1)/maxInternalEntries)
		for start := 0; start < len(level); start += maxInternalEntries {
			end := start + maxInternalEntries
			if end > len(level) {
				end = len(level)
			}
			group := level[start:end]

			page, err := b.pool.NewPage()
			if err != nil {
				return bufferpool.INVALID_PAGE, errors.Wrap(err, "coltree: allocating internal page")
			}
			page.WritePageType(bufferpool.PAGE_TYPE_COL_INTERNAL)
			page.WriteStartRecno(group[0].startRecno)
			for i, entry := range group {
				if err := writeInternalCell(page, int16(i), entry.startRecno, entry.pgno); err != nil {
					b.pool.UnpinPage(page.ID())
					return bufferpool.INVALID_PAGE, err
				}
			}
			page.WriteSlotCount(int16(len(group)))
			pgno := page.ID()
			b.pool.FlushPage(pgno)
			if err := b.pool.UnpinPage(pgno); err != nil {
				return bufferpool.INVALID_PAGE, err
			}
			b.log.Debugf("coltree: built internal page %d with %d children", pgno, len(group))
			next = append(next, childEntry{startRecno: group[0].startRecno, pgno: pgno})
		}
		level = next
	}
	return level[0].pgno, nil
}
