package coltree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coltreedb/coltree/bufferpool"
)

func newTestPool(tb testing.TB, frames int) *bufferpool.BufferPool {
	tb.Helper()
	dm := bufferpool.NewInMemDiskSpillingDiskManager(1024)
	pool := bufferpool.NewBufferPool(frames, dm)
	tb.Cleanup(func() {
		pool.Close()
	})
	return pool
}

// fixedRecords returns n records of recordSize bytes whose content encodes
// the record number, so tests can verify which record a read resolved to.
func fixedRecords(startRecno uint64, n, recordSize int) [][]byte {
	records := make([][]byte, n)
	for i := range records {
		rec := make([]byte, recordSize)
		copy(rec, fmt.Sprintf("r%d", startRecno+uint64(i)))
		records[i] = rec
	}
	return records
}

// buildFixedTree builds a tree of fixed-length leaves, one per start record
// number, each holding recordsPerLeaf records of recordSize bytes. It returns
// the tree and the leaf page ids in order.
func buildFixedTree(tb testing.TB, pool *bufferpool.BufferPool, starts []uint64, recordsPerLeaf, recordSize int) (*Tree, []bufferpool.PageID) {
	tb.Helper()
	b := NewBuilder(pool, nil)
	leaves := make([]bufferpool.PageID, 0, len(starts))
	for _, start := range starts {
		pgno, err := b.AddFixedLeaf(start, recordSize, fixedRecords(start, recordsPerLeaf, recordSize))
		require.NoError(tb, err)
		leaves = append(leaves, pgno)
	}
	root, err := b.Finish()
	require.NoError(tb, err)
	return NewTree(pool, root, nil), leaves
}

// buildVarTree builds a tree with a single variable-length leaf.
func buildVarTree(tb testing.TB, pool *bufferpool.BufferPool, startRecno uint64, runs []VarRun) (*Tree, bufferpool.PageID) {
	tb.Helper()
	b := NewBuilder(pool, nil)
	pgno, err := b.AddVarLeaf(startRecno, runs)
	require.NoError(tb, err)
	root, err := b.Finish()
	require.NoError(tb, err)
	return NewTree(pool, root, nil), pgno
}
