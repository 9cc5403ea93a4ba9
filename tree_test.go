package coltree

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeGetFromPage(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildFixedTree(t, pool, []uint64{1, 100}, 20, 8)

	value, ok, err := tree.Get(105)
	require.NoError(t, err)
	require.True(t, ok)
	tassert.Equal(t, fixedRecords(105, 1, 8)[0], value)

	// a recno past the tree's content does not exist
	_, ok, err = tree.Get(500)
	require.NoError(t, err)
	tassert.False(t, ok)
}

func TestTreeInsertUpdateDelete(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildFixedTree(t, pool, []uint64{1}, 20, 8)

	// update of an existing record shadows the page content
	require.NoError(t, tree.Insert(5, []byte("new-val5")))
	value, ok, err := tree.Get(5)
	require.NoError(t, err)
	require.True(t, ok)
	tassert.Equal(t, []byte("new-val5"), value)

	// a neighboring record is unaffected
	value, ok, err = tree.Get(6)
	require.NoError(t, err)
	require.True(t, ok)
	tassert.Equal(t, fixedRecords(6, 1, 8)[0], value)

	// update of the pending entry replaces it in place
	require.NoError(t, tree.Insert(5, []byte("new-va5b")))
	value, ok, err = tree.Get(5)
	require.NoError(t, err)
	require.True(t, ok)
	tassert.Equal(t, []byte("new-va5b"), value)

	// delete tombstones the record
	require.NoError(t, tree.Delete(5))
	_, ok, err = tree.Get(5)
	require.NoError(t, err)
	tassert.False(t, ok)

	// re-insert after delete revives it
	require.NoError(t, tree.Insert(5, []byte("again--5")))
	value, ok, err = tree.Get(5)
	require.NoError(t, err)
	require.True(t, ok)
	tassert.Equal(t, []byte("again--5"), value)
}

func TestTreeAppend(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildFixedTree(t, pool, []uint64{1}, 20, 8)

	// appends past the page content, out of order
	require.NoError(t, tree.Insert(25, []byte("v25")))
	require.NoError(t, tree.Insert(21, []byte("v21")))
	require.NoError(t, tree.Insert(23, []byte("v23")))

	for _, recno := range []uint64{21, 23, 25} {
		value, ok, err := tree.Get(recno)
		require.NoError(t, err)
		require.True(t, ok, "recno %d", recno)
		tassert.Equal(t, []byte(fmt.Sprintf("v%d", recno)), value)
	}

	// a gap between pending appends does not exist
	_, ok, err := tree.Get(22)
	require.NoError(t, err)
	tassert.False(t, ok)
}

func TestTreeVarRunUpdate(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildVarTree(t, pool, 1, []VarRun{
		{Value: []byte("aaa"), Repeat: 3},
		{Value: []byte("bb"), Repeat: 2},
	})

	// updating one recno inside a run leaves the rest of the run intact
	require.NoError(t, tree.Insert(2, []byte("mid")))

	value, ok, err := tree.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	tassert.Equal(t, []byte("mid"), value)

	for _, recno := range []uint64{1, 3} {
		value, ok, err = tree.Get(recno)
		require.NoError(t, err)
		require.True(t, ok)
		tassert.Equal(t, []byte("aaa"), value, "recno %d", recno)
	}

	value, ok, err = tree.Get(5)
	require.NoError(t, err)
	require.True(t, ok)
	tassert.Equal(t, []byte("bb"), value)
}

func TestTreeWriteGenerationBump(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, leaves := buildFixedTree(t, pool, []uint64{1}, 20, 8)

	page, err := pool.FetchPage(leaves[0])
	require.NoError(t, err)
	defer pool.UnpinPage(page.ID())

	before := page.WriteGeneration()
	require.NoError(t, tree.Insert(5, []byte("new-val5")))
	tassert.Greater(t, page.WriteGeneration(), before)
}

func TestTreeInsertCopiesValue(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildFixedTree(t, pool, []uint64{1}, 5, 8)

	buf := []byte("aaaaaaaa")
	require.NoError(t, tree.Insert(2, buf))
	copy(buf, "bbbbbbbb")

	value, ok, err := tree.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	tassert.Equal(t, []byte("aaaaaaaa"), value)
}

func TestTreeConcurrentReadersAndWriter(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildFixedTree(t, pool, []uint64{1}, 100, 8)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				recno := uint64(i%100 + 1)
				_, _, err := tree.Get(recno)
				tassert.NoError(t, err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			recno := uint64(i%100 + 1)
			tassert.NoError(t, tree.Insert(recno, []byte(fmt.Sprintf("w%07d", i))))
		}
	}()
	wg.Wait()

	// after all writes settle, the last write per recno wins
	for recno := uint64(1); recno <= 100; recno++ {
		value, ok, err := tree.Get(recno)
		require.NoError(t, err)
		require.True(t, ok)
		tassert.Equal(t, []byte(fmt.Sprintf("w%07d", recno+99)), value)
	}
}

func TestTreeDump(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildFixedTree(t, pool, []uint64{1, 100}, 10, 8)
	require.NoError(t, tree.Insert(11, []byte("v11.....")))

	var buf bytes.Buffer
	require.NoError(t, tree.Dump(&buf))
	out := buf.String()
	tassert.Contains(t, out, "internal page=")
	tassert.Contains(t, out, "fixed leaf page=")
	tassert.Contains(t, out, "append list")
}
