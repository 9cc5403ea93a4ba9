package coltree

import (
	"testing"

	"github.com/pkg/errors"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coltreedb/coltree/bufferpool"
)

func TestSeekInternalRouting(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, leaves := buildFixedTree(t, pool, []uint64{1, 100, 250}, 20, 8)

	// a target between two separator keys routes to the child holding the
	// largest key at or below it
	cur := tree.Cursor()
	defer cur.Close()

	require.NoError(t, cur.Seek(150, false))
	tassert.Equal(t, leaves[1], cur.Page().ID())

	require.NoError(t, cur.Seek(1, false))
	tassert.Equal(t, leaves[0], cur.Page().ID())

	require.NoError(t, cur.Seek(250, false))
	tassert.Equal(t, leaves[2], cur.Page().ID())

	// an exact separator match on a middle key
	require.NoError(t, cur.Seek(100, false))
	tassert.Equal(t, leaves[1], cur.Page().ID())
}

func TestSeekFixedLeaf(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, leaves := buildFixedTree(t, pool, []uint64{100}, 20, 8)

	cur := tree.Cursor()
	defer cur.Close()

	// a record the page holds resolves by slot arithmetic
	require.NoError(t, cur.Seek(119, false))
	tassert.Equal(t, CompareEqual, cur.Compare())
	tassert.Equal(t, int16(19), cur.Slot())
	tassert.Equal(t, uint64(119), cur.Recno())
	tassert.Equal(t, leaves[0], cur.Page().ID())

	require.NoError(t, cur.Seek(100, false))
	tassert.Equal(t, CompareEqual, cur.Compare())
	tassert.Equal(t, int16(0), cur.Slot())

	// one past the last record is the append position
	require.NoError(t, cur.Seek(120, false))
	tassert.Equal(t, CompareBefore, cur.Compare())
	tassert.Equal(t, uint64(120), cur.Recno())
	tassert.Nil(t, cur.Found())

	// far past the end still anchors at the first append recno
	require.NoError(t, cur.Seek(100000, false))
	tassert.Equal(t, CompareBefore, cur.Compare())
	tassert.Equal(t, uint64(120), cur.Recno())
}

func TestSeekVarLeaf(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildVarTree(t, pool, 1, []VarRun{
		{Value: []byte("aaa"), Repeat: 3}, // recnos 1..3
		{Value: []byte("b"), Repeat: 1},   // recno  4
		{Value: []byte("cc"), Repeat: 5},  // recnos 5..9
	})

	cur := tree.Cursor()
	defer cur.Close()

	// run starts and run interiors both resolve to the covering slot
	for _, tc := range []struct {
		recno uint64
		slot  int16
	}{
		{1, 0}, {2, 0}, {3, 0},
		{4, 1},
		{5, 2}, {7, 2}, {9, 2},
	} {
		require.NoError(t, cur.Seek(tc.recno, false))
		tassert.Equal(t, CompareEqual, cur.Compare(), "recno %d", tc.recno)
		tassert.Equal(t, tc.slot, cur.Slot(), "recno %d", tc.recno)
	}

	// past the last run the position anchors at the page's last record
	require.NoError(t, cur.Seek(12, false))
	tassert.Equal(t, CompareBefore, cur.Compare())
	tassert.Equal(t, uint64(9), cur.Recno())
}

func TestSeekOverlayResolution(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, _ := buildFixedTree(t, pool, []uint64{100}, 20, 8)

	// two pending appends past the page content
	require.NoError(t, tree.Insert(121, []byte("v121x")))
	require.NoError(t, tree.Insert(125, []byte("v125x")))

	cur := tree.Cursor()
	defer cur.Close()

	// exact overlay match
	require.NoError(t, cur.Seek(121, false))
	tassert.Equal(t, CompareEqual, cur.Compare())
	require.NotNil(t, cur.Found())
	tassert.Equal(t, uint64(121), cur.Found().Recno())

	// between overlay entries the larger one is found
	require.NoError(t, cur.Seek(123, false))
	tassert.Equal(t, CompareAfter, cur.Compare())
	tassert.Equal(t, uint64(125), cur.Recno())

	// past all overlay entries the last one is found
	require.NoError(t, cur.Seek(130, false))
	tassert.Equal(t, CompareBefore, cur.Compare())
	tassert.Equal(t, uint64(125), cur.Recno())
}

func TestSeekPinFailureReleasesHeldPage(t *testing.T) {
	// a single-frame pool cannot pin a parent and child at the same time, so
	// the descent's child fetch must fail and release the parent
	pool := newTestPool(t, 1)
	tree, _ := buildFixedTree(t, pool, []uint64{1, 100}, 10, 8)

	cur := tree.Cursor()
	err := cur.Seek(50, false)
	require.Error(t, err)
	tassert.Equal(t, bufferpool.ErrNoVictimsAvail, errors.Cause(err))
	tassert.Nil(t, cur.Page())

	// the root must be fetchable again, proving no pin leaked
	page, err := pool.FetchPage(tree.Root())
	require.NoError(t, err)
	require.NoError(t, pool.UnpinPage(page.ID()))
}

func TestSeekInvalidPageType(t *testing.T) {
	pool := newTestPool(t, 1)

	page, err := pool.NewPage()
	require.NoError(t, err)
	page.WritePageType(99)
	pgno := page.ID()
	require.NoError(t, pool.UnpinPage(pgno))

	tree := NewTree(pool, pgno, nil)
	cur := tree.Cursor()
	err = cur.Seek(1, false)
	require.Error(t, err)
	tassert.Equal(t, ErrInvalidPageType, errors.Cause(err))
	tassert.Nil(t, cur.Page())

	// the leaf pin was released on the error path
	page, err = pool.FetchPage(pgno)
	require.NoError(t, err)
	require.NoError(t, pool.UnpinPage(page.ID()))
}

func TestSeekRepositionReleasesPreviousPin(t *testing.T) {
	pool := newTestPool(t, 16)
	tree, leaves := buildFixedTree(t, pool, []uint64{1, 100}, 10, 8)

	cur := tree.Cursor()
	require.NoError(t, cur.Seek(5, false))
	tassert.Equal(t, leaves[0], cur.Page().ID())
	first := cur.Page()

	require.NoError(t, cur.Seek(105, false))
	second := cur.Page()
	tassert.Equal(t, leaves[1], second.ID())
	tassert.Equal(t, 0, first.PinCount())

	require.NoError(t, cur.Close())
	tassert.Nil(t, cur.Page())
	tassert.Equal(t, 0, second.PinCount())
}
