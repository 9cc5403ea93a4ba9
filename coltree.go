// Package coltree implements the record-number indexed search path of a
// column-store b-tree. A tree is a page graph held in a buffer pool: internal
// pages partition the record-number space into (startRecno, child) entries
// and leaf pages hold records in one of two physical encodings, fixed-length
// (arithmetic slot addressing) or variable-length run-length (in-page
// search). Pending inserts, updates and tombstones live in per-page skip
// structured insert overlays until reconciliation merges them into the
// persisted image.
package coltree

import (
	"fmt"

	"github.com/pkg/errors"
)

// MaxSkipDepth is the maximum number of levels in an insert overlay.
const MaxSkipDepth = 10

// Comparison outcome of a search: the position of the nearest found record
// relative to the requested one.
const (
	CompareBefore = -1 // found record precedes the requested one (append path)
	CompareEqual  = 0  // exact match
	CompareAfter  = 1  // found record follows the requested one
)

var (
	ErrInvalidPageType = errors.New("coltree: invalid page type")
	ErrRecordTooLarge  = errors.New("coltree: record too large for page")
	ErrRecordSizeWrong = errors.New("coltree: record length does not match page record size")
	ErrPageFull        = errors.New("coltree: page is full")
	ErrBadLeafOrder    = errors.New("coltree: leaves must be added in ascending recno order")
)

// search implements a binary search similar to sort.Search(), however,
// it returns the position as well as whether an exact match was made.
//
// The return value from f should be -1 for less than, 0 for equal, and 1 for
// greater than.
func search(n int, f func(int) int) (index int, exact bool) {
	i, j := 0, n
	for i < j {
		h := int(uint(i+j) >> 1)
		if cmp := f(h); cmp == 0 {
			return h, true
		} else if cmp > 0 {
			i = h + 1
		} else {
			j = h
		}
	}
	return i, false
}

// assert panics on structural corruption; these conditions indicate an
// on-disk or in-memory invariant violation that cannot be reasoned about
// locally.
func assert(condition bool) {
	if !condition {
		panic(fmt.Errorf("coltree: assertion failed"))
	}
}
