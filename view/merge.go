package view

import (
	"container/heap"
	"errors"
	"fmt"
	"io"

	"github.com/embarktrucks/embag/bag"
)

// cursor wraps one bag's own pull-based iterator, holding at most the
// single message it has already pulled from that bag but not yet
// yielded to the merge — so at most one bag.Iterator per bag is ever
// advanced ahead of the merge, and each one holds at most the one
// chunk its own cursor is currently on.
type cursor struct {
	bagIndex int
	it       *bag.Iterator
	next     *bag.Message
}

func newCursor(bagIndex int, it *bag.Iterator) (*cursor, error) {
	c := &cursor{bagIndex: bagIndex, it: it}
	if err := c.advance(); err != nil {
		return nil, err
	}
	return c, nil
}

// advance pulls the next message from the underlying bag iterator.
// Reaching the end of that bag leaves next nil rather than erroring;
// the caller drops the cursor from the heap in that case.
func (c *cursor) advance() error {
	m, err := c.it.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.next = nil
			return nil
		}
		return err
	}
	c.next = m
	return nil
}

func (c *cursor) exhausted() bool { return c.next == nil }

// mergeHeap is a container/heap.Interface over active cursors, popping
// the cursor whose next message sorts first. Since each bag's own
// Iterator already resolves ties within that bag (chunk position, then
// record position), the cross-bag merge here only needs to break ties
// by bag insertion order — the same approach as the teacher's
// rangeIndexHeap (go/mcap/range_index_heap.go), specialized from "the
// next chunk or message index entry across one file" to "the next
// message across many bags".
type mergeHeap []*cursor

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	mi, mj := h[i].next, h[j].next
	if c := mi.Time.Compare(mj.Time); c != 0 {
		return c < 0
	}
	return h[i].bagIndex < h[j].bagIndex
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*cursor)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Iterator pulls messages across every bag in a View in ascending
// timestamp order. At any moment it holds at most one pulled-ahead
// message (and therefore at most one decoded chunk) per underlying
// bag; dropping it via Close releases every per-bag iterator's
// reference to its current chunk.
type Iterator struct {
	h mergeHeap
}

func newIterator(bags []*bag.Bag, topics ...string) (*Iterator, error) {
	h := make(mergeHeap, 0, len(bags))
	for i, b := range bags {
		bit, err := b.ReadMessages(topics...)
		if err != nil {
			return nil, fmt.Errorf("bag %d: %w", i, err)
		}
		c, err := newCursor(i, bit)
		if err != nil {
			return nil, fmt.Errorf("bag %d: %w", i, err)
		}
		if !c.exhausted() {
			h = append(h, c)
		}
	}
	heap.Init(&h)
	return &Iterator{h: h}, nil
}

// Next returns the next message in the merged, ascending timestamp
// order, or io.EOF once every bag's iterator is exhausted. A decode
// failure on any one bag terminates the Iterator with that error
// (later calls return io.EOF); messages already returned by earlier
// Next calls remain valid.
func (it *Iterator) Next() (*bag.Message, error) {
	if it.h.Len() == 0 {
		return nil, io.EOF
	}
	c := it.h[0]
	m := c.next
	if err := c.advance(); err != nil {
		it.h = nil
		return nil, err
	}
	if c.exhausted() {
		heap.Pop(&it.h)
	} else {
		heap.Fix(&it.h, 0)
	}
	return m, nil
}

// Close drops every per-bag cursor's reference to its currently pulled
// message and decoded chunk. The caller stops iteration simply by
// dropping the Iterator; calling Close makes that release explicit.
func (it *Iterator) Close() error {
	for _, c := range it.h {
		c.it.Close()
	}
	it.h = nil
	return nil
}
